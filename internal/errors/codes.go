package errors

// ErrorCode represents a unique error code for a specific failure.
type ErrorCode string

const (
	// Node errors
	CodeNodeNotFound ErrorCode = "NODE_NOT_FOUND"

	// Connection errors
	CodeConnectionNotFound  ErrorCode = "CONNECTION_NOT_FOUND"
	CodeEndpointNotFound ErrorCode = "CONNECTION_ENDPOINT_NOT_FOUND"

	// Broadcast errors
	CodeSubscriberPanic ErrorCode = "SUBSCRIBER_PANIC"

	// Identifier errors
	CodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"

	// Configuration errors
	CodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	CodeConfigUnreadable ErrorCode = "CONFIG_UNREADABLE"

	// Request errors
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Forwarding errors
	CodeForwardFailed ErrorCode = "FORWARD_FAILED"

	// Generic
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeWrapped       ErrorCode = "WRAP_ERROR"
)

// String returns the code as a string.
func (c ErrorCode) String() string {
	return string(c)
}
