package shared

import (
	"activegraph/internal/errors"
)

// Domain sentinels. Operations return errors derived from these with
// errors.From, so errors.Is(err, ErrNodeNotFound) holds for the result.
var (
	ErrNodeNotFound = errors.NotFound(errors.CodeNodeNotFound.String(), "node not found").
			WithResource("node").
			Build()

	ErrConnectionNotFound = errors.NotFound(errors.CodeConnectionNotFound.String(), "connection not found").
				WithResource("connection").
				Build()

	ErrInvalidReference = errors.InvalidReference(errors.CodeEndpointNotFound.String(), "connection endpoint is not a node of this graph").
				WithResource("connection").
				Build()
)
