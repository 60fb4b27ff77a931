package rest

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"activegraph/internal/errors"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Code      string            `json:"code,omitempty"`
	Entity    string            `json:"entity,omitempty"`
	Timestamp string            `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Write sends the problem.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

func newProblem(status int, kind, title, detail string) *Problem {
	return &Problem{
		Type:      "/errors/" + kind,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// badRequest is for malformed bodies and parameters.
func badRequest(detail string) *Problem {
	p := newProblem(http.StatusBadRequest, "bad-request", "Bad Request", detail)
	p.Code = errors.CodeInvalidInput.String()
	return p
}

// validationProblem lists the failing fields of a request DTO.
func validationProblem(err error) *Problem {
	p := badRequest("request validation failed")
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		p.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			p.Fields[fe.Field()] = fe.Tag()
		}
	}
	return p
}

// problemFrom maps a domain error to a response.
func problemFrom(err error) *Problem {
	var ue *errors.UnifiedError
	if !stderrors.As(err, &ue) {
		return newProblem(http.StatusInternalServerError, "internal", "Internal Server Error", "")
	}

	var p *Problem
	switch ue.Type {
	case errors.ErrorTypeNotFound:
		p = newProblem(http.StatusNotFound, "not-found", "Not Found", ue.Message)
	case errors.ErrorTypeInvalidReference:
		p = newProblem(http.StatusUnprocessableEntity, "invalid-reference", "Unprocessable Entity", ue.Message)
	case errors.ErrorTypeValidation:
		p = newProblem(http.StatusBadRequest, "bad-request", "Bad Request", ue.Message)
	case errors.ErrorTypeUnavailable:
		p = newProblem(http.StatusServiceUnavailable, "unavailable", "Service Unavailable", ue.Message)
	default:
		return newProblem(http.StatusInternalServerError, "internal", "Internal Server Error", "")
	}
	p.Code = ue.Code
	p.Entity = ue.EntityID
	return p
}
