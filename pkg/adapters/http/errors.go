package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// Error codes carried in error responses so clients can recover the sentinel.
const (
	CodeInvalidRequest = "invalid_request"
	CodeEmptyQuestion  = "empty_question"
	CodeNodeNotFound   = "node_not_found"
	CodeBusy           = "busy"
	CodeSuperseded     = "superseded"
	CodeInternal       = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusError is returned by the Client for non-2xx responses.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the error code back to the domain sentinel.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case CodeEmptyQuestion:
		return domain.ErrEmptyQuestion
	case CodeNodeNotFound:
		return domain.ErrNodeNotFound
	case CodeBusy:
		return domain.ErrAskInFlight
	case CodeSuperseded:
		return domain.ErrAskSuperseded
	}
	return nil
}

func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return http.StatusBadRequest, CodeEmptyQuestion
	case errors.As(err, &verrs):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound, CodeNodeNotFound
	case errors.Is(err, domain.ErrAskInFlight):
		return http.StatusConflict, CodeBusy
	case errors.Is(err, domain.ErrAskSuperseded):
		return http.StatusConflict, CodeSuperseded
	}
	return http.StatusInternalServerError, CodeInternal
}

// formatValidationError turns validator errors into a readable message.
func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
