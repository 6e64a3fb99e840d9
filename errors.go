package rapid

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DeclarationError reports a malformed endpoint declaration: a bad placement
// tag, conflicting wire keys, an unparseable default, or a body kind that is
// incompatible with the field's type. It is detected the first time an
// endpoint's plan is computed and is never recoverable by the caller.
type DeclarationError struct {
	Endpoint string // "METHOD path", or the custom name set with WithName
	Field    string // offending struct field, empty for endpoint-level problems
	Reason   string
}

func (e *DeclarationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid declaration for %s, field %s: %s", e.Endpoint, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid declaration for %s: %s", e.Endpoint, e.Reason)
}

// MissingPathParameterError reports a path template token that has no bound
// value at call time.
type MissingPathParameterError struct {
	Token string
}

func (e *MissingPathParameterError) Error() string {
	return fmt.Sprintf("missing value for path parameter {%s}", e.Token)
}

// BodyConflictError reports two incompatible body kinds present on one
// request. Analysis catches this at declaration time; the request builder
// double-checks at call time.
type BodyConflictError struct {
	Reason string
}

func (e *BodyConflictError) Error() string {
	return "conflicting body parameters: " + e.Reason
}

// SerializationError reports a request value that failed validation or could
// not be serialized into the declared body encoding.
type SerializationError struct {
	Field string // empty when the whole request struct failed validation
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cannot serialize field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("cannot serialize request: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ResponseParseError reports a response body that could not be converted to
// the endpoint's declared result type.
type ResponseParseError struct {
	Kind string // declared result kind, e.g. "json model"
	Err  error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("cannot parse response as %s: %v", e.Kind, e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// StatusError is returned when the raise policy rejects a non-2xx response.
// It keeps the raw *http.Response for inspection; Body holds the already-read
// response body since the resolver consumes Response.Body before checking
// status.
type StatusError struct {
	Response *http.Response
	Body     []byte
}

func (e *StatusError) Error() string {
	if e.Response.Request != nil {
		return fmt.Sprintf("server returned %s for %s %s",
			e.Response.Status, e.Response.Request.Method, e.Response.Request.URL)
	}
	return "server returned " + e.Response.Status
}

// StatusCode returns the HTTP status code of the rejected response.
func (e *StatusError) StatusCode() int { return e.Response.StatusCode }

// validationMessage renders a validator error into a single readable line.
func validationMessage(err error) string {
	valErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, ve.Field()+": "+formatValidationError(ve))
	}
	return strings.Join(messages, "; ")
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
