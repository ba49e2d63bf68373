package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Generic messages
const (
	MsgInternalError      = "Internal Server Error. Try again later"
	MsgServiceUnavailable = "Service temporarily unavailable"
)

// APIError represents a standardized API error response
type APIError struct {
	Errors []string `json:"errors"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// NewAPIError creates a new APIError
func NewAPIError(messages ...string) *APIError {
	return &APIError{Errors: messages}
}

// RespondWithError aborts the request and sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.AbortWithStatusJSON(statusCode, err)
}

// RespondWithDetails aborts the request and sends an error response carrying extra fields
func RespondWithDetails(c *gin.Context, statusCode int, message string, details gin.H) {
	body := gin.H{"errors": []string{message}}
	for k, v := range details {
		body[k] = v
	}
	c.AbortWithStatusJSON(statusCode, body)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Not Found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, messages ...string) {
	if len(messages) == 0 {
		messages = []string{"Invalid request"}
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(messages...))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(MsgInternalError))
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = MsgServiceUnavailable
	}
	RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(message))
}

// ValidationFailed sends a 400 response listing one message per invalid field
func ValidationFailed(c *gin.Context, err error) {
	BadRequest(c, ValidationMessages(err)...)
}

// ValidationMessages renders binding errors as human readable field messages
func ValidationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid request body"}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	// Keep the index path for elements of slices: data[0].quantity
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		if i := strings.Index(ns, "."); i >= 0 {
			field = ns[i+1:]
		}
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' field is required", field)
	case "email":
		return fmt.Sprintf("'%s' field must be a valid email", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("'%s' field must be a valid ID", field)
	case "min":
		return fmt.Sprintf("'%s' field must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("'%s' field must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("'%s' field must be exactly %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("'%s' field must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("'%s' field must be greater than %s", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("'%s' field must not be empty", field)
	default:
		return fmt.Sprintf("'%s' field is invalid", field)
	}
}
