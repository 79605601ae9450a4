package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/atrium/internal/authstate"
	"github.com/smallbiznis/atrium/internal/fault"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Remedy  string            `json:"remedy,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var errTooManyAttempts = errors.New("too many login attempts")

// ErrorHandlingMiddleware funnels handler errors into one JSON shape.
// Handlers call AbortWithError and never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{Field: field, Code: code, Message: message},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, errTooManyAttempts) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many login attempts",
		}
	}
	if errors.Is(err, authstate.ErrControllerClosed) {
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service shutting down",
		}
	}
	if errors.Is(err, identitydomain.ErrWeakPassword) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "password", Code: "weak_password", Message: "password does not meet the minimum requirements"},
			},
		}
	}

	fe := fault.From(err)
	payload := errorPayload{Remedy: fe.Remedy}
	switch fe.Kind {
	case fault.NotAuthenticated:
		payload.Type = "unauthorized"
		payload.Message = "authentication required"
		return http.StatusUnauthorized, payload
	case fault.InvalidCredentials:
		payload.Type = "invalid_credentials"
		payload.Message = "invalid credentials"
		return http.StatusUnauthorized, payload
	case fault.AlreadyExists:
		payload.Type = "conflict"
		payload.Message = "resource already exists"
		return http.StatusConflict, payload
	case fault.PermissionDenied:
		payload.Type = "forbidden"
		payload.Message = "permission denied"
		if payload.Remedy == "" {
			payload.Remedy = "check the access policy for the profiles table"
		}
		return http.StatusForbidden, payload
	case fault.Timeout:
		payload.Type = "timeout"
		payload.Message = "the operation timed out"
		return http.StatusServiceUnavailable, payload
	case fault.NotFound:
		payload.Type = "not_found"
		payload.Message = "not found"
		return http.StatusNotFound, payload
	default:
		payload.Type = "internal_error"
		payload.Message = "internal server error"
		return http.StatusInternalServerError, payload
	}
}
