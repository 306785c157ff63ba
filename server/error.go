package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/gin-gonic/gin"
)

// APIError is the wire shape of a failed request.
type APIError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// HTTPStatus maps an error kind onto an HTTP status code.
func HTTPStatus(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindQuotaExceeded:
		return http.StatusRequestEntityTooLarge
	case apperror.KindRateLimited:
		return http.StatusTooManyRequests
	case apperror.KindConnection:
		return http.StatusBadGateway
	case apperror.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ToAPIError converts an error into its API-safe representation.
// Caller-fault kinds expose their message; infrastructure failures are
// reduced to a generic message so internals never leak.
func ToAPIError(c *gin.Context, err error) *APIError {
	traceID := getTraceIDFromContext(c)

	if apiErr, ok := err.(*APIError); ok {
		if apiErr.TraceID == "" {
			apiErr.TraceID = traceID
		}
		return apiErr
	}

	kind := apperror.KindOf(err)
	out := &APIError{
		Code:    HTTPStatus(kind),
		Kind:    kind.String(),
		TraceID: traceID,
	}

	switch kind {
	case apperror.KindValidation, apperror.KindNotFound, apperror.KindConflict,
		apperror.KindForbidden, apperror.KindQuotaExceeded, apperror.KindRateLimited:
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			out.Message = appErr.Message
		} else {
			out.Message = err.Error()
		}
	case apperror.KindConnection, apperror.KindTimeout:
		out.Message = "upstream dependency unavailable"
	default:
		out.Message = "internal server error"
	}
	return out
}
