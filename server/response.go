package server

import (
	"net/http"

	"github.com/bignyap/tenantstore/logger/api"
	"github.com/gin-gonic/gin"
)

type ResponseWriter struct {
	logger api.Logger
}

func NewResponseWriter(logger api.Logger) *ResponseWriter {
	return &ResponseWriter{logger: logger}
}

func (rw *ResponseWriter) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func (rw *ResponseWriter) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func (rw *ResponseWriter) NoContent(c *gin.Context) {
	c.AbortWithStatus(http.StatusNoContent)
}

func (rw *ResponseWriter) Error(c *gin.Context, err error) {
	apiErr := ToAPIError(c, err)

	logger := getLoggerFromContext(c)
	if logger == nil {
		logger = rw.logger
	}

	ctx := c.Request.Context()
	if apiErr.Code >= 500 {
		logger.Error(ctx, "API error response", err,
			api.Int("code", apiErr.Code),
			api.String("kind", apiErr.Kind),
		)
	} else {
		logger.Warn(ctx, "API error response",
			api.Int("code", apiErr.Code),
			api.String("kind", apiErr.Kind),
			api.String("message", apiErr.Message),
		)
	}

	c.JSON(apiErr.Code, ErrorResponse{Error: apiErr.Message, Kind: apiErr.Kind, TraceID: apiErr.TraceID})
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
