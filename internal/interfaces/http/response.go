package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/infrastructure/metrics"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the machine-readable failure part of a Response
type ErrorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// respondError maps business errors to their HTTP status. Anything else is
// logged and reported as an opaque internal error.
func respondError(c *gin.Context, logger Logger, err error) {
	if appErr, ok := apperror.As(err); ok && appErr.Kind != apperror.KindInternal {
		c.JSON(appErr.HTTPStatus(), Response{
			Success: false,
			Error: &ErrorBody{
				Code:     appErr.Code,
				Message:  appErr.Message,
				Metadata: appErr.Metadata,
			},
		})
		return
	}

	if logger != nil {
		logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error:   &ErrorBody{Code: apperror.CodeInternal, Message: "internal server error"},
	})
}

func abortWithStatus(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

func badRequest(c *gin.Context, message string) {
	abortWithStatus(c, http.StatusBadRequest, apperror.CodeInvalidInput, message)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(metrics.Handler())
}
