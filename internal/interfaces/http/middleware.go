package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/metrics"
)

// Identity headers set by the trusted upstream auth layer
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

const principalKey = "principal"

// loggingMiddleware logs each request and records it in the HTTP metrics
func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(method, c.FullPath(), status, latency)

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// clientInfoMiddleware carries the caller's address and agent into the
// request context so audit records can capture them
func clientInfoMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithClientInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// principalMiddleware rejects requests without an identity
func principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		idHeader := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if idHeader == "" {
			abortWithStatus(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+HeaderUserID+" header")
			return
		}
		id, err := strconv.ParseInt(idHeader, 10, 64)
		if err != nil || id <= 0 {
			abortWithStatus(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid "+HeaderUserID+" header")
			return
		}

		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole)))
		if role == "" {
			role = entity.RoleEmployee
		}

		c.Set(principalKey, entity.Principal{
			ID:       id,
			Username: strings.TrimSpace(c.GetHeader(HeaderUserName)),
			Role:     role,
		})
		c.Next()
	}
}

// requireDecider limits a route to approvers and admins
func requireDecider() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principalFrom(c).CanDecide() {
			respondError(c, nil, apperror.Forbidden("approver or admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) entity.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(entity.Principal); ok {
			return p
		}
	}
	return entity.Principal{}
}
