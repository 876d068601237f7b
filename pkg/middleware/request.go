package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
)

// HTTP headers carrying request identity
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderOperator      = "X-Operator"
)

// Gin context keys
const (
	keyRequestID     = "requestId"
	keyCorrelationID = "correlationId"
	keyOperator      = "operator"
)

// identity echoes header back to the client, generating a UUID when the
// caller sent none, and stores it in both the Gin and request contexts.
func identity(header, key string, attach func(context.Context, string) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(key, id)
		c.Header(header, id)
		c.Request = c.Request.WithContext(attach(c.Request.Context(), id))
		c.Next()
	}
}

// RequestID assigns every request an ID
func RequestID() gin.HandlerFunc {
	return identity(HeaderRequestID, keyRequestID, logging.ContextWithRequestID)
}

// CorrelationID propagates the correlation ID that event factories stamp on
// outgoing CloudEvents
func CorrelationID() gin.HandlerFunc {
	return identity(HeaderCorrelationID, keyCorrelationID, logging.ContextWithCorrelationID)
}

// Operator records the workshop operator named in the X-Operator header
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if operator := c.GetHeader(HeaderOperator); operator != "" {
			c.Set(keyOperator, operator)
			c.Request = c.Request.WithContext(logging.ContextWithOperator(c.Request.Context(), operator))
		}
		c.Next()
	}
}

// AccessLog writes one line per request. Server errors log at error level,
// client errors at warn.
func AccessLog(logger *slog.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := quiet[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latencyMs", time.Since(start).Milliseconds(),
			"clientIP", c.ClientIP(),
			"requestId", GetRequestID(c),
			"correlationId", GetCorrelationID(c),
		}
		if operator := c.GetString(keyOperator); operator != "" {
			attrs = append(attrs, "operator", operator)
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", q)
		}
		logger.Log(c.Request.Context(), level, "HTTP request", attrs...)
	}
}

// Recovery turns a handler panic into a 500 response
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logger.Error("Panic recovered",
				"panic", recovered,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"requestId", GetRequestID(c),
			)
			AbortWithAppError(c, errors.ErrInternal("An unexpected error occurred"))
		}()
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}

// GetCorrelationID returns the ID assigned by CorrelationID
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(keyCorrelationID)
}
