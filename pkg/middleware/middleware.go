// Package middleware holds the Gin middleware chain shared by the cutplan
// HTTP surface: request identity, access logging, panic recovery, error
// responses, tracing, metrics and request validation.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/pkg/errors"
)

// Config holds middleware configuration
type Config struct {
	Logger         *slog.Logger
	ServiceName    string
	TrustedProxies []string
	// QuietPaths are served without an access log line
	QuietPaths []string
}

// DefaultConfig keeps health and scrape endpoints out of the access log
func DefaultConfig(serviceName string, logger *slog.Logger) *Config {
	return &Config{
		Logger:      logger,
		ServiceName: serviceName,
		QuietPaths:  []string{"/health", "/ready", "/metrics"},
	}
}

// Setup installs the standard chain and the JSON 404/405 handlers on router
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(
		Recovery(config.Logger),
		RequestID(),
		CorrelationID(),
		Operator(),
		AccessLog(config.Logger, config.QuietPaths...),
	)

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		writeError(c, errors.NewAppError("ROUTE_NOT_FOUND", "The requested resource was not found", http.StatusNotFound))
	})
	router.NoMethod(func(c *gin.Context) {
		writeError(c, errors.NewAppError("METHOD_NOT_ALLOWED", "The request method is not supported for this resource", http.StatusMethodNotAllowed))
	})
}

func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	}
}

// ReadinessCheck answers 503 while check fails
func ReadinessCheck(serviceName string, check func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ready", "service": serviceName}
		status := http.StatusOK
		if err := check(); err != nil {
			body["status"], body["error"] = "not ready", err.Error()
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}
