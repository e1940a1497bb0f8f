package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/applications"
	googleauth "recruit-backend/internal/auth"
	"recruit-backend/internal/documents"
	"recruit-backend/internal/messaging"
	"recruit-backend/internal/services/health"
	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/server/middleware"
)

// RouterDeps carries everything the router needs; nil handlers are skipped.
type RouterDeps struct {
	Config              config.Config
	Health              *health.Service
	ApplicationsHandler *applications.Handler
	MessagingHandler    *messaging.Handler
	DocumentsHandler    *documents.Handler
	GoogleAuth          *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(writeRateLimit()),
	)

	api := r.Group("/api/v1")

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	api.GET("/health", func(c *gin.Context) {
		status := healthSvc.Status(c.Request.Context())
		code := http.StatusOK
		if ok, _ := status["ok"].(bool); !ok {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	api.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)

	if deps.ApplicationsHandler != nil {
		deps.ApplicationsHandler.RegisterRoutes(api)
	}
	if deps.MessagingHandler != nil {
		deps.MessagingHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}

	return r
}

// writeRateLimit caps mutating requests per principal. Reads stay unlimited;
// the messaging sliding window still applies its own per-conversation cap.
func writeRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"WRITE": {Rate: 5, Burst: 20},
		},
		GroupFor: func(c *gin.Context) string {
			switch c.Request.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				return "WRITE"
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
