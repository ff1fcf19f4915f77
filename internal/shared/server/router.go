package server

import (
	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/artifacts"
	"templatefill-backend/internal/fulfillment"
	"templatefill-backend/internal/services/health"
	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/config"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/server/middleware"
	"templatefill-backend/internal/templates"
)

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Config             config.Config
	Verifier           *auth.Verifier
	HealthHandler      *health.Handler
	TemplateHandler    *templates.Handler
	FulfillmentHandler *fulfillment.Handler
	ArtifactHandler    *artifacts.Handler
	RateLimiter        *middleware.RateLimiter
}

// suggestRoutes reach the metered suggestion API.
var suggestRoutes = map[string]string{
	"POST /api/v1/sessions/:sid/brief": middleware.SuggestGroup,
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
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(api)
	}

	authed := api.Group("",
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT":               {Rate: 10, Burst: 40},
				middleware.SuggestGroup: {Rate: 0.2, Burst: 5},
			},
			GroupFor: middleware.RouteGroups(suggestRoutes),
			Limiter:  deps.RateLimiter,
		}),
	)
	registerMeRoutes(authed)
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.RegisterRoutes(authed)
	}
	if deps.FulfillmentHandler != nil {
		deps.FulfillmentHandler.RegisterRoutes(authed)
	}
	if deps.ArtifactHandler != nil {
		deps.ArtifactHandler.RegisterRoutes(authed)
	}

	return r
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
