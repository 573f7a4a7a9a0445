package api

import (
	"net/http"
	"net/netip"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-allocator/internal/api/handlers"
	"github.com/wonny/aegis-allocator/internal/observability"
	"github.com/wonny/aegis-allocator/pkg/logger"
	"github.com/wonny/aegis-allocator/pkg/redis"
)

// RouterDeps router collaborators; Metrics and Limiter are optional
type RouterDeps struct {
	Engine  *handlers.EngineHandler
	Health  *handlers.HealthHandler
	Metrics *observability.Metrics
	Limiter redis.Limiter
	Logger  *logger.Logger

	// TrustedProxies may set X-Forwarded-For for rate limit keys
	TrustedProxies []netip.Prefix
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	log := deps.Logger

	// Health check / metrics
	r.HandleFunc("/health", deps.Health.Health).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()
	if deps.Limiter != nil {
		api.Use(rateLimitMiddleware(deps.Limiter, clientResolver{trusted: deps.TrustedProxies}, log))
	}

	// Stage endpoints
	api.HandleFunc("/scenarios", deps.Engine.PostScenarios).Methods(http.MethodPost)
	api.HandleFunc("/estimate", deps.Engine.PostEstimate).Methods(http.MethodPost)
	api.HandleFunc("/optimize", deps.Engine.PostOptimize).Methods(http.MethodPost)
	api.HandleFunc("/simulate", deps.Engine.PostSimulate).Methods(http.MethodPost)
	api.HandleFunc("/advice", deps.Engine.PostAdvice).Methods(http.MethodPost)

	// Pipeline + archive
	api.HandleFunc("/pipeline", deps.Engine.PostPipeline).Methods(http.MethodPost)
	api.HandleFunc("/runs", deps.Engine.ListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", deps.Engine.GetRun).Methods(http.MethodGet)

	// Apply middleware
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}
