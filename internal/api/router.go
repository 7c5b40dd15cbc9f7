package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiContext "llmrelay/internal/api/context"
	"llmrelay/internal/api/handlers"
	"llmrelay/internal/api/middleware"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/config"
)

type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	AccessKeyHandler    *handlers.AccessKeyHandler
	CompletionHandler   *handlers.CompletionHandler
	ModelHandler        *handlers.ModelHandler
	HealthHandler       *handlers.HealthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	AccessKeyMiddleware *middleware.AccessKeyMiddleware
	MetricsMiddleware   *middleware.MetricsMiddleware
	RateLimiter         *middleware.RateLimiter
	RateLimits          config.RateLimitConfig
	Registry            *prometheus.Registry
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusMethodNotAllowed, errors.ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	observe := deps.MetricsMiddleware.Handle

	router.GET("/health", chain(deps.HealthHandler.Check, observe("/health")))
	if deps.Registry != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Authentication routes
	router.POST("/api/v1/auth/register",
		chain(deps.AuthHandler.Register, observe("/api/v1/auth/register")))
	router.POST("/api/v1/auth/login",
		chain(deps.AuthHandler.Login, observe("/api/v1/auth/login")))

	authMid := deps.AuthMiddleware
	keyMid := deps.AccessKeyMiddleware

	writeLimit := deps.RateLimiter.Limit("api_write", deps.RateLimits.APIWritePerMinute, middleware.KeyByRemoteAddr)
	completionLimit := deps.RateLimiter.Limit("completions", deps.RateLimits.CompletionsPerMinute, middleware.KeyByAccessKey)

	// Access key management, JWT-guarded
	router.GET("/api/v1/access-keys",
		chain(deps.AccessKeyHandler.List, observe("/api/v1/access-keys"), authMid.Handle))
	router.POST("/api/v1/access-keys",
		chain(deps.AccessKeyHandler.Create, observe("/api/v1/access-keys"), authMid.Handle, writeLimit))
	router.PATCH("/api/v1/access-keys/:key_id",
		chain(deps.AccessKeyHandler.Update, observe("/api/v1/access-keys/:key_id"), authMid.Handle, writeLimit))
	router.DELETE("/api/v1/access-keys/:key_id",
		chain(deps.AccessKeyHandler.Delete, observe("/api/v1/access-keys/:key_id"), authMid.Handle, writeLimit))

	// Completion surface, access-key guarded. The /v1 aliases keep OpenAI
	// SDKs working with only a base URL change.
	router.POST("/api/v1/completions",
		chain(deps.CompletionHandler.Create, observe("/api/v1/completions"), keyMid.Handle, completionLimit))
	router.POST("/v1/chat/completions",
		chain(deps.CompletionHandler.Create, observe("/v1/chat/completions"), keyMid.Handle, completionLimit))
	router.GET("/v1/models",
		chain(deps.ModelHandler.List, observe("/v1/models"), keyMid.Handle))

	return router
}

// chain applies middlewares right to left around a handler.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap converts an http.HandlerFunc to an httprouter.Handle, exposing the
// route params through the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
