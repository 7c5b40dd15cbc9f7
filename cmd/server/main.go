package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"llmrelay/internal/api"
	"llmrelay/internal/api/handlers"
	"llmrelay/internal/api/middleware"
	"llmrelay/internal/engine/accesskeys"
	"llmrelay/internal/engine/adapters"
	"llmrelay/internal/engine/completions"
	"llmrelay/internal/engine/usage"
	"llmrelay/internal/pkg/logger"
	"llmrelay/internal/pkg/metrics"
	"llmrelay/internal/platform/auth"
	"llmrelay/internal/platform/config"
	"llmrelay/internal/platform/database"
	"llmrelay/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Repositories and services
	userRepo := repositories.NewUserRepository(db)
	tokenSvc := auth.NewTokenService(cfg.JWT)
	hasher := accesskeys.NewHasher(cfg.AccessKeys.Argon2Time, cfg.AccessKeys.Argon2Memory, cfg.AccessKeys.Argon2Threads)
	keySvc := accesskeys.NewService(accesskeys.NewRepository(db), hasher)

	dispatcher := adapters.NewDispatcher(cfg.Providers)
	completionSvc := completions.NewService(completions.DefaultRegistry(), dispatcher)
	recorder := usage.NewRecorder(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, tokenSvc)
	accessKeyHandler := handlers.NewAccessKeyHandler(keySvc)
	completionHandler := handlers.NewCompletionHandler(completionSvc, recorder, m)
	modelHandler := handlers.NewModelHandler(completionSvc.Registry())
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	accessKeyMiddleware := middleware.NewAccessKeyMiddleware(keySvc, m)
	metricsMiddleware := middleware.NewMetricsMiddleware(m)

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:         authHandler,
		AccessKeyHandler:    accessKeyHandler,
		CompletionHandler:   completionHandler,
		ModelHandler:        modelHandler,
		HealthHandler:       healthHandler,
		AuthMiddleware:      authMiddleware,
		AccessKeyMiddleware: accessKeyMiddleware,
		MetricsMiddleware:   metricsMiddleware,
		RateLimiter:         middleware.NewRateLimiter(),
		RateLimits:          cfg.RateLimit,
		Registry:            registry,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
