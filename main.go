package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"wellnessAPI/handlers"
	"wellnessAPI/internal/config"
	"wellnessAPI/internal/db"
	"wellnessAPI/internal/memstore"
	"wellnessAPI/internal/orchestrator"
	"wellnessAPI/internal/workers"
	"wellnessAPI/middleware"
	"wellnessAPI/services"

	_ "net/http/pprof"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := cfg.NewLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, healthCheck, closeStore, err := openStorage(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer closeStore()

	metrics := middleware.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.WithError(err).Fatal("Failed to register metrics")
	}

	challengeService := services.NewChallengeService(store, services.ServiceConfig{
		Accounting:       cfg.Accounting(),
		Lifecycle:        cfg.Lifecycle(),
		BatchConcurrency: cfg.BatchConcurrency,
		OnTransition: func(e orchestrator.TransitionEvent) {
			metrics.RecordTransition(string(e.From), string(e.To), string(e.Reason))
		},
	}, logger)

	if cfg.ClerkSecretKey == "" {
		logger.Warn("CLERK_SECRET_KEY is not set, every API request will be rejected")
	} else {
		clerk.SetKey(cfg.ClerkSecretKey)
		logger.Info("Clerk initialized successfully")
	}

	challengeHandler := handlers.NewChallengeHandler(challengeService, logger)
	webhookHandler, err := handlers.NewWebhookHandler(challengeService, cfg.WebhookSecret, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure Clerk webhook")
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("CLERK_WEBHOOK_SECRET is not set, Clerk webhooks will be refused")
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.Cleanup(bgCtx)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(metrics.Monitor)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass, promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret, http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := healthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "storage unavailable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "wellness-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(middleware.ClerkVerifier, logger))

	protected.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	protected.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}", challengeHandler.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenges/{id}", challengeHandler.UpdateChallenge).Methods("PATCH")
	protected.HandleFunc("/challenges/{id}", challengeHandler.DeleteChallenge).Methods("DELETE")
	protected.HandleFunc("/challenges/{id}/metrics", challengeHandler.GetMetrics).Methods("GET")
	protected.HandleFunc("/challenges/{id}/status", challengeHandler.UpdateStatus).Methods("PUT")
	protected.HandleFunc("/challenges/{id}/progress", challengeHandler.UpsertProgress).Methods("PUT")

	refreshWorker := workers.NewRefreshWorker(challengeService, cfg.RefreshSchedule, logger, metrics.RecordRefreshFailures)
	if err := refreshWorker.Start(); err != nil {
		logger.WithError(err).WithField("schedule", cfg.RefreshSchedule).Fatal("Invalid REFRESH_SCHEDULE")
	}

	corsHandler := middleware.CORS()

	port := ":" + cfg.Port
	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Error starting server")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}
	refreshWorker.Stop(shutdownCtx)
	stopBackground()

	logger.Info("Server shutdown complete")
}

// openStorage returns the configured store with its health check and closer.
func openStorage(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (services.ChallengeStorage, func(context.Context) error, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data will not survive a restart")
		return memstore.New(), func(context.Context) error { return nil }, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info("Successfully connected to Postgres")

	closeFn := func() {
		logger.Info("Closing database connection pool...")
		pool.Close()
	}
	return services.NewChallengeStore(pool), pool.Ping, closeFn, nil
}
