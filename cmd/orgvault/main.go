package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	ovhttp "github.com/orgvault/orgvault/internal/adapter/http"
	ovnats "github.com/orgvault/orgvault/internal/adapter/nats"
	"github.com/orgvault/orgvault/internal/adapter/postgres"
	"github.com/orgvault/orgvault/internal/adapter/ristretto"
	"github.com/orgvault/orgvault/internal/config"
	"github.com/orgvault/orgvault/internal/logger"
	"github.com/orgvault/orgvault/internal/port/messagequeue"
	"github.com/orgvault/orgvault/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := ovnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	// --- Services ---

	registry := postgres.NewRegistry(pool)
	partitions := postgres.NewPartitionStore(pool)

	lifecycleSvc := service.NewLifecycleService(registry, partitions, queue, l1, &cfg.Auth, cfg.Cache.TTL)
	authSvc := service.NewAuthService(registry, partitions, l1, &cfg.Auth, cfg.Cache.TTL)

	reconciler := service.NewReconciler(registry, partitions, queue, cfg.Reconcile)
	reconciler.Start(ctx)

	// --- HTTP ---

	handlers := &ovhttp.Handlers{
		Lifecycle: lifecycleSvc,
		Auth:      authSvc,
		BodyLimit: cfg.Server.BodyLimit,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(ovhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(ovhttp.SecurityHeaders)
	r.Use(ovhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.Timeout))

	r.Get("/health", healthHandler(pool, queue))

	ovhttp.MountRoutes(r, handlers, authSvc)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports postgres and nats reachability.
func healthHandler(pool *pgxpool.Pool, queue messagequeue.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "up", NATS: "up"}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Postgres = "down"
			code = http.StatusServiceUnavailable
		}
		if !queue.IsConnected() {
			status.Status = "degraded"
			status.NATS = "down"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
