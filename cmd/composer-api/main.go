// Package main provides the composer API service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/internal/api/handlers"
	"github.com/ConnorBritain/pidgeon/internal/api/middleware"
	"github.com/ConnorBritain/pidgeon/internal/compose"
	"github.com/ConnorBritain/pidgeon/internal/observability/metrics"
	"github.com/ConnorBritain/pidgeon/internal/observability/tracing"
	"github.com/ConnorBritain/pidgeon/internal/resolve"
	"github.com/ConnorBritain/pidgeon/internal/schema"
)

// Config holds application configuration
type Config struct {
	Port            string
	SchemaDir       string
	DatabaseURL     string
	TableServiceURL string
	OTLPEndpoint    string
	Standard        string
	Version         string
	APIKeys         map[string]string
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := loadConfig()
	ctx := context.Background()

	// Optional tracing
	if cfg.OTLPEndpoint != "" {
		tcfg := tracing.DefaultConfig("composer-api")
		tcfg.OTLPEndpoint = cfg.OTLPEndpoint
		provider, err := tracing.Init(ctx, tcfg)
		if err != nil {
			logger.Fatal("failed to init tracing", zap.Error(err))
		}
		defer provider.Shutdown(context.Background())
	}

	store, readyCheck, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build schema store", zap.Error(err))
	}

	m := metrics.New()
	composer := compose.NewComposer(store, resolve.DefaultChain(nil), logger).WithMetrics(m)

	messageHandler := handlers.NewMessageHandler(composer, logger)
	schemaHandler := handlers.NewSchemaHandler(store, logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("composer-api"))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := readyCheck(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		r.Mount("/messages", messageHandler.Routes())
		r.Mount("/schema", schemaHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting composer API", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// buildStore wires the schema store: Postgres when a database is configured,
// otherwise the YAML directory; both behind the read-through cache, with the
// remote terminology service grafted on when configured.
func buildStore(ctx context.Context, cfg Config, logger *zap.Logger) (schema.Store, func(context.Context) error, error) {
	var (
		backing schema.Store
		ready   func(context.Context) error
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("database ping: %w", err)
		}
		logger.Info("using postgres schema store")
		backing = schema.NewPostgresStore(pool, cfg.Standard, cfg.Version, logger)
		ready = pool.Ping
	} else {
		memStore, err := schema.LoadDir(cfg.SchemaDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load schema dir %s: %w", cfg.SchemaDir, err)
		}
		logger.Info("loaded schema definitions", zap.String("dir", cfg.SchemaDir))
		backing = memStore
		ready = func(context.Context) error { return nil }
	}

	store := schema.Store(schema.NewCachedStore(backing, schema.DefaultCacheSizes()))

	if cfg.TableServiceURL != "" {
		remote, err := schema.NewRemoteTableProvider(cfg.TableServiceURL, store, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("remote table provider: %w", err)
		}
		store = schema.WithTableProvider(store, remote)
	}

	return store, ready, nil
}

func loadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	schemaDir := os.Getenv("SCHEMA_DIR")
	if schemaDir == "" {
		schemaDir = "./schemas"
	}
	standard := os.Getenv("SCHEMA_STANDARD")
	if standard == "" {
		standard = "hl7v2"
	}
	version := os.Getenv("SCHEMA_VERSION")
	if version == "" {
		version = "2.3"
	}

	apiKeys := map[string]string{
		"demo-api-key-12345": "demo-client",
	}
	if key := os.Getenv("API_KEY"); key != "" {
		apiKeys[key] = "env-client"
	}

	return Config{
		Port:            port,
		SchemaDir:       schemaDir,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		TableServiceURL: os.Getenv("TABLE_SERVICE_URL"),
		OTLPEndpoint:    os.Getenv("OTLP_ENDPOINT"),
		Standard:        standard,
		Version:         version,
		APIKeys:         apiKeys,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"composer-api","version":"1.0.0"}`)
}
