package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/homestock/internal/auth"
	"github.com/mmynk/homestock/internal/config"
	"github.com/mmynk/homestock/internal/directory"
	"github.com/mmynk/homestock/internal/httpapi"
	"github.com/mmynk/homestock/internal/inventory"
	"github.com/mmynk/homestock/internal/metrics"
	"github.com/mmynk/homestock/internal/session"
	"github.com/mmynk/homestock/internal/storage"
	"github.com/mmynk/homestock/internal/storage/firestore"
	"github.com/mmynk/homestock/internal/storage/memory"
	"github.com/mmynk/homestock/internal/storage/sqlite"
	"github.com/mmynk/homestock/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup()
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupFromString(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.Storage.Driver)

	var prefsStore storage.DocumentStore
	if cfg.Prefs.Path != "" {
		p, err := sqlite.New(cfg.Prefs.Path)
		if err != nil {
			slog.Error("Failed to initialize prefs storage", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		prefsStore = p
		slog.Info("Prefs storage initialized", "database", cfg.Prefs.Path)
	}

	m := metrics.New()
	tokens := auth.NewJWTManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	repo := inventory.NewRepository(store)

	registry := session.NewRegistry(session.NewFactory(session.Config{
		Directory:     directory.New(store),
		Items:         repo,
		Tokens:        tokens,
		Metrics:       m,
		Logger:        slog.Default(),
		RedirectGrace: cfg.Auth.RedirectGrace,
		MarkerTTL:     cfg.Auth.RedirectMarkerTTL,
	}, prefsStore))
	defer registry.Close()
	if ttl := cfg.Server.SessionIdleTTL; ttl > 0 {
		go registry.Run(ctx, max(ttl/4, time.Minute), ttl, slog.Default())
	}

	handler := httpapi.New(httpapi.Config{
		Registry:     registry,
		Tokens:       tokens,
		Metrics:      m,
		Logger:       slog.Default(),
		FetchRetries: cfg.Items.FetchRetries,
	}).Handler()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.DocumentStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	case "firestore":
		return firestore.New(ctx, firestore.Config{
			ProjectID:       cfg.FirestoreProject,
			CredentialsFile: cfg.CredentialsFile,
		})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
