package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	azdevopsadapter "github.com/pvanburen/azpanel/internal/adapter/driven/azdevops"
	sqliteadapter "github.com/pvanburen/azpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/pvanburen/azpanel/internal/adapter/driving/http"
	"github.com/pvanburen/azpanel/internal/application"
	"github.com/pvanburen/azpanel/internal/config"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"organization", cfg.Organization,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire the credential store.
	secretKey, err := cfg.SecretKeyBytes()
	if err != nil {
		return err
	}
	credentialStore := sqliteadapter.NewCredentialRepo(db, secretKey)
	if secretKey == nil {
		slog.Info("no secret key configured, credential storage disabled")
	}

	// 6. Resolve credentials: stored values take priority over env vars.
	pat := cfg.PAT
	org := cfg.Organization
	if secretKey != nil {
		if stored, err := credentialStore.Get(ctx, "pat"); err == nil && stored != "" {
			pat = stored
		}
		if stored, err := credentialStore.Get(ctx, "organization"); err == nil && stored != "" {
			org = stored
		}
	}
	if org == "" {
		return errors.New("no organization configured: set AZPANEL_ORGANIZATION or store one via the credentials endpoint")
	}
	if pat == "" {
		slog.Info("no personal access token configured, requests will fail until one is provided")
	}

	// 7. Create the DevOps client behind a hot-swap provider.
	session := azdevopsadapter.NewSession(pat)
	newClient := func(org string) driven.DevOpsReader {
		return azdevopsadapter.NewClient(org, session,
			azdevopsadapter.WithMaxAttempts(cfg.MaxAttempts),
			azdevopsadapter.WithRetryDelay(cfg.RetryDelay),
		)
	}
	provider := application.NewClientProvider(newClient(org), org)
	slog.Info("devops client created", "organization", org)

	// 8. Create the stats service.
	statsSvc := application.NewStatsService(provider)

	// 9. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(provider, statsSvc, session, credentialStore, newClient, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("azpanel started", "listen_addr", cfg.ListenAddr, "organization", org)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
