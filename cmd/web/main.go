package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/blob"
	"github.com/AdamBeresnev/art-battle/internal/config"
	"github.com/AdamBeresnev/art-battle/internal/db"
	"github.com/AdamBeresnev/art-battle/internal/middleware"
	"github.com/AdamBeresnev/art-battle/internal/scheduler"
	"github.com/AdamBeresnev/art-battle/internal/service"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.MigrationsURL); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth(cfg.OAuth)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	eventStore := store.NewEventStore(database)
	artworkStore := store.NewArtworkStore(database)
	pointsStore := store.NewPointsStore(database)

	lifecycle := service.NewLifecycleService(eventStore)
	scoring := service.NewScoringService(database, eventStore, artworkStore, pointsStore, lifecycle, service.ScoringConfig{
		Rewards:                  cfg.Scoring.Rewards(),
		AttackRequiresCounterArt: cfg.Scoring.AttackRequiresCounterArt,
		MaxRetries:               cfg.Scoring.MaxRetries,
		RetryInterval:            cfg.Scoring.RetryInterval,
	})
	reconciler := service.NewReconcileService(database, artworkStore, pointsStore, scoring)

	app := &application{
		cfg:            cfg,
		sessionManager: sessionManager,
		events:         service.NewEventService(database, eventStore, artworkStore, lifecycle),
		scoring:        scoring,
		profiles:       service.NewProfileService(database, store.NewProfileStore(database)),
	}

	r2, err := blob.NewR2Store(ctx, cfg.R2)
	switch {
	case errors.Is(err, blob.ErrDisabled):
		slog.Warn("R2 is not configured, only image links are accepted")
	case err != nil:
		log.Fatal(err)
	default:
		app.uploads = r2
	}

	jobs, err := scheduler.New(lifecycle, reconciler)
	if err != nil {
		log.Fatal(err)
	}
	if err := jobs.Start(ctx, cfg.Scoring.StatusRefreshInterval, cfg.Scoring.ReconcileInterval); err != nil {
		log.Fatal(err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := jobs.Shutdown(); err != nil {
		slog.Error("scheduler shutdown failed", "error", err)
	}
}
