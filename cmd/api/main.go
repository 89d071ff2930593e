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
	"github.com/go-chi/chi/v5/middleware"

	"github.com/creature-duel-backend/internal/api"
	"github.com/creature-duel-backend/internal/config"
	"github.com/creature-duel-backend/internal/dex"
	"github.com/creature-duel-backend/internal/game"
	"github.com/creature-duel-backend/internal/store"
	"github.com/creature-duel-backend/internal/store/cassandra"
	"github.com/creature-duel-backend/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", logger.F("error", err.Error()))
		os.Exit(1)
	}

	streaks, err := newStore(cfg, log)
	if err != nil {
		log.Error("Failed to initialize store", logger.F("error", err.Error()))
		os.Exit(1)
	}
	defer streaks.Close()
	log.Info("Store initialized", logger.F("backend", cfg.StoreBackend))

	// Lookup client behind the shared prefetch cache
	client := dex.NewClient(cfg.Dex.BaseURL, cfg.Dex.MaxID, cfg.Dex.Timeout)
	lookup := dex.NewCachedClient(client, dex.NewCache())

	// Warm the cache while nobody is playing yet; best effort only
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		lookup.Prefetch(ctx, cfg.Dex.PrefetchCount, log)
	}()

	rules := game.Rules{
		FetchAttempts:       cfg.Game.FetchAttempts,
		SimilarityAttempts:  cfg.Game.SimilarityAttempts,
		SimilarityTolerance: cfg.Game.SimilarityTolerance,
		CooldownTicks:       cfg.Game.CooldownTicks,
	}

	registry := game.NewRegistry(cfg.Game.TickInterval, log)
	go registry.Run()
	defer registry.Stop()

	handler := api.NewHandler(registry, lookup, streaks, rules, log)

	router := chi.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(api.LoggingMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info("Server starting", logger.F("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", logger.F("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.F("error", err.Error()))
		os.Exit(1)
	}

	log.Info("Server exited")
}

// newStore selects the best-streak store backend from configuration
func newStore(cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(cfg.Redis)
	case "cassandra":
		client, err := cassandra.NewClient(cfg.Cassandra, log)
		if err != nil {
			return nil, err
		}
		return cassandra.NewKVStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}
