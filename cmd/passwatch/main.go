package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/passwatch/internal/api"
	"github.com/star/passwatch/internal/ephem"
	"github.com/star/passwatch/internal/groundtrack"
	"github.com/star/passwatch/internal/logging"
	"github.com/star/passwatch/internal/passes"
	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/state"
	"github.com/star/passwatch/internal/tle"
)

func main() {
	logger, logOut := logging.New(loadLogConfig(os.LookupEnv))
	if c, ok := logOut.(io.Closer); ok && logOut != os.Stdout {
		defer c.Close()
	}

	cfg, err := loadConfig(os.LookupEnv, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var tleCache *tle.Cache
	if cfg.TLECacheDir != "" {
		tleCache = tle.NewCache(cfg.TLECacheDir, 3)
	}
	store := tle.NewStore(cfg.Satellites, tle.NewFetcher(cfg.TLEURL, logger), tle.StoreConfig{
		MaxAge:        cfg.TLEMaxAge,
		RetryInterval: cfg.TLERetry,
		Cache:         tleCache,
	}, logger)

	// Serve last-good elements from disk while the catalog is unreachable.
	if n := store.LoadCached(); n > 0 {
		logger.Info("seeded TLE store from cache", "count", n)
	}

	prop := propagation.NewCached(propagation.SGP4{})
	finder := passes.NewFinder(store, prop, ephem.Meeus{}, cfg.Pass, logger)
	aggregator := state.NewAggregator(store, prop, state.Config{
		Workers:    cfg.Workers,
		StaleAfter: cfg.TLEMaxAge,
	}, logger)
	tracks := groundtrack.NewGenerator(store, prop, nil)

	srv := api.NewServer(api.Config{
		Addr:           cfg.Addr,
		ResponseTTL:    cfg.ResponseTTL,
		MaxSearches:    cfg.MaxSearches,
		Auth:           cfg.Auth,
		TrustedProxies: cfg.TrustedProxies,
	}, api.Services{
		Satellites: store.Definitions(),
		State:      aggregator,
		Tracks:     tracks,
		Passes:     finder,
		Ready:      store.Ready,
	}, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go warmStore(ctx, store, logger)

	// Background goroutine to update the per-satellite TLE age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.UpdateAgeMetrics()
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "auth_enabled", cfg.Auth.Enabled, "satellites", len(cfg.Satellites))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// warmStore fetches every satellite once so /readyz turns green without waiting for
// the first API request. Failures are already logged by the store.
func warmStore(ctx context.Context, store *tle.Store, logger *slog.Logger) {
	start := time.Now()
	for _, d := range store.Definitions() {
		if ctx.Err() != nil {
			return
		}
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		store.Get(fetchCtx, d.Key)
		cancel()
	}
	logger.Info("TLE store warmed",
		"ready", store.Ready(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
