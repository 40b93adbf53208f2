package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpv1 "github.com/yourorg/valuation-api/http/v1"
	"github.com/yourorg/valuation-api/internal/cache"
	"github.com/yourorg/valuation-api/internal/env"
	"github.com/yourorg/valuation-api/internal/events"
	"github.com/yourorg/valuation-api/internal/logger"
	"github.com/yourorg/valuation-api/internal/monitor"
	"github.com/yourorg/valuation-api/internal/pipeline"
	"github.com/yourorg/valuation-api/internal/recorder"
	"github.com/yourorg/valuation-api/internal/redisx"
	"github.com/yourorg/valuation-api/internal/refresh"
	"github.com/yourorg/valuation-api/internal/store"
	"github.com/yourorg/valuation-api/internal/valuation"
	"github.com/yourorg/valuation-api/provider"
)

func main() {
	_ = env.Load()
	log := logger.New(env.Get("LOG_LEVEL", "info"), env.Get("LOG_FORMAT", "json"))
	defer func() { _ = log.Sync() }()

	port := env.GetInt("PORT", 4002)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapters := provider.NewAdapters(provider.ConfigFromEnv(), log)
	for _, a := range adapters {
		if !a.Enabled() {
			log.Info("provider disabled, no credentials", zap.String("provider", a.Name()))
		}
	}
	agg := valuation.NewAggregator(adapters, log)

	// audit store is optional; without PG_DSN valuations are not recorded
	var rec *recorder.Recorder
	var st *store.Store
	if dsn := env.Get("PG_DSN", ""); dsn != "" {
		var err error
		st, err = store.Open(dsn)
		if err != nil {
			log.Fatal("store open error", zap.Error(err))
		}
		defer st.DB.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := st.Ping(pingCtx); err != nil {
			cancel()
			log.Fatal("postgres ping error", zap.Error(err))
		}
		if err := st.Migrate(pingCtx); err != nil {
			cancel()
			log.Fatal("postgres migrate error", zap.Error(err))
		}
		cancel()

		pub := events.NewInMemory(256)
		rec = &recorder.Recorder{Store: st, Pub: pub}
		go (&monitor.Monitor{Pub: pub, Log: log.Named("monitor")}).Run(ctx)
	}

	// a nil *Recorder records nothing
	svc := pipeline.New(agg, rec, log)

	resolve := httpv1.ResolveDeps{Valuator: svc, Log: log}
	if addr := env.Get("REDIS_ADDR", ""); addr != "" {
		rdb := redisx.New(addr, env.Get("REDIS_PASSWORD", ""), env.GetInt("REDIS_DB", 0))
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, resolve cache disabled", zap.Error(err))
		} else {
			resolve.Cache = cache.New(rdb, env.GetDuration("CACHE_TTL", cache.DefaultTTL), env.GetDuration("CACHE_STALE_AFTER", cache.DefaultStaleAfter))
		}
		cancel()
	}
	refresher := refresh.New(256, 2, httpv1.RefreshFunc(resolve))
	resolve.Refresh = refresher

	deps := RouterDeps{Valuator: svc, Resolve: resolve, Refresher: refresher, Log: log}
	if st != nil {
		deps.History = st
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           logger.Middleware(log, BuildRouter(deps)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("valuation-api listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
	refresher.Close()
	log.Info("valuation-api stopped")
}
