package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/valuation-api/internal/env"
	"github.com/yourorg/valuation-api/internal/events"
	"github.com/yourorg/valuation-api/internal/logger"
	"github.com/yourorg/valuation-api/internal/monitor"
	"github.com/yourorg/valuation-api/internal/pipeline"
	"github.com/yourorg/valuation-api/internal/recorder"
	"github.com/yourorg/valuation-api/internal/store"
	"github.com/yourorg/valuation-api/internal/valuation"
	"github.com/yourorg/valuation-api/provider"
)

func main() {
	_ = env.Load()
	log := logger.New(env.Get("LOG_LEVEL", "info"), env.Get("LOG_FORMAT", "json")).Named("revaluer")
	defer func() { _ = log.Sync() }()

	dsn := env.Must(log, "PG_DSN")
	identifiers := env.List("REVALUER_PROPERTIES")
	if len(identifiers) == 0 {
		log.Fatal("REVALUER_PROPERTIES must be provided")
	}
	interval := env.GetDuration("REVALUER_INTERVAL", 24*time.Hour)
	pause := env.GetDuration("REVALUER_PAUSE", 1500*time.Millisecond)
	requestTimeout := env.GetDuration("REVALUER_REQUEST_TIMEOUT", 30*time.Second)
	runOnce := env.GetBool("REVALUER_RUN_ONCE", false)
	requestType := valuation.RequestType(env.Get("REVALUER_REQUEST_TYPE", string(valuation.TypeFull)))

	st, err := store.Open(dsn)
	if err != nil {
		log.Fatal("store open error", zap.Error(err))
	}
	defer st.DB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		log.Fatal("postgres ping error", zap.Error(err))
	}
	if err := st.Migrate(ctx); err != nil {
		cancel()
		log.Fatal("postgres migrate error", zap.Error(err))
	}
	cancel()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := events.NewInMemory(256)
	go (&monitor.Monitor{Pub: pub, Log: log}).Run(rootCtx)

	agg := valuation.NewAggregator(provider.NewAdapters(provider.ConfigFromEnv(), log), log)
	svc := pipeline.New(agg, &recorder.Recorder{Store: st, Pub: pub}, log)

	job := &recorder.RevalueJob{
		Runner: svc,
		Logger: log,
		Config: recorder.RevalueConfig{
			Identifiers:          identifiers,
			RequestType:          requestType,
			Interval:             interval,
			PauseBetweenRequests: pause,
			RequestTimeout:       requestTimeout,
		},
	}

	if runOnce {
		if err := job.RunOnce(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("revalue run failed", zap.Error(err))
		}
		return
	}
	if err := job.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("revalue job stopped with error", zap.Error(err))
	}
}
