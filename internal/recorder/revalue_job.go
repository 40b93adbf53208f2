package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/valuation-api/internal/pipeline"
	"github.com/yourorg/valuation-api/internal/valuation"
)

type RevalueConfig struct {
	Identifiers          []string
	RequestType          valuation.RequestType
	Interval             time.Duration
	PauseBetweenRequests time.Duration
	RequestTimeout       time.Duration
}

// Runner is the piece of the pipeline the job drives.
type Runner interface {
	Run(ctx context.Context, req valuation.Request) (pipeline.Result, error)
}

// RevalueJob revalues a fixed portfolio of identifiers, once or on an interval.
// Recording happens inside the pipeline, so the job only drives it.
type RevalueJob struct {
	Runner Runner
	Logger *zap.Logger
	Config RevalueConfig
}

func (j *RevalueJob) log() *zap.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return zap.NewNop()
}

func (j *RevalueJob) validate() error {
	if j == nil {
		return errors.New("nil revalue job")
	}
	if j.Runner == nil {
		return errors.New("revalue job missing runner")
	}
	if len(j.Config.Identifiers) == 0 {
		return errors.New("revalue job requires at least one identifier")
	}
	j.Config.RequestType = valuation.ParseRequestType(string(j.Config.RequestType))
	return nil
}

func (j *RevalueJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		return j.RunOnce(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.log().Info("revalue job starting",
		zap.Duration("interval", interval),
		zap.Int("identifiers", len(j.Config.Identifiers)),
	)
	if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.log().Warn("revalue job initial run error", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			j.log().Info("revalue job stopping", zap.Error(ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.log().Warn("revalue job iteration error", zap.Error(err))
			}
		}
	}
}

// RunOnce revalues every identifier, joining per-identifier errors.
func (j *RevalueJob) RunOnce(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	timeout := j.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pause := j.Config.PauseBetweenRequests

	var joined error
	done := 0
	for i, raw := range j.Config.Identifiers {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		res, err := j.Runner.Run(reqCtx, valuation.Request{Identifier: id, Type: j.Config.RequestType})
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			joined = errors.Join(joined, fmt.Errorf("identifier %q: %w", id, err))
		} else {
			done++
			j.log().Debug("revalued",
				zap.String("identifier", id),
				zap.String("source", res.Outcome.Composite.DataSource),
				zap.Int64("confidence", res.Outcome.Composite.ConfidenceScore),
			)
		}
		if pause > 0 && i < len(j.Config.Identifiers)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	j.log().Info("revalue pass finished", zap.Int("revalued", done), zap.Int("identifiers", len(j.Config.Identifiers)))
	return joined
}
