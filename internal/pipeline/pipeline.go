// Package pipeline runs one valuation end to end: aggregate, encode, record.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/valuation-api/internal/metrics"
	"github.com/yourorg/valuation-api/internal/oracle"
	"github.com/yourorg/valuation-api/internal/valuation"
)

// Recorder receives every successfully encoded valuation. Its errors are
// logged and never fail the request.
type Recorder interface {
	Record(ctx context.Context, req valuation.Request, out valuation.Outcome, payload []byte) error
}

type Aggregator interface {
	Aggregate(ctx context.Context, req valuation.Request) (valuation.Outcome, error)
}

// Result is a finished valuation: the composite, its payload, and the inputs behind it.
type Result struct {
	Request valuation.Request
	Outcome valuation.Outcome
	Payload []byte
}

type Service struct {
	agg      Aggregator
	recorder Recorder
	log      *zap.Logger
}

func New(agg Aggregator, recorder Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{agg: agg, recorder: recorder, log: log}
}

// Run returns either a complete payload or an error; never a partial result.
func (s *Service) Run(ctx context.Context, req valuation.Request) (Result, error) {
	start := time.Now()
	typ := valuation.ParseRequestType(string(req.Type))
	req.Type = typ
	label := typ.Label()

	out, err := s.agg.Aggregate(ctx, req)
	if err != nil {
		metrics.Requests.WithLabelValues(label, "error").Inc()
		return Result{}, err
	}
	payload, err := oracle.Encode(out.Composite)
	if err != nil {
		metrics.Requests.WithLabelValues(label, "error").Inc()
		s.log.Error("encode failed", zap.Error(err), zap.Any("composite", out.Composite))
		return Result{}, err
	}

	metrics.Requests.WithLabelValues(label, "ok").Inc()
	metrics.Confidence.Observe(float64(out.Composite.ConfidenceScore))
	metrics.Duration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, req, out, payload); err != nil {
			s.log.Warn("valuation record failed", zap.Error(err))
		}
	}
	s.log.Debug("valuation produced",
		zap.String("type", label),
		zap.String("source", out.Composite.DataSource),
		zap.Int64("confidence", out.Composite.ConfidenceScore),
		zap.Bool("fallback", out.UsedFallback),
	)
	return Result{Request: req, Outcome: out, Payload: payload}, nil
}
