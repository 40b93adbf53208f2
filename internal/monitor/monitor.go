package monitor

import (
    "context"

    "go.uber.org/zap"

    "github.com/yourorg/valuation-api/internal/events"
    "github.com/yourorg/valuation-api/internal/metrics"
)

// Monitor consumes valuation.recorded events, logs them and keeps the
// per-source confidence gauge current. Property keys only go to the log.
type Monitor struct {
    Pub events.Publisher
    Log *zap.Logger
}

func (m *Monitor) Run(ctx context.Context) {
    log := m.Log
    if log == nil { log = zap.NewNop() }
    sub := m.Pub.SubscribeValuationRecorded()
    for {
        select {
        case <-ctx.Done():
            return
        case evt := <-sub:
            metrics.LastConfidence.WithLabelValues(evt.DataSource).Set(float64(evt.Confidence))
            log.Info("valuation.recorded",
                zap.String("id", evt.ValuationID),
                zap.String("property_key", evt.PropertyKey),
                zap.String("type", evt.RequestType),
                zap.String("source", evt.DataSource),
                zap.Int64("confidence", evt.Confidence),
                zap.Bool("fallback", evt.UsedFallback),
                zap.Time("at", evt.RecordedAt),
            )
        }
    }
}
