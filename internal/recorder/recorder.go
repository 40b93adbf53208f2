package recorder

import (
    "context"
    "time"

    "github.com/yourorg/valuation-api/internal/canon"
    "github.com/yourorg/valuation-api/internal/events"
    "github.com/yourorg/valuation-api/internal/store"
    "github.com/yourorg/valuation-api/internal/valuation"
)

// ValuationWriter is the slice of the store the recorder needs.
type ValuationWriter interface {
    RecordValuation(ctx context.Context, in store.ValuationInput) (string, error)
}

// Recorder persists finished valuations and announces them.
type Recorder struct {
    Store ValuationWriter
    Pub   events.Publisher
}

func (r *Recorder) Enabled() bool { return r != nil && r.Store != nil }

func (r *Recorder) Record(ctx context.Context, req valuation.Request, out valuation.Outcome, payload []byte) error {
    if !r.Enabled() { return nil }
    pk := canon.PropertyKey(req.Identifier)
    c := out.Composite
    in := store.ValuationInput{
        PropertyKey:         pk,
        Identifier:          req.Identifier,
        RequestType:         string(req.Type),
        EstimatedValueCents: c.EstimatedValueCents,
        RentEstimateCents:   c.RentEstimateCents,
        PricePerSqftCents:   c.PricePerSqftCents,
        Confidence:          c.ConfidenceScore,
        DataSource:          c.DataSource,
        Bedrooms:            c.Bedrooms,
        Bathrooms:           c.Bathrooms,
        Sqft:                c.Sqft,
        UsedFallback:        out.UsedFallback,
        Payload:             payload,
    }
    for _, raw := range out.Raw {
        in.Snapshots = append(in.Snapshots, store.Snapshot{Provider: raw.Provider, Endpoint: raw.Endpoint, Payload: raw.Payload})
    }
    id, err := r.Store.RecordValuation(ctx, in)
    if err != nil { return err }
    if r.Pub != nil {
        r.Pub.PublishValuationRecorded(ctx, events.ValuationRecorded{
            ValuationID:  id,
            PropertyKey:  pk,
            RequestType:  string(req.Type),
            DataSource:   c.DataSource,
            Confidence:   c.ConfidenceScore,
            UsedFallback: out.UsedFallback,
            RecordedAt:   time.Now().UTC(),
        })
    }
    return nil
}
