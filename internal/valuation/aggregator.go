package valuation

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yourorg/valuation-api/internal/metrics"
	"github.com/yourorg/valuation-api/provider"
)

type RequestType string

const (
	TypeFull   RequestType = "full"
	TypePrice  RequestType = "price"
	TypeRent   RequestType = "rent"
	TypeMarket RequestType = "market"
)

// minSources is how many successful providers end the provider walk.
const minSources = 2

var ErrIdentifierRequired = errors.New("valuation: property identifier is required")

// ParseRequestType maps an empty type to full and keeps anything else
// verbatim. Every type is accepted; only an exact "full" or "price" reaches
// the providers.
func ParseRequestType(s string) RequestType {
	if s == "" {
		return TypeFull
	}
	return RequestType(s)
}

// queriesProviders reports whether a request type triggers provider calls.
// The match is exact: "FULL" or " price" resolve to the fallback like rent
// and market do.
func (t RequestType) queriesProviders() bool {
	return t == TypeFull || t == TypePrice
}

// Label is the bounded form of t used for metric labels.
func (t RequestType) Label() string {
	switch t {
	case TypeFull, TypePrice, TypeRent, TypeMarket:
		return string(t)
	}
	return "other"
}

// Request is one valuation ask. Identifier is used verbatim.
type Request struct {
	Identifier string      `json:"identifier"`
	Type       RequestType `json:"type"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Identifier) == "" {
		return ErrIdentifierRequired
	}
	return nil
}

// Outcome is everything one aggregation produced.
type Outcome struct {
	Composite    Composite
	Estimates    []provider.SourceEstimate
	Raw          []provider.Raw
	UsedFallback bool
}

// Aggregator walks the adapters in priority order and combines what they return.
// It keeps no state between calls.
type Aggregator struct {
	adapters []provider.Adapter
	log      *zap.Logger
}

func NewAggregator(adapters []provider.Adapter, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{adapters: adapters, log: log}
}

func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	typ := ParseRequestType(string(req.Type))

	var out Outcome
	if typ.queriesProviders() {
		for _, ad := range a.adapters {
			if len(out.Estimates) >= minSources {
				break
			}
			if !ad.Enabled() {
				a.log.Debug("provider skipped, no credential", zap.String("provider", ad.Name()))
				metrics.ProviderCalls.WithLabelValues(ad.Name(), metrics.OutcomeSkipped).Inc()
				continue
			}
			res, ok := ad.Estimate(ctx, req.Identifier)
			if !ok {
				metrics.ProviderCalls.WithLabelValues(ad.Name(), metrics.OutcomeNoData).Inc()
				continue
			}
			metrics.ProviderCalls.WithLabelValues(ad.Name(), metrics.OutcomeOK).Inc()
			out.Estimates = append(out.Estimates, res.Estimate)
			out.Raw = append(out.Raw, res.Raw)
		}
	}

	if len(out.Estimates) == 0 {
		out.Estimates = []provider.SourceEstimate{Fallback(req.Identifier)}
		out.UsedFallback = true
		metrics.Fallbacks.Inc()
		a.log.Info("no provider data, using fallback estimate", zap.String("type", typ.Label()))
	}

	c, err := Combine(out.Estimates)
	if err != nil {
		return Outcome{}, err
	}
	out.Composite = c
	return out, nil
}
