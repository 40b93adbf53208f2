package valuation

import (
	"errors"

	"github.com/yourorg/valuation-api/provider"
)

// MaxConfidence caps the composite confidence score.
const MaxConfidence = 95

var ErrNoEstimates = errors.New("valuation: no estimates to combine")

// Composite is the aggregated valuation handed to the encoder.
type Composite struct {
	EstimatedValueCents int64  `json:"estimatedValueCents"`
	RentEstimateCents   int64  `json:"rentEstimateCents"`
	PricePerSqftCents   int64  `json:"pricePerSqftCents"`
	ConfidenceScore     int64  `json:"confidenceScore"`
	DataSource          string `json:"dataSource"`
	Bedrooms            int64  `json:"bedrooms"`
	Bathrooms           int64  `json:"bathrooms"`
	Sqft                int64  `json:"sqft"`
}

// Combine folds estimates into one Composite in a single pass. Currency
// fields are confidence-weighted means; the physical attributes and the
// source label come from the most confident estimate, earliest on ties.
func Combine(estimates []provider.SourceEstimate) (Composite, error) {
	if len(estimates) == 0 {
		return Composite{}, ErrNoEstimates
	}

	var valueSum, rentSum, ppsfSum, weightSum int64
	best := 0
	for i, e := range estimates {
		w := clampConfidence(e.Confidence)
		valueSum += e.EstimatedValueCents * w
		rentSum += e.RentEstimateCents * w
		ppsfSum += e.PricePerSqftCents * w
		weightSum += w
		if w > clampConfidence(estimates[best].Confidence) {
			best = i
		}
	}

	if weightSum == 0 {
		// every source claims zero confidence; fall back to a plain mean
		n := int64(len(estimates))
		valueSum, rentSum, ppsfSum = 0, 0, 0
		for _, e := range estimates {
			valueSum += e.EstimatedValueCents
			rentSum += e.RentEstimateCents
			ppsfSum += e.PricePerSqftCents
		}
		weightSum = n
	}

	top := estimates[best]
	score := clampConfidence(top.Confidence)
	if score > MaxConfidence {
		score = MaxConfidence
	}
	return Composite{
		EstimatedValueCents: divRound(valueSum, weightSum),
		RentEstimateCents:   divRound(rentSum, weightSum),
		PricePerSqftCents:   divRound(ppsfSum, weightSum),
		ConfidenceScore:     score,
		DataSource:          top.Source,
		Bedrooms:            top.Bedrooms,
		Bathrooms:           top.Bathrooms,
		Sqft:                top.Sqft,
	}, nil
}

func clampConfidence(c int64) int64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

// divRound is num/den rounded half up for non-negative operands.
func divRound(num, den int64) int64 {
	if num <= 0 || den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}
