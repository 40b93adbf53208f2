package provider

// SourceEstimate is one provider's normalized view of a property.
// Currency fields are integer cents; Bathrooms is baths x10 (2.5 -> 25).
type SourceEstimate struct {
	EstimatedValueCents int64  `json:"estimatedValueCents"`
	RentEstimateCents   int64  `json:"rentEstimateCents"`
	Bedrooms            int64  `json:"bedrooms"`
	Bathrooms           int64  `json:"bathrooms"`
	Sqft                int64  `json:"sqft"`
	PricePerSqftCents   int64  `json:"pricePerSqftCents"`
	Source              string `json:"source"`
	Confidence          int64  `json:"confidence"` // 0..100
}

// Source labels and their fixed trust weights.
const (
	SourceZillow     = "Zillow"
	SourceRentSpree  = "RentSpree"
	SourceRealtyMole = "RealtyMole"
	SourceMock       = "MockData"

	ConfidenceZillow     = 85
	ConfidenceRentSpree  = 80
	ConfidenceRealtyMole = 75
	ConfidenceMock       = 60
)

// Raw is the untouched upstream body kept alongside an estimate for auditing.
type Raw struct {
	Provider string
	Endpoint string
	Payload  []byte
}
