package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapZillow(t *testing.T) {
	raw := []byte(`{"props":[{"zestimate":450000.4,"price":430000,"rentZestimate":2450.5,"bedrooms":3,"bathrooms":2.5,"livingArea":1800},{"zestimate":1}]}`)
	est, err := mapZillow(raw)
	require.NoError(t, err)
	assert.Equal(t, SourceEstimate{
		EstimatedValueCents: 45000040,
		RentEstimateCents:   245050,
		Bedrooms:            3,
		Bathrooms:           25,
		Sqft:                1800,
		PricePerSqftCents:   25000,
		Source:              SourceZillow,
		Confidence:          ConfidenceZillow,
	}, est)
}

func TestMapZillowFallsBackToPrice(t *testing.T) {
	est, err := mapZillow([]byte(`{"props":[{"zestimate":null,"price":"399,000"}]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(39900000), est.EstimatedValueCents)
	assert.Zero(t, est.PricePerSqftCents)
}

func TestMapRentSpreeNested(t *testing.T) {
	raw := []byte(`{"data":{"properties":[{"valuation":{"estimate":"520000"},"rent":{"estimate":3100},"beds":4,"baths":"3","squareFootage":2600}]}}`)
	est, err := mapRentSpree(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(52000000), est.EstimatedValueCents)
	assert.Equal(t, int64(310000), est.RentEstimateCents)
	assert.Equal(t, int64(30), est.Bathrooms)
	assert.Equal(t, int64(20000), est.PricePerSqftCents)
	assert.Equal(t, SourceRentSpree, est.Source)
	assert.Equal(t, int64(ConfidenceRentSpree), est.Confidence)
}

func TestMapRealtyMoleTopLevelArray(t *testing.T) {
	est, err := mapRealtyMole([]byte(`[{"price":300000,"rentEstimate":1999.99,"bedrooms":2,"bathrooms":1.75,"squareFootage":1000}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(30000000), est.EstimatedValueCents)
	assert.Equal(t, int64(199999), est.RentEstimateCents)
	assert.Equal(t, int64(18), est.Bathrooms)
	assert.Equal(t, int64(30000), est.PricePerSqftCents)
}

func TestMappersRejectEmptyResults(t *testing.T) {
	cases := map[string]struct {
		fn  func([]byte) (SourceEstimate, error)
		raw string
	}{
		"zillow empty":      {mapZillow, `{"props":[]}`},
		"zillow missing":    {mapZillow, `{}`},
		"rentspree empty":   {mapRentSpree, `{"data":{"properties":[]}}`},
		"rentspree missing": {mapRentSpree, `{"data":null}`},
		"realtymole empty":  {mapRealtyMole, `[]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.fn([]byte(tc.raw))
			assert.ErrorIs(t, err, errNoResults)
		})
	}
}

func TestMappersRejectMalformedJSON(t *testing.T) {
	_, err := mapZillow([]byte(`<html>`))
	assert.Error(t, err)
	_, err = mapRealtyMole([]byte(`{"price":1}`))
	assert.Error(t, err)
}

func TestNegativeAndGarbageFieldsBecomeZero(t *testing.T) {
	raw := []byte(`[{"price":-250000,"rentEstimate":"n/a","bedrooms":-3,"bathrooms":{"full":2},"squareFootage":"-10"}]`)
	est, err := mapRealtyMole(raw)
	require.NoError(t, err)
	assert.Zero(t, est.EstimatedValueCents)
	assert.Zero(t, est.RentEstimateCents)
	assert.Zero(t, est.Bedrooms)
	assert.Zero(t, est.Bathrooms)
	assert.Zero(t, est.Sqft)
	assert.Zero(t, est.PricePerSqftCents)

	huge, err := mapRealtyMole([]byte(`[{"price":1e300,"squareFootage":1200}]`))
	require.NoError(t, err)
	assert.Zero(t, huge.EstimatedValueCents)
}

func TestPricePerSqftRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(0), PricePerSqft(100, 0))
	assert.Equal(t, int64(2), PricePerSqft(3, 2))
	assert.Equal(t, int64(1), PricePerSqft(4, 3))
	assert.Equal(t, int64(25000), PricePerSqft(45000000, 1800))
}
