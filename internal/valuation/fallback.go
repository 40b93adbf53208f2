package valuation

import (
	"unicode/utf16"

	"github.com/yourorg/valuation-api/provider"
)

// addressHash is the 32-bit rolling hash h = h*31 + unit over the UTF-16 code
// units of s, with explicit two's-complement wraparound.
func addressHash(s string) int32 {
	var h uint32
	for _, u := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + uint32(u)
	}
	return int32(h)
}

// Fallback derives a deterministic stand-in estimate from the address alone.
// It never touches the network.
func Fallback(address string) provider.SourceEstimate {
	h := int64(addressHash(address))
	if h < 0 {
		h = -h
	}

	baseDollars := 300000 + h%500000
	// annual yield 0.008..0.018 expressed in 1/100000ths
	yield := 800 + h%1000
	beds := 2 + h%4
	bathsTenths := 15 + h%25
	sqft := 1200 + h%2000

	value := baseDollars * 100
	// monthly rent in cents = base * yield/100000 / 12 * 100, rounded half up
	rent := (2*baseDollars*yield + 12000) / 24000

	return provider.SourceEstimate{
		EstimatedValueCents: value,
		RentEstimateCents:   rent,
		Bedrooms:            beds,
		Bathrooms:           bathsTenths,
		Sqft:                sqft,
		PricePerSqftCents:   provider.PricePerSqft(value, sqft),
		Source:              provider.SourceMock,
		Confidence:          provider.ConfidenceMock,
	}
}
