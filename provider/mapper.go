package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var errNoResults = errors.New("no results")

// Above 2^53 a float64 no longer holds integers exactly; such inputs are treated as garbage.
const maxExact = 1 << 53

// flexNumber accepts a JSON number, a numeric string, or null. Anything it
// cannot read as a number decodes to 0 instead of failing the whole payload.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*n = 0
			return nil
		}
		str = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
		str = strings.TrimPrefix(str, "$")
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			f = 0
		}
		*n = flexNumber(f)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		f = 0
	}
	*n = flexNumber(f)
	return nil
}

// nonNeg maps negative, NaN, infinite and out-of-range values to 0.
func nonNeg(f flexNumber) float64 {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > maxExact {
		return 0
	}
	return v
}

func roundScaled(f flexNumber, scale float64) int64 {
	v := nonNeg(f) * scale
	if v > maxExact {
		return 0
	}
	return int64(math.Round(v))
}

// toCents converts a dollar amount to cents.
func toCents(f flexNumber) int64 { return roundScaled(f, 100) }

// toTenths keeps one decimal of a bathroom count.
func toTenths(f flexNumber) int64 { return roundScaled(f, 10) }

func toCount(f flexNumber) int64 { return roundScaled(f, 1) }

// PricePerSqft divides value by sqft rounding half up; 0 when sqft is 0.
func PricePerSqft(valueCents, sqft int64) int64 {
	if sqft <= 0 || valueCents <= 0 {
		return 0
	}
	return (2*valueCents + sqft) / (2 * sqft)
}

func firstPositive(vals ...flexNumber) flexNumber {
	for _, v := range vals {
		if nonNeg(v) > 0 {
			return v
		}
	}
	return 0
}

func buildEstimate(value, rent, beds, baths, sqft flexNumber, source string, confidence int64) SourceEstimate {
	est := SourceEstimate{
		EstimatedValueCents: toCents(value),
		RentEstimateCents:   toCents(rent),
		Bedrooms:            toCount(beds),
		Bathrooms:           toTenths(baths),
		Sqft:                toCount(sqft),
		Source:              source,
		Confidence:          confidence,
	}
	est.PricePerSqftCents = PricePerSqft(est.EstimatedValueCents, est.Sqft)
	return est
}

// mapZillow reads {"props":[{...}]}; the zestimate wins over the list price.
func mapZillow(raw []byte) (SourceEstimate, error) {
	var root struct {
		Props []struct {
			Zestimate     flexNumber `json:"zestimate"`
			Price         flexNumber `json:"price"`
			RentZestimate flexNumber `json:"rentZestimate"`
			Bedrooms      flexNumber `json:"bedrooms"`
			Bathrooms     flexNumber `json:"bathrooms"`
			LivingArea    flexNumber `json:"livingArea"`
		} `json:"props"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return SourceEstimate{}, err
	}
	if len(root.Props) == 0 {
		return SourceEstimate{}, errNoResults
	}
	p := root.Props[0]
	return buildEstimate(firstPositive(p.Zestimate, p.Price), p.RentZestimate, p.Bedrooms, p.Bathrooms, p.LivingArea,
		SourceZillow, ConfidenceZillow), nil
}

// mapRentSpree reads {"data":{"properties":[{"valuation":{...},"rent":{...},...}]}}.
func mapRentSpree(raw []byte) (SourceEstimate, error) {
	var root struct {
		Data struct {
			Properties []struct {
				Valuation struct {
					Estimate flexNumber `json:"estimate"`
				} `json:"valuation"`
				Rent struct {
					Estimate flexNumber `json:"estimate"`
				} `json:"rent"`
				Beds          flexNumber `json:"beds"`
				Baths         flexNumber `json:"baths"`
				SquareFootage flexNumber `json:"squareFootage"`
			} `json:"properties"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return SourceEstimate{}, err
	}
	if len(root.Data.Properties) == 0 {
		return SourceEstimate{}, errNoResults
	}
	p := root.Data.Properties[0]
	return buildEstimate(p.Valuation.Estimate, p.Rent.Estimate, p.Beds, p.Baths, p.SquareFootage,
		SourceRentSpree, ConfidenceRentSpree), nil
}

// mapRealtyMole reads a top-level array of property records.
func mapRealtyMole(raw []byte) (SourceEstimate, error) {
	var root []struct {
		Price         flexNumber `json:"price"`
		RentEstimate  flexNumber `json:"rentEstimate"`
		Bedrooms      flexNumber `json:"bedrooms"`
		Bathrooms     flexNumber `json:"bathrooms"`
		SquareFootage flexNumber `json:"squareFootage"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return SourceEstimate{}, err
	}
	if len(root) == 0 {
		return SourceEstimate{}, errNoResults
	}
	p := root[0]
	return buildEstimate(p.Price, p.RentEstimate, p.Bedrooms, p.Bathrooms, p.SquareFootage,
		SourceRealtyMole, ConfidenceRealtyMole), nil
}
