// Package oracle serializes composite valuations into the payload read by
// the on-chain oracle callback.
//
// The payload is each field ABI-encoded on its own and concatenated in order:
//
//	word 0..2  estimatedValueCents, rentEstimateCents, confidenceScore (uint256)
//	word 3     0x20, the offset of the standalone string encoding
//	word 4     dataSource length in bytes
//	...        dataSource UTF-8, right-padded to a 32-byte boundary
//	then       pricePerSqftCents, bedrooms, bathrooms, sqft (uint256)
package oracle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/yourorg/valuation-api/internal/valuation"
)

const wordSize = 32

// MinPayloadSize is the size of a payload whose data source is empty.
const MinPayloadSize = 9 * wordSize

var (
	ErrNegativeField   = errors.New("oracle: negative field cannot be encoded as uint256")
	ErrPayloadTooShort = errors.New("oracle: payload too short")
	ErrFieldOverflow   = errors.New("oracle: field does not fit in int64")
)

var uintArg, stringArg = mustArgs()

func mustArgs() (abi.Arguments, abi.Arguments) {
	u256, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	str, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: u256}}, abi.Arguments{{Type: str}}
}

type numField struct {
	name string
	v    int64
}

func leadingFields(c valuation.Composite) []numField {
	return []numField{
		{"estimatedValueCents", c.EstimatedValueCents},
		{"rentEstimateCents", c.RentEstimateCents},
		{"confidenceScore", c.ConfidenceScore},
	}
}

func trailingFields(c valuation.Composite) []numField {
	return []numField{
		{"pricePerSqftCents", c.PricePerSqftCents},
		{"bedrooms", c.Bedrooms},
		{"bathrooms", c.Bathrooms},
		{"sqft", c.Sqft},
	}
}

// Encode packs c into the oracle payload.
func Encode(c valuation.Composite) ([]byte, error) {
	lead, trail := leadingFields(c), trailingFields(c)
	for _, n := range append(append([]numField{}, lead...), trail...) {
		if n.v < 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrNegativeField, n.name, n.v)
		}
	}

	out := make([]byte, 0, MinPayloadSize+len(c.DataSource)+wordSize)
	packUints := func(fields []numField) error {
		for _, n := range fields {
			b, err := uintArg.Pack(big.NewInt(n.v))
			if err != nil {
				return fmt.Errorf("oracle: pack %s: %w", n.name, err)
			}
			out = append(out, b...)
		}
		return nil
	}
	if err := packUints(lead); err != nil {
		return nil, err
	}
	b, err := stringArg.Pack(c.DataSource)
	if err != nil {
		return nil, fmt.Errorf("oracle: pack dataSource: %w", err)
	}
	out = append(out, b...)
	if err := packUints(trail); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode is the inverse of Encode.
func Decode(b []byte) (valuation.Composite, error) {
	if len(b) < MinPayloadSize {
		return valuation.Composite{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooShort, len(b))
	}
	pos := 0
	readUint := func(name string) (int64, error) {
		if pos+wordSize > len(b) {
			return 0, fmt.Errorf("%w: missing %s", ErrPayloadTooShort, name)
		}
		vals, err := uintArg.Unpack(b[pos : pos+wordSize])
		if err != nil {
			return 0, fmt.Errorf("oracle: unpack %s: %w", name, err)
		}
		pos += wordSize
		x, ok := vals[0].(*big.Int)
		if !ok {
			return 0, fmt.Errorf("oracle: unexpected %T for %s", vals[0], name)
		}
		if !x.IsInt64() {
			return 0, fmt.Errorf("%w: %s", ErrFieldOverflow, name)
		}
		return x.Int64(), nil
	}

	var c valuation.Composite
	var err error
	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"estimatedValueCents", &c.EstimatedValueCents},
		{"rentEstimateCents", &c.RentEstimateCents},
		{"confidenceScore", &c.ConfidenceScore},
	} {
		if *f.dst, err = readUint(f.name); err != nil {
			return valuation.Composite{}, err
		}
	}

	// standalone string encoding: offset word, length word, padded bytes
	offset := new(big.Int).SetBytes(b[pos : pos+wordSize])
	if !offset.IsInt64() || offset.Int64() != wordSize {
		return valuation.Composite{}, fmt.Errorf("oracle: dataSource offset %s, want %d", offset, wordSize)
	}
	length := new(big.Int).SetBytes(b[pos+wordSize : pos+2*wordSize])
	if !length.IsInt64() || length.Int64() > int64(len(b)) {
		return valuation.Composite{}, fmt.Errorf("%w: dataSource length %s", ErrPayloadTooShort, length)
	}
	padded := (int(length.Int64()) + wordSize - 1) / wordSize * wordSize
	end := pos + 2*wordSize + padded
	if end+4*wordSize > len(b) {
		return valuation.Composite{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooShort, len(b))
	}
	vals, err := stringArg.Unpack(b[pos:end])
	if err != nil {
		return valuation.Composite{}, fmt.Errorf("oracle: unpack dataSource: %w", err)
	}
	src, ok := vals[0].(string)
	if !ok {
		return valuation.Composite{}, fmt.Errorf("oracle: unexpected %T for dataSource", vals[0])
	}
	c.DataSource = src
	pos = end

	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"pricePerSqftCents", &c.PricePerSqftCents},
		{"bedrooms", &c.Bedrooms},
		{"bathrooms", &c.Bathrooms},
		{"sqft", &c.Sqft},
	} {
		if *f.dst, err = readUint(f.name); err != nil {
			return valuation.Composite{}, err
		}
	}
	if pos != len(b) {
		return valuation.Composite{}, fmt.Errorf("oracle: %d trailing bytes", len(b)-pos)
	}
	return c, nil
}

// Hex renders a payload with a single 0x prefix.
func Hex(b []byte) string { return hexutil.Encode(b) }

// FromHex parses a 0x-prefixed payload.
func FromHex(s string) ([]byte, error) { return hexutil.Decode(s) }
