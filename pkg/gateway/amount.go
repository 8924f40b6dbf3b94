package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountCodec converts between minor-unit integers used internally and the
// decimal strings the gateway expects.
type AmountCodec struct {
	exponent int32
}

func NewAmountCodec(exponent int32) AmountCodec {
	if exponent < 0 {
		exponent = 0
	}
	return AmountCodec{exponent: exponent}
}

// Format renders minor units, e.g. 12345 with exponent 2 becomes "123.45".
func (a AmountCodec) Format(minor int64) string {
	return decimal.New(minor, -a.exponent).StringFixed(a.exponent)
}

// Parse converts a gateway amount back to minor units. Amounts with more
// precision than the currency allows are rejected.
func (a AmountCodec) Parse(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", raw)
	}
	scaled := d.Shift(a.exponent)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %q exceeds currency precision", raw)
	}
	return scaled.IntPart(), nil
}
