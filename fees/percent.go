package fees

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParsePercent converts a decimal percentage such as "2.5" into Denominator
// units. Precision beyond 1e-18 is truncated.
func ParsePercent(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	v := d.Div(hundred).Shift(18).Truncate(0).BigInt()
	if err := ValidateRate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// FormatPercent renders a Denominator-scaled value as a percentage.
func FormatPercent(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -18).Mul(hundred).String()
}
