package fees

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Denominator is the fixed-point scale of rates and shares: Denominator
// represents 100%.
var Denominator = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Percent returns p percent in Denominator units.
func Percent(p int64) *big.Int {
	v := new(big.Int).Mul(Denominator, big.NewInt(p))
	return v.Quo(v, big.NewInt(100))
}

// Payout is one transfer produced by a split.
type Payout struct {
	Address common.Address
	Amount  *big.Int
}

// Split is the outcome of dividing a gross payment.
type Split struct {
	Gross   *big.Int
	Fee     *big.Int
	Payouts []Payout // one per beneficiary, in configuration order
	Net     *big.Int // what the seller receives
}

// Total returns the sum of all payouts plus the net amount.
func (s *Split) Total() *big.Int {
	total := new(big.Int).Set(s.Net)
	for _, p := range s.Payouts {
		total.Add(total, p.Amount)
	}
	return total
}
