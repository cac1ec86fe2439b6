package fees

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libmarket-go/storage"
)

// Distribute splits gross according to cfg. The fee is gross*rate/Denominator;
// each beneficiary receives fee*share/Denominator and the last one gets the
// remainder, so payouts plus net always equal gross. A nil cfg takes no fee.
// The configuration is validated again here.
func Distribute(gross *big.Int, cfg *storage.FeeConfig) (*Split, error) {
	if gross == nil || gross.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	split := &Split{Gross: new(big.Int).Set(gross), Fee: new(big.Int)}
	if cfg == nil {
		split.Net = new(big.Int).Set(gross)
		return split, nil
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	split.Fee.Mul(gross, cfg.Rate).Quo(split.Fee, Denominator)
	split.Net = new(big.Int).Sub(gross, split.Fee)

	split.Payouts = make([]Payout, len(cfg.Beneficiaries))
	distributed := new(big.Int)
	for i, b := range cfg.Beneficiaries {
		split.Payouts[i].Address = b.Address
		if i == len(cfg.Beneficiaries)-1 {
			// Last beneficiary gets remainder
			split.Payouts[i].Amount = new(big.Int).Sub(split.Fee, distributed)
		} else {
			amount := new(big.Int).Mul(split.Fee, b.Share)
			amount.Quo(amount, Denominator)
			split.Payouts[i].Amount = amount
			distributed.Add(distributed, amount)
		}
	}

	if split.Total().Cmp(gross) != 0 {
		return nil, fmt.Errorf("fees: split of %s does not conserve value", gross)
	}
	return split, nil
}
