package fees

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/storage"
)

// ValidateRate checks that rate lies in [0, Denominator].
func ValidateRate(rate *big.Int) error {
	if rate == nil || rate.Sign() < 0 || rate.Cmp(Denominator) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return nil
}

// ValidateBeneficiaries checks that the beneficiaries are distinct, non-zero
// and that their shares sum to exactly Denominator.
func ValidateBeneficiaries(beneficiaries []storage.FeeBeneficiary) error {
	if len(beneficiaries) == 0 {
		return ErrNoBeneficiaries
	}
	seen := make(map[common.Address]bool, len(beneficiaries))
	total := new(big.Int)
	for i, b := range beneficiaries {
		if b.Address == (common.Address{}) {
			return fmt.Errorf("%w: entry %d", ErrZeroBeneficiary, i)
		}
		if seen[b.Address] {
			return fmt.Errorf("%w: %s", ErrDuplicateBeneficiary, b.Address.Hex())
		}
		seen[b.Address] = true
		if b.Share == nil || b.Share.Sign() <= 0 {
			return fmt.Errorf("%w: entry %d", ErrInvalidShare, i)
		}
		total.Add(total, b.Share)
	}
	if total.Cmp(Denominator) != 0 {
		return fmt.Errorf("%w: sum=%s", ErrSharesNotWhole, total)
	}
	return nil
}

// ValidateConfig checks a complete fee configuration.
func ValidateConfig(cfg *storage.FeeConfig) error {
	if cfg == nil {
		return ErrNoBeneficiaries
	}
	if err := ValidateRate(cfg.Rate); err != nil {
		return err
	}
	return ValidateBeneficiaries(cfg.Beneficiaries)
}

// Beneficiaries zips parallel actor and percentage lists.
func Beneficiaries(actors []common.Address, shares []*big.Int) ([]storage.FeeBeneficiary, error) {
	if len(actors) != len(shares) {
		return nil, fmt.Errorf("%w: %d actors, %d percentages", ErrLengthMismatch, len(actors), len(shares))
	}
	out := make([]storage.FeeBeneficiary, len(actors))
	for i := range actors {
		var share *big.Int
		if shares[i] != nil {
			share = new(big.Int).Set(shares[i])
		}
		out[i] = storage.FeeBeneficiary{Address: actors[i], Share: share}
	}
	return out, nil
}
