package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/fees"
)

// settlement describes one exchange whose payment the marketplace already
// holds.
type settlement struct {
	kind       string // e.g. "standard-listing", for metrics
	collection common.Address
	token      common.Address
	gross      *big.Int
	seller     common.Address
}

// settle pays the collection's fee beneficiaries and forwards the rest to
// the seller. The fee configuration is validated again here because it may
// have been rewritten since it was accepted.
func settle(env *diamond.Env, s settlement) (*fees.Split, error) {
	cfg := env.State.Fees[s.collection]
	if cfg == nil {
		return nil, fmt.Errorf("%w: none set for %s", ErrFeeConfigurationInvalid, s.collection.Hex())
	}
	split, err := fees.Distribute(s.gross, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeeConfigurationInvalid, err)
	}

	for _, p := range split.Payouts {
		if err := pay(env, s.token, p.Address, p.Amount); err != nil {
			return nil, err
		}
		env.Emit(events.FeePaid, diamond.Fields{}.
			Addr("collection", s.collection).
			Addr("beneficiary", p.Address).
			Addr("paymentToken", s.token).
			Int("amount", p.Amount))
	}
	if err := pay(env, s.token, s.seller, split.Net); err != nil {
		return nil, err
	}

	env.Metrics().ObserveSettlement(s.kind, len(split.Payouts), s.token.Hex())
	env.Log.Debug("settled",
		zap.String("kind", s.kind),
		zap.String("collection", s.collection.Hex()),
		zap.String("gross", s.gross.String()),
		zap.String("fee", split.Fee.String()))
	return split, nil
}
