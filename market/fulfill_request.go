package market

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// fulfillRequest sells into a request out of the caller's holdings. The
// request is updated before items or payment move.
func fulfillRequest(env *diamond.Env, kind storage.RequestKind, a FulfillRequestArgs) error {
	r, err := openRequest(env, kind, a.Slot)
	if err != nil {
		return err
	}
	if err := checkVersion(a.ExpectedVersion, r.Version); err != nil {
		return err
	}
	if expired(r.Deadline, env.Timestamp) {
		return fmt.Errorf("%w: request expired at %d", ErrDeadlinePassed, r.Deadline)
	}

	qty := r.Quantity
	var gross *big.Int
	switch kind {
	case storage.RequestStandard:
		if a.Quantity != r.Quantity {
			return fmt.Errorf("%w: quantity %d, request is for %d", ErrStaleState, a.Quantity, r.Quantity)
		}
		gross = copyInt(r.Price)
	case storage.RequestTimer:
		gross = copyInt(r.Price)
	case storage.RequestDutch:
		gross = DutchRequestPrice(r.Dutch, env.Timestamp)
	case storage.RequestAmount:
		if a.Quantity == 0 {
			return ErrInvalidQuantity
		}
		if a.Quantity > r.Remaining {
			return fmt.Errorf("%w: want %d, %d left", ErrQuantityExceedsRemaining, a.Quantity, r.Remaining)
		}
		qty = a.Quantity
		gross = mulUint(r.Price, qty)
	default:
		return fmt.Errorf("%w: request kind %d", ErrInvalidParameters, kind)
	}
	if gross.Cmp(r.Escrow) > 0 {
		return fmt.Errorf("%w: escrow %s below price %s", ErrInsufficientPayment, r.Escrow, gross)
	}
	if err := requireHolding(env, env.Sender, r.Collection, r.ItemID, qty); err != nil {
		return err
	}

	r.Remaining -= qty
	if kind != storage.RequestAmount {
		r.Remaining = 0
	}
	r.Escrow = new(big.Int).Sub(r.Escrow, gross)
	var leftover *big.Int
	if r.Remaining == 0 {
		r.Closed = true
		leftover, r.Escrow = r.Escrow, new(big.Int)
	}
	r.Version = env.State.NextSeq()

	if err := transferItem(env, r.Collection, env.Sender, r.Requester, r.ItemID, qty); err != nil {
		return err
	}
	if _, err := settle(env, settlement{
		kind:       kind.String() + "-request",
		collection: r.Collection,
		token:      r.PaymentToken,
		gross:      gross,
		seller:     env.Sender,
	}); err != nil {
		return err
	}
	if err := pay(env, r.PaymentToken, r.Requester, leftover); err != nil {
		return err
	}

	env.Emit(events.RequestFulfilled, requestFields(r).
		Addr("seller", env.Sender).
		Uint("filled", qty).
		Int("gross", gross).
		Str("closed", fmt.Sprint(r.Closed)))
	return nil
}

func fulfillStandardRequest(env *diamond.Env, a FulfillRequestArgs) error {
	return fulfillRequest(env, storage.RequestStandard, a)
}

func fulfillTimerRequest(env *diamond.Env, a FulfillRequestArgs) error {
	return fulfillRequest(env, storage.RequestTimer, a)
}

func fulfillDutchRequest(env *diamond.Env, a FulfillRequestArgs) error {
	return fulfillRequest(env, storage.RequestDutch, a)
}

func fulfillAmountRequest(env *diamond.Env, a FulfillRequestArgs) error {
	return fulfillRequest(env, storage.RequestAmount, a)
}

// fulfillOffer sells into an offer addressed to the caller.
func fulfillOffer(env *diamond.Env, a FulfillOfferArgs) error {
	o, err := openOffer(env, a.Requester, env.Sender, a.Index)
	if errors.Is(err, storage.ErrNotFound) && offeredToOther(env, a.Requester, a.Index) {
		return fmt.Errorf("%w: %s", ErrNotCounterparty, env.Sender.Hex())
	}
	if err != nil {
		return err
	}
	if err := checkVersion(a.ExpectedVersion, o.Version); err != nil {
		return err
	}
	if expired(o.Deadline, env.Timestamp) {
		return fmt.Errorf("%w: offer expired at %d", ErrDeadlinePassed, o.Deadline)
	}
	if err := requireHolding(env, env.Sender, o.Collection, o.ItemID, o.Quantity); err != nil {
		return err
	}

	gross := copyInt(o.Price)
	leftover := new(big.Int).Sub(o.Escrow, gross)
	if leftover.Sign() < 0 {
		return fmt.Errorf("%w: escrow %s below price %s", ErrInsufficientPayment, o.Escrow, gross)
	}
	o.Escrow = new(big.Int)
	o.Closed = true
	o.Version = env.State.NextSeq()

	if err := transferItem(env, o.Collection, env.Sender, o.Requester, o.ItemID, o.Quantity); err != nil {
		return err
	}
	if _, err := settle(env, settlement{
		kind:       "offer",
		collection: o.Collection,
		token:      o.PaymentToken,
		gross:      gross,
		seller:     env.Sender,
	}); err != nil {
		return err
	}
	if err := pay(env, o.PaymentToken, o.Requester, leftover); err != nil {
		return err
	}

	env.Emit(events.OfferFulfilled, offerFields(o).Int("gross", gross))
	return nil
}

// offeredToOther reports whether requester has an open offer at index for
// some other counterparty.
func offeredToOther(env *diamond.Env, requester common.Address, index uint64) bool {
	for _, o := range env.State.Offers {
		if o.Requester == requester && o.Index == index && !o.Closed && o.Counterparty != env.Sender {
			return true
		}
	}
	return false
}
