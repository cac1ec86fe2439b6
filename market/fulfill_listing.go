package market

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// fulfillListing buys from a standard, timer or Dutch listing. The listing
// is updated before any payment or item moves.
func fulfillListing(env *diamond.Env, kind storage.ListingKind, a FulfillListingArgs) error {
	l, err := openListing(env, kind, a.Slot)
	if err != nil {
		return err
	}
	if err := checkVersion(a.ExpectedVersion, l.Version); err != nil {
		return err
	}

	var qty uint64
	var gross *big.Int
	switch kind {
	case storage.ListingStandard:
		if a.Quantity == 0 {
			return ErrInvalidQuantity
		}
		if a.Quantity > l.Remaining {
			return fmt.Errorf("%w: want %d, %d left", ErrQuantityExceedsRemaining, a.Quantity, l.Remaining)
		}
		qty = a.Quantity
		gross = mulUint(l.Price, qty)
	case storage.ListingTimer:
		if env.Timestamp >= l.Deadline {
			return fmt.Errorf("%w: listing expired at %d", ErrDeadlinePassed, l.Deadline)
		}
		qty = l.Quantity
		gross = copyInt(l.Price)
	case storage.ListingDutch:
		qty = l.Quantity
		gross = DutchListingPrice(l.Dutch, env.Timestamp)
	default:
		return fmt.Errorf("%w: %s listings are not fulfilled directly", ErrInvalidParameters, kind)
	}

	if err := requireHolding(env, l.Seller, l.Collection, l.ItemID, qty); err != nil {
		return err
	}

	l.Remaining -= qty
	if kind != storage.ListingStandard {
		l.Remaining = 0
	}
	l.Closed = l.Remaining == 0
	l.Version = env.State.NextSeq()

	if err := collect(env, l.PaymentToken, gross); err != nil {
		return err
	}
	if err := transferItem(env, l.Collection, l.Seller, env.Sender, l.ItemID, qty); err != nil {
		return err
	}
	if _, err := settle(env, settlement{
		kind:       kind.String() + "-listing",
		collection: l.Collection,
		token:      l.PaymentToken,
		gross:      gross,
		seller:     l.Seller,
	}); err != nil {
		return err
	}

	env.Emit(events.ListingFulfilled, listingFields(l).
		Addr("buyer", env.Sender).
		Uint("filled", qty).
		Int("gross", gross).
		Str("closed", fmt.Sprint(l.Closed)))
	return nil
}

func fulfillStandardListing(env *diamond.Env, a FulfillListingArgs) error {
	return fulfillListing(env, storage.ListingStandard, a)
}

func fulfillTimerListing(env *diamond.Env, a FulfillListingArgs) error {
	return fulfillListing(env, storage.ListingTimer, a)
}

func fulfillDutchListing(env *diamond.Env, a FulfillListingArgs) error {
	return fulfillListing(env, storage.ListingDutch, a)
}
