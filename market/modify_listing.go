package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// ownedListing loads an open listing the caller created.
func ownedListing(env *diamond.Env, kind storage.ListingKind, s Slot) (*storage.Listing, error) {
	l, err := openListing(env, kind, s)
	if err != nil {
		return nil, err
	}
	if l.Seller != env.Sender {
		return nil, fmt.Errorf("%w: %s listing #%d", ErrNotOwnerOfSlot, kind, s.Index)
	}
	return l, nil
}

// retermListing revalidates and applies the fields every kind shares.
func retermListing(env *diamond.Env, l *storage.Listing, quantity uint64, price *big.Int, token common.Address) error {
	if quantity == 0 {
		return ErrInvalidQuantity
	}
	if !positive(price) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	if err := requireSellable(env, l.Seller, l.Collection, l.ItemID, quantity, l.ID); err != nil {
		return err
	}
	l.Quantity = quantity
	l.Remaining = quantity
	l.Price = copyInt(price)
	l.PaymentToken = token
	return nil
}

func modified(env *diamond.Env, l *storage.Listing) {
	l.Version = env.State.NextSeq()
	env.Emit(events.ListingModified, listingFields(l))
}

func modifyStandardListing(env *diamond.Env, a ModifyStandardListingArgs) error {
	l, err := ownedListing(env, storage.ListingStandard, a.Slot)
	if err != nil {
		return err
	}
	if err := retermListing(env, l, a.Quantity, a.Price, a.PaymentToken); err != nil {
		return err
	}
	modified(env, l)
	return nil
}

func modifyTimerListing(env *diamond.Env, a ModifyTimerListingArgs) error {
	l, err := ownedListing(env, storage.ListingTimer, a.Slot)
	if err != nil {
		return err
	}
	if a.Duration == 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	if err := retermListing(env, l, a.Quantity, a.Price, a.PaymentToken); err != nil {
		return err
	}
	l.Deadline = env.Timestamp + a.Duration
	modified(env, l)
	return nil
}

func modifyDutchListing(env *diamond.Env, a ModifyDutchListingArgs) error {
	l, err := ownedListing(env, storage.ListingDutch, a.Slot)
	if err != nil {
		return err
	}
	terms, err := dutchTerms(a.StartPrice, a.FloorPrice, a.DecayRate, a.Duration, env.Timestamp)
	if err != nil {
		return err
	}
	if err := retermListing(env, l, a.Quantity, a.StartPrice, a.PaymentToken); err != nil {
		return err
	}
	l.Dutch = terms
	modified(env, l)
	return nil
}

func modifyEnglishListing(env *diamond.Env, a ModifyEnglishListingArgs) error {
	l, err := ownedListing(env, storage.ListingEnglish, a.Slot)
	if err != nil {
		return err
	}
	if l.English.BidCount > 0 {
		return fmt.Errorf("%w: %d bids", ErrBidsPresent, l.English.BidCount)
	}
	terms, err := englishTerms(CreateEnglishListingArgs{
		Duration:        a.Duration,
		ExtensionWindow: a.ExtensionWindow,
		AntiSnipe:       a.AntiSnipe,
		MinIncrement:    a.MinIncrement,
	})
	if err != nil {
		return err
	}
	if err := retermListing(env, l, a.Quantity, a.StartPrice, a.PaymentToken); err != nil {
		return err
	}
	l.English = terms
	l.Deadline = env.Timestamp + a.Duration
	modified(env, l)
	return nil
}

func modifySealedBidListing(env *diamond.Env, a ModifySealedBidListingArgs) error {
	l, err := ownedListing(env, storage.ListingSealedBid, a.Slot)
	if err != nil {
		return err
	}
	if len(l.Sealed.Bids) > 0 {
		return fmt.Errorf("%w: %d commitments", ErrBidsPresent, len(l.Sealed.Bids))
	}
	terms, err := sealedTerms(a.BidWindow, a.RevealWindow, a.CloseWindow, env.Timestamp)
	if err != nil {
		return err
	}
	if err := retermListing(env, l, a.Quantity, a.ReservePrice, a.PaymentToken); err != nil {
		return err
	}
	l.Sealed = terms
	modified(env, l)
	return nil
}
