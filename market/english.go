package market

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// minimumBid is the start price for the first bid and the highest bid plus
// the increment afterwards.
func minimumBid(l *storage.Listing) *big.Int {
	if l.English.HighestBid == nil {
		return new(big.Int).Set(l.Price)
	}
	return new(big.Int).Add(l.English.HighestBid, l.English.MinIncrement)
}

// bidEnglishListing escrows a new highest bid and refunds the previous
// highest bidder in the same operation.
func bidEnglishListing(env *diamond.Env, a BidEnglishListingArgs) error {
	l, err := openListing(env, storage.ListingEnglish, a.Slot)
	if err != nil {
		return err
	}
	if env.Timestamp >= l.Deadline {
		return fmt.Errorf("%w: auction ended at %d", ErrDeadlinePassed, l.Deadline)
	}
	if env.Sender == l.Seller {
		return ErrSellerCannotBid
	}
	if a.Amount == nil || a.Amount.Cmp(minimumBid(l)) < 0 {
		return fmt.Errorf("%w: bid %v below minimum %s", ErrInsufficientPayment, a.Amount, minimumBid(l))
	}

	e := l.English
	prevBidder, prevBid := e.HighestBidder, e.HighestBid
	e.HighestBidder = env.Sender
	e.HighestBid = copyInt(a.Amount)
	e.BidCount++
	if e.AntiSnipe {
		l.Deadline = ExtendDeadline(l.Deadline, env.Timestamp, e.ExtensionWindow)
	}
	l.Version = env.State.NextSeq()

	if err := collect(env, l.PaymentToken, a.Amount); err != nil {
		return err
	}
	if prevBid != nil {
		if err := pay(env, l.PaymentToken, prevBidder, prevBid); err != nil {
			return err
		}
	}

	env.Emit(events.EnglishBidPlaced, listingFields(l).
		Addr("bidder", env.Sender).
		Int("amount", a.Amount).
		Uint("deadline", l.Deadline))
	return nil
}

// fulfillEnglishListing settles an ended auction. Anyone may call it once
// the deadline has passed. Without bids, or when the seller can no longer
// deliver, the listing closes and any escrow is returned.
func fulfillEnglishListing(env *diamond.Env, a FulfillEnglishListingArgs) error {
	l, err := openListing(env, storage.ListingEnglish, a.Slot)
	if err != nil {
		return err
	}
	if err := checkVersion(a.ExpectedVersion, l.Version); err != nil {
		return err
	}
	if env.Timestamp < l.Deadline {
		return fmt.Errorf("%w: auction ends at %d", ErrDeadlineNotReached, l.Deadline)
	}

	l.Closed = true
	l.Remaining = 0
	l.Version = env.State.NextSeq()
	e := l.English

	if e.HighestBid == nil {
		env.Emit(events.ListingClosed, listingFields(l).Str("reason", "no bids"))
		return nil
	}
	if !canDeliver(env, l.Seller, l.Collection, l.ItemID, l.Quantity) {
		if err := pay(env, l.PaymentToken, e.HighestBidder, e.HighestBid); err != nil {
			return err
		}
		env.Emit(events.ListingClosed, listingFields(l).
			Str("reason", "seller cannot deliver").
			Addr("refunded", e.HighestBidder))
		return nil
	}

	if err := transferItem(env, l.Collection, l.Seller, e.HighestBidder, l.ItemID, l.Quantity); err != nil {
		return err
	}
	if _, err := settle(env, settlement{
		kind:       "english-listing",
		collection: l.Collection,
		token:      l.PaymentToken,
		gross:      e.HighestBid,
		seller:     l.Seller,
	}); err != nil {
		return err
	}

	env.Emit(events.ListingFulfilled, listingFields(l).
		Addr("buyer", e.HighestBidder).
		Uint("filled", l.Quantity).
		Int("gross", e.HighestBid).
		Str("closed", "true"))
	return nil
}
