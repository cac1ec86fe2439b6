package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// newListing validates what every listing kind shares and returns the
// unsaved entry. Listings escrow nothing: the items stay with the seller.
func newListing(env *diamond.Env, kind storage.ListingKind, collection common.Address, itemID *big.Int, quantity uint64, price *big.Int, token common.Address) (*storage.Listing, error) {
	if err := requireAllowed(env, collection); err != nil {
		return nil, err
	}
	if err := requireItem(itemID, quantity); err != nil {
		return nil, err
	}
	if !positive(price) {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	if err := requireSellable(env, env.Sender, collection, itemID, quantity, 0); err != nil {
		return nil, err
	}
	return &storage.Listing{
		Kind:         kind,
		Collection:   collection,
		ItemID:       copyInt(itemID),
		Seller:       env.Sender,
		Quantity:     quantity,
		Remaining:    quantity,
		Price:        copyInt(price),
		PaymentToken: token,
		CreatedAt:    env.Timestamp,
	}, nil
}

func insertListing(env *diamond.Env, l *storage.Listing) uint64 {
	idx := env.State.InsertListing(l)
	env.Emit(events.ListingCreated, listingFields(l))
	return idx
}

func createStandardListing(env *diamond.Env, a CreateStandardListingArgs) (uint64, error) {
	l, err := newListing(env, storage.ListingStandard, a.Collection, a.ItemID, a.Quantity, a.Price, a.PaymentToken)
	if err != nil {
		return 0, err
	}
	return insertListing(env, l), nil
}

func createTimerListing(env *diamond.Env, a CreateTimerListingArgs) (uint64, error) {
	if a.Duration == 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	l, err := newListing(env, storage.ListingTimer, a.Collection, a.ItemID, a.Quantity, a.Price, a.PaymentToken)
	if err != nil {
		return 0, err
	}
	l.Deadline = env.Timestamp + a.Duration
	return insertListing(env, l), nil
}

// dutchTerms validates a descending schedule and derives the decay rate
// when none is given.
func dutchTerms(start, floor, rate *big.Int, duration, now uint64) (*storage.DutchTerms, error) {
	if duration == 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	if !positive(start) || floor == nil || floor.Sign() < 0 {
		return nil, fmt.Errorf("%w: prices", ErrInvalidParameters)
	}
	if floor.Cmp(start) > 0 {
		return nil, fmt.Errorf("%w: floor %s above start %s", ErrInvalidParameters, floor, start)
	}
	if rate == nil {
		rate = deriveRate(start, floor, duration)
	} else if rate.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative decay rate", ErrInvalidParameters)
	}
	return &storage.DutchTerms{
		StartPrice: copyInt(start),
		EndPrice:   copyInt(floor),
		DecayRate:  copyInt(rate),
		Duration:   duration,
		StartedAt:  now,
	}, nil
}

func createDutchListing(env *diamond.Env, a CreateDutchListingArgs) (uint64, error) {
	terms, err := dutchTerms(a.StartPrice, a.FloorPrice, a.DecayRate, a.Duration, env.Timestamp)
	if err != nil {
		return 0, err
	}
	l, err := newListing(env, storage.ListingDutch, a.Collection, a.ItemID, a.Quantity, a.StartPrice, a.PaymentToken)
	if err != nil {
		return 0, err
	}
	l.Dutch = terms
	return insertListing(env, l), nil
}

func englishTerms(a CreateEnglishListingArgs) (*storage.EnglishTerms, error) {
	if a.Duration == 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	if !positive(a.MinIncrement) {
		return nil, fmt.Errorf("%w: min increment must be positive", ErrInvalidParameters)
	}
	return &storage.EnglishTerms{
		MinIncrement:    copyInt(a.MinIncrement),
		ExtensionWindow: a.ExtensionWindow,
		AntiSnipe:       a.AntiSnipe,
	}, nil
}

func createEnglishListing(env *diamond.Env, a CreateEnglishListingArgs) (uint64, error) {
	terms, err := englishTerms(a)
	if err != nil {
		return 0, err
	}
	l, err := newListing(env, storage.ListingEnglish, a.Collection, a.ItemID, a.Quantity, a.StartPrice, a.PaymentToken)
	if err != nil {
		return 0, err
	}
	l.Deadline = env.Timestamp + a.Duration
	l.English = terms
	return insertListing(env, l), nil
}

func sealedTerms(bid, reveal, closeWindow, now uint64) (*storage.SealedTerms, error) {
	if bid == 0 || reveal == 0 || closeWindow == 0 {
		return nil, fmt.Errorf("%w: windows must be positive", ErrInvalidParameters)
	}
	return &storage.SealedTerms{
		BidEnd:    now + bid,
		RevealEnd: now + bid + reveal,
		CloseEnd:  now + bid + reveal + closeWindow,
		Bids:      make(map[common.Address]*storage.SealedBid),
	}, nil
}

func createSealedBidListing(env *diamond.Env, a CreateSealedBidListingArgs) (uint64, error) {
	terms, err := sealedTerms(a.BidWindow, a.RevealWindow, a.CloseWindow, env.Timestamp)
	if err != nil {
		return 0, err
	}
	l, err := newListing(env, storage.ListingSealedBid, a.Collection, a.ItemID, a.Quantity, a.ReservePrice, a.PaymentToken)
	if err != nil {
		return 0, err
	}
	l.Sealed = terms
	return insertListing(env, l), nil
}

// openListing loads a listing that must still be open.
func openListing(env *diamond.Env, kind storage.ListingKind, s Slot) (*storage.Listing, error) {
	l, err := env.State.Listing(kind, s.Collection, s.ItemID, s.Index)
	if err != nil {
		return nil, err
	}
	if l.Closed {
		return nil, fmt.Errorf("%w: %s listing #%d", ErrListingClosed, kind, s.Index)
	}
	return l, nil
}
