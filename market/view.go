package market

import (
	"math/big"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/storage"
)

// Views run in read-only frames, so returning pointers into the frame's
// state copy is safe.

func getListing(env *diamond.Env, a GetListingArgs) (*storage.Listing, error) {
	return env.State.Listing(a.Kind, a.Collection, a.ItemID, a.Index)
}

func getRequest(env *diamond.Env, a GetRequestArgs) (*storage.Request, error) {
	return env.State.Request(a.Kind, a.Collection, a.ItemID, a.Index)
}

func getOffer(env *diamond.Env, a GetOfferArgs) (*storage.Offer, error) {
	return env.State.Offer(a.Requester, a.Counterparty, a.Index)
}

func getDutchListingPrice(env *diamond.Env, s Slot) (*big.Int, error) {
	l, err := env.State.Listing(storage.ListingDutch, s.Collection, s.ItemID, s.Index)
	if err != nil {
		return nil, err
	}
	return DutchListingPrice(l.Dutch, env.Timestamp), nil
}

func getDutchRequestPrice(env *diamond.Env, s Slot) (*big.Int, error) {
	r, err := env.State.Request(storage.RequestDutch, s.Collection, s.ItemID, s.Index)
	if err != nil {
		return nil, err
	}
	return DutchRequestPrice(r.Dutch, env.Timestamp), nil
}

func getCollectionFees(env *diamond.Env, a CollectionArgs) (*storage.FeeConfig, error) {
	cfg := env.State.Fees[a.Collection]
	if cfg == nil {
		return nil, storage.ErrNotFound
	}
	return cfg, nil
}
