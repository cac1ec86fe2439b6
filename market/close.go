package market

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// closeListing withdraws a listing. Auctions can only be withdrawn before
// anyone has bid on them.
func closeListing(env *diamond.Env, a CloseListingArgs) error {
	l, err := ownedListing(env, a.Kind, a.Slot)
	if err != nil {
		return err
	}
	switch a.Kind {
	case storage.ListingEnglish:
		if l.English.BidCount > 0 {
			return fmt.Errorf("%w: settle with fulfillEnglishListing", ErrBidsPresent)
		}
	case storage.ListingSealedBid:
		if len(l.Sealed.Bids) > 0 {
			return fmt.Errorf("%w: settle with closeSealedBidListing", ErrBidsPresent)
		}
	}
	l.Closed = true
	l.Remaining = 0
	l.Version = env.State.NextSeq()
	env.Emit(events.ListingClosed, listingFields(l).Str("reason", "withdrawn"))
	return nil
}

// closeRequest withdraws a request and refunds its remaining escrow.
func closeRequest(env *diamond.Env, a CloseRequestArgs) error {
	r, err := ownedRequest(env, a.Kind, a.Slot)
	if err != nil {
		return err
	}
	refund := r.Escrow
	r.Escrow = new(big.Int)
	r.Closed = true
	r.Version = env.State.NextSeq()
	if err := pay(env, r.PaymentToken, r.Requester, refund); err != nil {
		return err
	}
	env.Emit(events.RequestClosed, requestFields(r).Int("refund", refund))
	return nil
}

// closeOffer withdraws one of the caller's offers and refunds its escrow.
func closeOffer(env *diamond.Env, a CloseOfferArgs) error {
	o, err := openOffer(env, env.Sender, a.Counterparty, a.Index)
	if err != nil {
		return err
	}
	refund := o.Escrow
	o.Escrow = new(big.Int)
	o.Closed = true
	o.Version = env.State.NextSeq()
	if err := pay(env, o.PaymentToken, o.Requester, refund); err != nil {
		return err
	}
	env.Emit(events.OfferClosed, offerFields(o).Int("refund", refund))
	return nil
}
