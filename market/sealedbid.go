package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// Sealed-bid phases are half-open intervals over the execution timestamp:
// bidding [created, BidEnd), revealing [BidEnd, RevealEnd), and a close
// window [RevealEnd, CloseEnd) reserved to the seller and revealed bidders.

func sealedListing(env *diamond.Env, s Slot) (*storage.Listing, error) {
	l, err := openListing(env, storage.ListingSealedBid, s)
	if err != nil {
		return nil, err
	}
	if l.Sealed.Bids == nil {
		l.Sealed.Bids = make(map[common.Address]*storage.SealedBid)
	}
	return l, nil
}

// bidSealedBidListing stores or replaces the caller's commitment.
func bidSealedBidListing(env *diamond.Env, a BidSealedBidListingArgs) error {
	l, err := sealedListing(env, a.Slot)
	if err != nil {
		return err
	}
	st := l.Sealed
	if env.Timestamp >= st.BidEnd {
		return fmt.Errorf("%w: bidding ended at %d", ErrBidWindowClosed, st.BidEnd)
	}
	if env.Sender == l.Seller {
		return ErrSellerCannotBid
	}
	if a.Commitment == (common.Hash{}) {
		return fmt.Errorf("%w: empty commitment", ErrInvalidParameters)
	}

	if bid, ok := st.Bids[env.Sender]; ok {
		bid.Commitment = a.Commitment
	} else {
		st.Bids[env.Sender] = &storage.SealedBid{
			Bidder:     env.Sender,
			Commitment: a.Commitment,
			State:      storage.BidCommitted,
		}
		st.Bidders = append(st.Bidders, env.Sender)
	}
	l.Version = env.State.NextSeq()

	env.Emit(events.SealedBidCommitted, listingFields(l).
		Addr("bidder", env.Sender).
		Str("commitment", a.Commitment.Hex()))
	return nil
}

// placeSealedBidListing reveals a bid and escrows exactly its price.
func placeSealedBidListing(env *diamond.Env, a PlaceSealedBidListingArgs) error {
	l, err := sealedListing(env, a.Slot)
	if err != nil {
		return err
	}
	st := l.Sealed
	if env.Timestamp < st.BidEnd {
		return fmt.Errorf("%w: reveals open at %d", ErrRevealWindowNotOpen, st.BidEnd)
	}
	if env.Timestamp >= st.RevealEnd {
		return fmt.Errorf("%w: reveals closed at %d", ErrRevealWindowClosed, st.RevealEnd)
	}
	bid, ok := st.Bids[env.Sender]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoCommitment, env.Sender.Hex())
	}
	if bid.State != storage.BidCommitted {
		return fmt.Errorf("%w: %s", ErrAlreadyRevealed, env.Sender.Hex())
	}
	if a.Price == nil || a.Price.Sign() < 0 {
		return fmt.Errorf("%w: price", ErrInvalidParameters)
	}
	if Commitment(a.Price, a.Salt) != bid.Commitment {
		return fmt.Errorf("%w: %s", ErrCommitmentMismatch, env.Sender.Hex())
	}

	bid.State = storage.BidRevealed
	bid.Price = copyInt(a.Price)
	bid.Escrow = copyInt(a.Price)
	bid.RevealedAt = env.Timestamp
	bid.RevealSeq = env.State.NextSeq()
	l.Version = bid.RevealSeq

	if err := collect(env, l.PaymentToken, a.Price); err != nil {
		return err
	}

	env.Emit(events.SealedBidRevealed, listingFields(l).
		Addr("bidder", env.Sender).
		Int("bid", a.Price))
	return nil
}

// sealedWinner picks the highest revealed price at or above reserve; ties go
// to the earliest reveal.
func sealedWinner(l *storage.Listing) *storage.SealedBid {
	var winner *storage.SealedBid
	for _, addr := range l.Sealed.Bidders {
		bid := l.Sealed.Bids[addr]
		if bid == nil || bid.State != storage.BidRevealed || bid.Price.Cmp(l.Price) < 0 {
			continue
		}
		if winner == nil {
			winner = bid
			continue
		}
		switch c := bid.Price.Cmp(winner.Price); {
		case c > 0, c == 0 && bid.RevealSeq < winner.RevealSeq:
			winner = bid
		}
	}
	return winner
}

func mayCloseEarly(l *storage.Listing, who common.Address) bool {
	if who == l.Seller {
		return true
	}
	bid, ok := l.Sealed.Bids[who]
	return ok && bid.State == storage.BidRevealed
}

// closeSealedBidListing determines the winner, settles the winning escrow,
// refunds every other revealed bid once and forfeits unrevealed ones.
func closeSealedBidListing(env *diamond.Env, a CloseSealedBidListingArgs) error {
	l, err := sealedListing(env, a.Slot)
	if err != nil {
		return err
	}
	st := l.Sealed
	if env.Timestamp < st.RevealEnd {
		return fmt.Errorf("%w: reveals close at %d", ErrDeadlineNotReached, st.RevealEnd)
	}
	if env.Timestamp < st.CloseEnd && !mayCloseEarly(l, env.Sender) {
		return fmt.Errorf("%w: only the seller or revealed bidders may close before %d", ErrNotAuthorized, st.CloseEnd)
	}

	winner := sealedWinner(l)
	if winner != nil && !canDeliver(env, l.Seller, l.Collection, l.ItemID, l.Quantity) {
		winner = nil
	}

	l.Closed = true
	l.Remaining = 0
	l.Version = env.State.NextSeq()

	type refund struct {
		to     common.Address
		amount *big.Int
	}
	var refunds []refund
	for _, addr := range st.Bidders {
		bid := st.Bids[addr]
		switch {
		case bid == winner:
			bid.State = storage.BidWon
		case bid.State == storage.BidRevealed:
			bid.State = storage.BidRefunded
			refunds = append(refunds, refund{to: addr, amount: bid.Escrow})
			bid.Escrow = nil
		case bid.State == storage.BidCommitted:
			bid.State = storage.BidForfeited
		}
	}

	for _, r := range refunds {
		if err := pay(env, l.PaymentToken, r.to, r.amount); err != nil {
			return err
		}
	}

	fields := listingFields(l).Uint("bids", uint64(len(st.Bidders))).Uint("refunds", uint64(len(refunds)))
	if winner == nil {
		env.Emit(events.SealedBidClosed, fields.Str("winner", ""))
		return nil
	}

	gross := winner.Escrow
	winner.Escrow = nil
	if err := transferItem(env, l.Collection, l.Seller, winner.Bidder, l.ItemID, l.Quantity); err != nil {
		return err
	}
	if _, err := settle(env, settlement{
		kind:       "sealed-bid-listing",
		collection: l.Collection,
		token:      l.PaymentToken,
		gross:      gross,
		seller:     l.Seller,
	}); err != nil {
		return err
	}
	env.Emit(events.SealedBidClosed, fields.
		Addr("winner", winner.Bidder).
		Int("gross", gross))
	return nil
}
