package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the payment-token sentinel for the host chain's native currency.
var NativeToken = common.Address{}

// ListingKind identifies the sale mechanism of a listing.
type ListingKind uint8

const (
	ListingStandard ListingKind = iota
	ListingTimer
	ListingDutch
	ListingEnglish
	ListingSealedBid
)

func (k ListingKind) String() string {
	switch k {
	case ListingStandard:
		return "standard"
	case ListingTimer:
		return "timer"
	case ListingDutch:
		return "dutch"
	case ListingEnglish:
		return "english"
	case ListingSealedBid:
		return "sealed-bid"
	default:
		return "unknown"
	}
}

// RequestKind identifies the mechanism of a buyer-initiated request.
type RequestKind uint8

const (
	RequestStandard RequestKind = iota
	RequestTimer
	RequestDutch
	RequestAmount
)

func (k RequestKind) String() string {
	switch k {
	case RequestStandard:
		return "standard"
	case RequestTimer:
		return "timer"
	case RequestDutch:
		return "dutch"
	case RequestAmount:
		return "amount"
	default:
		return "unknown"
	}
}

// Listing is a seller-initiated sale or auction entry.
type Listing struct {
	ID           uint64
	Kind         ListingKind
	Collection   common.Address
	ItemID       *big.Int
	Index        uint64
	Seller       common.Address
	Quantity     uint64
	Remaining    uint64   // standard listings only; others sell the whole lot
	Price        *big.Int // per unit for standard, whole lot otherwise
	PaymentToken common.Address
	CreatedAt    uint64
	Deadline     uint64 // timer and english
	Version      uint64
	Closed       bool

	Dutch   *DutchTerms
	English *EnglishTerms
	Sealed  *SealedTerms
}

// Lapsed reports whether an open listing can no longer move its items: a
// timer listing past its deadline, an English auction that ended without
// bids, or a sealed-bid auction whose reveals closed with no revealed bid at
// or above the reserve.
func (l *Listing) Lapsed(now uint64) bool {
	switch l.Kind {
	case ListingTimer:
		return now >= l.Deadline
	case ListingEnglish:
		return now >= l.Deadline && (l.English == nil || l.English.BidCount == 0)
	case ListingSealedBid:
		if l.Sealed == nil || now < l.Sealed.RevealEnd {
			return false
		}
		for _, b := range l.Sealed.Bids {
			if b.State == BidRevealed && b.Price != nil && b.Price.Cmp(l.Price) >= 0 {
				return false
			}
		}
		return true
	}
	return false
}

// DutchTerms holds the descending price schedule of a Dutch listing, or the
// ascending schedule of a Dutch request.
type DutchTerms struct {
	StartPrice *big.Int
	EndPrice   *big.Int // floor for listings, ceiling for requests
	DecayRate  *big.Int // price change per second
	Duration   uint64
	StartedAt  uint64
}

// EnglishTerms holds the ascending-bid state of an English listing.
type EnglishTerms struct {
	MinIncrement    *big.Int
	ExtensionWindow uint64
	AntiSnipe       bool
	HighestBidder   common.Address
	HighestBid      *big.Int // nil until the first bid
	BidCount        uint64
}

// SealedTerms holds the commit/reveal windows and bids of a sealed-bid listing.
type SealedTerms struct {
	BidEnd    uint64
	RevealEnd uint64
	CloseEnd  uint64
	Bids      map[common.Address]*SealedBid
	Bidders   []common.Address // commit order
}

// SealedBidState is the lifecycle state of a single sealed bid.
type SealedBidState uint8

const (
	BidCommitted SealedBidState = iota
	BidRevealed
	BidWon
	BidRefunded
	BidForfeited
)

func (s SealedBidState) String() string {
	switch s {
	case BidCommitted:
		return "committed"
	case BidRevealed:
		return "revealed"
	case BidWon:
		return "won"
	case BidRefunded:
		return "refunded"
	case BidForfeited:
		return "forfeited"
	default:
		return "unknown"
	}
}

// SealedBid is one bidder's commitment and, once revealed, its escrow.
type SealedBid struct {
	Bidder     common.Address
	Commitment common.Hash
	State      SealedBidState
	Price      *big.Int
	Escrow     *big.Int
	RevealedAt uint64
	RevealSeq  uint64
}

// Request is a buyer-initiated, escrow-funded counterpart to a Listing.
type Request struct {
	ID           uint64
	Kind         RequestKind
	Collection   common.Address
	ItemID       *big.Int
	Index        uint64
	Requester    common.Address
	Quantity     uint64
	Remaining    uint64
	Price        *big.Int // whole lot, or per unit for amount requests
	PaymentToken common.Address
	Escrow       *big.Int
	CreatedAt    uint64
	Deadline     uint64 // zero means no expiry
	Version      uint64
	Closed       bool

	Dutch *DutchTerms
}

// Offer is a request addressed to a single counterparty.
type Offer struct {
	ID           uint64
	Requester    common.Address
	Counterparty common.Address
	Index        uint64
	Collection   common.Address
	ItemID       *big.Int
	Quantity     uint64
	Price        *big.Int
	PaymentToken common.Address
	Escrow       *big.Int
	CreatedAt    uint64
	Deadline     uint64
	Version      uint64
	Closed       bool
}

// FeeBeneficiary is an address entitled to a share of a collection's fees.
type FeeBeneficiary struct {
	Address common.Address
	Share   *big.Int
}

// FeeConfig is the per-collection fee rate and its beneficiary split.
type FeeConfig struct {
	Collection    common.Address
	Rate          *big.Int // portion of gross, scaled by the fee denominator
	Beneficiaries []FeeBeneficiary
	Version       uint64
}

// Event is an observable side effect of a committed operation.
type Event struct {
	ID           string
	Name         string
	StateVersion uint64
	Timestamp    uint64
	Fields       map[string]string
}
