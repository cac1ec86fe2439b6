package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/storage"
)

// Slot addresses one listing or request.
type Slot struct {
	Collection common.Address
	ItemID     *big.Int
	Index      uint64
}

// --- Listing creation ---

// CreateStandardListingArgs lists Quantity items at a fixed per-unit price.
// Buyers may take any part of the remaining quantity.
type CreateStandardListingArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	Quantity     uint64
	Price        *big.Int // per unit
	PaymentToken common.Address
}

// CreateTimerListingArgs lists the whole lot at Price until Duration seconds
// after creation.
type CreateTimerListingArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	Duration     uint64
	Quantity     uint64
	Price        *big.Int
	PaymentToken common.Address
}

// CreateDutchListingArgs lists the whole lot at a price that falls from
// StartPrice to FloorPrice over Duration seconds.
type CreateDutchListingArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	Duration     uint64
	Quantity     uint64
	StartPrice   *big.Int
	FloorPrice   *big.Int
	PaymentToken common.Address
	DecayRate    *big.Int // optional; derived from the duration when nil
}

// CreateEnglishListingArgs opens an ascending auction ending Duration seconds
// after creation. With AntiSnipe set, a bid within ExtensionWindow of the
// deadline pushes it back by ExtensionWindow.
type CreateEnglishListingArgs struct {
	Collection      common.Address
	ItemID          *big.Int
	Quantity        uint64
	StartPrice      *big.Int
	AntiSnipe       bool
	PaymentToken    common.Address
	Duration        uint64
	ExtensionWindow uint64
	MinIncrement    *big.Int
}

// CreateSealedBidListingArgs opens a commit/reveal auction. The windows are
// consecutive durations in seconds starting at creation.
type CreateSealedBidListingArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	ReservePrice *big.Int
	PaymentToken common.Address
	Quantity     uint64
	BidWindow    uint64
	RevealWindow uint64
	CloseWindow  uint64
}

// --- Listing modification ---

// ModifyStandardListingArgs re-terms an open standard listing.
type ModifyStandardListingArgs struct {
	Slot
	Quantity     uint64
	Price        *big.Int
	PaymentToken common.Address
}

// ModifyTimerListingArgs re-terms an open timer listing; the deadline is
// re-based on the modification time.
type ModifyTimerListingArgs struct {
	Slot
	PaymentToken common.Address
	Duration     uint64
	Quantity     uint64
	Price        *big.Int
}

// ModifyDutchListingArgs re-terms an open Dutch listing and restarts its
// price schedule.
type ModifyDutchListingArgs struct {
	Slot
	PaymentToken common.Address
	Duration     uint64
	Quantity     uint64
	StartPrice   *big.Int
	FloorPrice   *big.Int
	DecayRate    *big.Int
}

// ModifyEnglishListingArgs re-terms an English listing that has no bids.
type ModifyEnglishListingArgs struct {
	Slot
	Quantity        uint64
	StartPrice      *big.Int
	AntiSnipe       bool
	PaymentToken    common.Address
	Duration        uint64
	ExtensionWindow uint64
	MinIncrement    *big.Int
}

// ModifySealedBidListingArgs re-terms a sealed-bid listing that has no
// commitments; its windows restart at the modification time.
type ModifySealedBidListingArgs struct {
	Slot
	ReservePrice *big.Int
	PaymentToken common.Address
	Quantity     uint64
	BidWindow    uint64
	RevealWindow uint64
	CloseWindow  uint64
}

// --- Listing fulfillment and auctions ---

// FulfillListingArgs fulfills a standard, timer or Dutch listing. Quantity
// applies to standard listings only. A non-zero ExpectedVersion must match
// the listing's current version.
type FulfillListingArgs struct {
	Slot
	Quantity        uint64
	ExpectedVersion uint64
}

// BidEnglishListingArgs places a bid of Amount, escrowed from the caller.
type BidEnglishListingArgs struct {
	Slot
	Amount *big.Int
}

// FulfillEnglishListingArgs settles an English auction after its deadline.
type FulfillEnglishListingArgs struct {
	Slot
	ExpectedVersion uint64
}

// BidSealedBidListingArgs commits to a hidden price; see Commitment.
type BidSealedBidListingArgs struct {
	Slot
	Commitment common.Hash
}

// PlaceSealedBidListingArgs reveals a committed price and escrows it.
type PlaceSealedBidListingArgs struct {
	Slot
	Salt  string
	Price *big.Int
}

// CloseSealedBidListingArgs settles a sealed-bid auction after reveals close.
type CloseSealedBidListingArgs struct {
	Slot
}

// CloseListingArgs withdraws a seller's open listing.
type CloseListingArgs struct {
	Kind storage.ListingKind
	Slot
}

// --- Requests and offers ---

// CreateStandardRequestArgs asks for Quantity items at Price for the whole
// lot, escrowed at creation.
type CreateStandardRequestArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	Quantity     uint64
	PaymentToken common.Address
	Price        *big.Int // whole lot
}

// CreateTimerRequestArgs is a standard request that expires Duration seconds
// after creation.
type CreateTimerRequestArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	Quantity     uint64
	PaymentToken common.Address
	Price        *big.Int
	Duration     uint64
}

// CreateDutchRequestArgs asks for the lot at a price rising from StartPrice
// to MaxPrice over Duration seconds. MaxPrice is escrowed.
type CreateDutchRequestArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	Quantity     uint64
	PaymentToken common.Address
	Duration     uint64
	MaxPrice     *big.Int
	StartPrice   *big.Int
}

// CreateAmountRequestArgs asks for up to Quantity items at PricePerUnit,
// fillable in parts.
type CreateAmountRequestArgs struct {
	Collection   common.Address
	ItemID       *big.Int
	PricePerUnit *big.Int
	PaymentToken common.Address
	Duration     uint64 // zero means no expiry
	Quantity     uint64
}

// CreateOfferArgs makes an escrowed offer that only Counterparty can fill.
type CreateOfferArgs struct {
	Counterparty common.Address
	Collection   common.Address
	PaymentToken common.Address
	ItemID       *big.Int
	Quantity     uint64
	Price        *big.Int
	Duration     uint64 // zero means no expiry
}

// ModifyStandardRequestArgs re-terms an open standard request. Escrow is
// topped up from the attached value and any surplus refunded.
type ModifyStandardRequestArgs struct {
	Slot
	Quantity     uint64
	PaymentToken common.Address
	Price        *big.Int
}

// ModifyTimerRequestArgs re-terms an open timer request.
type ModifyTimerRequestArgs struct {
	Slot
	Quantity     uint64
	PaymentToken common.Address
	Price        *big.Int
	Duration     uint64
}

// ModifyDutchRequestArgs re-terms an open Dutch request and restarts its
// price schedule.
type ModifyDutchRequestArgs struct {
	Slot
	Quantity     uint64
	PaymentToken common.Address
	Duration     uint64
	MaxPrice     *big.Int
	StartPrice   *big.Int
}

// ModifyAmountRequestArgs re-terms what remains of an amount request.
type ModifyAmountRequestArgs struct {
	Slot
	PricePerUnit *big.Int
	PaymentToken common.Address
	Duration     uint64
	Quantity     uint64 // new remaining quantity
}

// ModifyOfferArgs re-terms the caller's open offer to Counterparty.
type ModifyOfferArgs struct {
	Counterparty common.Address
	Index        uint64
	PaymentToken common.Address
	Quantity     uint64
	Price        *big.Int
	Duration     uint64
}

// FulfillRequestArgs fulfills a standard, timer, Dutch or amount request.
// Quantity must equal the request quantity for standard requests and is
// the partial fill for amount requests; timer and Dutch requests ignore it.
type FulfillRequestArgs struct {
	Slot
	Quantity        uint64
	ExpectedVersion uint64
}

// FulfillOfferArgs fills an offer made to the caller by Requester.
type FulfillOfferArgs struct {
	Requester       common.Address
	Index           uint64
	ExpectedVersion uint64
}

// CloseRequestArgs withdraws a requester's open request and refunds its
// escrow.
type CloseRequestArgs struct {
	Kind storage.RequestKind
	Slot
}

// CloseOfferArgs withdraws the caller's offer to Counterparty and refunds
// its escrow.
type CloseOfferArgs struct {
	Counterparty common.Address
	Index        uint64
}

// --- Owner and views ---

// CollectionArgs names a collection for allow-list changes.
type CollectionArgs struct {
	Collection common.Address
}

// SetCollectionFeesArgs replaces a collection's fee beneficiaries. The
// percentages must sum to fees.Denominator.
type SetCollectionFeesArgs struct {
	Collection  common.Address
	Actors      []common.Address
	Percentages []*big.Int // scaled by fees.Denominator
}

// SetCollectionFeeRateArgs sets the share of each sale taken as fee.
type SetCollectionFeeRateArgs struct {
	Collection common.Address
	Rate       *big.Int // scaled by fees.Denominator
}

// InitArgs is the init input of the owner facet.
type InitArgs struct {
	ListingTokens []common.Address
}

// GetListingArgs addresses one listing for getListing.
type GetListingArgs struct {
	Kind storage.ListingKind
	Slot
}

// GetRequestArgs addresses one request for getRequest.
type GetRequestArgs struct {
	Kind storage.RequestKind
	Slot
}

// GetOfferArgs addresses one offer for getOffer.
type GetOfferArgs struct {
	Requester    common.Address
	Counterparty common.Address
	Index        uint64
}
