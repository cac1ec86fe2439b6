package market

import "errors"

var (
	// ErrCollectionNotAllowed indicates the collection is not on the listing-token allow-list.
	ErrCollectionNotAllowed = errors.New("market: collection not allowed")

	// ErrInvalidQuantity indicates a zero quantity.
	ErrInvalidQuantity = errors.New("market: invalid quantity")

	// ErrInvalidParameters indicates kind parameters that fail validation.
	ErrInvalidParameters = errors.New("market: invalid parameters")

	// ErrInsufficientBalance indicates the seller's available balance is too small.
	ErrInsufficientBalance = errors.New("market: insufficient available balance")

	// ErrNotApproved indicates the marketplace may not move the holder's items.
	ErrNotApproved = errors.New("market: marketplace not approved")

	// ErrNotOwnerOfSlot indicates a modify or close by someone other than the creator.
	ErrNotOwnerOfSlot = errors.New("market: caller does not own the slot")

	// ErrListingClosed indicates the listing was fulfilled or closed.
	ErrListingClosed = errors.New("market: listing closed")

	// ErrRequestClosed indicates the request or offer was fulfilled or closed.
	ErrRequestClosed = errors.New("market: request closed")

	// ErrStaleState indicates the entry changed since the caller last read it.
	ErrStaleState = errors.New("market: stale state")

	// ErrDeadlineNotReached indicates an operation gated on a deadline that has not passed.
	ErrDeadlineNotReached = errors.New("market: deadline not reached")

	// ErrDeadlinePassed indicates the entry has expired.
	ErrDeadlinePassed = errors.New("market: deadline passed")

	// ErrInsufficientPayment indicates the payment does not cover the price or bid.
	ErrInsufficientPayment = errors.New("market: insufficient payment")

	// ErrInsufficientEscrowAdjustment indicates a modify would leave escrow short of the new commitment.
	ErrInsufficientEscrowAdjustment = errors.New("market: insufficient escrow adjustment")

	// ErrSellerCannotBid indicates the seller bid on their own auction.
	ErrSellerCannotBid = errors.New("market: seller cannot bid")

	// ErrBidsPresent indicates an auction that can no longer be modified or closed by its seller.
	ErrBidsPresent = errors.New("market: bids present")

	// ErrBidWindowClosed indicates a sealed-bid commitment after the bid window.
	ErrBidWindowClosed = errors.New("market: bid window closed")

	// ErrRevealWindowNotOpen indicates a reveal during the bid window.
	ErrRevealWindowNotOpen = errors.New("market: reveal window not open")

	// ErrRevealWindowClosed indicates a reveal after the reveal window.
	ErrRevealWindowClosed = errors.New("market: reveal window closed")

	// ErrCommitmentMismatch indicates the revealed price and salt do not hash to the commitment.
	ErrCommitmentMismatch = errors.New("market: commitment mismatch")

	// ErrNoCommitment indicates a reveal without a prior commitment.
	ErrNoCommitment = errors.New("market: no commitment")

	// ErrAlreadyRevealed indicates a second reveal of the same bid.
	ErrAlreadyRevealed = errors.New("market: bid already revealed")

	// ErrNotAuthorized indicates a close attempt during the restricted close window.
	ErrNotAuthorized = errors.New("market: not authorized")

	// ErrQuantityExceedsRemaining indicates a partial fill larger than what remains.
	ErrQuantityExceedsRemaining = errors.New("market: quantity exceeds remaining")

	// ErrNotCounterparty indicates an offer fulfilled by someone other than its counterparty.
	ErrNotCounterparty = errors.New("market: caller is not the counterparty")

	// ErrFeeConfigurationInvalid indicates the collection has no valid fee configuration.
	ErrFeeConfigurationInvalid = errors.New("market: fee configuration invalid")

	// ErrNoAssetLedger indicates the diamond was built without an asset ledger.
	ErrNoAssetLedger = errors.New("market: no asset ledger configured")

	// ErrNoPaymentLedger indicates the diamond was built without a payment ledger.
	ErrNoPaymentLedger = errors.New("market: no payment ledger configured")
)
