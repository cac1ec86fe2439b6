package events

// Names of the events emitted by committed operations.
const (
	DiamondCut           = "DiamondCut"
	ListingCreated       = "ListingCreated"
	ListingModified      = "ListingModified"
	ListingFulfilled     = "ListingFulfilled"
	ListingClosed        = "ListingClosed"
	EnglishBidPlaced     = "EnglishBidPlaced"
	SealedBidCommitted   = "SealedBidCommitted"
	SealedBidRevealed    = "SealedBidRevealed"
	SealedBidClosed      = "SealedBidClosed"
	RequestCreated       = "RequestCreated"
	RequestModified      = "RequestModified"
	RequestFulfilled     = "RequestFulfilled"
	RequestClosed        = "RequestClosed"
	OfferCreated         = "OfferCreated"
	OfferModified        = "OfferModified"
	OfferFulfilled       = "OfferFulfilled"
	OfferClosed          = "OfferClosed"
	FeePaid              = "FeePaid"
	ListingTokenAdded    = "ListingTokenAdded"
	ListingTokenRemoved  = "ListingTokenRemoved"
	CollectionFeesSet    = "CollectionFeesSet"
	CollectionFeeRateSet = "CollectionFeeRateSet"

	// All subscribes a listener to every event.
	All = "*"
)
