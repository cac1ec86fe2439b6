package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/storage"
)

// CallOpts identifies the caller of a routed operation and the native
// value attached to it.
type CallOpts struct {
	From  common.Address
	Value *big.Int
}

// Client is a typed front end over a diamond's routed marketplace
// selectors. Every method is a single Diamond.Call.
type Client struct {
	d *diamond.Diamond
}

// NewClient wraps d.
func NewClient(d *diamond.Diamond) *Client {
	return &Client{d: d}
}

// Diamond returns the wrapped diamond.
func (c *Client) Diamond() *diamond.Diamond { return c.d }

func call[R any](ctx context.Context, c *Client, opts CallOpts, sig string, input any) (R, error) {
	var zero R
	out, err := c.d.Call(ctx, diamond.Message{
		From:     opts.From,
		Value:    opts.Value,
		Selector: storage.SelectorOf(sig),
		Input:    input,
	})
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	r, ok := out.(R)
	if !ok {
		return zero, fmt.Errorf("market: %s returned %T, want %T", sig, out, zero)
	}
	return r, nil
}

func (c *Client) send(ctx context.Context, opts CallOpts, sig string, input any) error {
	_, err := c.d.Call(ctx, diamond.Message{
		From:     opts.From,
		Value:    opts.Value,
		Selector: storage.SelectorOf(sig),
		Input:    input,
	})
	return err
}

// --- Listings ---

func (c *Client) CreateStandardListing(ctx context.Context, opts CallOpts, a CreateStandardListingArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateStandardListing, a)
}

func (c *Client) CreateTimerListing(ctx context.Context, opts CallOpts, a CreateTimerListingArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateTimerListing, a)
}

func (c *Client) CreateDutchListing(ctx context.Context, opts CallOpts, a CreateDutchListingArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateDutchListing, a)
}

func (c *Client) CreateEnglishListing(ctx context.Context, opts CallOpts, a CreateEnglishListingArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateEnglishListing, a)
}

func (c *Client) CreateSealedBidListing(ctx context.Context, opts CallOpts, a CreateSealedBidListingArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateSealedBidListing, a)
}

func (c *Client) ModifyStandardListing(ctx context.Context, opts CallOpts, a ModifyStandardListingArgs) error {
	return c.send(ctx, opts, SigModifyStandardListing, a)
}

func (c *Client) ModifyTimerListing(ctx context.Context, opts CallOpts, a ModifyTimerListingArgs) error {
	return c.send(ctx, opts, SigModifyTimerListing, a)
}

func (c *Client) ModifyDutchListing(ctx context.Context, opts CallOpts, a ModifyDutchListingArgs) error {
	return c.send(ctx, opts, SigModifyDutchListing, a)
}

func (c *Client) ModifyEnglishListing(ctx context.Context, opts CallOpts, a ModifyEnglishListingArgs) error {
	return c.send(ctx, opts, SigModifyEnglishListing, a)
}

func (c *Client) ModifySealedBidListing(ctx context.Context, opts CallOpts, a ModifySealedBidListingArgs) error {
	return c.send(ctx, opts, SigModifySealedBidListing, a)
}

func (c *Client) FulfillStandardListing(ctx context.Context, opts CallOpts, a FulfillListingArgs) error {
	return c.send(ctx, opts, SigFulfillStandardListing, a)
}

func (c *Client) FulfillTimerListing(ctx context.Context, opts CallOpts, a FulfillListingArgs) error {
	return c.send(ctx, opts, SigFulfillTimerListing, a)
}

func (c *Client) FulfillDutchListing(ctx context.Context, opts CallOpts, a FulfillListingArgs) error {
	return c.send(ctx, opts, SigFulfillDutchListing, a)
}

func (c *Client) BidEnglishListing(ctx context.Context, opts CallOpts, a BidEnglishListingArgs) error {
	return c.send(ctx, opts, SigBidEnglishListing, a)
}

func (c *Client) FulfillEnglishListing(ctx context.Context, opts CallOpts, a FulfillEnglishListingArgs) error {
	return c.send(ctx, opts, SigFulfillEnglishListing, a)
}

func (c *Client) BidSealedBidListing(ctx context.Context, opts CallOpts, a BidSealedBidListingArgs) error {
	return c.send(ctx, opts, SigBidSealedBidListing, a)
}

func (c *Client) PlaceSealedBidListing(ctx context.Context, opts CallOpts, a PlaceSealedBidListingArgs) error {
	return c.send(ctx, opts, SigPlaceSealedBidListing, a)
}

func (c *Client) CloseSealedBidListing(ctx context.Context, opts CallOpts, a CloseSealedBidListingArgs) error {
	return c.send(ctx, opts, SigCloseSealedBidListing, a)
}

func (c *Client) CloseListing(ctx context.Context, opts CallOpts, a CloseListingArgs) error {
	return c.send(ctx, opts, SigCloseListing, a)
}

// --- Requests and offers ---

func (c *Client) CreateStandardRequest(ctx context.Context, opts CallOpts, a CreateStandardRequestArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateStandardRequest, a)
}

func (c *Client) CreateTimerRequest(ctx context.Context, opts CallOpts, a CreateTimerRequestArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateTimerRequest, a)
}

func (c *Client) CreateDutchRequest(ctx context.Context, opts CallOpts, a CreateDutchRequestArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateDutchRequest, a)
}

func (c *Client) CreateAmountRequest(ctx context.Context, opts CallOpts, a CreateAmountRequestArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateAmountRequest, a)
}

func (c *Client) CreateOffer(ctx context.Context, opts CallOpts, a CreateOfferArgs) (uint64, error) {
	return call[uint64](ctx, c, opts, SigCreateOffer, a)
}

func (c *Client) ModifyStandardRequest(ctx context.Context, opts CallOpts, a ModifyStandardRequestArgs) error {
	return c.send(ctx, opts, SigModifyStandardRequest, a)
}

func (c *Client) ModifyTimerRequest(ctx context.Context, opts CallOpts, a ModifyTimerRequestArgs) error {
	return c.send(ctx, opts, SigModifyTimerRequest, a)
}

func (c *Client) ModifyDutchRequest(ctx context.Context, opts CallOpts, a ModifyDutchRequestArgs) error {
	return c.send(ctx, opts, SigModifyDutchRequest, a)
}

func (c *Client) ModifyAmountRequest(ctx context.Context, opts CallOpts, a ModifyAmountRequestArgs) error {
	return c.send(ctx, opts, SigModifyAmountRequest, a)
}

func (c *Client) ModifyOffer(ctx context.Context, opts CallOpts, a ModifyOfferArgs) error {
	return c.send(ctx, opts, SigModifyOffer, a)
}

func (c *Client) FulfillStandardRequest(ctx context.Context, opts CallOpts, a FulfillRequestArgs) error {
	return c.send(ctx, opts, SigFulfillStandardRequest, a)
}

func (c *Client) FulfillTimerRequest(ctx context.Context, opts CallOpts, a FulfillRequestArgs) error {
	return c.send(ctx, opts, SigFulfillTimerRequest, a)
}

func (c *Client) FulfillDutchRequest(ctx context.Context, opts CallOpts, a FulfillRequestArgs) error {
	return c.send(ctx, opts, SigFulfillDutchRequest, a)
}

func (c *Client) FulfillAmountRequest(ctx context.Context, opts CallOpts, a FulfillRequestArgs) error {
	return c.send(ctx, opts, SigFulfillAmountRequest, a)
}

func (c *Client) FulfillOffer(ctx context.Context, opts CallOpts, a FulfillOfferArgs) error {
	return c.send(ctx, opts, SigFulfillOffer, a)
}

func (c *Client) CloseRequest(ctx context.Context, opts CallOpts, a CloseRequestArgs) error {
	return c.send(ctx, opts, SigCloseRequest, a)
}

func (c *Client) CloseOffer(ctx context.Context, opts CallOpts, a CloseOfferArgs) error {
	return c.send(ctx, opts, SigCloseOffer, a)
}

// --- Owner ---

func (c *Client) AddListingToken(ctx context.Context, opts CallOpts, collection common.Address) error {
	return c.send(ctx, opts, SigAddListingToken, CollectionArgs{Collection: collection})
}

func (c *Client) RemoveListingToken(ctx context.Context, opts CallOpts, collection common.Address) error {
	return c.send(ctx, opts, SigRemoveListingToken, CollectionArgs{Collection: collection})
}

func (c *Client) SetCollectionFeeActorsAndPercentages(ctx context.Context, opts CallOpts, a SetCollectionFeesArgs) error {
	return c.send(ctx, opts, SigSetCollectionFeeActorsAndPercentages, a)
}

func (c *Client) SetCollectionFeeRate(ctx context.Context, opts CallOpts, a SetCollectionFeeRateArgs) error {
	return c.send(ctx, opts, SigSetCollectionFeeRate, a)
}

// --- Views ---

func (c *Client) GetListing(ctx context.Context, kind storage.ListingKind, s Slot) (*storage.Listing, error) {
	return call[*storage.Listing](ctx, c, CallOpts{}, SigGetListing, GetListingArgs{Kind: kind, Slot: s})
}

func (c *Client) GetRequest(ctx context.Context, kind storage.RequestKind, s Slot) (*storage.Request, error) {
	return call[*storage.Request](ctx, c, CallOpts{}, SigGetRequest, GetRequestArgs{Kind: kind, Slot: s})
}

func (c *Client) GetOffer(ctx context.Context, requester, counterparty common.Address, index uint64) (*storage.Offer, error) {
	return call[*storage.Offer](ctx, c, CallOpts{}, SigGetOffer, GetOfferArgs{Requester: requester, Counterparty: counterparty, Index: index})
}

func (c *Client) GetDutchListingPrice(ctx context.Context, s Slot) (*big.Int, error) {
	return call[*big.Int](ctx, c, CallOpts{}, SigGetDutchListingPrice, s)
}

func (c *Client) GetDutchRequestPrice(ctx context.Context, s Slot) (*big.Int, error) {
	return call[*big.Int](ctx, c, CallOpts{}, SigGetDutchRequestPrice, s)
}

func (c *Client) GetCollectionFees(ctx context.Context, collection common.Address) (*storage.FeeConfig, error) {
	return call[*storage.FeeConfig](ctx, c, CallOpts{}, SigGetCollectionFees, CollectionArgs{Collection: collection})
}
