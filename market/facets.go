package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/fees"
	"github.com/bitfsorg/libmarket-go/storage"
)

// Facet names. A facet's address is diamond.FacetAddress(name).
const (
	ListingFacetName               = "MarketplaceListingFacet"
	ModifyListingFacetName         = "MarketplaceModifyListingFacet"
	FulfillListingFacetName        = "MarketplaceFulfillListingFacet"
	FulfillEnglishListingFacetName = "MarketplaceFulfillEnglishListingFacet"
	FulfillSealedBidFacetName      = "MarketplaceFulfillSealedBidListingFacet"
	CloseListingFacetName          = "MarketplaceCloseListingFacet"
	RequestFacetName               = "MarketplaceRequestFacet"
	ModifyRequestFacetName         = "MarketplaceModifyRequestFacet"
	FulfillRequestFacetName        = "MarketplaceFulfillRequestFacet"
	FulfillAmountRequestFacetName  = "MarketplaceFulfillAmountRequestFacet"
	FulfillOfferFacetName          = "MarketplaceFulfillOfferFacet"
	CloseRequestFacetName          = "MarketplaceCloseRequestFacet"
	OwnerFacetName                 = "MarketplaceOwnerFacet"
	ViewFacetName                  = "MarketplaceViewFacet"
)

// Function signatures routed by the diamond.
const (
	SigCreateStandardListing  = "createStandardListing(address,uint256,uint256,uint256,address)"
	SigCreateTimerListing     = "createTimerListing(address,uint256,uint256,uint256,uint256,address)"
	SigCreateDutchListing     = "createDutchListing(address,uint256,uint256,uint256,uint256,uint256,address,uint256)"
	SigCreateEnglishListing   = "createEnglishListing(address,uint256,uint256,uint256,bool,address,uint256,uint256,uint256)"
	SigCreateSealedBidListing = "createSealedBidListing(address,uint256,uint256,address,uint256,uint256,uint256,uint256)"

	SigModifyStandardListing  = "modifyStandardListing(address,uint256,uint256,uint256,uint256,address)"
	SigModifyTimerListing     = "modifyTimerListing(address,uint256,uint256,address,uint256,uint256,uint256)"
	SigModifyDutchListing     = "modifyDutchListing(address,uint256,uint256,address,uint256,uint256,uint256,uint256,uint256)"
	SigModifyEnglishListing   = "modifyEnglishListing(address,uint256,uint256,uint256,uint256,bool,address,uint256,uint256,uint256)"
	SigModifySealedBidListing = "modifySealedBidListing(address,uint256,uint256,uint256,address,uint256,uint256,uint256,uint256)"

	SigFulfillStandardListing = "fulfillStandardListing(address,uint256,uint256,uint256)"
	SigFulfillTimerListing    = "fulfillTimerListing(address,uint256,uint256)"
	SigFulfillDutchListing    = "fulfillDutchListing(address,uint256,uint256)"

	SigBidEnglishListing     = "bidEnglishListing(address,uint256,uint256,uint256)"
	SigFulfillEnglishListing = "fulfillEnglishListing(address,uint256,uint256)"

	SigBidSealedBidListing   = "bidSealedBidListing(address,uint256,uint256,bytes32)"
	SigPlaceSealedBidListing = "placeSealedBidListing(address,uint256,uint256,string,uint256)"
	SigCloseSealedBidListing = "closeSealedBidListing(address,uint256,uint256)"

	SigCloseListing = "closeListing(uint8,address,uint256,uint256)"

	SigCreateStandardRequest = "createStandardRequest(address,uint256,uint256,address,uint256)"
	SigCreateTimerRequest    = "createTimerRequest(address,uint256,uint256,address,uint256,uint256)"
	SigCreateDutchRequest    = "createDutchRequest(address,uint256,uint256,address,uint256,uint256,uint256)"
	SigCreateAmountRequest   = "createAmountRequest(address,uint256,uint256,address,uint256,uint256)"
	SigCreateOffer           = "createOffer(address,address,address,uint256,uint256,uint256,uint256)"

	SigModifyStandardRequest = "modifyStandardRequest(address,uint256,uint256,uint256,address,uint256)"
	SigModifyTimerRequest    = "modifyTimerRequest(address,uint256,uint256,uint256,address,uint256,uint256)"
	SigModifyDutchRequest    = "modifyDutchRequest(address,uint256,uint256,uint256,address,uint256,uint256,uint256)"
	SigModifyAmountRequest   = "modifyAmountRequest(address,uint256,uint256,uint256,address,uint256,uint256)"
	SigModifyOffer           = "modifyOffer(address,uint256,address,uint256,uint256,uint256)"

	SigFulfillStandardRequest = "fulfillStandardRequest(address,uint256,uint256,uint256)"
	SigFulfillTimerRequest    = "fulfillTimerRequest(address,uint256,uint256)"
	SigFulfillDutchRequest    = "fulfillDutchRequest(address,uint256,uint256)"
	SigFulfillAmountRequest   = "fulfillAmountRequest(address,uint256,uint256,uint256)"
	SigFulfillOffer           = "fulfillOffer(address,uint256)"

	SigCloseRequest = "closeRequest(uint8,address,uint256,uint256)"
	SigCloseOffer   = "closeOffer(address,uint256)"

	SigAddListingToken                      = "addListingToken(address)"
	SigRemoveListingToken                   = "removeListingToken(address)"
	SigSetCollectionFeeActorsAndPercentages = "setCollectionFeeActorsAndPercentages(address,address[],uint256[])"
	SigSetCollectionFeeRate                 = "setCollectionFeeRate(address,uint256)"

	SigGetListing           = "getListing(uint8,address,uint256,uint256)"
	SigGetRequest           = "getRequest(uint8,address,uint256,uint256)"
	SigGetOffer             = "getOffer(address,address,uint256)"
	SigGetDutchListingPrice = "getDutchListingPrice(address,uint256,uint256)"
	SigGetDutchRequestPrice = "getDutchRequestPrice(address,uint256,uint256)"
	SigGetCollectionFees    = "getCollectionFees(address)"
)

// handle adapts a typed operation returning a result to a diamond.Handler.
func handle[A, R any](fn func(*diamond.Env, A) (R, error)) diamond.Handler {
	return func(env *diamond.Env, input any) (any, error) {
		a, err := diamond.Input[A](input)
		if err != nil {
			return nil, err
		}
		return fn(env, a)
	}
}

// exec adapts a typed operation without a result.
func exec[A any](fn func(*diamond.Env, A) error) diamond.Handler {
	return func(env *diamond.Env, input any) (any, error) {
		a, err := diamond.Input[A](input)
		if err != nil {
			return nil, err
		}
		return nil, fn(env, a)
	}
}

func view[A, R any](sig string, fn func(*diamond.Env, A) (R, error)) diamond.Method {
	return diamond.Method{Signature: sig, Handler: handle(fn), ReadOnly: true}
}

type facet struct {
	name    string
	methods []diamond.Method
}

func (f *facet) Name() string { return f.name }
func (f *facet) Methods() []diamond.Method { return f.methods }

func newListingFacet() *facet {
	return &facet{name: ListingFacetName, methods: []diamond.Method{
		{Signature: SigCreateStandardListing, Handler: handle(createStandardListing)},
		{Signature: SigCreateTimerListing, Handler: handle(createTimerListing)},
		{Signature: SigCreateDutchListing, Handler: handle(createDutchListing)},
		{Signature: SigCreateEnglishListing, Handler: handle(createEnglishListing)},
		{Signature: SigCreateSealedBidListing, Handler: handle(createSealedBidListing)},
	}}
}

func newModifyListingFacet() *facet {
	return &facet{name: ModifyListingFacetName, methods: []diamond.Method{
		{Signature: SigModifyStandardListing, Handler: exec(modifyStandardListing)},
		{Signature: SigModifyTimerListing, Handler: exec(modifyTimerListing)},
		{Signature: SigModifyDutchListing, Handler: exec(modifyDutchListing)},
		{Signature: SigModifyEnglishListing, Handler: exec(modifyEnglishListing)},
		{Signature: SigModifySealedBidListing, Handler: exec(modifySealedBidListing)},
	}}
}

func newFulfillListingFacet() *facet {
	return &facet{name: FulfillListingFacetName, methods: []diamond.Method{
		{Signature: SigFulfillStandardListing, Handler: exec(fulfillStandardListing)},
		{Signature: SigFulfillTimerListing, Handler: exec(fulfillTimerListing)},
		{Signature: SigFulfillDutchListing, Handler: exec(fulfillDutchListing)},
	}}
}

func newFulfillEnglishListingFacet() *facet {
	return &facet{name: FulfillEnglishListingFacetName, methods: []diamond.Method{
		{Signature: SigBidEnglishListing, Handler: exec(bidEnglishListing)},
		{Signature: SigFulfillEnglishListing, Handler: exec(fulfillEnglishListing)},
	}}
}

func newFulfillSealedBidFacet() *facet {
	return &facet{name: FulfillSealedBidFacetName, methods: []diamond.Method{
		{Signature: SigBidSealedBidListing, Handler: exec(bidSealedBidListing)},
		{Signature: SigPlaceSealedBidListing, Handler: exec(placeSealedBidListing)},
		{Signature: SigCloseSealedBidListing, Handler: exec(closeSealedBidListing)},
	}}
}

func newCloseListingFacet() *facet {
	return &facet{name: CloseListingFacetName, methods: []diamond.Method{
		{Signature: SigCloseListing, Handler: exec(closeListing)},
	}}
}

func newRequestFacet() *facet {
	return &facet{name: RequestFacetName, methods: []diamond.Method{
		{Signature: SigCreateStandardRequest, Handler: handle(createStandardRequest)},
		{Signature: SigCreateTimerRequest, Handler: handle(createTimerRequest)},
		{Signature: SigCreateDutchRequest, Handler: handle(createDutchRequest)},
		{Signature: SigCreateAmountRequest, Handler: handle(createAmountRequest)},
		{Signature: SigCreateOffer, Handler: handle(createOffer)},
	}}
}

func newModifyRequestFacet() *facet {
	return &facet{name: ModifyRequestFacetName, methods: []diamond.Method{
		{Signature: SigModifyStandardRequest, Handler: exec(modifyStandardRequest)},
		{Signature: SigModifyTimerRequest, Handler: exec(modifyTimerRequest)},
		{Signature: SigModifyDutchRequest, Handler: exec(modifyDutchRequest)},
		{Signature: SigModifyAmountRequest, Handler: exec(modifyAmountRequest)},
		{Signature: SigModifyOffer, Handler: exec(modifyOffer)},
	}}
}

func newFulfillRequestFacet() *facet {
	return &facet{name: FulfillRequestFacetName, methods: []diamond.Method{
		{Signature: SigFulfillStandardRequest, Handler: exec(fulfillStandardRequest)},
		{Signature: SigFulfillTimerRequest, Handler: exec(fulfillTimerRequest)},
		{Signature: SigFulfillDutchRequest, Handler: exec(fulfillDutchRequest)},
	}}
}

func newFulfillAmountRequestFacet() *facet {
	return &facet{name: FulfillAmountRequestFacetName, methods: []diamond.Method{
		{Signature: SigFulfillAmountRequest, Handler: exec(fulfillAmountRequest)},
	}}
}

func newFulfillOfferFacet() *facet {
	return &facet{name: FulfillOfferFacetName, methods: []diamond.Method{
		{Signature: SigFulfillOffer, Handler: exec(fulfillOffer)},
	}}
}

func newCloseRequestFacet() *facet {
	return &facet{name: CloseRequestFacetName, methods: []diamond.Method{
		{Signature: SigCloseRequest, Handler: exec(closeRequest)},
		{Signature: SigCloseOffer, Handler: exec(closeOffer)},
	}}
}

func newViewFacet() *facet {
	return &facet{name: ViewFacetName, methods: []diamond.Method{
		view(SigGetListing, getListing),
		view(SigGetRequest, getRequest),
		view(SigGetOffer, getOffer),
		view(SigGetDutchListingPrice, getDutchListingPrice),
		view(SigGetDutchRequestPrice, getDutchRequestPrice),
		view(SigGetCollectionFees, getCollectionFees),
	}}
}

func (f *ownerFacet) Name() string { return OwnerFacetName }

func (f *ownerFacet) Methods() []diamond.Method {
	return []diamond.Method{
		{Signature: SigAddListingToken, Handler: exec(addListingToken)},
		{Signature: SigRemoveListingToken, Handler: exec(removeListingToken)},
		{Signature: SigSetCollectionFeeActorsAndPercentages, Handler: exec(f.setCollectionFees)},
		{Signature: SigSetCollectionFeeRate, Handler: exec(f.setCollectionFeeRate)},
	}
}

// Settings tunes the installed marketplace.
type Settings struct {
	// DefaultFeeRate applies to collections that receive beneficiaries
	// before an explicit rate. Nil means zero.
	DefaultFeeRate *big.Int
}

// Facets returns fresh instances of every marketplace facet.
func Facets(settings Settings) []diamond.Facet {
	rate := settings.DefaultFeeRate
	if rate == nil {
		rate = new(big.Int)
	}
	return []diamond.Facet{
		newListingFacet(),
		newModifyListingFacet(),
		newFulfillListingFacet(),
		newFulfillEnglishListingFacet(),
		newFulfillSealedBidFacet(),
		newCloseListingFacet(),
		newRequestFacet(),
		newModifyRequestFacet(),
		newFulfillRequestFacet(),
		newFulfillAmountRequestFacet(),
		newFulfillOfferFacet(),
		newCloseRequestFacet(),
		&ownerFacet{defaultRate: rate},
		newViewFacet(),
	}
}

// Deploy places the marketplace facets' code on d without routing them.
// A diamond reopened from a store needs this before its routed selectors
// can execute.
func Deploy(d *diamond.Diamond, settings Settings) error {
	if err := fees.ValidateRate(rateOrZero(settings.DefaultFeeRate)); err != nil {
		return fmt.Errorf("%w: default rate: %w", ErrFeeConfigurationInvalid, err)
	}
	for _, f := range Facets(settings) {
		if _, err := d.Deploy(f); err != nil {
			return err
		}
	}
	return nil
}

// Install deploys the marketplace facets and routes every selector to them
// in one cut executed by owner. Selectors already routed elsewhere are
// replaced, selectors already routed to the right facet are left alone.
// collections are allow-listed by the owner facet's initializer.
func Install(ctx context.Context, d *diamond.Diamond, owner common.Address, settings Settings, collections ...common.Address) error {
	if err := Deploy(d, settings); err != nil {
		return err
	}

	var changes []diamond.FacetCut
	err := d.View(func(s *storage.State) error {
		for _, f := range Facets(settings) {
			addr := diamond.FacetAddress(f.Name())
			var add, replace []storage.Selector
			for _, sel := range diamond.Selectors(f) {
				cur, ok := s.Routing.Selectors[sel]
				switch {
				case !ok:
					add = append(add, sel)
				case cur != addr:
					replace = append(replace, sel)
				}
			}
			if len(add) > 0 {
				changes = append(changes, diamond.FacetCut{Action: diamond.Add, FacetAddress: addr, Selectors: add})
			}
			if len(replace) > 0 {
				changes = append(changes, diamond.FacetCut{Action: diamond.Replace, FacetAddress: addr, Selectors: replace})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(changes) == 0 && len(collections) == 0 {
		return nil
	}

	in := diamond.CutInput{Changes: changes}
	if len(collections) > 0 {
		in.Init = diamond.FacetAddress(OwnerFacetName)
		in.InitInput = InitArgs{ListingTokens: collections}
	}
	return d.Cut(ctx, owner, in)
}

func rateOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
