package cli

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/market"
	"github.com/bitfsorg/libmarket-go/storage"
)

var listingKinds = map[string]storage.ListingKind{
	"standard":   storage.ListingStandard,
	"timer":      storage.ListingTimer,
	"dutch":      storage.ListingDutch,
	"english":    storage.ListingEnglish,
	"sealed-bid": storage.ListingSealedBid,
}

var requestKinds = map[string]storage.RequestKind{
	"standard": storage.RequestStandard,
	"timer":    storage.RequestTimer,
	"dutch":    storage.RequestDutch,
	"amount":   storage.RequestAmount,
}

func parseListingKind(s string) (storage.ListingKind, error) {
	k, ok := listingKinds[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown listing kind %q", s)
	}
	return k, nil
}

func parseRequestKind(s string) (storage.RequestKind, error) {
	k, ok := requestKinds[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown request kind %q", s)
	}
	return k, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// parseFacet accepts a facet address or a facet name.
func parseFacet(s string) common.Address {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s)
	}
	return diamond.FacetAddress(s)
}

// parseSelector accepts a 0x-prefixed 4-byte selector or a function
// signature.
func parseSelector(s string) (storage.Selector, error) {
	if strings.HasPrefix(s, "0x") && !strings.Contains(s, "(") {
		return storage.ParseSelector(s)
	}
	if !strings.HasSuffix(s, ")") {
		return storage.Selector{}, fmt.Errorf("invalid selector or signature %q", s)
	}
	return storage.SelectorOf(s), nil
}

func parseItemID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 0)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

// parseSlot reads collection, item id and index from args.
func parseSlot(args []string) (market.Slot, error) {
	collection, err := parseAddress(args[0])
	if err != nil {
		return market.Slot{}, err
	}
	id, err := parseItemID(args[1])
	if err != nil {
		return market.Slot{}, err
	}
	index, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return market.Slot{}, fmt.Errorf("invalid index %q: %w", args[2], err)
	}
	return market.Slot{Collection: collection, ItemID: id, Index: index}, nil
}
