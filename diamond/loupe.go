package diamond

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/storage"
)

// FacetInfo describes one registered facet and the selectors routed to it.
type FacetInfo struct {
	Address   common.Address
	Name      string // empty when no code is deployed at Address
	Selectors []storage.Selector
}

const loupeFacetName = "DiamondLoupeFacet"

// Loupe function signatures.
const (
	FacetsSignature                 = "facets()"
	FacetFunctionSelectorsSignature = "facetFunctionSelectors(address)"
	FacetAddressesSignature         = "facetAddresses()"
	FacetAddressSignature           = "facetAddress(bytes4)"
)

type loupeFacet struct{}

func (loupeFacet) Name() string { return loupeFacetName }

func (loupeFacet) Methods() []Method {
	return []Method{
		{Signature: FacetsSignature, ReadOnly: true, Handler: func(env *Env, _ any) (any, error) {
			return facetsOf(env.State, env.d.arena), nil
		}},
		{Signature: FacetFunctionSelectorsSignature, ReadOnly: true, Handler: func(env *Env, input any) (any, error) {
			addr, err := Input[common.Address](input)
			if err != nil {
				return nil, err
			}
			return selectorsOf(env.State, addr), nil
		}},
		{Signature: FacetAddressesSignature, ReadOnly: true, Handler: func(env *Env, _ any) (any, error) {
			return addressesOf(env.State), nil
		}},
		{Signature: FacetAddressSignature, ReadOnly: true, Handler: func(env *Env, input any) (any, error) {
			sel, err := Input[storage.Selector](input)
			if err != nil {
				return nil, err
			}
			return env.State.Routing.Selectors[sel], nil
		}},
	}
}

func facetsOf(s *storage.State, arena map[common.Address]*code) []FacetInfo {
	out := make([]FacetInfo, 0, len(s.Routing.Facets))
	for _, addr := range s.Routing.Facets {
		info := FacetInfo{Address: addr, Selectors: selectorsOf(s, addr)}
		if c, ok := arena[addr]; ok {
			info.Name = c.facet.Name()
		}
		out = append(out, info)
	}
	return out
}

func selectorsOf(s *storage.State, facet common.Address) []storage.Selector {
	return append([]storage.Selector(nil), s.Routing.FacetSelectors[facet]...)
}

func addressesOf(s *storage.State) []common.Address {
	return append([]common.Address(nil), s.Routing.Facets...)
}

// Facets lists every registered facet with its selectors.
func (d *Diamond) Facets() []FacetInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return facetsOf(d.state, d.arena)
}

// FacetFunctionSelectors lists the selectors routed to facet.
func (d *Diamond) FacetFunctionSelectors(facet common.Address) []storage.Selector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return selectorsOf(d.state, facet)
}

// FacetAddresses lists the registered facet addresses in registration order.
func (d *Diamond) FacetAddresses() []common.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return addressesOf(d.state)
}

// FacetAddress resolves a selector. The zero address means unbound.
func (d *Diamond) FacetAddress(sel storage.Selector) common.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Routing.Selectors[sel]
}
