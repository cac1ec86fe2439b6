package diamond

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/storage"
)

// Handler executes one facet function. input is the decoded call argument
// and the returned value is handed back to the caller.
type Handler func(env *Env, input any) (any, error)

// Method binds a function signature to its handler.
type Method struct {
	Signature string // e.g. "createStandardListing(address,uint256,uint256,uint256,address)"
	Handler   Handler
	ReadOnly  bool // executed in a frame that is never committed
}

// Selector returns the method's 4-byte selector.
func (m Method) Selector() storage.Selector {
	return storage.SelectorOf(m.Signature)
}

// Facet is a deployable logic module.
type Facet interface {
	Name() string
	Methods() []Method
}

// Initializer is implemented by facets usable as a cut's init target.
type Initializer interface {
	Init(env *Env, input any) error
}

// FacetAddress derives the deterministic address of a facet from its name.
func FacetAddress(name string) common.Address {
	return common.BytesToAddress(storage.Keccak256([]byte("facet:" + name))[12:])
}

// Selectors returns the selectors a facet implements, in declaration order.
func Selectors(f Facet) []storage.Selector {
	methods := f.Methods()
	out := make([]storage.Selector, len(methods))
	for i, m := range methods {
		out[i] = m.Selector()
	}
	return out
}

// code is a deployed facet: its implementation and selector index.
type code struct {
	address  common.Address
	facet    Facet
	methods  map[storage.Selector]Method
	ordering []storage.Selector
}

func compile(f Facet) (*code, error) {
	c := &code{
		address: FacetAddress(f.Name()),
		facet:   f,
		methods: make(map[storage.Selector]Method),
	}
	for _, m := range f.Methods() {
		sel := m.Selector()
		if _, dup := c.methods[sel]; dup {
			return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateSelector, m.Signature, f.Name())
		}
		c.methods[sel] = m
		c.ordering = append(c.ordering, sel)
	}
	return c, nil
}

// Input asserts the call input to T, accepting either T or *T.
func Input[T any](input any) (T, error) {
	var zero T
	switch v := input.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	return zero, fmt.Errorf("%w: got %T, want %T", ErrInvalidInput, input, zero)
}
