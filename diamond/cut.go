package diamond

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// CutAction is the kind of change a FacetCut applies.
type CutAction uint8

const (
	Add CutAction = iota
	Replace
	Remove
)

func (a CutAction) String() string {
	switch a {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// FacetCut is one entry of a diamond cut.
type FacetCut struct {
	Action       CutAction
	FacetAddress common.Address
	Selectors    []storage.Selector
}

// CutInput is the argument of diamondCut.
type CutInput struct {
	Changes   []FacetCut
	Init      common.Address // zero for no init call
	InitInput any
}

const (
	cutFacetName = "DiamondCutFacet"

	// CutSignature is the signature of the routed cut function.
	CutSignature = "diamondCut((address,uint8,bytes4[])[],address,bytes)"
)

type cutFacet struct{}

func (cutFacet) Name() string { return cutFacetName }

func (cutFacet) Methods() []Method {
	return []Method{{Signature: CutSignature, Handler: diamondCut}}
}

func diamondCut(env *Env, input any) (any, error) {
	in, err := Input[CutInput](input)
	if err != nil {
		return nil, err
	}
	if env.Sender != env.State.Owner {
		return nil, fmt.Errorf("%w: %s", ErrNotContractOwner, env.Sender.Hex())
	}
	if err := env.d.applyCut(env, in.Changes); err != nil {
		return nil, err
	}

	if in.Init != (common.Address{}) {
		c, ok := env.d.arena[in.Init]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no code", ErrInitTargetInvalid, in.Init.Hex())
		}
		initializer, ok := c.facet.(Initializer)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot initialize", ErrInitTargetInvalid, c.facet.Name())
		}
		if err := initializer.Init(env, in.InitInput); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
	}

	emitCut(env, in.Changes, in.Init)
	env.d.metrics.ObserveCut()
	env.Log.Info("diamond cut applied", zap.Int("changes", len(in.Changes)), zap.String("init", in.Init.Hex()))
	return nil, nil
}

// applyCut mutates the frame's routing table. On error the frame is
// discarded, so partial changes never become visible.
func (d *Diamond) applyCut(env *Env, changes []FacetCut) error {
	rt := &env.State.Routing
	for i, fc := range changes {
		if len(fc.Selectors) == 0 {
			return fmt.Errorf("%w: entry %d", ErrNoSelectors, i)
		}
		switch fc.Action {
		case Add:
			if err := d.requireCode(fc.FacetAddress); err != nil {
				return err
			}
			for _, sel := range fc.Selectors {
				if cur, ok := rt.Selectors[sel]; ok {
					return fmt.Errorf("%w: %s on %s", ErrSelectorAlreadyBound, sel, cur.Hex())
				}
				bind(rt, sel, fc.FacetAddress)
			}
		case Replace:
			if err := d.requireCode(fc.FacetAddress); err != nil {
				return err
			}
			for _, sel := range fc.Selectors {
				cur, ok := rt.Selectors[sel]
				if !ok {
					return fmt.Errorf("%w: %s", ErrSelectorNotBound, sel)
				}
				if rt.Immutable[sel] {
					return fmt.Errorf("%w: %s", ErrImmutableSelector, sel)
				}
				if cur == fc.FacetAddress {
					return fmt.Errorf("%w: %s on %s", ErrReplaceSameFacet, sel, cur.Hex())
				}
				unbind(rt, sel)
				bind(rt, sel, fc.FacetAddress)
			}
		case Remove:
			if fc.FacetAddress != (common.Address{}) {
				return fmt.Errorf("%w: got %s", ErrRemoveFacetNotZero, fc.FacetAddress.Hex())
			}
			for _, sel := range fc.Selectors {
				if _, ok := rt.Selectors[sel]; !ok {
					return fmt.Errorf("%w: %s", ErrSelectorNotBound, sel)
				}
				if rt.Immutable[sel] {
					return fmt.Errorf("%w: %s", ErrImmutableSelector, sel)
				}
				unbind(rt, sel)
			}
		default:
			return fmt.Errorf("%w: %d", ErrInvalidAction, fc.Action)
		}
	}
	return nil
}

func (d *Diamond) requireCode(addr common.Address) error {
	if _, ok := d.arena[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrFacetHasNoCode, addr.Hex())
	}
	return nil
}

func bind(rt *storage.RoutingTable, sel storage.Selector, facet common.Address) {
	rt.Selectors[sel] = facet
	if len(rt.FacetSelectors[facet]) == 0 {
		rt.Facets = append(rt.Facets, facet)
	}
	rt.FacetSelectors[facet] = append(rt.FacetSelectors[facet], sel)
}

// unbind removes a selector and drops its facet once it has none left.
func unbind(rt *storage.RoutingTable, sel storage.Selector) {
	facet := rt.Selectors[sel]
	delete(rt.Selectors, sel)

	sels := rt.FacetSelectors[facet]
	for i, s := range sels {
		if s == sel {
			sels = append(sels[:i:i], sels[i+1:]...)
			break
		}
	}
	if len(sels) > 0 {
		rt.FacetSelectors[facet] = sels
		return
	}
	delete(rt.FacetSelectors, facet)
	for i, f := range rt.Facets {
		if f == facet {
			rt.Facets = append(rt.Facets[:i:i], rt.Facets[i+1:]...)
			break
		}
	}
}

func emitCut(env *Env, changes []FacetCut, init common.Address) {
	parts := make([]string, 0, len(changes))
	for _, fc := range changes {
		sels := make([]string, len(fc.Selectors))
		for i, s := range fc.Selectors {
			sels[i] = s.String()
		}
		parts = append(parts, fmt.Sprintf("%s:%s:%s", fc.Action, fc.FacetAddress.Hex(), strings.Join(sels, ",")))
	}
	env.Emit(events.DiamondCut, Fields{}.
		Str("changes", strings.Join(parts, ";")).
		Addr("init", init))
}

// Cut routes a diamondCut call from sender.
func (d *Diamond) Cut(ctx context.Context, sender common.Address, in CutInput) error {
	_, err := d.Call(ctx, Message{
		From:     sender,
		Selector: storage.SelectorOf(CutSignature),
		Input:    in,
	})
	return err
}
