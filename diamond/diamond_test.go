package diamond

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/ledger"
	"github.com/bitfsorg/libmarket-go/storage"
)

var (
	owner    = common.HexToAddress("0x0a")
	stranger = common.HexToAddress("0x0b")
	tokenA   = common.HexToAddress("0xaa")
	tokenB   = common.HexToAddress("0xbb")
	errBoom  = errors.New("boom")
)

// allowFacet writes to the listing-token allow-list so tests can observe
// committed and discarded state.
type allowFacet struct {
	name string
}

func (f allowFacet) Name() string { return f.name }

func (f allowFacet) Methods() []Method {
	return []Method{
		{Signature: "allow(address)", Handler: func(env *Env, input any) (any, error) {
			addr, err := Input[common.Address](input)
			if err != nil {
				return nil, err
			}
			env.State.ListingTokens[addr] = true
			env.Emit(events.ListingTokenAdded, Fields{}.Addr("collection", addr))
			return f.name, nil
		}},
		{Signature: "allowThenFail(address)", Handler: func(env *Env, input any) (any, error) {
			addr, err := Input[common.Address](input)
			if err != nil {
				return nil, err
			}
			env.State.ListingTokens[addr] = true
			return nil, errBoom
		}},
		{Signature: "pay(uint256)", Handler: func(env *Env, input any) (any, error) {
			amount, err := Input[*big.Int](input)
			if err != nil {
				return nil, err
			}
			return nil, env.SpendValue(amount)
		}},
		{Signature: "now()", ReadOnly: true, Handler: func(env *Env, _ any) (any, error) {
			return env.Timestamp, nil
		}},
	}
}

// initFacet allows its input address when used as a cut init target.
type initFacet struct{ allowFacet }

func (initFacet) Init(env *Env, input any) error {
	addr, err := Input[common.Address](input)
	if err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return errBoom
	}
	env.State.ListingTokens[addr] = true
	return nil
}

func sel(sig string) storage.Selector { return storage.SelectorOf(sig) }

func newTestDiamond(t *testing.T, opts Options) *Diamond {
	t.Helper()
	if opts.Store == nil {
		opts.Store = storage.NewMemStore()
	}
	if opts.Owner == (common.Address{}) {
		opts.Owner = owner
	}
	if opts.Clock == nil {
		opts.Clock = NewManualClock(1000)
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func deployAndAdd(t *testing.T, d *Diamond, f Facet) common.Address {
	t.Helper()
	addr, err := d.Deploy(f)
	require.NoError(t, err)
	require.NoError(t, d.Cut(context.Background(), owner, CutInput{Changes: []FacetCut{
		{Action: Add, FacetAddress: addr, Selectors: Selectors(f)},
	}}))
	return addr
}

func allowed(d *Diamond, addr common.Address) bool {
	var ok bool
	_ = d.View(func(s *storage.State) error {
		ok = s.ListingTokens[addr]
		return nil
	})
	return ok
}

// ---------------------------------------------------------------------------
// Bootstrap and loupe
// ---------------------------------------------------------------------------

func TestNew_BindsCutAndLoupe(t *testing.T) {
	d := newTestDiamond(t, Options{})

	assert.Equal(t, owner, d.Owner())
	assert.Equal(t, uint64(1), d.Version())
	assert.Equal(t, FacetAddress(cutFacetName), d.FacetAddress(sel(CutSignature)))
	assert.Equal(t, FacetAddress(loupeFacetName), d.FacetAddress(sel(FacetsSignature)))
	assert.Equal(t, "0x1f931c1c", sel(CutSignature).String())

	facets := d.Facets()
	require.Len(t, facets, 2)
	assert.Equal(t, cutFacetName, facets[0].Name)
	assert.Equal(t, loupeFacetName, facets[1].Name)
	assert.Len(t, facets[1].Selectors, 4)
	assert.Equal(t, []common.Address{FacetAddress(cutFacetName), FacetAddress(loupeFacetName)}, d.FacetAddresses())
}

func TestLoupe_RoutedMatchesDirect(t *testing.T) {
	d := newTestDiamond(t, Options{})
	ctx := context.Background()

	out, err := d.Call(ctx, Message{From: stranger, Selector: sel(FacetsSignature)})
	require.NoError(t, err)
	assert.Equal(t, d.Facets(), out)

	out, err = d.Call(ctx, Message{From: stranger, Selector: sel(FacetAddressSignature), Input: sel(CutSignature)})
	require.NoError(t, err)
	assert.Equal(t, FacetAddress(cutFacetName), out)

	out, err = d.Call(ctx, Message{From: stranger, Selector: sel(FacetFunctionSelectorsSignature), Input: FacetAddress(cutFacetName)})
	require.NoError(t, err)
	assert.Equal(t, []storage.Selector{sel(CutSignature)}, out)

	out, err = d.Call(ctx, Message{From: stranger, Selector: sel(FacetAddressesSignature)})
	require.NoError(t, err)
	assert.Equal(t, d.FacetAddresses(), out)

	// Read-only calls do not bump the version.
	assert.Equal(t, uint64(1), d.Version())
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestCall_UnknownSelector(t *testing.T) {
	d := newTestDiamond(t, Options{})
	_, err := d.Call(context.Background(), Message{From: owner, Selector: sel("nope()")})
	assert.ErrorIs(t, err, ErrUnknownSelector)
}

func TestCut_AddReplaceRemove(t *testing.T) {
	d := newTestDiamond(t, Options{})
	ctx := context.Background()
	a := allowFacet{name: "A"}
	b := allowFacet{name: "B"}

	addrA := deployAndAdd(t, d, a)
	assert.Equal(t, addrA, d.FacetAddress(sel("allow(address)")))

	out, err := d.Call(ctx, Message{From: stranger, Selector: sel("allow(address)"), Input: tokenA})
	require.NoError(t, err)
	assert.Equal(t, "A", out)

	addrB, err := d.Deploy(b)
	require.NoError(t, err)
	require.NoError(t, d.Cut(ctx, owner, CutInput{Changes: []FacetCut{
		{Action: Replace, FacetAddress: addrB, Selectors: []storage.Selector{sel("allow(address)")}},
	}}))
	assert.Equal(t, addrB, d.FacetAddress(sel("allow(address)")))

	out, err = d.Call(ctx, Message{From: stranger, Selector: sel("allow(address)"), Input: tokenB})
	require.NoError(t, err)
	assert.Equal(t, "B", out)

	// A still serves its remaining selectors.
	assert.Contains(t, d.FacetAddresses(), addrA)
	assert.NotContains(t, d.FacetFunctionSelectors(addrA), sel("allow(address)"))

	require.NoError(t, d.Cut(ctx, owner, CutInput{Changes: []FacetCut{
		{Action: Remove, Selectors: []storage.Selector{sel("allow(address)")}},
	}}))
	assert.Equal(t, common.Address{}, d.FacetAddress(sel("allow(address)")))
	assert.NotContains(t, d.FacetAddresses(), addrB)

	_, err = d.Call(ctx, Message{From: stranger, Selector: sel("allow(address)"), Input: tokenB})
	assert.ErrorIs(t, err, ErrUnknownSelector)
}

func TestCut_Errors(t *testing.T) {
	d := newTestDiamond(t, Options{})
	ctx := context.Background()
	a := allowFacet{name: "A"}
	addrA := deployAndAdd(t, d, a)
	allowSel := []storage.Selector{sel("allow(address)")}
	unbound := []storage.Selector{sel("unbound()")}

	tests := []struct {
		name    string
		sender  common.Address
		in      CutInput
		wantErr error
	}{
		{"not owner", stranger, CutInput{Changes: []FacetCut{{Action: Add, FacetAddress: addrA, Selectors: unbound}}}, ErrNotContractOwner},
		{"add bound", owner, CutInput{Changes: []FacetCut{{Action: Add, FacetAddress: addrA, Selectors: allowSel}}}, ErrSelectorAlreadyBound},
		{"add no code", owner, CutInput{Changes: []FacetCut{{Action: Add, FacetAddress: tokenA, Selectors: unbound}}}, ErrFacetHasNoCode},
		{"replace unbound", owner, CutInput{Changes: []FacetCut{{Action: Replace, FacetAddress: addrA, Selectors: unbound}}}, ErrSelectorNotBound},
		{"replace same facet", owner, CutInput{Changes: []FacetCut{{Action: Replace, FacetAddress: addrA, Selectors: allowSel}}}, ErrReplaceSameFacet},
		{"remove non-zero", owner, CutInput{Changes: []FacetCut{{Action: Remove, FacetAddress: addrA, Selectors: allowSel}}}, ErrRemoveFacetNotZero},
		{"remove unbound", owner, CutInput{Changes: []FacetCut{{Action: Remove, Selectors: unbound}}}, ErrSelectorNotBound},
		{"remove cut", owner, CutInput{Changes: []FacetCut{{Action: Remove, Selectors: []storage.Selector{sel(CutSignature)}}}}, ErrImmutableSelector},
		{"empty selectors", owner, CutInput{Changes: []FacetCut{{Action: Add, FacetAddress: addrA}}}, ErrNoSelectors},
		{"bad action", owner, CutInput{Changes: []FacetCut{{Action: 9, FacetAddress: addrA, Selectors: unbound}}}, ErrInvalidAction},
		{"init without code", owner, CutInput{Changes: []FacetCut{{Action: Remove, Selectors: allowSel}}, Init: tokenA}, ErrInitTargetInvalid},
		{"init not initializer", owner, CutInput{Changes: []FacetCut{{Action: Remove, Selectors: allowSel}}, Init: addrA}, ErrInitTargetInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := d.Version()
			err := d.Cut(ctx, tt.sender, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, d.Version())
			assert.Equal(t, addrA, d.FacetAddress(sel("allow(address)")))
		})
	}
}

func TestCut_AtomicBatch(t *testing.T) {
	d := newTestDiamond(t, Options{})
	a := allowFacet{name: "A"}
	addrA, err := d.Deploy(a)
	require.NoError(t, err)

	// The second entry fails, so the first must not be applied either.
	err = d.Cut(context.Background(), owner, CutInput{Changes: []FacetCut{
		{Action: Add, FacetAddress: addrA, Selectors: []storage.Selector{sel("allow(address)")}},
		{Action: Add, FacetAddress: addrA, Selectors: []storage.Selector{sel(CutSignature)}},
	}})
	assert.ErrorIs(t, err, ErrSelectorAlreadyBound)
	assert.Equal(t, common.Address{}, d.FacetAddress(sel("allow(address)")))
}

func TestCut_InitRunsInSameFrame(t *testing.T) {
	d := newTestDiamond(t, Options{})
	ctx := context.Background()
	f := initFacet{allowFacet{name: "Init"}}
	addr, err := d.Deploy(f)
	require.NoError(t, err)

	require.NoError(t, d.Cut(ctx, owner, CutInput{
		Changes:   []FacetCut{{Action: Add, FacetAddress: addr, Selectors: Selectors(f)}},
		Init:      addr,
		InitInput: tokenA,
	}))
	assert.True(t, allowed(d, tokenA))

	err = d.Cut(ctx, owner, CutInput{
		Changes:   []FacetCut{{Action: Remove, Selectors: []storage.Selector{sel("now()")}}},
		Init:      addr,
		InitInput: common.Address{},
	})
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, addr, d.FacetAddress(sel("now()")))
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

func TestCall_FailureDiscardsState(t *testing.T) {
	d := newTestDiamond(t, Options{})
	deployAndAdd(t, d, allowFacet{name: "A"})
	before := d.Version()

	_, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("allowThenFail(address)"), Input: tokenA})
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, allowed(d, tokenA))
	assert.Equal(t, before, d.Version())
}

func TestCall_InvalidInput(t *testing.T) {
	d := newTestDiamond(t, Options{})
	deployAndAdd(t, d, allowFacet{name: "A"})
	_, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Pointer inputs are accepted too.
	_, err = d.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: &tokenA})
	assert.NoError(t, err)
}

func TestCall_TimestampFromClock(t *testing.T) {
	clock := NewManualClock(500)
	d := newTestDiamond(t, Options{Clock: clock})
	deployAndAdd(t, d, allowFacet{name: "A"})

	clock.Advance(25)
	out, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("now()")})
	require.NoError(t, err)
	assert.Equal(t, uint64(525), out)
}

func TestCall_ValueSpentAndRefunded(t *testing.T) {
	l := ledger.NewMemLedger()
	require.NoError(t, l.Credit(storage.NativeToken, stranger, big.NewInt(100)))
	d := newTestDiamond(t, Options{Assets: l, Payments: l})
	deployAndAdd(t, d, allowFacet{name: "A"})
	ctx := context.Background()

	_, err := d.Call(ctx, Message{From: stranger, Value: big.NewInt(30), Selector: sel("pay(uint256)"), Input: big.NewInt(20)})
	require.NoError(t, err)

	bal, _ := l.Balance(ctx, storage.NativeToken, stranger)
	assert.Equal(t, int64(80), bal.Int64())
	held, _ := l.Balance(ctx, storage.NativeToken, d.Address())
	assert.Equal(t, int64(20), held.Int64())

	// Overspending aborts and the attached value is returned.
	_, err = d.Call(ctx, Message{From: stranger, Value: big.NewInt(10), Selector: sel("pay(uint256)"), Input: big.NewInt(50)})
	assert.ErrorIs(t, err, ErrInsufficientValue)
	bal, _ = l.Balance(ctx, storage.NativeToken, stranger)
	assert.Equal(t, int64(80), bal.Int64())
}

func TestCall_ReentrantFailurePoisonsFrame(t *testing.T) {
	l := ledger.NewMemLedger()
	collection := common.HexToAddress("0xc0")
	receiver := common.HexToAddress("0x0c")
	require.NoError(t, l.Mint(collection, stranger, big.NewInt(1), big.NewInt(1)))

	d := newTestDiamond(t, Options{Assets: l, Payments: l})
	deployAndAdd(t, d, allowFacet{name: "A"})

	transfer := Method{Signature: "send()", Handler: func(env *Env, _ any) (any, error) {
		env.State.ListingTokens[tokenB] = true
		return nil, env.Assets().SafeTransferFrom(env.Context(), collection, env.Sender, env.Sender, receiver, big.NewInt(1), big.NewInt(1))
	}}
	f := methodFacet{name: "Sender", methods: []Method{transfer}}
	deployAndAdd(t, d, f)

	// The receiver re-enters the diamond, swallows the nested error and
	// accepts the transfer anyway.
	l.SetReceiveHook(receiver, func(ctx context.Context, operator, from common.Address, id, qty *big.Int) error {
		_, _ = d.Call(ctx, Message{From: receiver, Selector: sel("allowThenFail(address)"), Input: tokenA})
		return nil
	})

	_, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("send()")})
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, allowed(d, tokenA))
	assert.False(t, allowed(d, tokenB))
	bal, _ := l.BalanceOf(context.Background(), collection, receiver, big.NewInt(1))
	assert.Equal(t, int64(0), bal.Int64())
}

func TestCall_ReentrantSuccessJoinsFrame(t *testing.T) {
	l := ledger.NewMemLedger()
	collection := common.HexToAddress("0xc0")
	receiver := common.HexToAddress("0x0c")
	require.NoError(t, l.Mint(collection, stranger, big.NewInt(1), big.NewInt(1)))

	d := newTestDiamond(t, Options{Assets: l, Payments: l})
	deployAndAdd(t, d, allowFacet{name: "A"})
	deployAndAdd(t, d, methodFacet{name: "Sender", methods: []Method{{Signature: "send()", Handler: func(env *Env, _ any) (any, error) {
		return nil, env.Assets().SafeTransferFrom(env.Context(), collection, env.Sender, env.Sender, receiver, big.NewInt(1), big.NewInt(1))
	}}}})
	l.SetReceiveHook(receiver, func(ctx context.Context, operator, from common.Address, id, qty *big.Int) error {
		_, err := d.Call(ctx, Message{From: receiver, Selector: sel("allow(address)"), Input: tokenA})
		return err
	})

	before := d.Version()
	_, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("send()")})
	require.NoError(t, err)
	assert.True(t, allowed(d, tokenA))
	assert.Equal(t, before+1, d.Version())
}

type methodFacet struct {
	name    string
	methods []Method
}

func (f methodFacet) Name() string      { return f.name }
func (f methodFacet) Methods() []Method { return f.methods }

func TestDeploy_DuplicateSelector(t *testing.T) {
	d := newTestDiamond(t, Options{})
	_, err := d.Deploy(methodFacet{name: "Dup", methods: []Method{
		{Signature: "x()", Handler: func(*Env, any) (any, error) { return nil, nil }},
		{Signature: "x()", Handler: func(*Env, any) (any, error) { return nil, nil }},
	}})
	assert.ErrorIs(t, err, ErrDuplicateSelector)
}

// ---------------------------------------------------------------------------
// Persistence and events
// ---------------------------------------------------------------------------

func TestDiamond_ReopenBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.db")
	store, err := storage.OpenBoltStore(path)
	require.NoError(t, err)

	d := newTestDiamond(t, Options{Store: store})
	addrA := deployAndAdd(t, d, allowFacet{name: "A"})
	_, err = d.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: tokenA})
	require.NoError(t, err)
	version := d.Version()
	require.NoError(t, d.Close())

	store, err = storage.OpenBoltStore(path)
	require.NoError(t, err)
	d2 := newTestDiamond(t, Options{Store: store, Owner: stranger})
	defer d2.Close()

	assert.Equal(t, owner, d2.Owner())
	assert.Equal(t, version, d2.Version())
	assert.True(t, allowed(d2, tokenA))
	assert.Equal(t, addrA, d2.FacetAddress(sel("allow(address)")))

	// Bound but not redeployed: unresolvable until the code is back.
	_, err = d2.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: tokenB})
	assert.ErrorIs(t, err, ErrUnknownSelector)
	_, err = d2.Deploy(allowFacet{name: "A"})
	require.NoError(t, err)
	_, err = d2.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: tokenB})
	assert.NoError(t, err)

	evts, err := store.Events(0)
	require.NoError(t, err)
	require.NotEmpty(t, evts)
	assert.Equal(t, events.DiamondCut, evts[0].Name)
	assert.Equal(t, uint64(1), evts[0].StateVersion)
}

func TestDiamond_PublishesCommittedEvents(t *testing.T) {
	bus := events.NewBus()
	got := make(chan storage.Event, 4)
	bus.AddListener(events.ListingTokenAdded, func(evt storage.Event) { got <- evt })

	d := newTestDiamond(t, Options{Bus: bus})
	deployAndAdd(t, d, allowFacet{name: "A"})

	_, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("allowThenFail(address)"), Input: tokenB})
	require.Error(t, err)
	_, err = d.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: tokenA})
	require.NoError(t, err)
	bus.Close()

	require.Len(t, got, 1)
	evt := <-got
	assert.Equal(t, tokenA.Hex(), evt.Fields["collection"])
	assert.Equal(t, d.Version(), evt.StateVersion)
	assert.NotEmpty(t, evt.ID)
}

func TestCall_ConcurrentCallsPublishInCommitOrder(t *testing.T) {
	bus := events.NewBus()
	var (
		mu       sync.Mutex
		versions []uint64
	)
	bus.AddListener(events.ListingTokenAdded, func(evt storage.Event) {
		mu.Lock()
		versions = append(versions, evt.StateVersion)
		mu.Unlock()
	})

	d := newTestDiamond(t, Options{Bus: bus})
	deployAndAdd(t, d, allowFacet{name: "A"})
	base := d.Version()

	const workers, calls = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				addr := common.BigToAddress(big.NewInt(int64(w*calls + i + 1)))
				_, err := d.Call(context.Background(), Message{From: stranger, Selector: sel("allow(address)"), Input: addr})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()
	bus.Close()

	assert.Equal(t, base+workers*calls, d.Version())
	require.Len(t, versions, workers*calls)
	for i := 1; i < len(versions); i++ {
		require.Less(t, versions[i-1], versions[i], "event %d published out of commit order", i)
	}
}
