package diamond

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/ledger"
	"github.com/bitfsorg/libmarket-go/metrics"
	"github.com/bitfsorg/libmarket-go/storage"
)

// Options configures a Diamond.
type Options struct {
	// Address is the diamond's own account in the ledgers. Defaults to
	// FacetAddress("Diamond").
	Address  common.Address
	Owner    common.Address // owner of a freshly created state
	Store    storage.Store
	Assets   ledger.AssetLedger
	Payments ledger.PaymentLedger
	Clock    Clock
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Bus      *events.Bus
}

// Diamond is the single routable entry point. It owns the committed shared
// state, the routing table inside it, and the arena of deployed facet code.
type Diamond struct {
	mu sync.Mutex

	self     common.Address
	store    storage.Store
	assets   ledger.AssetLedger
	payments ledger.PaymentLedger
	journals []ledger.Journal
	clock    Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
	bus      *events.Bus

	state *storage.State
	arena map[common.Address]*code
}

// New opens a diamond over opts.Store. An empty store is initialized with
// the cut and loupe facets bound and opts.Owner as contract owner; an
// existing one is loaded as is.
func New(opts Options) (*Diamond, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	d := &Diamond{
		self:     opts.Address,
		store:    opts.Store,
		assets:   opts.Assets,
		payments: opts.Payments,
		clock:    opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		bus:      opts.Bus,
		arena:    make(map[common.Address]*code),
	}
	if d.self == (common.Address{}) {
		d.self = FacetAddress("Diamond")
	}
	if d.clock == nil {
		d.clock = SystemClock{}
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	d.journals = collectJournals(opts.Assets, opts.Payments)

	for _, f := range []Facet{cutFacet{}, loupeFacet{}} {
		if _, err := d.deploy(f); err != nil {
			return nil, err
		}
	}

	state, err := d.store.Load()
	switch {
	case err == nil:
		d.state = state
		d.log.Info("diamond loaded", zap.Uint64("version", state.Version), zap.String("owner", state.Owner.Hex()))
		return d, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("diamond: load state: %w", err)
	}

	if err := d.bootstrap(opts.Owner); err != nil {
		return nil, err
	}
	return d, nil
}

// bootstrap binds the cut and loupe selectors directly, the way a
// constructor would, and commits the first version.
func (d *Diamond) bootstrap(owner common.Address) error {
	state := storage.NewState(owner)
	f := &frame{d: d, state: state, version: 1, timestamp: d.clock.Now()}
	env := f.env(context.Background(), owner, new(big.Int))

	changes := []FacetCut{
		{Action: Add, FacetAddress: FacetAddress(cutFacetName), Selectors: Selectors(cutFacet{})},
		{Action: Add, FacetAddress: FacetAddress(loupeFacetName), Selectors: Selectors(loupeFacet{})},
	}
	if err := d.applyCut(env, changes); err != nil {
		return err
	}
	for _, sel := range Selectors(cutFacet{}) {
		state.Routing.Immutable[sel] = true
	}
	emitCut(env, changes, common.Address{})

	if err := d.commit(f); err != nil {
		return err
	}
	d.log.Info("diamond created", zap.String("owner", owner.Hex()), zap.String("address", d.self.Hex()))
	return nil
}

func collectJournals(ledgers ...any) []ledger.Journal {
	var out []ledger.Journal
	for _, l := range ledgers {
		j, ok := l.(ledger.Journal)
		if !ok {
			continue
		}
		dup := false
		for _, have := range out {
			if have == j {
				dup = true
			}
		}
		if !dup {
			out = append(out, j)
		}
	}
	return out
}

// Address returns the diamond's own address.
func (d *Diamond) Address() common.Address { return d.self }

// Deploy makes a facet's code available at its deterministic address. It
// does not bind any selector; use a cut for that.
func (d *Diamond) Deploy(f Facet) (common.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deploy(f)
}

func (d *Diamond) deploy(f Facet) (common.Address, error) {
	c, err := compile(f)
	if err != nil {
		return common.Address{}, err
	}
	d.arena[c.address] = c
	d.log.Debug("facet deployed", zap.String("facet", f.Name()), zap.String("address", c.address.Hex()))
	return c.address, nil
}

// Owner returns the committed contract owner.
func (d *Diamond) Owner() common.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Owner
}

// Version returns the committed state version.
func (d *Diamond) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Version
}

// View runs fn against the committed state. fn must not modify it.
func (d *Diamond) View(fn func(s *storage.State) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.state)
}

// Close closes the underlying store.
func (d *Diamond) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Close()
}
