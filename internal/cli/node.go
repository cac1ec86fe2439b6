package cli

import (
	"context"
	"errors"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/config"
	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/market"
	"github.com/bitfsorg/libmarket-go/metrics"
	"github.com/bitfsorg/libmarket-go/storage"
)

// node is an opened marketplace: the bolt store, the diamond over it with
// the marketplace facets deployed, and its collectors.
type node struct {
	store    *storage.BoltStore
	d        *diamond.Diamond
	client   *market.Client
	metrics  *metrics.Metrics
	bus      *events.Bus
	owner    common.Address
	network  string
	settings market.Settings
}

var errNoOwner = errors.New("no owner configured: set owner in config.yaml or MARKET_OWNER")

// errNotInitialized is returned when a command needs an existing store.
var errNotInitialized = errors.New("marketplace not initialized: run marketctl init --owner <address>")

// openNode opens the store in the configured data directory. Unless create
// is set the store must already exist. The bolt file is locked until Close.
func openNode(opts *RootOptions, create bool) (*node, error) {
	path := config.StorePath(opts.cfg.DataDir)
	if _, err := os.Stat(path); !create && errors.Is(err, os.ErrNotExist) {
		return nil, errNotInitialized
	}

	owner, err := opts.cfg.OwnerAddress()
	if err != nil {
		return nil, err
	}
	rate, err := opts.cfg.FeeRate()
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenBoltStore(path)
	if err != nil {
		return nil, err
	}
	n := &node{
		store:    store,
		metrics:  metrics.New("market"),
		bus:      events.NewBus(),
		owner:    owner,
		network:  opts.cfg.Network,
		settings: market.Settings{DefaultFeeRate: rate},
	}

	n.d, err = diamond.New(diamond.Options{
		Owner:   owner,
		Store:   store,
		Logger:  opts.logger,
		Metrics: n.metrics,
		Bus:     n.bus,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := market.Deploy(n.d, n.settings); err != nil {
		_ = n.Close()
		return nil, err
	}
	n.client = market.NewClient(n.d)
	return n, nil
}

// withNode opens a node, runs fn and closes the node.
func withNode(opts *RootOptions, create bool, fn func(n *node) error) error {
	n, err := openNode(opts, create)
	if err != nil {
		return err
	}
	defer n.Close()
	return fn(n)
}

// asOwner returns call options for the configured owner.
func (n *node) asOwner() (market.CallOpts, error) {
	if n.owner == (common.Address{}) {
		return market.CallOpts{}, errNoOwner
	}
	return market.CallOpts{From: n.owner}, nil
}

// install routes the marketplace facets and allow-lists collections.
func (n *node) install(ctx context.Context, collections []common.Address) error {
	if n.owner == (common.Address{}) {
		return errNoOwner
	}
	return market.Install(ctx, n.d, n.owner, n.settings, collections...)
}

// Close stops the event bus and closes the store.
func (n *node) Close() error {
	n.bus.Close()
	return n.d.Close()
}
