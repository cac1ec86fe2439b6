package diamond

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/metrics"
	"github.com/bitfsorg/libmarket-go/storage"
)

// Message is an incoming call.
type Message struct {
	From     common.Address
	Value    *big.Int // native value attached to the call, may be nil
	Selector storage.Selector
	Input    any
}

// frame is one atomic operation: a working copy of the state, the ledger
// snapshots to revert to, and the events to publish on commit.
type frame struct {
	d         *Diamond
	state     *storage.State
	version   uint64
	timestamp uint64
	snapshots []int
	events    []storage.Event
	poisoned  error
	done      bool
}

func (f *frame) env(ctx context.Context, sender common.Address, value *big.Int) *Env {
	return &Env{
		ctx:       ctx,
		d:         f.d,
		frame:     f,
		Sender:    sender,
		Timestamp: f.timestamp,
		State:     f.state,
		value:     value,
		Log:       f.d.log,
	}
}

type frameKey struct{}

func frameFrom(ctx context.Context, d *Diamond) *frame {
	f, ok := ctx.Value(frameKey{}).(*frame)
	if !ok || f.d != d || f.done {
		return nil
	}
	return f
}

// Call routes msg to the facet bound to its selector and runs it as one
// atomic operation. Top-level calls are serialized. A call made with the
// context of a running operation, e.g. from a ledger receive hook, joins
// that operation; if it fails the whole operation aborts.
func (d *Diamond) Call(ctx context.Context, msg Message) (any, error) {
	if f := frameFrom(ctx, d); f != nil {
		return d.nested(ctx, f, msg)
	}

	start := time.Now()
	out, status, err := d.call(ctx, msg)
	d.metrics.ObserveCall(msg.Selector.String(), status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// call runs msg in a fresh frame. Committed events are handed to the bus
// before mu is released so listeners see them in commit order.
func (d *Diamond) call(ctx context.Context, msg Message) (any, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.begin()
	if err != nil {
		return nil, metrics.StatusError, err
	}
	ctx = context.WithValue(ctx, frameKey{}, f)

	out, readOnly, err := d.execute(ctx, f, msg)
	if err == nil && f.poisoned != nil {
		err = f.poisoned
	}
	if err != nil {
		d.abort(f)
		d.log.Debug("call aborted",
			zap.String("selector", msg.Selector.String()),
			zap.String("from", msg.From.Hex()),
			zap.Error(err))
		return nil, metrics.StatusError, err
	}
	if readOnly {
		d.abort(f)
		return out, metrics.StatusReadOnly, nil
	}

	if err := d.commit(f); err != nil {
		d.abort(f)
		d.metrics.ObserveCommitFailure()
		d.log.Error("commit failed", zap.Uint64("version", f.version), zap.Error(err))
		return nil, metrics.StatusError, err
	}
	if d.bus != nil && len(f.events) > 0 {
		d.bus.Emit(f.events...)
	}
	return out, metrics.StatusOK, nil
}

func (d *Diamond) nested(ctx context.Context, f *frame, msg Message) (any, error) {
	if f.poisoned != nil {
		return nil, f.poisoned
	}
	out, _, err := d.execute(ctx, f, msg)
	if err != nil {
		f.poisoned = err
		d.log.Debug("nested call failed",
			zap.String("selector", msg.Selector.String()),
			zap.Error(err))
		return nil, err
	}
	return out, nil
}

// begin opens a frame over a copy of the committed state. Caller holds mu.
func (d *Diamond) begin() (*frame, error) {
	st, err := d.state.Clone()
	if err != nil {
		return nil, err
	}
	f := &frame{
		d:         d,
		state:     st,
		version:   d.state.Version + 1,
		timestamp: d.clock.Now(),
	}
	for _, j := range d.journals {
		f.snapshots = append(f.snapshots, j.Snapshot())
	}
	return f, nil
}

// abort discards the frame and reverts ledger writes. Caller holds mu.
func (d *Diamond) abort(f *frame) {
	f.done = true
	for i := len(d.journals) - 1; i >= 0; i-- {
		d.journals[i].RevertToSnapshot(f.snapshots[i])
	}
}

// commit persists the frame's state and events and makes the state current.
// Caller holds mu, except during bootstrap.
func (d *Diamond) commit(f *frame) error {
	f.state.Version = f.version
	if err := d.store.Commit(f.state, f.events); err != nil {
		return err
	}
	f.done = true
	d.state = f.state
	d.log.Debug("frame committed", zap.Uint64("version", f.version), zap.Int("events", len(f.events)))
	return nil
}

// execute resolves and runs one call inside f.
func (d *Diamond) execute(ctx context.Context, f *frame, msg Message) (any, bool, error) {
	addr, ok := f.state.Routing.Selectors[msg.Selector]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownSelector, msg.Selector)
	}
	c, ok := d.arena[addr]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s bound to %s which has no code", ErrUnknownSelector, msg.Selector, addr.Hex())
	}
	m, ok := c.methods[msg.Selector]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s not implemented by %s", ErrUnknownSelector, msg.Selector, c.facet.Name())
	}

	value := new(big.Int)
	if msg.Value != nil {
		value.Set(msg.Value)
	}
	if value.Sign() < 0 {
		return nil, false, fmt.Errorf("%w: negative value", ErrInsufficientValue)
	}
	if value.Sign() > 0 {
		if d.payments == nil {
			return nil, false, ErrNoPaymentLedger
		}
		if err := d.payments.Transfer(ctx, storage.NativeToken, msg.From, d.self, value); err != nil {
			return nil, false, fmt.Errorf("diamond: collect call value: %w", err)
		}
	}

	d.log.Debug("dispatch",
		zap.String("facet", c.facet.Name()),
		zap.String("method", m.Signature),
		zap.String("from", msg.From.Hex()))

	env := f.env(ctx, msg.From, value)
	out, err := m.Handler(env, msg.Input)
	if err != nil {
		return nil, false, err
	}

	if env.value.Sign() > 0 {
		if err := d.payments.Transfer(ctx, storage.NativeToken, d.self, msg.From, env.value); err != nil {
			return nil, false, fmt.Errorf("diamond: refund unspent value: %w", err)
		}
	}
	return out, m.ReadOnly, nil
}
