package diamond

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/ledger"
	"github.com/bitfsorg/libmarket-go/metrics"
	"github.com/bitfsorg/libmarket-go/storage"
)

// Env is the execution context of one routed call. Facets read and write
// State, which is the working copy of the running frame.
type Env struct {
	ctx   context.Context
	d     *Diamond
	frame *frame

	Sender    common.Address
	Timestamp uint64
	State     *storage.State

	// value is the part of the attached native value not yet spent.
	value *big.Int
	Log   *zap.Logger
}

// Context returns the call context. It carries the running frame, so calls
// made with it from ledger hooks join this operation.
func (e *Env) Context() context.Context { return e.ctx }

// Self returns the diamond's own address.
func (e *Env) Self() common.Address { return e.d.self }

// Assets returns the asset ledger.
func (e *Env) Assets() ledger.AssetLedger { return e.d.assets }

// Payments returns the payment ledger.
func (e *Env) Payments() ledger.PaymentLedger { return e.d.payments }

// Metrics returns the diamond's collectors, possibly nil.
func (e *Env) Metrics() *metrics.Metrics { return e.d.metrics }

// Value returns the unspent native value attached to the call.
func (e *Env) Value() *big.Int { return new(big.Int).Set(e.value) }

// SpendValue consumes amount of the attached native value. The diamond
// already holds it; unspent value is refunded to the sender when the call
// returns.
func (e *Env) SpendValue(amount *big.Int) error {
	if amount.Sign() < 0 || e.value.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientValue, e.value, amount)
	}
	e.value.Sub(e.value, amount)
	return nil
}

// Emit records an event. It is persisted and published only if the frame
// commits.
func (e *Env) Emit(name string, fields map[string]string) {
	e.frame.events = append(e.frame.events, storage.Event{
		ID:           uuid.NewString(),
		Name:         name,
		StateVersion: e.frame.version,
		Timestamp:    e.Timestamp,
		Fields:       fields,
	})
	e.Log.Debug("event emitted", zap.String("event", name))
}

// Fields is a helper for building event payloads.
type Fields map[string]string

// Addr sets an address field.
func (f Fields) Addr(key string, a common.Address) Fields {
	f[key] = a.Hex()
	return f
}

// Int sets a big integer field.
func (f Fields) Int(key string, v *big.Int) Fields {
	if v == nil {
		f[key] = "0"
	} else {
		f[key] = v.String()
	}
	return f
}

// Uint sets an unsigned integer field.
func (f Fields) Uint(key string, v uint64) Fields {
	f[key] = strconv.FormatUint(v, 10)
	return f
}

// Str sets a string field.
func (f Fields) Str(key, v string) Fields {
	f[key] = v
	return f
}
