package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

// newRequest validates the shared request fields and escrows commitment
// from the caller.
func newRequest(env *diamond.Env, kind storage.RequestKind, collection common.Address, itemID *big.Int, quantity uint64, price *big.Int, token common.Address, commitment *big.Int) (*storage.Request, error) {
	if err := requireAllowed(env, collection); err != nil {
		return nil, err
	}
	if err := requireItem(itemID, quantity); err != nil {
		return nil, err
	}
	if !positive(price) {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	if err := collect(env, token, commitment); err != nil {
		return nil, err
	}
	return &storage.Request{
		Kind:         kind,
		Collection:   collection,
		ItemID:       copyInt(itemID),
		Requester:    env.Sender,
		Quantity:     quantity,
		Remaining:    quantity,
		Price:        copyInt(price),
		PaymentToken: token,
		Escrow:       copyInt(commitment),
		CreatedAt:    env.Timestamp,
	}, nil
}

func insertRequest(env *diamond.Env, r *storage.Request) uint64 {
	idx := env.State.InsertRequest(r)
	env.Emit(events.RequestCreated, requestFields(r))
	return idx
}

func expiry(now, duration uint64) uint64 {
	if duration == 0 {
		return 0
	}
	return now + duration
}

func createStandardRequest(env *diamond.Env, a CreateStandardRequestArgs) (uint64, error) {
	r, err := newRequest(env, storage.RequestStandard, a.Collection, a.ItemID, a.Quantity, a.Price, a.PaymentToken, a.Price)
	if err != nil {
		return 0, err
	}
	return insertRequest(env, r), nil
}

func createTimerRequest(env *diamond.Env, a CreateTimerRequestArgs) (uint64, error) {
	if a.Duration == 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	r, err := newRequest(env, storage.RequestTimer, a.Collection, a.ItemID, a.Quantity, a.Price, a.PaymentToken, a.Price)
	if err != nil {
		return 0, err
	}
	r.Deadline = env.Timestamp + a.Duration
	return insertRequest(env, r), nil
}

// dutchRequestTerms validates an ascending schedule from start to max.
func dutchRequestTerms(start, max *big.Int, duration, now uint64) (*storage.DutchTerms, error) {
	if duration == 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	if start == nil || start.Sign() < 0 || !positive(max) {
		return nil, fmt.Errorf("%w: prices", ErrInvalidParameters)
	}
	if start.Cmp(max) > 0 {
		return nil, fmt.Errorf("%w: start %s above max %s", ErrInvalidParameters, start, max)
	}
	return &storage.DutchTerms{
		StartPrice: copyInt(start),
		EndPrice:   copyInt(max),
		DecayRate:  deriveRate(start, max, duration),
		Duration:   duration,
		StartedAt:  now,
	}, nil
}

func createDutchRequest(env *diamond.Env, a CreateDutchRequestArgs) (uint64, error) {
	terms, err := dutchRequestTerms(a.StartPrice, a.MaxPrice, a.Duration, env.Timestamp)
	if err != nil {
		return 0, err
	}
	r, err := newRequest(env, storage.RequestDutch, a.Collection, a.ItemID, a.Quantity, a.MaxPrice, a.PaymentToken, a.MaxPrice)
	if err != nil {
		return 0, err
	}
	r.Dutch = terms
	return insertRequest(env, r), nil
}

func createAmountRequest(env *diamond.Env, a CreateAmountRequestArgs) (uint64, error) {
	if !positive(a.PricePerUnit) {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	r, err := newRequest(env, storage.RequestAmount, a.Collection, a.ItemID, a.Quantity, a.PricePerUnit, a.PaymentToken, mulUint(a.PricePerUnit, a.Quantity))
	if err != nil {
		return 0, err
	}
	r.Deadline = expiry(env.Timestamp, a.Duration)
	return insertRequest(env, r), nil
}

func createOffer(env *diamond.Env, a CreateOfferArgs) (uint64, error) {
	if a.Counterparty == (common.Address{}) {
		return 0, fmt.Errorf("%w: counterparty", ErrInvalidParameters)
	}
	if err := requireAllowed(env, a.Collection); err != nil {
		return 0, err
	}
	if err := requireItem(a.ItemID, a.Quantity); err != nil {
		return 0, err
	}
	if !positive(a.Price) {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	if err := collect(env, a.PaymentToken, a.Price); err != nil {
		return 0, err
	}
	o := &storage.Offer{
		Requester:    env.Sender,
		Counterparty: a.Counterparty,
		Collection:   a.Collection,
		ItemID:       copyInt(a.ItemID),
		Quantity:     a.Quantity,
		Price:        copyInt(a.Price),
		PaymentToken: a.PaymentToken,
		Escrow:       copyInt(a.Price),
		CreatedAt:    env.Timestamp,
		Deadline:     expiry(env.Timestamp, a.Duration),
	}
	idx := env.State.InsertOffer(o)
	env.Emit(events.OfferCreated, offerFields(o))
	return idx, nil
}

// openRequest loads a request that must still be open.
func openRequest(env *diamond.Env, kind storage.RequestKind, s Slot) (*storage.Request, error) {
	r, err := env.State.Request(kind, s.Collection, s.ItemID, s.Index)
	if err != nil {
		return nil, err
	}
	if r.Closed {
		return nil, fmt.Errorf("%w: %s request #%d", ErrRequestClosed, kind, s.Index)
	}
	return r, nil
}

// openOffer loads an open offer made by requester to the caller.
func openOffer(env *diamond.Env, requester, counterparty common.Address, index uint64) (*storage.Offer, error) {
	o, err := env.State.Offer(requester, counterparty, index)
	if err != nil {
		return nil, err
	}
	if o.Closed {
		return nil, fmt.Errorf("%w: offer #%d", ErrRequestClosed, index)
	}
	return o, nil
}

func expired(deadline, now uint64) bool {
	return deadline != 0 && now >= deadline
}
