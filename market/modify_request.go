package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/storage"
)

func ownedRequest(env *diamond.Env, kind storage.RequestKind, s Slot) (*storage.Request, error) {
	r, err := openRequest(env, kind, s)
	if err != nil {
		return nil, err
	}
	if r.Requester != env.Sender {
		return nil, fmt.Errorf("%w: %s request #%d", ErrNotOwnerOfSlot, kind, s.Index)
	}
	return r, nil
}

func requireSameToken(held, requested common.Address) error {
	if held != requested {
		return fmt.Errorf("%w: escrow is held in %s", ErrInvalidParameters, held.Hex())
	}
	return nil
}

// adjustEscrow brings the escrow from held to exactly commitment: a shortfall
// is covered by the call's attached value or the caller's allowance, a
// surplus is refunded to the caller.
func adjustEscrow(env *diamond.Env, token common.Address, held, commitment *big.Int) (*big.Int, error) {
	switch held.Cmp(commitment) {
	case -1:
		delta := new(big.Int).Sub(commitment, held)
		if token == storage.NativeToken && env.Value().Cmp(delta) < 0 {
			return nil, fmt.Errorf("%w: escrow %s plus value %s below %s", ErrInsufficientEscrowAdjustment, held, env.Value(), commitment)
		}
		if err := collect(env, token, delta); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInsufficientEscrowAdjustment, err)
		}
	case 1:
		if err := pay(env, token, env.Sender, new(big.Int).Sub(held, commitment)); err != nil {
			return nil, err
		}
	}
	return new(big.Int).Set(commitment), nil
}

// retermRequest applies new terms; quantity is the new unfilled quantity.
func retermRequest(env *diamond.Env, r *storage.Request, quantity uint64, price *big.Int, token common.Address, commitment *big.Int) error {
	if quantity == 0 {
		return ErrInvalidQuantity
	}
	if !positive(price) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	if err := requireSameToken(r.PaymentToken, token); err != nil {
		return err
	}
	escrow, err := adjustEscrow(env, token, r.Escrow, commitment)
	if err != nil {
		return err
	}
	r.Quantity = r.Quantity - r.Remaining + quantity
	r.Remaining = quantity
	r.Price = copyInt(price)
	r.Escrow = escrow
	r.Version = env.State.NextSeq()
	env.Emit(events.RequestModified, requestFields(r))
	return nil
}

func modifyStandardRequest(env *diamond.Env, a ModifyStandardRequestArgs) error {
	r, err := ownedRequest(env, storage.RequestStandard, a.Slot)
	if err != nil {
		return err
	}
	return retermRequest(env, r, a.Quantity, a.Price, a.PaymentToken, a.Price)
}

func modifyTimerRequest(env *diamond.Env, a ModifyTimerRequestArgs) error {
	r, err := ownedRequest(env, storage.RequestTimer, a.Slot)
	if err != nil {
		return err
	}
	if a.Duration == 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidParameters)
	}
	r.Deadline = env.Timestamp + a.Duration
	return retermRequest(env, r, a.Quantity, a.Price, a.PaymentToken, a.Price)
}

func modifyDutchRequest(env *diamond.Env, a ModifyDutchRequestArgs) error {
	r, err := ownedRequest(env, storage.RequestDutch, a.Slot)
	if err != nil {
		return err
	}
	terms, err := dutchRequestTerms(a.StartPrice, a.MaxPrice, a.Duration, env.Timestamp)
	if err != nil {
		return err
	}
	r.Dutch = terms
	return retermRequest(env, r, a.Quantity, a.MaxPrice, a.PaymentToken, a.MaxPrice)
}

// modifyAmountRequest re-terms the unfilled part of an amount request;
// Quantity becomes the new remaining quantity.
func modifyAmountRequest(env *diamond.Env, a ModifyAmountRequestArgs) error {
	r, err := ownedRequest(env, storage.RequestAmount, a.Slot)
	if err != nil {
		return err
	}
	if !positive(a.PricePerUnit) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	r.Deadline = expiry(env.Timestamp, a.Duration)
	return retermRequest(env, r, a.Quantity, a.PricePerUnit, a.PaymentToken, mulUint(a.PricePerUnit, a.Quantity))
}

func modifyOffer(env *diamond.Env, a ModifyOfferArgs) error {
	o, err := env.State.Offer(env.Sender, a.Counterparty, a.Index)
	if err != nil {
		return err
	}
	if o.Closed {
		return fmt.Errorf("%w: offer #%d", ErrRequestClosed, a.Index)
	}
	if a.Quantity == 0 {
		return ErrInvalidQuantity
	}
	if !positive(a.Price) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}
	if err := requireSameToken(o.PaymentToken, a.PaymentToken); err != nil {
		return err
	}
	escrow, err := adjustEscrow(env, a.PaymentToken, o.Escrow, a.Price)
	if err != nil {
		return err
	}
	o.Quantity = a.Quantity
	o.Price = copyInt(a.Price)
	o.Escrow = escrow
	o.Deadline = expiry(env.Timestamp, a.Duration)
	o.Version = env.State.NextSeq()
	env.Emit(events.OfferModified, offerFields(o))
	return nil
}
