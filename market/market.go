// Package market implements the marketplace engines as diamond facets:
// listings, sealed-bid auctions, requests, offers and fee settlement.
package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/fees"
	"github.com/bitfsorg/libmarket-go/storage"
)

func positive(v *big.Int) bool { return v != nil && v.Sign() > 0 }

func mulUint(v *big.Int, n uint64) *big.Int {
	return new(big.Int).Mul(v, new(big.Int).SetUint64(n))
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// requireAllowed checks that new entries may be opened on collection: it
// must be allow-listed and carry a fee configuration settlement can use.
func requireAllowed(env *diamond.Env, collection common.Address) error {
	if !env.State.ListingTokens[collection] {
		return fmt.Errorf("%w: %s", ErrCollectionNotAllowed, collection.Hex())
	}
	cfg := env.State.Fees[collection]
	if cfg == nil {
		return fmt.Errorf("%w: none set for %s", ErrFeeConfigurationInvalid, collection.Hex())
	}
	if err := fees.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrFeeConfigurationInvalid, err)
	}
	return nil
}

func requireItem(itemID *big.Int, quantity uint64) error {
	if itemID == nil || itemID.Sign() < 0 {
		return fmt.Errorf("%w: item id", ErrInvalidParameters)
	}
	if quantity == 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func checkVersion(expected, actual uint64) error {
	if expected != 0 && expected != actual {
		return fmt.Errorf("%w: expected version %d, have %d", ErrStaleState, expected, actual)
	}
	return nil
}

// requireSellable checks that seller can still commit quantity of an item:
// the ledger balance minus what the seller's other open listings already
// commit must cover it, and the marketplace must be approved.
func requireSellable(env *diamond.Env, seller, collection common.Address, itemID *big.Int, quantity, exclude uint64) error {
	committed := env.State.CommittedQuantity(seller, collection, itemID, exclude, env.Timestamp)
	return requireHolding(env, seller, collection, itemID, quantity+committed)
}

// requireHolding checks holder's ledger balance and marketplace approval.
func requireHolding(env *diamond.Env, holder, collection common.Address, itemID *big.Int, quantity uint64) error {
	assets := env.Assets()
	if assets == nil {
		return ErrNoAssetLedger
	}
	bal, err := assets.BalanceOf(env.Context(), collection, holder, itemID)
	if err != nil {
		return fmt.Errorf("market: balance of %s: %w", holder.Hex(), err)
	}
	if bal.Cmp(new(big.Int).SetUint64(quantity)) < 0 {
		return fmt.Errorf("%w: %s holds %s of item %s, needs %d", ErrInsufficientBalance, holder.Hex(), bal, itemID, quantity)
	}
	approved, err := assets.IsApprovedForAll(env.Context(), collection, holder, env.Self())
	if err != nil {
		return fmt.Errorf("market: approval of %s: %w", holder.Hex(), err)
	}
	if !approved {
		return fmt.Errorf("%w: %s", ErrNotApproved, holder.Hex())
	}
	return nil
}

// canDeliver reports whether holder can still hand over quantity.
func canDeliver(env *diamond.Env, holder, collection common.Address, itemID *big.Int, quantity uint64) bool {
	return requireHolding(env, holder, collection, itemID, quantity) == nil
}

// transferItem moves items on behalf of the marketplace.
func transferItem(env *diamond.Env, collection, from, to common.Address, itemID *big.Int, quantity uint64) error {
	assets := env.Assets()
	if assets == nil {
		return ErrNoAssetLedger
	}
	err := assets.SafeTransferFrom(env.Context(), collection, env.Self(), from, to, itemID, new(big.Int).SetUint64(quantity))
	if err != nil {
		return fmt.Errorf("market: transfer item %s: %w", itemID, err)
	}
	return nil
}

// collect moves amount of token from the caller into the marketplace's
// account. Native currency comes out of the value attached to the call;
// tokens are pulled with the caller's allowance.
func collect(env *diamond.Env, token common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if token == storage.NativeToken {
		if err := env.SpendValue(amount); err != nil {
			return fmt.Errorf("%w: %w", ErrInsufficientPayment, err)
		}
		return nil
	}
	payments := env.Payments()
	if payments == nil {
		return ErrNoPaymentLedger
	}
	if err := payments.TransferFrom(env.Context(), token, env.Self(), env.Sender, env.Self(), amount); err != nil {
		return fmt.Errorf("%w: %w", ErrInsufficientPayment, err)
	}
	return nil
}

// pay moves amount of token out of the marketplace's account.
func pay(env *diamond.Env, token, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	payments := env.Payments()
	if payments == nil {
		return ErrNoPaymentLedger
	}
	if err := payments.Transfer(env.Context(), token, env.Self(), to, amount); err != nil {
		return fmt.Errorf("market: pay %s %s to %s: %w", amount, token.Hex(), to.Hex(), err)
	}
	return nil
}

// ExtendDeadline applies the anti-snipe rule: a bid landing within window
// of the deadline pushes it back by window.
func ExtendDeadline(deadline, now, window uint64) uint64 {
	if now+window >= deadline {
		return deadline + window
	}
	return deadline
}

// deriveRate returns ceil(|to-from| / duration).
func deriveRate(from, to *big.Int, duration uint64) *big.Int {
	diff := new(big.Int).Sub(to, from)
	diff.Abs(diff)
	d := new(big.Int).SetUint64(duration)
	q, r := new(big.Int).QuoRem(diff, d, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func elapsed(t *storage.DutchTerms, now uint64) *big.Int {
	if now <= t.StartedAt {
		return new(big.Int)
	}
	return new(big.Int).SetUint64(now - t.StartedAt)
}

// DutchListingPrice is max(floor, start - rate*elapsed). It never increases
// with time and never drops below the floor.
func DutchListingPrice(t *storage.DutchTerms, now uint64) *big.Int {
	drop := new(big.Int).Mul(t.DecayRate, elapsed(t, now))
	p := new(big.Int).Sub(t.StartPrice, drop)
	if p.Cmp(t.EndPrice) < 0 {
		return new(big.Int).Set(t.EndPrice)
	}
	return p
}

// DutchRequestPrice is min(max, start + rate*elapsed): the buyer's offer
// rises toward the escrowed maximum.
func DutchRequestPrice(t *storage.DutchTerms, now uint64) *big.Int {
	rise := new(big.Int).Mul(t.DecayRate, elapsed(t, now))
	p := new(big.Int).Add(t.StartPrice, rise)
	if p.Cmp(t.EndPrice) > 0 {
		return new(big.Int).Set(t.EndPrice)
	}
	return p
}

// Commitment is the sealed-bid hash of a price and salt.
func Commitment(price *big.Int, salt string) common.Hash {
	return storage.Keccak256Hash([]byte(price.String() + "-" + salt))
}

func listingFields(l *storage.Listing) diamond.Fields {
	return diamond.Fields{}.
		Str("kind", l.Kind.String()).
		Addr("collection", l.Collection).
		Int("itemId", l.ItemID).
		Uint("index", l.Index).
		Addr("seller", l.Seller).
		Uint("quantity", l.Quantity).
		Int("price", l.Price).
		Addr("paymentToken", l.PaymentToken).
		Uint("version", l.Version)
}

func requestFields(r *storage.Request) diamond.Fields {
	return diamond.Fields{}.
		Str("kind", r.Kind.String()).
		Addr("collection", r.Collection).
		Int("itemId", r.ItemID).
		Uint("index", r.Index).
		Addr("requester", r.Requester).
		Uint("quantity", r.Quantity).
		Uint("remaining", r.Remaining).
		Int("price", r.Price).
		Int("escrow", r.Escrow).
		Addr("paymentToken", r.PaymentToken).
		Uint("version", r.Version)
}

func offerFields(o *storage.Offer) diamond.Fields {
	return diamond.Fields{}.
		Addr("requester", o.Requester).
		Addr("counterparty", o.Counterparty).
		Uint("index", o.Index).
		Addr("collection", o.Collection).
		Int("itemId", o.ItemID).
		Uint("quantity", o.Quantity).
		Int("price", o.Price).
		Int("escrow", o.Escrow).
		Addr("paymentToken", o.PaymentToken).
		Uint("version", o.Version)
}
