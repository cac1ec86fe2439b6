package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/events"
	"github.com/bitfsorg/libmarket-go/fees"
	"github.com/bitfsorg/libmarket-go/storage"
)

func requireOwner(env *diamond.Env) error {
	if env.Sender != env.State.Owner {
		return fmt.Errorf("%w: %s", diamond.ErrNotContractOwner, env.Sender.Hex())
	}
	return nil
}

func requireCollection(collection common.Address) error {
	if collection == (common.Address{}) {
		return fmt.Errorf("%w: zero collection", ErrInvalidParameters)
	}
	return nil
}

func addListingToken(env *diamond.Env, a CollectionArgs) error {
	if err := requireOwner(env); err != nil {
		return err
	}
	if err := requireCollection(a.Collection); err != nil {
		return err
	}
	env.State.ListingTokens[a.Collection] = true
	env.Emit(events.ListingTokenAdded, diamond.Fields{}.Addr("collection", a.Collection))
	return nil
}

// removeListingToken stops new entries for a collection. Existing ones can
// still be fulfilled or closed.
func removeListingToken(env *diamond.Env, a CollectionArgs) error {
	if err := requireOwner(env); err != nil {
		return err
	}
	if !env.State.ListingTokens[a.Collection] {
		return fmt.Errorf("%w: %s", ErrCollectionNotAllowed, a.Collection.Hex())
	}
	delete(env.State.ListingTokens, a.Collection)
	env.Emit(events.ListingTokenRemoved, diamond.Fields{}.Addr("collection", a.Collection))
	return nil
}

// ownerFacet carries the default fee rate applied to collections that get
// beneficiaries before an explicit rate.
type ownerFacet struct {
	defaultRate *big.Int
}

func (f *ownerFacet) setCollectionFees(env *diamond.Env, a SetCollectionFeesArgs) error {
	if err := requireOwner(env); err != nil {
		return err
	}
	if err := requireCollection(a.Collection); err != nil {
		return err
	}
	beneficiaries, err := fees.Beneficiaries(a.Actors, a.Percentages)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFeeConfigurationInvalid, err)
	}
	if err := fees.ValidateBeneficiaries(beneficiaries); err != nil {
		return fmt.Errorf("%w: %w", ErrFeeConfigurationInvalid, err)
	}

	rate := copyInt(f.defaultRate)
	if cur := env.State.Fees[a.Collection]; cur != nil && cur.Rate != nil {
		rate = copyInt(cur.Rate)
	}
	cfg := &storage.FeeConfig{
		Collection:    a.Collection,
		Rate:          rate,
		Beneficiaries: beneficiaries,
		Version:       env.State.NextSeq(),
	}
	env.State.Fees[a.Collection] = cfg

	fields := diamond.Fields{}.Addr("collection", a.Collection).Int("rate", rate).Uint("version", cfg.Version)
	for _, b := range beneficiaries {
		fields.Int(b.Address.Hex(), b.Share)
	}
	env.Emit(events.CollectionFeesSet, fields)
	env.Log.Info("collection fees set", zap.String("collection", a.Collection.Hex()), zap.Int("beneficiaries", len(beneficiaries)))
	return nil
}

// setCollectionFeeRate changes the fee rate and keeps the beneficiaries.
// A rate set before any beneficiaries leaves the configuration unusable for
// settlement until they are added.
func (f *ownerFacet) setCollectionFeeRate(env *diamond.Env, a SetCollectionFeeRateArgs) error {
	if err := requireOwner(env); err != nil {
		return err
	}
	if err := requireCollection(a.Collection); err != nil {
		return err
	}
	if err := fees.ValidateRate(a.Rate); err != nil {
		return fmt.Errorf("%w: %w", ErrFeeConfigurationInvalid, err)
	}
	cfg := env.State.Fees[a.Collection]
	if cfg == nil {
		cfg = &storage.FeeConfig{Collection: a.Collection}
		env.State.Fees[a.Collection] = cfg
	}
	cfg.Rate = copyInt(a.Rate)
	cfg.Version = env.State.NextSeq()
	env.Emit(events.CollectionFeeRateSet, diamond.Fields{}.
		Addr("collection", a.Collection).
		Int("rate", a.Rate).
		Uint("version", cfg.Version))
	return nil
}

// Init allow-lists the initial collections when the owner facet is used as
// a cut's init target.
func (f *ownerFacet) Init(env *diamond.Env, input any) error {
	in, err := diamond.Input[InitArgs](input)
	if err != nil {
		return err
	}
	for _, c := range in.ListingTokens {
		if err := addListingToken(env, CollectionArgs{Collection: c}); err != nil {
			return err
		}
	}
	return nil
}
