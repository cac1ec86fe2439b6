package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libmarket-go/storage"
)

// ---------------------------------------------------------------------------
// Standard and timer requests
// ---------------------------------------------------------------------------

func TestStandardRequest_Fulfill(t *testing.T) {
	f := newFixture(t)
	d := f.track(buyer, seller, treasury, artist)
	idx, err := f.c.CreateStandardRequest(f.ctx, f.pay(buyer, ether(3)), CreateStandardRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 4, Price: ether(2),
	})
	require.NoError(t, err)
	assert.Equal(t, neg(ether(2)), d.of(buyer), "excess value refunded")
	assert.Equal(t, ether(2), f.request(storage.RequestStandard, item1, idx).Escrow)

	err = f.c.FulfillStandardRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item1, idx), Quantity: 3})
	assert.ErrorIs(t, err, ErrStaleState)

	require.NoError(t, f.c.FulfillStandardRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item1, idx), Quantity: 4}))
	assert.Equal(t, int64(4), f.items(buyer, item1))
	assert.Equal(t, new(big.Int).Div(ether(18), big.NewInt(10)), d.of(seller))
	fee := new(big.Int).Add(d.of(treasury), d.of(artist))
	assert.Equal(t, new(big.Int).Div(ether(2), big.NewInt(10)), fee)

	r := f.request(storage.RequestStandard, item1, idx)
	assert.True(t, r.Closed)
	assert.Equal(t, 0, r.Escrow.Sign())

	err = f.c.FulfillStandardRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item1, idx), Quantity: 4})
	assert.ErrorIs(t, err, ErrRequestClosed)
}

func TestCreateRequest_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.CreateStandardRequest(f.ctx, f.pay(buyer, ether(1)), CreateStandardRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 1, Price: ether(2),
	})
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	_, err = f.c.CreateStandardRequest(f.ctx, f.pay(buyer, ether(1)), CreateStandardRequestArgs{
		Collection: unlisted, ItemID: item1, Quantity: 1, Price: ether(1),
	})
	assert.ErrorIs(t, err, ErrCollectionNotAllowed)

	_, err = f.c.CreateTimerRequest(f.ctx, f.pay(buyer, ether(1)), CreateTimerRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 1, Price: ether(1),
	})
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestTimerRequest_Expires(t *testing.T) {
	f := newFixture(t)
	idx, err := f.c.CreateTimerRequest(f.ctx, f.pay(buyer, ether(1)), CreateTimerRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 2, Price: ether(1), Duration: 600,
	})
	require.NoError(t, err)

	f.clock.Advance(600)
	err = f.c.FulfillTimerRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item1, idx)})
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	d := f.track(buyer)
	require.NoError(t, f.c.CloseRequest(f.ctx, f.as(buyer), CloseRequestArgs{Kind: storage.RequestTimer, Slot: slot(item1, idx)}))
	assert.Equal(t, ether(1), d.of(buyer))
}

// ---------------------------------------------------------------------------
// Dutch requests
// ---------------------------------------------------------------------------

func TestDutchRequest_RisingPriceRefundsRemainder(t *testing.T) {
	f := newFixture(t)
	d := f.track(buyer, seller)
	idx, err := f.c.CreateDutchRequest(f.ctx, f.pay(buyer, ether(10)), CreateDutchRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 1, Duration: 1000,
		StartPrice: ether(2), MaxPrice: ether(10),
	})
	require.NoError(t, err)
	assert.Equal(t, neg(ether(10)), d.of(buyer))

	prev, err := f.c.GetDutchRequestPrice(f.ctx, slot(item1, idx))
	require.NoError(t, err)
	assert.Equal(t, ether(2), prev)
	for i := 0; i < 12; i++ {
		f.clock.Advance(100)
		p, err := f.c.GetDutchRequestPrice(f.ctx, slot(item1, idx))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.Cmp(prev), 0)
		assert.LessOrEqual(t, p.Cmp(ether(10)), 0)
		prev = p
	}

	f.clock.Set(start + 250)
	require.NoError(t, f.c.FulfillDutchRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item1, idx)}))
	// Price at 250s is 2 + 8*0.25 = 4.
	assert.Equal(t, neg(ether(4)), d.of(buyer))
	assert.Equal(t, new(big.Int).Div(ether(36), big.NewInt(10)), d.of(seller))
	assert.Equal(t, 0, f.funds(native, f.d.Address()).Sign())
}

// ---------------------------------------------------------------------------
// Amount requests
// ---------------------------------------------------------------------------

func TestAmountRequest_EndToEnd(t *testing.T) {
	f := newFixture(t)
	item := big.NewInt(7)
	f.mint(seller, item, 2_000_000)

	idx, err := f.c.CreateAmountRequest(f.ctx, f.pay(buyer, ether(1)), CreateAmountRequestArgs{
		Collection: collection, ItemID: item, PricePerUnit: gwei(1), Quantity: 1_000_000,
	})
	require.NoError(t, err)
	r := f.request(storage.RequestAmount, item, idx)
	assert.Equal(t, gwei(1_000_000), r.Escrow)
	assert.Equal(t, uint64(0), r.Deadline)

	require.NoError(t, f.c.FulfillAmountRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item, idx), Quantity: 400_000}))
	r = f.request(storage.RequestAmount, item, idx)
	assert.Equal(t, uint64(600_000), r.Remaining)
	assert.Equal(t, gwei(600_000), r.Escrow)
	assert.False(t, r.Closed)

	err = f.c.FulfillAmountRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item, idx), Quantity: 700_000})
	assert.ErrorIs(t, err, ErrQuantityExceedsRemaining)
	assert.Equal(t, uint64(600_000), f.request(storage.RequestAmount, item, idx).Remaining)

	require.NoError(t, f.c.FulfillAmountRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item, idx), Quantity: 600_000}))
	r = f.request(storage.RequestAmount, item, idx)
	assert.True(t, r.Closed)
	assert.Equal(t, uint64(0), r.Remaining)
	assert.Equal(t, 0, r.Escrow.Sign())
	assert.Equal(t, int64(1_000_000), f.items(buyer, item))

	err = f.c.FulfillAmountRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item, idx), Quantity: 1})
	assert.ErrorIs(t, err, ErrRequestClosed)
}

func TestAmountRequest_ModifyRetermsRemainder(t *testing.T) {
	f := newFixture(t)
	idx, err := f.c.CreateAmountRequest(f.ctx, f.pay(buyer, ether(10)), CreateAmountRequestArgs{
		Collection: collection, ItemID: item1, PricePerUnit: ether(1), Quantity: 10,
	})
	require.NoError(t, err)
	require.NoError(t, f.c.FulfillAmountRequest(f.ctx, f.as(seller), FulfillRequestArgs{Slot: slot(item1, idx), Quantity: 4}))

	d := f.track(buyer)
	require.NoError(t, f.c.ModifyAmountRequest(f.ctx, f.as(buyer), ModifyAmountRequestArgs{
		Slot: slot(item1, idx), PricePerUnit: ether(1), Quantity: 2,
	}))
	assert.Equal(t, ether(4), d.of(buyer), "surplus refunded")

	r := f.request(storage.RequestAmount, item1, idx)
	assert.Equal(t, uint64(6), r.Quantity)
	assert.Equal(t, uint64(2), r.Remaining)
	assert.Equal(t, ether(2), r.Escrow)
}

// ---------------------------------------------------------------------------
// Modify and close
// ---------------------------------------------------------------------------

func TestModifyRequest_EscrowAdjustment(t *testing.T) {
	f := newFixture(t)
	idx, err := f.c.CreateStandardRequest(f.ctx, f.pay(buyer, ether(2)), CreateStandardRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 1, Price: ether(2),
	})
	require.NoError(t, err)
	s := slot(item1, idx)

	err = f.c.ModifyStandardRequest(f.ctx, f.as(stranger), ModifyStandardRequestArgs{Slot: s, Quantity: 1, Price: ether(1)})
	assert.ErrorIs(t, err, ErrNotOwnerOfSlot)

	err = f.c.ModifyStandardRequest(f.ctx, f.pay(buyer, ether(1)), ModifyStandardRequestArgs{Slot: s, Quantity: 1, Price: ether(5)})
	assert.ErrorIs(t, err, ErrInsufficientEscrowAdjustment)

	err = f.c.ModifyStandardRequest(f.ctx, f.as(buyer), ModifyStandardRequestArgs{Slot: s, Quantity: 1, Price: ether(1), PaymentToken: usdc})
	assert.ErrorIs(t, err, ErrInvalidParameters)

	d := f.track(buyer)
	require.NoError(t, f.c.ModifyStandardRequest(f.ctx, f.pay(buyer, ether(4)), ModifyStandardRequestArgs{Slot: s, Quantity: 2, Price: ether(5)}))
	assert.Equal(t, neg(ether(3)), d.of(buyer))
	r := f.request(storage.RequestStandard, item1, idx)
	assert.Equal(t, ether(5), r.Escrow)
	assert.Equal(t, uint64(2), r.Quantity)

	d = f.track(buyer)
	require.NoError(t, f.c.ModifyStandardRequest(f.ctx, f.as(buyer), ModifyStandardRequestArgs{Slot: s, Quantity: 2, Price: ether(1)}))
	assert.Equal(t, ether(4), d.of(buyer))
}

func TestCloseRequest(t *testing.T) {
	f := newFixture(t)
	idx, err := f.c.CreateStandardRequest(f.ctx, f.pay(buyer, ether(2)), CreateStandardRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 1, Price: ether(2),
	})
	require.NoError(t, err)
	args := CloseRequestArgs{Kind: storage.RequestStandard, Slot: slot(item1, idx)}

	assert.ErrorIs(t, f.c.CloseRequest(f.ctx, f.as(stranger), args), ErrNotOwnerOfSlot)

	d := f.track(buyer)
	require.NoError(t, f.c.CloseRequest(f.ctx, f.as(buyer), args))
	assert.Equal(t, ether(2), d.of(buyer))
	assert.ErrorIs(t, f.c.CloseRequest(f.ctx, f.as(buyer), args), ErrRequestClosed)

	// A closed slot is reused by the next request for the same item.
	next, err := f.c.CreateStandardRequest(f.ctx, f.pay(buyer, ether(1)), CreateStandardRequestArgs{
		Collection: collection, ItemID: item1, Quantity: 1, Price: ether(1),
	})
	require.NoError(t, err)
	assert.Equal(t, idx, next)
}

// ---------------------------------------------------------------------------
// Offers
// ---------------------------------------------------------------------------

func createOfferTo(t *testing.T, f *fixture, counterparty common.Address, value *big.Int) uint64 {
	t.Helper()
	idx, err := f.c.CreateOffer(f.ctx, f.pay(buyer, value), CreateOfferArgs{
		Counterparty: counterparty, Collection: collection, ItemID: item2, Quantity: 1, Price: ether(3),
	})
	require.NoError(t, err)
	return idx
}

func TestOffer_OnlyCounterparty(t *testing.T) {
	f := newFixture(t)
	idx := createOfferTo(t, f, seller, ether(3))

	err := f.c.FulfillOffer(f.ctx, f.as(stranger), FulfillOfferArgs{Requester: buyer, Index: idx})
	assert.ErrorIs(t, err, ErrNotCounterparty)

	d := f.track(seller, treasury, artist)
	require.NoError(t, f.c.FulfillOffer(f.ctx, f.as(seller), FulfillOfferArgs{Requester: buyer, Index: idx}))
	assert.Equal(t, int64(1), f.items(buyer, item2))
	assert.Equal(t, new(big.Int).Div(ether(27), big.NewInt(10)), d.of(seller))

	o, err := f.c.GetOffer(f.ctx, buyer, seller, idx)
	require.NoError(t, err)
	assert.True(t, o.Closed)

	err = f.c.FulfillOffer(f.ctx, f.as(seller), FulfillOfferArgs{Requester: buyer, Index: idx})
	assert.ErrorIs(t, err, ErrRequestClosed)
}

func TestOffer_ModifyAndClose(t *testing.T) {
	f := newFixture(t)
	idx := createOfferTo(t, f, seller, ether(3))

	d := f.track(buyer)
	require.NoError(t, f.c.ModifyOffer(f.ctx, f.as(buyer), ModifyOfferArgs{
		Counterparty: seller, Index: idx, Quantity: 1, Price: ether(1), Duration: 60,
	}))
	assert.Equal(t, ether(2), d.of(buyer))

	f.clock.Advance(60)
	err := f.c.FulfillOffer(f.ctx, f.as(seller), FulfillOfferArgs{Requester: buyer, Index: idx})
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	d = f.track(buyer)
	require.NoError(t, f.c.CloseOffer(f.ctx, f.as(buyer), CloseOfferArgs{Counterparty: seller, Index: idx}))
	assert.Equal(t, ether(1), d.of(buyer))
	assert.ErrorIs(t, f.c.CloseOffer(f.ctx, f.as(buyer), CloseOfferArgs{Counterparty: seller, Index: idx}), ErrRequestClosed)
}
