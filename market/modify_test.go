package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libmarket-go/storage"
)

func TestModifyListing_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.CreateStandardListing(f.ctx, f.as(seller), CreateStandardListingArgs{
		Collection: collection, ItemID: item1, Quantity: 2, Price: ether(1),
	})
	require.NoError(t, err)

	err = f.c.ModifyStandardListing(f.ctx, f.as(stranger), ModifyStandardListingArgs{Slot: slot(item1, 0), Quantity: 1, Price: ether(1)})
	assert.ErrorIs(t, err, ErrNotOwnerOfSlot)

	// The listing's own quantity is not counted against the new one.
	require.NoError(t, f.c.ModifyStandardListing(f.ctx, f.as(seller), ModifyStandardListingArgs{Slot: slot(item1, 0), Quantity: 10, Price: ether(2)}))
	err = f.c.ModifyStandardListing(f.ctx, f.as(seller), ModifyStandardListingArgs{Slot: slot(item1, 0), Quantity: 11, Price: ether(2)})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	l := f.listing(storage.ListingStandard, item1, 0)
	assert.Equal(t, uint64(10), l.Remaining)
	assert.Equal(t, ether(2), l.Price)

	err = f.c.ModifyTimerListing(f.ctx, f.as(seller), ModifyTimerListingArgs{Slot: slot(item1, 0), Duration: 10, Quantity: 1, Price: ether(1)})
	assert.ErrorIs(t, err, storage.ErrNotFound, "kind is part of the slot")
}

func TestModifyTimerListing_RebasesDeadline(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.CreateTimerListing(f.ctx, f.as(seller), CreateTimerListingArgs{
		Collection: collection, ItemID: item2, Duration: 100, Quantity: 1, Price: ether(1),
	})
	require.NoError(t, err)

	f.clock.Advance(90)
	require.NoError(t, f.c.ModifyTimerListing(f.ctx, f.as(seller), ModifyTimerListingArgs{
		Slot: slot(item2, 0), Duration: 100, Quantity: 1, Price: ether(2),
	}))
	assert.Equal(t, uint64(start+190), f.listing(storage.ListingTimer, item2, 0).Deadline)

	f.clock.Advance(50)
	require.NoError(t, f.c.FulfillTimerListing(f.ctx, f.pay(buyer, ether(2)), FulfillListingArgs{Slot: slot(item2, 0)}))
}

func TestModifyDutchListing_RestartsSchedule(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.CreateDutchListing(f.ctx, f.as(seller), CreateDutchListingArgs{
		Collection: collection, ItemID: item1, Duration: 100, Quantity: 1,
		StartPrice: ether(2), FloorPrice: ether(1),
	})
	require.NoError(t, err)

	f.clock.Advance(100)
	require.NoError(t, f.c.ModifyDutchListing(f.ctx, f.as(seller), ModifyDutchListingArgs{
		Slot: slot(item1, 0), Duration: 100, Quantity: 1, StartPrice: ether(5), FloorPrice: ether(3),
	}))
	p, err := f.c.GetDutchListingPrice(f.ctx, slot(item1, 0))
	require.NoError(t, err)
	assert.Equal(t, ether(5), p)
}

func TestCloseListing(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.CreateStandardListing(f.ctx, f.as(seller), CreateStandardListingArgs{
		Collection: collection, ItemID: item1, Quantity: 2, Price: ether(1),
	})
	require.NoError(t, err)
	args := CloseListingArgs{Kind: storage.ListingStandard, Slot: slot(item1, 0)}

	assert.ErrorIs(t, f.c.CloseListing(f.ctx, f.as(buyer), args), ErrNotOwnerOfSlot)
	require.NoError(t, f.c.CloseListing(f.ctx, f.as(seller), args))
	assert.ErrorIs(t, f.c.CloseListing(f.ctx, f.as(seller), args), ErrListingClosed)

	err = f.c.FulfillStandardListing(f.ctx, f.pay(buyer, ether(1)), FulfillListingArgs{Slot: slot(item1, 0), Quantity: 1})
	assert.ErrorIs(t, err, ErrListingClosed)
	err = f.c.ModifyStandardListing(f.ctx, f.as(seller), ModifyStandardListingArgs{Slot: slot(item1, 0), Quantity: 1, Price: ether(1)})
	assert.ErrorIs(t, err, ErrListingClosed)

	// Closed listings no longer commit the seller's balance.
	_, err = f.c.CreateStandardListing(f.ctx, f.as(seller), CreateStandardListingArgs{
		Collection: collection, ItemID: item1, Quantity: 10, Price: ether(1),
	})
	require.NoError(t, err)
}
