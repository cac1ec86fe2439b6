package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	collection = common.HexToAddress("0xc0c0")
	token      = common.HexToAddress("0x7070")
	alice      = common.HexToAddress("0xa1")
	bob        = common.HexToAddress("0xb0")
	market     = common.HexToAddress("0xd1")
)

func balanceOf(t *testing.T, l *MemLedger, owner common.Address, id int64) int64 {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), collection, owner, big.NewInt(id))
	require.NoError(t, err)
	return b.Int64()
}

func fundsOf(t *testing.T, l *MemLedger, tok, owner common.Address) int64 {
	t.Helper()
	b, err := l.Balance(context.Background(), tok, owner)
	require.NoError(t, err)
	return b.Int64()
}

// ---------------------------------------------------------------------------
// Item tests
// ---------------------------------------------------------------------------

func TestSafeTransferFrom_RequiresApproval(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.Mint(collection, alice, big.NewInt(1), big.NewInt(10)))

	err := l.SafeTransferFrom(context.Background(), collection, market, alice, bob, big.NewInt(1), big.NewInt(3))
	assert.ErrorIs(t, err, ErrNotApproved)

	l.SetApprovalForAll(collection, alice, market, true)
	require.NoError(t, l.SafeTransferFrom(context.Background(), collection, market, alice, bob, big.NewInt(1), big.NewInt(3)))
	assert.Equal(t, int64(7), balanceOf(t, l, alice, 1))
	assert.Equal(t, int64(3), balanceOf(t, l, bob, 1))
}

func TestSafeTransferFrom_InsufficientBalance(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.Mint(collection, alice, big.NewInt(1), big.NewInt(1)))
	err := l.SafeTransferFrom(context.Background(), collection, alice, alice, bob, big.NewInt(1), big.NewInt(2))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestSafeBatchTransferFrom_AllOrNothing(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.MintBatch(collection, alice,
		[]*big.Int{big.NewInt(0), big.NewInt(1)},
		[]*big.Int{big.NewInt(5), big.NewInt(1)}))

	err := l.SafeBatchTransferFrom(context.Background(), collection, alice, alice, bob,
		[]*big.Int{big.NewInt(0), big.NewInt(1)},
		[]*big.Int{big.NewInt(2), big.NewInt(2)})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(5), balanceOf(t, l, alice, 0))
	assert.Equal(t, int64(0), balanceOf(t, l, bob, 0))

	err = l.SafeBatchTransferFrom(context.Background(), collection, alice, alice, bob,
		[]*big.Int{big.NewInt(0)}, []*big.Int{big.NewInt(1), big.NewInt(1)})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestReceiveHook_RejectionRollsBack(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.Mint(collection, alice, big.NewInt(1), big.NewInt(1)))

	hookErr := errors.New("not accepting")
	l.SetReceiveHook(bob, func(ctx context.Context, operator, from common.Address, id, qty *big.Int) error {
		return hookErr
	})

	err := l.SafeTransferFrom(context.Background(), collection, alice, alice, bob, big.NewInt(1), big.NewInt(1))
	assert.ErrorIs(t, err, ErrTransferRejected)
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, int64(1), balanceOf(t, l, alice, 1))
	assert.Equal(t, int64(0), balanceOf(t, l, bob, 1))
}

func TestReceiveHook_CanReenter(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.Mint(collection, alice, big.NewInt(1), big.NewInt(2)))

	calls := 0
	l.SetReceiveHook(bob, func(ctx context.Context, operator, from common.Address, id, qty *big.Int) error {
		calls++
		// The ledger lock is released while the hook runs.
		_, err := l.BalanceOf(ctx, collection, bob, id)
		return err
	})
	require.NoError(t, l.SafeTransferFrom(context.Background(), collection, alice, alice, bob, big.NewInt(1), big.NewInt(1)))
	assert.Equal(t, 1, calls)
}

// ---------------------------------------------------------------------------
// Payment tests
// ---------------------------------------------------------------------------

func TestTransferFrom_UsesAllowance(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.Credit(token, alice, big.NewInt(100)))

	err := l.TransferFrom(context.Background(), token, market, alice, market, big.NewInt(40))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.Approve(token, alice, market, big.NewInt(50)))
	require.NoError(t, l.TransferFrom(context.Background(), token, market, alice, market, big.NewInt(40)))

	assert.Equal(t, int64(60), fundsOf(t, l, token, alice))
	assert.Equal(t, int64(40), fundsOf(t, l, token, market))
	left, err := l.Allowance(context.Background(), token, alice, market)
	require.NoError(t, err)
	assert.Equal(t, int64(10), left.Int64())
}

func TestTransfer_Native(t *testing.T) {
	l := NewMemLedger()
	native := common.Address{}
	require.NoError(t, l.Credit(native, alice, big.NewInt(5)))

	assert.ErrorIs(t, l.Transfer(context.Background(), native, alice, bob, big.NewInt(6)), ErrInsufficientBalance)
	assert.ErrorIs(t, l.Transfer(context.Background(), native, alice, common.Address{}, big.NewInt(1)), ErrZeroAddress)
	assert.ErrorIs(t, l.Transfer(context.Background(), native, alice, bob, big.NewInt(-1)), ErrInvalidAmount)
	require.NoError(t, l.Transfer(context.Background(), native, alice, bob, big.NewInt(5)))
	assert.Equal(t, int64(5), fundsOf(t, l, native, bob))
}

// ---------------------------------------------------------------------------
// Journal tests
// ---------------------------------------------------------------------------

func TestRevertToSnapshot(t *testing.T) {
	l := NewMemLedger()
	require.NoError(t, l.Mint(collection, alice, big.NewInt(1), big.NewInt(4)))
	require.NoError(t, l.Credit(token, alice, big.NewInt(100)))

	snap := l.Snapshot()
	require.NoError(t, l.SafeTransferFrom(context.Background(), collection, alice, alice, bob, big.NewInt(1), big.NewInt(4)))
	require.NoError(t, l.Transfer(context.Background(), token, alice, bob, big.NewInt(30)))
	l.SetApprovalForAll(collection, alice, market, true)
	require.NoError(t, l.Approve(token, alice, market, big.NewInt(9)))

	l.RevertToSnapshot(snap)

	assert.Equal(t, int64(4), balanceOf(t, l, alice, 1))
	assert.Equal(t, int64(0), balanceOf(t, l, bob, 1))
	assert.Equal(t, int64(100), fundsOf(t, l, token, alice))
	assert.Equal(t, int64(0), fundsOf(t, l, token, bob))
	approved, err := l.IsApprovedForAll(context.Background(), collection, alice, market)
	require.NoError(t, err)
	assert.False(t, approved)
	allowance, err := l.Allowance(context.Background(), token, alice, market)
	require.NoError(t, err)
	assert.Equal(t, int64(0), allowance.Int64())
}

func TestMockAssetLedger_Delegates(t *testing.T) {
	m := &MockAssetLedger{
		BalanceOfFn: func(ctx context.Context, c, owner common.Address, id *big.Int) (*big.Int, error) {
			return big.NewInt(42), nil
		},
	}
	b, err := m.BalanceOf(context.Background(), collection, alice, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(42), b.Int64())
}
