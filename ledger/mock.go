package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MockAssetLedger is a test double for AssetLedger.
// All function fields must be set before the corresponding method is called.
type MockAssetLedger struct {
	BalanceOfFn             func(ctx context.Context, collection, owner common.Address, id *big.Int) (*big.Int, error)
	IsApprovedForAllFn      func(ctx context.Context, collection, owner, operator common.Address) (bool, error)
	SafeTransferFromFn      func(ctx context.Context, collection, operator, from, to common.Address, id, qty *big.Int) error
	SafeBatchTransferFromFn func(ctx context.Context, collection, operator, from, to common.Address, ids, qtys []*big.Int) error
}

func (m *MockAssetLedger) BalanceOf(ctx context.Context, collection, owner common.Address, id *big.Int) (*big.Int, error) {
	return m.BalanceOfFn(ctx, collection, owner, id)
}
func (m *MockAssetLedger) IsApprovedForAll(ctx context.Context, collection, owner, operator common.Address) (bool, error) {
	return m.IsApprovedForAllFn(ctx, collection, owner, operator)
}
func (m *MockAssetLedger) SafeTransferFrom(ctx context.Context, collection, operator, from, to common.Address, id, qty *big.Int) error {
	return m.SafeTransferFromFn(ctx, collection, operator, from, to, id, qty)
}
func (m *MockAssetLedger) SafeBatchTransferFrom(ctx context.Context, collection, operator, from, to common.Address, ids, qtys []*big.Int) error {
	return m.SafeBatchTransferFromFn(ctx, collection, operator, from, to, ids, qtys)
}

// MockPaymentLedger is a test double for PaymentLedger.
// All function fields must be set before the corresponding method is called.
type MockPaymentLedger struct {
	BalanceFn      func(ctx context.Context, token, owner common.Address) (*big.Int, error)
	AllowanceFn    func(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TransferFn     func(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	TransferFromFn func(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error
}

func (m *MockPaymentLedger) Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return m.BalanceFn(ctx, token, owner)
}
func (m *MockPaymentLedger) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return m.AllowanceFn(ctx, token, owner, spender)
}
func (m *MockPaymentLedger) Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	return m.TransferFn(ctx, token, from, to, amount)
}
func (m *MockPaymentLedger) TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error {
	return m.TransferFromFn(ctx, token, spender, from, to, amount)
}
