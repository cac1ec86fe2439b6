package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetLedger is the multi-token ledger capability the marketplace consumes.
// Item quantities are integers per item id; collections are addressed by
// their contract address.
type AssetLedger interface {
	// BalanceOf returns owner's quantity of item id in collection.
	BalanceOf(ctx context.Context, collection, owner common.Address, id *big.Int) (*big.Int, error)

	// IsApprovedForAll reports whether operator may move all of owner's items.
	IsApprovedForAll(ctx context.Context, collection, owner, operator common.Address) (bool, error)

	// SafeTransferFrom moves qty of item id from one holder to another on
	// behalf of operator.
	SafeTransferFrom(ctx context.Context, collection, operator, from, to common.Address, id, qty *big.Int) error

	// SafeBatchTransferFrom moves several item ids in one call.
	SafeBatchTransferFrom(ctx context.Context, collection, operator, from, to common.Address, ids, qtys []*big.Int) error
}

// PaymentLedger moves payment assets. The zero token address denotes the
// host chain's native currency; any other address is a fungible token.
type PaymentLedger interface {
	// Balance returns owner's balance of token.
	Balance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// Allowance returns how much spender may pull from owner.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)

	// Transfer moves amount of from's own funds to to.
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error

	// TransferFrom pulls amount from from to to using spender's allowance.
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error
}

// Journal is implemented by ledgers that can roll back to a snapshot. The
// diamond uses it to undo ledger effects of an aborted operation.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// ReceiveHook is invoked after items arrive at an address that registered
// one. Returning an error rejects the transfer.
type ReceiveHook func(ctx context.Context, operator, from common.Address, id, qty *big.Int) error
