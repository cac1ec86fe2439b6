package ledger

import "errors"

var (
	// ErrInsufficientBalance indicates the holder does not own enough items or funds.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrNotApproved indicates the operator is neither the holder nor approved for all.
	ErrNotApproved = errors.New("ledger: operator not approved")

	// ErrInsufficientAllowance indicates the spender's allowance is too small.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")

	// ErrInvalidAmount indicates a nil or negative amount.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrLengthMismatch indicates batch id and quantity slices differ in length.
	ErrLengthMismatch = errors.New("ledger: ids and quantities length mismatch")

	// ErrZeroAddress indicates a transfer to the zero address.
	ErrZeroAddress = errors.New("ledger: transfer to zero address")

	// ErrTransferRejected indicates the recipient's receive hook rejected the transfer.
	ErrTransferRejected = errors.New("ledger: transfer rejected by receiver")
)
