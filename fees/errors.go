package fees

import "errors"

var (
	// ErrNoBeneficiaries indicates a fee configuration with no beneficiaries.
	ErrNoBeneficiaries = errors.New("fees: no beneficiaries")

	// ErrSharesNotWhole indicates the beneficiary shares do not sum to Denominator.
	ErrSharesNotWhole = errors.New("fees: shares do not sum to 100%")

	// ErrInvalidShare indicates a nil, zero or negative share.
	ErrInvalidShare = errors.New("fees: invalid share")

	// ErrInvalidRate indicates a nil or negative rate, or one above Denominator.
	ErrInvalidRate = errors.New("fees: invalid rate")

	// ErrZeroBeneficiary indicates a beneficiary with the zero address.
	ErrZeroBeneficiary = errors.New("fees: zero beneficiary address")

	// ErrDuplicateBeneficiary indicates the same address appears twice.
	ErrDuplicateBeneficiary = errors.New("fees: duplicate beneficiary")

	// ErrLengthMismatch indicates actor and percentage lists differ in length.
	ErrLengthMismatch = errors.New("fees: actors and percentages length mismatch")

	// ErrInvalidAmount indicates a nil or negative gross amount.
	ErrInvalidAmount = errors.New("fees: invalid gross amount")
)
