package diamond

import "errors"

var (
	// ErrUnknownSelector indicates no facet implements the called selector.
	ErrUnknownSelector = errors.New("diamond: unknown selector")

	// ErrSelectorAlreadyBound indicates an Add for a selector that is bound.
	ErrSelectorAlreadyBound = errors.New("diamond: selector already bound")

	// ErrSelectorNotBound indicates a Replace or Remove for an unbound selector.
	ErrSelectorNotBound = errors.New("diamond: selector not bound")

	// ErrReplaceSameFacet indicates a Replace onto the facet already bound.
	ErrReplaceSameFacet = errors.New("diamond: replace with the same facet")

	// ErrRemoveFacetNotZero indicates a Remove whose facet address is not zero.
	ErrRemoveFacetNotZero = errors.New("diamond: remove facet address must be zero")

	// ErrFacetHasNoCode indicates the facet address has no deployed code.
	ErrFacetHasNoCode = errors.New("diamond: facet has no code")

	// ErrNoSelectors indicates a cut entry without selectors.
	ErrNoSelectors = errors.New("diamond: no selectors in facet cut")

	// ErrImmutableSelector indicates an attempt to change an immutable selector.
	ErrImmutableSelector = errors.New("diamond: selector is immutable")

	// ErrInvalidAction indicates an unknown cut action.
	ErrInvalidAction = errors.New("diamond: invalid cut action")

	// ErrInitTargetInvalid indicates the init target is not deployed or cannot initialize.
	ErrInitTargetInvalid = errors.New("diamond: invalid init target")

	// ErrInitFailed indicates the init call returned an error.
	ErrInitFailed = errors.New("diamond: init call failed")

	// ErrNotContractOwner indicates a restricted call from a non-owner.
	ErrNotContractOwner = errors.New("diamond: caller is not the contract owner")

	// ErrInvalidInput indicates the call input has the wrong type for the selector.
	ErrInvalidInput = errors.New("diamond: invalid call input")

	// ErrInsufficientValue indicates the attached native value does not cover a payment.
	ErrInsufficientValue = errors.New("diamond: insufficient attached value")

	// ErrNoPaymentLedger indicates native value was attached but no payment ledger is configured.
	ErrNoPaymentLedger = errors.New("diamond: no payment ledger configured")

	// ErrDuplicateSelector indicates a facet declares the same selector twice.
	ErrDuplicateSelector = errors.New("diamond: facet declares a selector twice")

	// ErrNilStore indicates New was called without a store.
	ErrNilStore = errors.New("diamond: nil store")
)
