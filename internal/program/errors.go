package program

import "errors"

var (
	ErrAlreadyInitialized        = errors.New("global state already initialized")
	ErrInsufficientResources     = errors.New("insufficient lamports to allocate global state")
	ErrAddressDerivationMismatch = errors.New("supplied state address does not match derived address")
	ErrNotInitialized            = errors.New("global state not initialized")
	ErrUnauthorized              = errors.New("signer is not the global state authority")

	// ErrSignerUnavailable means the backend cannot sign for the requested caller.
	ErrSignerUnavailable  = errors.New("no signer available for caller")
	ErrInvalidAccountData = errors.New("invalid global state account data")
)

// Anchor reserves codes below 6000; custom program errors start there.
const customErrorOffset = 6000

var codes = []error{
	ErrAlreadyInitialized,
	ErrInsufficientResources,
	ErrAddressDerivationMismatch,
	ErrNotInitialized,
	ErrUnauthorized,
}

// ErrorCode returns the numeric code of a program error found in err's chain.
func ErrorCode(err error) (uint32, bool) {
	for i, e := range codes {
		if errors.Is(err, e) {
			return uint32(customErrorOffset + i), true
		}
	}
	return 0, false
}

// ErrorFromCode is the inverse of ErrorCode.
func ErrorFromCode(code uint32) error {
	i := int(code) - customErrorOffset
	if i < 0 || i >= len(codes) {
		return nil
	}
	return codes[i]
}
