package streampay

import "errors"

// Sentinel errors for all expected failure outcomes. Every error here is
// recoverable by the caller and terminal for the call that produced it:
// the engine performs no retries and commits no partial state.
var (
	// Configuration errors
	ErrAlreadyInitialized = errors.New("streampay: already initialized")
	ErrNotInitialized     = errors.New("streampay: not initialized")
	ErrNotAdmin           = errors.New("streampay: not admin")
	ErrInvalidFeeRate     = errors.New("streampay: invalid fee rate")

	// Input validation errors
	ErrInvalidAmount       = errors.New("streampay: invalid amount")
	ErrInvalidDuration     = errors.New("streampay: invalid duration")
	ErrInvalidTokenAddress = errors.New("streampay: invalid token address")

	// Lookup/authorization errors
	ErrStreamNotFound = errors.New("streampay: stream not found")
	ErrUnauthorized   = errors.New("streampay: unauthorized")
	ErrStreamInactive = errors.New("streampay: stream inactive")
)

// IsNotFound returns true if the error signals an absent record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStreamNotFound) ||
		errors.Is(err, ErrNotInitialized)
}

// IsValidation returns true if the error is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidTokenAddress) ||
		errors.Is(err, ErrInvalidFeeRate)
}

// IsAuthorization returns true if the error is an authorization failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotAdmin)
}
