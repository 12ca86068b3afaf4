package engine

import "errors"

// Admission errors. Reported synchronously, nothing is created or mutated.
var (
	ErrInvalidBetSegment      = errors.New("engine: bet segment must be between 0 and 6")
	ErrMultipleCurrenciesSent = errors.New("engine: more than one currency sent")
	ErrCurrencyMismatch       = errors.New("engine: sent currency does not match pool currency")
	ErrZeroBet                = errors.New("engine: bet amount must be positive")
	ErrBetExceedsPoolCap      = errors.New("engine: bet exceeds pool cap")
	ErrAmountMismatch         = errors.New("engine: declared bet size does not match attached funds")
	ErrNoFreeSpinsRemaining   = errors.New("engine: no free spins remaining")
)

// Callback authentication errors. The referenced game is left untouched so a
// legitimate later callback can still settle it.
var (
	ErrUnauthorizedCallbackSender = errors.New("engine: callback not sent by the trusted oracle")
	ErrUntrustedRequester         = errors.New("engine: callback requester is not this engine")
)

var (
	ErrGameAlreadySettled = errors.New("engine: game already settled")
	ErrGameNotFound       = errors.New("engine: game not found")
	ErrUnauthorized       = errors.New("engine: caller is not the configured admin")
	ErrUnableToLoadIndex  = errors.New("engine: unable to load game index")
	ErrInvalidToken       = errors.New("engine: malformed callback token")
)
