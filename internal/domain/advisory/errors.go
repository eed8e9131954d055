package advisory

import "errors"

// ErrOracleUnavailable wraps any failure of the generation call.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// ErrEmptyCompletion means the oracle answered with no text.
var ErrEmptyCompletion = errors.New("oracle returned empty completion")
