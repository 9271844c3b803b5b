package nn

import "github.com/pkg/errors"

// Common errors. Callers match them with errors.Is; the engine wraps them with
// the layer index and the offending sizes.
var (
	ErrDimension = errors.New("dimension mismatch")
	ErrNoForward = errors.New("backward called before forward")
	ErrNonFinite = errors.New("non-finite value")
	ErrConfig    = errors.New("invalid network config")
)
