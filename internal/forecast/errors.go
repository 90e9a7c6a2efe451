package forecast

import "errors"

// Named failures surfaced to callers. Forecasting is strict where the
// panel side is tolerant: missing history or a missing posterior parameter
// is an error, never a default.
var (
	ErrNotEnoughData      = errors.New("not enough data")
	ErrMissingColumn      = errors.New("missing required column")
	ErrMissingParameter   = errors.New("missing posterior parameter")
	ErrDrawLengthMismatch = errors.New("posterior draw length mismatch")
)
