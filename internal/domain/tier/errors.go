package tier

import "errors"

// Sentinel kinds for tier configuration errors.
var (
	ErrInvalidThresholds = errors.New("invalid tier thresholds")
	ErrInvalidTheme      = errors.New("invalid tier theme")
)
