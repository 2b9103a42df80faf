package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidMetric = errors.New("invalid activity metric")
)
