package seed

import "errors"

// ErrInvalidConfig reports an unusable generator configuration.
var ErrInvalidConfig = errors.New("invalid seed config")
