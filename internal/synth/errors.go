package synth

import "errors"

// ErrInvalidConfig reports negative generation sizes.
var ErrInvalidConfig = errors.New("invalid synth config")
