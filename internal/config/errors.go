package config

import (
	"errors"
)

// Sentinel error kinds for this package. Load wraps file and env failures
// in ErrLoadConfig and validation failures in ErrInvalidConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
