package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrUnknownKind       = errors.New("unknown source kind")
	ErrUnsupportedDriver = errors.New("unsupported sql driver")
	ErrEmptyDSN          = errors.New("sql dsn is empty")
	ErrEmptyPath         = errors.New("snapshot path is empty")
	ErrNoPeriods         = errors.New("source has no period series")
)
