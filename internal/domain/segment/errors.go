package segment

import (
	"errors"
	"fmt"
)

// Sentinel kinds for segmentation errors. Typed errors below match them
// through errors.Is.
var (
	ErrDuplicateEntity       = errors.New("duplicate entity id")
	ErrInvalidTierDefinition = errors.New("invalid tier definition")
	ErrInvalidMeasure        = errors.New("invalid entity measure")
)

// DuplicateEntityError reports an entity id that appears twice in the input.
type DuplicateEntityError struct {
	ID     string
	First  int // index of the first occurrence
	Second int // index of the repeated occurrence
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("%s %q at positions %d and %d", ErrDuplicateEntity, e.ID, e.First, e.Second)
}

func (e *DuplicateEntityError) Is(target error) bool { return target == ErrDuplicateEntity }

// InvalidTierDefinitionError wraps the validation failure of a tier definition.
type InvalidTierDefinitionError struct {
	Err error
}

func (e *InvalidTierDefinitionError) Error() string { return e.Err.Error() }

func (e *InvalidTierDefinitionError) Unwrap() error { return e.Err }

func (e *InvalidTierDefinitionError) Is(target error) bool {
	return target == ErrInvalidTierDefinition
}

// InvalidMeasureError reports a negative or NaN measure.
type InvalidMeasureError struct {
	ID      string
	Measure float64
}

func (e *InvalidMeasureError) Error() string {
	return fmt.Sprintf("%s %v for entity %q", ErrInvalidMeasure, e.Measure, e.ID)
}

func (e *InvalidMeasureError) Is(target error) bool { return target == ErrInvalidMeasure }
