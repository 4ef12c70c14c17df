package tier

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition is the sentinel every validation failure unwraps to.
var ErrInvalidDefinition = errors.New("invalid tier definition")

// InvalidDefinitionError reports which tier broke which rule.
// Index is -1 when the problem concerns the definition as a whole.
type InvalidDefinitionError struct {
	Index  int
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidDefinition, e.Reason)
	}
	return fmt.Sprintf("%s: tier %d: %s", ErrInvalidDefinition, e.Index, e.Reason)
}

func (e *InvalidDefinitionError) Unwrap() error { return ErrInvalidDefinition }

func invalid(index int, reason string) error {
	return &InvalidDefinitionError{Index: index, Reason: reason}
}
