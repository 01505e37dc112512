package grid

import (
	"errors"
	"fmt"
)

// Domain errors for grid operations.
var (
	// ErrCatalogExhausted indicates every catalog image is already displayed.
	ErrCatalogExhausted = errors.New("grid: catalog exhausted (every image is displayed)")

	// ErrInvalidSize indicates a non-positive grid size.
	ErrInvalidSize = errors.New("grid: grid size must be positive")

	// ErrInvariant indicates the grid and the displayed set disagree.
	ErrInvariant = errors.New("grid: invariant violated")
)

// LoadError wraps a fetch or decode failure with the resource it concerns.
type LoadError struct {
	Ref     string
	Wrapped error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Ref, e.Wrapped)
}

func (e *LoadError) Unwrap() error {
	return e.Wrapped
}
