package doctree

import (
	"errors"
	"fmt"
)

var (
	// ErrPathOutOfRange indicates an index past the end of some children list.
	ErrPathOutOfRange = errors.New("path out of range")

	// ErrInvalidTarget indicates an operation aimed at a node that cannot take it.
	ErrInvalidTarget = errors.New("invalid target")
)

// InvariantViolation describes a broken nesting rule. It is a programming
// error: well-formed operations never produce one.
type InvariantViolation struct {
	Path   Path
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation at [%s]: %s", e.Path, e.Reason)
}

func outOfRange(p Path, depth int) error {
	return fmt.Errorf("resolve [%s] at depth %d: %w", p, depth, ErrPathOutOfRange)
}
