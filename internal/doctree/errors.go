package doctree

import (
	"errors"
	"fmt"
)

var (
	// ErrConsistency marks a structural precondition violation: a split or
	// resolution was asked to do something the paragraph cannot support.
	ErrConsistency = errors.New("structural consistency violation")

	// ErrEmptyRun is returned when a run targeted for splitting has no text.
	ErrEmptyRun = errors.New("run is empty")
)

// ConsistencyError describes a precondition violation with the operation that detected it.
type ConsistencyError struct {
	Op     string // operation, e.g. "split", "resolve", "locate"
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrConsistency
}

// Inconsistent builds a ConsistencyError with a formatted detail message.
func Inconsistent(op, format string, args ...any) error {
	return &ConsistencyError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
