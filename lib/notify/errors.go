package notify

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

var (
	// ErrItemNotFound is returned by single-entity lookups with no match and
	// by updates addressing an id that was never saved.
	ErrItemNotFound = errors.New("item not found")

	// ErrBulkOperationTooLarge is returned when a bulk input exceeds the
	// configured chunk size. Nothing is inserted in that case.
	ErrBulkOperationTooLarge = errors.New("bulk operation too large")

	// ErrInvalidArgument is returned for contradictory filters and
	// out-of-range sizes.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NewItemNotFound builds an ErrItemNotFound naming the entity kind and id.
// Store implementations use it so messages stay uniform across backends.
func NewItemNotFound(what string, id interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrItemNotFound, what, id)
}

func errInvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func errBulkTooLarge(n, max int) error {
	return fmt.Errorf("%w: %d records exceed the chunk size of %d", ErrBulkOperationTooLarge, n, max)
}
