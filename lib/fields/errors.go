package fields

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Sentinel error kinds for codec failures. Strict codecs distinguish a wrong
// concrete type (ErrBadType) from a malformed value of an acceptable type
// (ErrBadValue); callers match with errors.Is.
var (
	ErrBadType  = errors.New("invalid type")
	ErrBadValue = errors.New("invalid value")

	// ErrNoSuchField is returned when a name does not resolve to a declared
	// field on a block class.
	ErrNoSuchField = errors.New("no such field")
)

func badTypef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadType, fmt.Sprintf(format, args...))
}

func badValuef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadValue, fmt.Sprintf(format, args...))
}
