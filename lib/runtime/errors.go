package runtime

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Sentinel errors for resolution failures. Callers match with errors.Is;
// the concrete messages carry the name that failed to resolve.
var (
	ErrNoSuchView       = errors.New("no such view")
	ErrNoSuchHandler    = errors.New("no such handler")
	ErrNoSuchService    = errors.New("no such service")
	ErrNoSuchUsage      = errors.New("no such usage")
	ErrNoSuchDefinition = errors.New("no such definition")
	ErrNoSuchBlockType  = errors.New("no such block type")
	ErrBadPath          = errors.New("bad path")
)

func errNoSuchView(name string) error {
	return fmt.Errorf("%w: %s", ErrNoSuchView, name)
}

func errNoSuchHandler(name string) error {
	return fmt.Errorf("%w: %s", ErrNoSuchHandler, name)
}

func errNoSuchService(name, reason string) error {
	return fmt.Errorf("%w: %s (%s)", ErrNoSuchService, name, reason)
}

func errNoSuchUsage(id string) error {
	return fmt.Errorf("%w: %s", ErrNoSuchUsage, id)
}

func errNoSuchDefinition(id string) error {
	return fmt.Errorf("%w: %s", ErrNoSuchDefinition, id)
}

func errNoSuchBlockType(name string) error {
	return fmt.Errorf("%w: %s", ErrNoSuchBlockType, name)
}
