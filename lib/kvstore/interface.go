package kvstore

import (
	"fmt"

	"github.com/coursekit/coursekit/lib/fields"
)

// --------------------------------------------------------------------------
// Key
// --------------------------------------------------------------------------

// Key is the five-tuple under which one field value is stored. UserID is
// populated only for per-user scopes; BlockScopeID carries the usage id,
// definition id or block type (or nothing) depending on the scope's block
// axis. BlockFamily separates primary block storage from aside storage.
type Key struct {
	Scope        fields.Scope
	UserID       string
	BlockScopeID string
	FieldName    string
	BlockFamily  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.Scope, k.UserID, k.BlockScopeID, k.FieldName, k.BlockFamily)
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Store is the generic interface for scoped field storage. Implementations
// are polymorphic over in-memory and persistent backends; nothing in the
// runtime may assume either.
//
// All read operations signal an absent key with a *KeyError carrying
// RetCNotFound; Default always does, unless an implementation supplies
// backend-level defaults.
type Store interface {
	// Get returns the value stored for key.
	Get(key Key) (value interface{}, err error)
	// Set inserts or updates the value for key.
	Set(key Key, value interface{}) (err error)
	// Delete removes the value for key. Deleting an absent key fails with
	// RetCNotFound.
	Delete(key Key) (err error)
	// Has reports whether a value is stored for key.
	Has(key Key) (ok bool, err error)
	// Default returns a backend-provided default for key. Implementations
	// without backend defaults fail with RetCNotFound, which signals the
	// caller to fall back to the field's declared default.
	Default(key Key) (value interface{}, err error)
	// SetMany applies all updates in one call. Readers in the same process
	// must never observe a partially applied batch.
	SetMany(updates map[Key]interface{}) (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// RetCode classifies store failures.
type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: operation succeeded
	RetCNotFound                     // 1: no value stored for the key
	RetCInternalError                // 2: backend failure
)

// KeyError is the error type returned by Store implementations.
type KeyError struct {
	Code RetCode
	Key  Key
	Msg  string
}

func (e *KeyError) Error() string {
	code := "Unknown"
	switch e.Code {
	case RetCNotFound:
		code = "NotFound"
	case RetCInternalError:
		code = "InternalError"
	}
	return fmt.Sprintf("KVStoreError (code %s, key %s): %s", code, e.Key, e.Msg)
}

// NewKeyError creates a KeyError with the given code, key and message.
func NewKeyError(code RetCode, key Key, msg string) *KeyError {
	return &KeyError{Code: code, Key: key, Msg: msg}
}

// IsNotFound reports whether err is a KeyError with RetCNotFound.
func IsNotFound(err error) bool {
	ke, ok := err.(*KeyError)
	return ok && ke.Code == RetCNotFound
}
