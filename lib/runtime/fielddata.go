package runtime

import (
	"fmt"

	"github.com/coursekit/coursekit/lib/fields"
	"github.com/coursekit/coursekit/lib/kvstore"
)

// --------------------------------------------------------------------------
// FieldData Interface
// --------------------------------------------------------------------------

// FieldData translates (block, field name) accesses into storage operations.
// The runtime and blocks speak only to this interface; the concrete adapter
// decides how field values are keyed and stored.
type FieldData interface {
	Get(b *Block, name string) (interface{}, error)
	Set(b *Block, name string, value interface{}) error
	Delete(b *Block, name string) error
	Has(b *Block, name string) (bool, error)
	// Default returns a storage-level default, failing with a not-found
	// error to signal "use the field's declared default".
	Default(b *Block, name string) (interface{}, error)
	// SetMany persists several fields of one block in a single batch.
	SetMany(b *Block, updates map[string]interface{}) error
}

// --------------------------------------------------------------------------
// KV Store Adapter
// --------------------------------------------------------------------------

// KVStoreFieldData adapts a kvstore.Store to the FieldData interface. The
// storage key for a field is a deterministic function of the block's
// ScopeIds and the field's declared scope:
//
//   - the user id enters the key only for UserScopeOne fields
//   - the block scope id is the usage id, definition id or block type
//     depending on the scope's block axis (none for BlockScopeAll)
//   - the children/parent scopes key per usage with no user axis
type KVStoreFieldData struct {
	store kvstore.Store
}

// NewKVStoreFieldData creates the adapter.
func NewKVStoreFieldData(store kvstore.Store) *KVStoreFieldData {
	return &KVStoreFieldData{store: store}
}

// Store exposes the underlying kvstore.Store.
func (d *KVStoreFieldData) Store() kvstore.Store { return d.store }

// keyFor computes the storage key for one field of one block.
func (d *KVStoreFieldData) keyFor(b *Block, name string) (kvstore.Key, error) {
	field, ok := b.Class().Field(name)
	if !ok {
		return kvstore.Key{}, fmt.Errorf("%w: %s on %s", fields.ErrNoSuchField, name, b.Class().Name())
	}
	scope := field.Scope()
	sids := b.ScopeIds()

	key := kvstore.Key{
		Scope:       scope,
		FieldName:   name,
		BlockFamily: b.Class().Family(),
	}

	if scope.IsStructural() {
		key.BlockScopeID = sids.UsageID
		return key, nil
	}

	if scope.User == fields.UserScopeOne {
		key.UserID = sids.UserID
	}
	switch scope.Block {
	case fields.BlockScopeUsage:
		key.BlockScopeID = sids.UsageID
	case fields.BlockScopeDefinition:
		key.BlockScopeID = sids.DefID
	case fields.BlockScopeType:
		key.BlockScopeID = sids.BlockType
	case fields.BlockScopeAll:
		// no block axis
	}
	return key, nil
}

// --------------------------------------------------------------------------
// Interface Methods
// --------------------------------------------------------------------------

func (d *KVStoreFieldData) Get(b *Block, name string) (interface{}, error) {
	key, err := d.keyFor(b, name)
	if err != nil {
		return nil, err
	}
	return d.store.Get(key)
}

func (d *KVStoreFieldData) Set(b *Block, name string, value interface{}) error {
	key, err := d.keyFor(b, name)
	if err != nil {
		return err
	}
	return d.store.Set(key, value)
}

func (d *KVStoreFieldData) Delete(b *Block, name string) error {
	key, err := d.keyFor(b, name)
	if err != nil {
		return err
	}
	return d.store.Delete(key)
}

func (d *KVStoreFieldData) Has(b *Block, name string) (bool, error) {
	key, err := d.keyFor(b, name)
	if err != nil {
		return false, err
	}
	return d.store.Has(key)
}

func (d *KVStoreFieldData) Default(b *Block, name string) (interface{}, error) {
	key, err := d.keyFor(b, name)
	if err != nil {
		return nil, err
	}
	return d.store.Default(key)
}

func (d *KVStoreFieldData) SetMany(b *Block, updates map[string]interface{}) error {
	batch := make(map[kvstore.Key]interface{}, len(updates))
	for name, value := range updates {
		key, err := d.keyFor(b, name)
		if err != nil {
			return err
		}
		batch[key] = value
	}
	return d.store.SetMany(batch)
}
