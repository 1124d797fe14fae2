package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/coursekit/coursekit/lib/fields"
	"github.com/coursekit/coursekit/lib/kvstore"
)

// --------------------------------------------------------------------------
// Block
// --------------------------------------------------------------------------

// Block is one instance of a class bound to a runtime, a field data adapter
// and a ScopeIds tuple. Field values are cached on first access and written
// back on Save; the dirty bookkeeping compares serialized snapshots so that
// writes which do not change the stored form are skipped.
type Block struct {
	class     *Class
	runtime   *Runtime
	fieldData FieldData
	scopeIDs  fields.ScopeIds

	cache map[string]interface{}
	dirty map[string]dirtyEntry
}

// dirtyEntry records the serialized form the field had when it was first
// touched. At save time the current serialized form is compared against it.
type dirtyEntry struct {
	baseline string
}

func newBlock(class *Class, rt *Runtime, fd FieldData, sids fields.ScopeIds) *Block {
	return &Block{
		class:     class,
		runtime:   rt,
		fieldData: fd,
		scopeIDs:  sids,
		cache:     map[string]interface{}{},
		dirty:     map[string]dirtyEntry{},
	}
}

func (b *Block) Class() *Class             { return b.class }
func (b *Block) Runtime() *Runtime         { return b.runtime }
func (b *Block) ScopeIds() fields.ScopeIds { return b.scopeIDs }

// --------------------------------------------------------------------------
// Field Access
// --------------------------------------------------------------------------

// serializedForm renders the comparable snapshot of a field value: its
// storage (ToJSON) representation encoded as canonical JSON text. Codecs
// whose two sides disagree (a value that round-trips to a different literal)
// are handled naturally: both the baseline and the save-time form go through
// the same serialization.
func serializedForm(f *fields.Field, value interface{}) (string, error) {
	j, err := f.ToJSON(value)
	if err != nil {
		return "", err
	}
	text, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("field %s is not serializable: %v", f.Name(), err)
	}
	return string(text), nil
}

// loadField pulls the current value of a field from storage (or defaults)
// without touching the cache.
func (b *Block) loadField(f *fields.Field) (interface{}, error) {
	raw, err := b.fieldData.Get(b, f.Name())
	if err == nil {
		return f.FromJSON(raw)
	}
	if !kvstore.IsNotFound(err) {
		return nil, err
	}
	// No stored value: try a storage-level default, then the field default.
	raw, err = b.fieldData.Default(b, f.Name())
	if err == nil {
		return f.FromJSON(raw)
	}
	if !kvstore.IsNotFound(err) {
		return nil, err
	}
	return f.Default(b.scopeIDs), nil
}

// touch ensures the field has a dirty entry with a baseline snapshot.
func (b *Block) touch(f *fields.Field, current interface{}) error {
	if _, done := b.dirty[f.Name()]; done {
		return nil
	}
	baseline, err := serializedForm(f, current)
	if err != nil {
		return err
	}
	b.dirty[f.Name()] = dirtyEntry{baseline: baseline}
	return nil
}

// GetField returns the value of a named field, reading through the cache.
// Reading marks the field dirty (with a baseline snapshot) so that mutations
// of container values are picked up at save time.
func (b *Block) GetField(name string) (interface{}, error) {
	f, ok := b.class.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", fields.ErrNoSuchField, name, b.class.Name())
	}
	if v, cached := b.cache[name]; cached {
		return v, nil
	}
	v, err := b.loadField(f)
	if err != nil {
		return nil, err
	}
	if err := b.touch(f, v); err != nil {
		return nil, err
	}
	b.cache[name] = v
	return v, nil
}

// SetField assigns a value to a named field. The value passes through the
// field codec (strictly when the field enforces its type). The field is
// marked dirty unconditionally; whether it enters the save set is decided at
// Save by comparing serialized forms.
func (b *Block) SetField(name string, value interface{}) error {
	f, ok := b.class.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s on %s", fields.ErrNoSuchField, name, b.class.Name())
	}
	converted, err := f.FromJSON(value)
	if err != nil {
		return err
	}
	if _, touched := b.dirty[name]; !touched {
		// Baseline is what storage currently holds (or the default), so that
		// assigning the default value produces no write.
		stored, err := b.loadField(f)
		if err != nil {
			return err
		}
		if err := b.touch(f, stored); err != nil {
			return err
		}
	}
	b.cache[name] = converted
	return nil
}

// DeleteField resets a field to its default, removing any stored value.
func (b *Block) DeleteField(name string) error {
	if _, ok := b.class.Field(name); !ok {
		return fmt.Errorf("%w: %s on %s", fields.ErrNoSuchField, name, b.class.Name())
	}
	if err := b.fieldData.Delete(b, name); err != nil && !kvstore.IsNotFound(err) {
		return err
	}
	delete(b.cache, name)
	delete(b.dirty, name)
	return nil
}

// IsSet reports whether the field has an explicitly stored value.
func (b *Block) IsSet(name string) (bool, error) {
	return b.fieldData.Has(b, name)
}

// DirtyFields returns the names of all fields touched since the last save.
func (b *Block) DirtyFields() []string {
	out := make([]string, 0, len(b.dirty))
	for name := range b.dirty {
		out = append(out, name)
	}
	return out
}

// Save persists every dirty field whose serialized form differs from its
// baseline snapshot, in one batch. Fields that are dirty but unchanged are
// dropped from the bookkeeping without a write.
func (b *Block) Save() error {
	toSave := map[string]interface{}{}
	for name, entry := range b.dirty {
		f, _ := b.class.Field(name)
		current, cached := b.cache[name]
		if !cached {
			continue
		}
		form, err := serializedForm(f, current)
		if err != nil {
			return err
		}
		if form != entry.baseline {
			j, err := f.ToJSON(current)
			if err != nil {
				return err
			}
			toSave[name] = j
		}
	}
	if len(toSave) > 0 {
		if err := b.fieldData.SetMany(b, toSave); err != nil {
			return err
		}
	}
	b.dirty = map[string]dirtyEntry{}
	return nil
}

// saveSet computes the field names Save would persist, without persisting.
// Used by tests and by diagnostic tooling.
func (b *Block) saveSet() ([]string, error) {
	var out []string
	for name, entry := range b.dirty {
		f, _ := b.class.Field(name)
		current, cached := b.cache[name]
		if !cached {
			continue
		}
		form, err := serializedForm(f, current)
		if err != nil {
			return nil, err
		}
		if form != entry.baseline {
			out = append(out, name)
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Tree Structure
// --------------------------------------------------------------------------

// Children returns the ordered usage ids of the block's children.
func (b *Block) Children() ([]string, error) {
	v, err := b.GetField(ChildrenFieldName)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	raw := v.([]interface{})
	out := make([]string, len(raw))
	for i, e := range raw {
		out[i] = e.(string)
	}
	return out, nil
}

// SetChildren replaces the ordered child list.
func (b *Block) SetChildren(usageIDs []string) error {
	raw := make([]interface{}, len(usageIDs))
	for i, id := range usageIDs {
		raw[i] = id
	}
	return b.SetField(ChildrenFieldName, raw)
}

// AppendChild appends one usage id to the child list.
func (b *Block) AppendChild(usageID string) error {
	children, err := b.Children()
	if err != nil {
		return err
	}
	return b.SetChildren(append(children, usageID))
}

// Parent returns the usage id of the parent block, or "" for a root.
func (b *Block) Parent() (string, error) {
	v, err := b.GetField(ParentFieldName)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return v.(string), nil
}

// SetParent records the parent usage id.
func (b *Block) SetParent(usageID string) error {
	return b.SetField(ParentFieldName, usageID)
}
