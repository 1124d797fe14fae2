package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit/lib/fields"
)

func testProblemClass() *Class {
	c := NewClass("problem")
	c.AddField(fields.String("title", fields.ScopeSettings, fields.Options{Default: "Untitled"}))
	c.AddField(fields.Integer("attempts", fields.ScopeUserState, fields.Options{Default: 0}))
	c.AddField(fields.List("tags", fields.ScopeSettings, fields.Options{Default: []interface{}{}}))
	return c
}

func newTestBlock(t *testing.T, rt *Runtime, class *Class, userID string) *Block {
	t.Helper()
	rt.RegisterBlockClass(class)
	defID, err := rt.IDGenerator().CreateDefinition(class.Name(), "")
	require.NoError(t, err)
	usageID, err := rt.IDGenerator().CreateUsage(defID)
	require.NoError(t, err)
	b, err := rt.ConstructBlock(class.Name(), fields.NewScopeIds(userID, class.Name(), defID, usageID))
	require.NoError(t, err)
	return b
}

func TestGetFieldDefault(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "alice")

	v, err := b.GetField("title")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", v)

	_, err = b.GetField("no_such_field")
	assert.ErrorIs(t, err, fields.ErrNoSuchField)
}

func TestSetFieldPersistsAcrossInstances(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "alice")

	require.NoError(t, b.SetField("title", "Quiz 1"))
	require.NoError(t, b.Save())

	reloaded, err := rt.GetBlockForUser(b.ScopeIds().UsageID, "alice")
	require.NoError(t, err)
	v, err := reloaded.GetField("title")
	require.NoError(t, err)
	assert.Equal(t, "Quiz 1", v)
}

func TestSetDefaultValueWritesNothing(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "alice")

	// Assigning the default must not create a stored value.
	require.NoError(t, b.SetField("title", "Untitled"))
	names, err := b.saveSet()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, b.Save())
	set, err := b.IsSet("title")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestReadOnlyFieldsWriteNothing(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "alice")

	_, err := b.GetField("title")
	require.NoError(t, err)
	_, err = b.GetField("attempts")
	require.NoError(t, err)

	// Reading marks fields dirty, but unchanged values never reach storage.
	assert.NotEmpty(t, b.DirtyFields())
	names, err := b.saveSet()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestContainerMutationIsSaved(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "alice")

	v, err := b.GetField("tags")
	require.NoError(t, err)
	tags := v.([]interface{})
	b.cache["tags"] = append(tags, "algebra")

	names, err := b.saveSet()
	require.NoError(t, err)
	assert.Equal(t, []string{"tags"}, names)

	require.NoError(t, b.Save())
	set, err := b.IsSet("tags")
	require.NoError(t, err)
	assert.True(t, set)
}

// splitCodec stores a list as a comma-joined string. Its two sides disagree
// on purpose: the application value is a slice, the stored form a string.
type splitCodec struct{}

func (splitCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string:
		if tv == "" {
			return []interface{}{}, nil
		}
		parts := strings.Split(tv, ",")
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case []interface{}:
		return tv, nil
	default:
		return nil, fields.ErrBadType
	}
}

func (splitCodec) ToJSON(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	lst := v.([]interface{})
	parts := make([]string, len(lst))
	for i, e := range lst {
		parts[i] = e.(string)
	}
	return strings.Join(parts, ","), nil
}

func (c splitCodec) FromString(s string) (interface{}, error) { return c.FromJSON(s) }

func (c splitCodec) ToString(v interface{}) (string, error) {
	j, err := c.ToJSON(v)
	if err != nil {
		return "", err
	}
	if j == nil {
		return "", nil
	}
	return j.(string), nil
}

func TestAsymmetricCodecReadDoesNotWrite(t *testing.T) {
	c := NewClass("asym")
	c.AddField(fields.Dynamic("parts", fields.ScopeSettings, splitCodec{},
		fields.Options{Default: []interface{}{}}))

	rt := New(Config{})
	b := newTestBlock(t, rt, c, "")

	require.NoError(t, b.SetField("parts", "a,b"))
	require.NoError(t, b.Save())

	// Reading converts the stored string to a slice; saving without changes
	// must not rewrite the field even though the in-memory shape differs
	// from the stored one.
	reloaded, err := rt.GetBlockForUser(b.ScopeIds().UsageID, "")
	require.NoError(t, err)
	v, err := reloaded.GetField("parts")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, v)

	names, err := reloaded.saveSet()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeleteFieldRestoresDefault(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "alice")

	require.NoError(t, b.SetField("title", "Quiz 1"))
	require.NoError(t, b.Save())
	set, _ := b.IsSet("title")
	require.True(t, set)

	require.NoError(t, b.DeleteField("title"))
	set, err := b.IsSet("title")
	require.NoError(t, err)
	assert.False(t, set)

	v, err := b.GetField("title")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", v)
}

func TestUserStateIsolation(t *testing.T) {
	rt := New(Config{})
	class := testProblemClass()
	b := newTestBlock(t, rt, class, "alice")

	require.NoError(t, b.SetField("attempts", 3))
	require.NoError(t, b.Save())

	// The same usage seen by another user has its own user state but shares
	// settings.
	require.NoError(t, b.SetField("title", "Shared"))
	require.NoError(t, b.Save())

	other, err := rt.GetBlockForUser(b.ScopeIds().UsageID, "bob")
	require.NoError(t, err)
	attempts, err := other.GetField("attempts")
	require.NoError(t, err)
	assert.Equal(t, 0, attempts)
	title, err := other.GetField("title")
	require.NoError(t, err)
	assert.Equal(t, "Shared", title)
}

func TestChildrenAndParent(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, testProblemClass(), "")

	children, err := b.Children()
	require.NoError(t, err)
	assert.Empty(t, children)

	require.NoError(t, b.AppendChild("usage.10"))
	require.NoError(t, b.AppendChild("usage.11"))
	children, err = b.Children()
	require.NoError(t, err)
	assert.Equal(t, []string{"usage.10", "usage.11"}, children)

	parent, err := b.Parent()
	require.NoError(t, err)
	assert.Empty(t, parent)
	require.NoError(t, b.SetParent("usage.1"))
	parent, err = b.Parent()
	require.NoError(t, err)
	assert.Equal(t, "usage.1", parent)
}
