package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScopeIds(userID, usageID string) ScopeIds {
	return NewScopeIds(userID, "problem", "def-1", usageID)
}

func TestDefaultIsDeepCopied(t *testing.T) {
	f := List("items", ScopeContent, Options{Default: []interface{}{"a"}})

	first := f.Default(testScopeIds("", "usage-1")).([]interface{})
	first[0] = "mutated"

	second := f.Default(testScopeIds("", "usage-1")).([]interface{})
	assert.Equal(t, "a", second[0])
}

func TestDefaultFunc(t *testing.T) {
	f := String("greeting", ScopeSettings, Options{
		Default:     "ignored",
		DefaultFunc: func(sids ScopeIds) interface{} { return "hello " + sids.UsageID },
	})
	assert.Equal(t, "hello usage-1", f.Default(testScopeIds("", "usage-1")))
}

func TestUniqueIDDefault(t *testing.T) {
	perUser := String("token", ScopeUserState, Options{UniqueID: true})
	shared := String("token", ScopeSettings, Options{UniqueID: true})

	// Deterministic and 32 hex characters long.
	id := perUser.Default(testScopeIds("alice", "usage-1")).(string)
	assert.Len(t, id, 32)
	assert.Equal(t, id, perUser.Default(testScopeIds("alice", "usage-1")))

	// Per-user scopes derive distinct ids per user.
	other := perUser.Default(testScopeIds("bob", "usage-1"))
	assert.NotEqual(t, id, other)

	// Shared scopes agree across users of the same usage.
	a := shared.Default(testScopeIds("alice", "usage-1"))
	b := shared.Default(testScopeIds("bob", "usage-1"))
	assert.Equal(t, a, b)

	// Different usages derive distinct ids.
	elsewhere := shared.Default(testScopeIds("alice", "usage-2"))
	assert.NotEqual(t, a, elsewhere)
}

func TestLenientPassthrough(t *testing.T) {
	lenient := Integer("count", ScopeSettings, Options{})
	strict := Integer("count", ScopeSettings, Options{EnforceType: true})

	// Without enforcement an unconvertible value passes through unchanged.
	got, err := lenient.FromJSON("not a number")
	require.NoError(t, err)
	assert.Equal(t, "not a number", got)

	_, err = strict.FromJSON("not a number")
	assert.ErrorIs(t, err, ErrBadValue)

	got, err = lenient.FromString("nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", got)
}

func TestDisplayNameFallback(t *testing.T) {
	named := String("title", ScopeSettings, Options{DisplayName: "Display Title"})
	assert.Equal(t, "Display Title", named.DisplayName())

	unnamed := String("title", ScopeSettings, Options{})
	assert.Equal(t, "title", unnamed.DisplayName())
}

func TestScopeStructural(t *testing.T) {
	assert.True(t, ScopeChildren.IsStructural())
	assert.True(t, ScopeParent.IsStructural())
	assert.False(t, ScopeSettings.IsStructural())
	assert.False(t, ScopeUserState.IsStructural())
}
