package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit/lib/fields"
)

func taggingMixin() *Mixin {
	m := NewMixin("tagging")
	m.AddField(fields.List("mixin_tags", fields.ScopeSettings, fields.Options{Default: []interface{}{}}))
	m.AddView("tag_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("tags"), nil
	})
	return m
}

func TestMixAddsContributions(t *testing.T) {
	mixologist := NewMixologist(taggingMixin())
	base := NewClass("problem")

	mixed := mixologist.Mix(base)
	_, ok := mixed.Field("mixin_tags")
	assert.True(t, ok)
	_, ok = mixed.views["tag_view"]
	assert.True(t, ok)

	// The base class is untouched.
	_, ok = base.Field("mixin_tags")
	assert.False(t, ok)
	assert.Same(t, base, mixed.Unmixed())
}

func TestMixIsCached(t *testing.T) {
	mixologist := NewMixologist(taggingMixin())
	base := NewClass("problem")

	first := mixologist.Mix(base)
	second := mixologist.Mix(base)
	assert.Same(t, first, second)

	// A different base produces a different composition.
	other := mixologist.Mix(NewClass("html"))
	assert.NotSame(t, first, other)
}

func TestMixWithoutMixinsReturnsBase(t *testing.T) {
	mixologist := NewMixologist()
	base := NewClass("problem")
	assert.Same(t, base, mixologist.Mix(base))
}

func TestRemixPreservesExistingMixins(t *testing.T) {
	first := NewMixologist(taggingMixin())
	base := NewClass("problem")
	mixed := first.Mix(base)
	require.Len(t, mixed.Mixins(), 1)

	extra := NewMixin("extra")
	extra.AddField(fields.String("extra_field", fields.ScopeSettings, fields.Options{}))
	second := NewMixologist(extra)

	remixed := second.Mix(mixed)
	assert.Len(t, remixed.Mixins(), 2)
	_, ok := remixed.Field("mixin_tags")
	assert.True(t, ok)
	_, ok = remixed.Field("extra_field")
	assert.True(t, ok)
	assert.Same(t, base, remixed.Unmixed())

	// Mixing again with a duplicate mixin changes nothing.
	again := first.Mix(remixed)
	assert.Len(t, again.Mixins(), 2)
}

func TestMixinNeverOverridesBase(t *testing.T) {
	base := NewClass("problem")
	base.AddField(fields.String("title", fields.ScopeSettings, fields.Options{Default: "base"}))
	base.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("base view"), nil
	})

	m := NewMixin("override_attempt")
	m.AddField(fields.Integer("title", fields.ScopeSettings, fields.Options{Default: 1}))
	m.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("mixin view"), nil
	})

	mixed := NewMixologist(m).Mix(base)
	f, ok := mixed.Field("title")
	require.True(t, ok)
	assert.Equal(t, "String", f.TypeName())

	frag, err := mixed.views["student_view"](nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "base view", frag.Content)
}
