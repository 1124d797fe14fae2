package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIDManagerLifecycle(t *testing.T) {
	mgr := NewMemoryIDManager()

	defID, err := mgr.CreateDefinition("problem", "intro")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(defID, "def.problem.intro."))

	usageID, err := mgr.CreateUsage(defID)
	require.NoError(t, err)

	gotDef, err := mgr.GetDefinitionID(usageID)
	require.NoError(t, err)
	assert.Equal(t, defID, gotDef)

	blockType, err := mgr.GetBlockType(defID)
	require.NoError(t, err)
	assert.Equal(t, "problem", blockType)
}

func TestMemoryIDManagerUnknownIDs(t *testing.T) {
	mgr := NewMemoryIDManager()

	_, err := mgr.GetDefinitionID("usage.unknown")
	assert.ErrorIs(t, err, ErrNoSuchUsage)

	_, err = mgr.GetBlockType("def.unknown")
	assert.ErrorIs(t, err, ErrNoSuchDefinition)

	_, err = mgr.CreateUsage("def.unknown")
	assert.ErrorIs(t, err, ErrNoSuchDefinition)
}

func TestAsideIDDerivation(t *testing.T) {
	mgr := NewMemoryIDManager()

	defID, err := mgr.CreateDefinition("problem", "")
	require.NoError(t, err)
	usageID, err := mgr.CreateUsage(defID)
	require.NoError(t, err)

	asideDef, asideUsage, err := mgr.CreateAside(defID, usageID, "acid_aside")
	require.NoError(t, err)

	// Derivation is a pure function of its inputs.
	againDef, againUsage, err := mgr.CreateAside(defID, usageID, "acid_aside")
	require.NoError(t, err)
	assert.Equal(t, asideDef, againDef)
	assert.Equal(t, asideUsage, againUsage)

	// The derived ids round-trip back to their parts.
	gotUsage, err := mgr.GetUsageIDFromAside(asideUsage)
	require.NoError(t, err)
	assert.Equal(t, usageID, gotUsage)

	gotDef, err := mgr.GetDefinitionIDFromAside(asideDef)
	require.NoError(t, err)
	assert.Equal(t, defID, gotDef)

	asideType, err := mgr.GetAsideTypeFromUsage(asideUsage)
	require.NoError(t, err)
	assert.Equal(t, "acid_aside", asideType)

	asideType, err = mgr.GetAsideTypeFromDefinition(asideDef)
	require.NoError(t, err)
	assert.Equal(t, "acid_aside", asideType)

	// Different aside types derive different ids.
	otherDef, otherUsage, err := mgr.CreateAside(defID, usageID, "other_aside")
	require.NoError(t, err)
	assert.NotEqual(t, asideDef, otherDef)
	assert.NotEqual(t, asideUsage, otherUsage)
}

func TestAsideIDSplitRejectsPlainIDs(t *testing.T) {
	mgr := NewMemoryIDManager()

	_, err := mgr.GetUsageIDFromAside("usage.1")
	assert.ErrorIs(t, err, ErrNoSuchUsage)

	_, err = mgr.GetAsideTypeFromDefinition("def.problem.abc")
	assert.ErrorIs(t, err, ErrNoSuchDefinition)
}

func TestAsideStorageRediscovery(t *testing.T) {
	aside := NewAsideClass("notes")
	rt := New(Config{})
	rt.RegisterAsideClass(aside)

	b := newTestBlock(t, rt, NewClass("html"), "alice")

	asides, err := rt.Asides(b)
	require.NoError(t, err)
	require.Len(t, asides, 1)
	first := asides[0].ScopeIds()

	// A second discovery pass lands on the same scoped storage.
	asides, err = rt.Asides(b)
	require.NoError(t, err)
	require.Len(t, asides, 1)
	assert.Equal(t, first, asides[0].ScopeIds())
}
