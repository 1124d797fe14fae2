package testing

import (
	"testing"

	"github.com/coursekit/coursekit/lib/fields"
	"github.com/coursekit/coursekit/lib/kvstore"
)

// StoreFactory is a function that creates a new instance of a Store
// implementation under test.
type StoreFactory func() kvstore.Store

// RunStoreTests runs a conformance test suite for a Store implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})
		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})
		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})
		t.Run("Default", func(t *testing.T) {
			testDefault(t, factory())
		})
		t.Run("SetMany", func(t *testing.T) {
			testSetMany(t, factory())
		})
		t.Run("KeyIsolation", func(t *testing.T) {
			testKeyIsolation(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func testKey(field string) kvstore.Key {
	return kvstore.Key{
		Scope:        fields.ScopeSettings,
		BlockScopeID: "usage-1",
		FieldName:    field,
		BlockFamily:  "xblock.v1",
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, store kvstore.Store) {
	key := testKey("points")

	if err := store.Set(key, 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != 42 {
		t.Errorf("Expected 42, got %v", value)
	}

	// Overwrite
	if err := store.Set(key, 43); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, _ = store.Get(key)
	if value != 43 {
		t.Errorf("Expected 43 after overwrite, got %v", value)
	}
}

func testHas(t *testing.T, store kvstore.Store) {
	key := testKey("title")

	ok, err := store.Has(key)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Errorf("Expected Has to be false for unset key")
	}

	if err := store.Set(key, "hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	ok, _ = store.Has(key)
	if !ok {
		t.Errorf("Expected Has to be true after Set")
	}
}

func testDelete(t *testing.T, store kvstore.Store) {
	key := testKey("notes")

	if err := store.Delete(key); !kvstore.IsNotFound(err) {
		t.Errorf("Expected NotFound when deleting unset key, got %v", err)
	}

	if err := store.Set(key, "x"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(key); !kvstore.IsNotFound(err) {
		t.Errorf("Expected NotFound after Delete, got %v", err)
	}
}

func testDefault(t *testing.T, store kvstore.Store) {
	key := testKey("weight")
	if _, err := store.Default(key); !kvstore.IsNotFound(err) {
		t.Errorf("Expected NotFound from Default, got %v", err)
	}
}

func testSetMany(t *testing.T, store kvstore.Store) {
	updates := map[kvstore.Key]interface{}{
		testKey("a"): 1,
		testKey("b"): "two",
		testKey("c"): []interface{}{3.0},
	}
	if err := store.SetMany(updates); err != nil {
		t.Fatalf("SetMany failed: %v", err)
	}
	for k, want := range updates {
		got, err := store.Get(k)
		if err != nil {
			t.Fatalf("Get after SetMany failed for %v: %v", k, err)
		}
		switch want.(type) {
		case []interface{}:
			// container identity is enough for this check
			if got == nil {
				t.Errorf("Expected %v for %v, got nil", want, k)
			}
		default:
			if got != want {
				t.Errorf("Expected %v for %v, got %v", want, k, got)
			}
		}
	}
}

// testKeyIsolation verifies that keys differing on any axis of the tuple do
// not collide.
func testKeyIsolation(t *testing.T, store kvstore.Store) {
	base := kvstore.Key{
		Scope:        fields.ScopeUserState,
		UserID:       "bob",
		BlockScopeID: "usage-1",
		FieldName:    "attempts",
		BlockFamily:  "xblock.v1",
	}
	variants := []kvstore.Key{base}

	k := base
	k.UserID = "alice"
	variants = append(variants, k)

	k = base
	k.BlockScopeID = "usage-2"
	variants = append(variants, k)

	k = base
	k.FieldName = "score"
	variants = append(variants, k)

	k = base
	k.Scope = fields.ScopePreferences
	variants = append(variants, k)

	k = base
	k.BlockFamily = "xblock_asides.v1"
	variants = append(variants, k)

	for i, key := range variants {
		if err := store.Set(key, i); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	for i, key := range variants {
		got, err := store.Get(key)
		if err != nil {
			t.Fatalf("Get failed for variant %d: %v", i, err)
		}
		if got != i {
			t.Errorf("Key collision: variant %d holds %v", i, got)
		}
	}
}
