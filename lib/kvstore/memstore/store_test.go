package memstore

import (
	"testing"

	"github.com/coursekit/coursekit/lib/kvstore"
	kvtesting "github.com/coursekit/coursekit/lib/kvstore/testing"
)

func Test(t *testing.T) {
	kvtesting.RunStoreTests(t, "MemStore", func() kvstore.Store {
		return New()
	})
}
