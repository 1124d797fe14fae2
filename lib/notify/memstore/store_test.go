package memstore

import (
	"testing"

	"github.com/coursekit/coursekit/lib/notify"
	dbtesting "github.com/coursekit/coursekit/lib/notify/testing"
)

func TestMemStore(t *testing.T) {
	dbtesting.RunStoreTests(t, "MemStore", func() notify.Store {
		return New(notify.Config{ArchiveEnabled: true}, nil)
	})
}
