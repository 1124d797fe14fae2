package shardstore

import (
	"testing"

	"github.com/coursekit/coursekit/lib/kvstore"
	kvtesting "github.com/coursekit/coursekit/lib/kvstore/testing"
)

func Test(t *testing.T) {
	kvtesting.RunStoreTests(t, "ShardStore", func() kvstore.Store {
		return New(nil)
	})
}

// TestSingleShard exercises the degenerate configuration where every key
// lands in the same shard.
func TestSingleShard(t *testing.T) {
	kvtesting.RunStoreTests(t, "SingleShard", func() kvstore.Store {
		return New(&Options{NumShards: 1})
	})
}
