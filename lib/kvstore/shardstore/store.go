// Package shardstore provides a sharded in-memory implementation of the
// kvstore.Store interface. Keys are hashed across a fixed set of shards, each
// guarded by its own lock, so concurrent access to unrelated blocks rarely
// contends. It is the backend of choice for hosts running many goroutines
// against one runtime.
package shardstore

import (
	"hash/fnv"
	"runtime"
	"sort"

	"github.com/coursekit/coursekit/lib/kvstore"
)

// Options configures the store during initialization.
type Options struct {
	// NumShards is the number of shards (0 = one per CPU).
	NumShards int
}

type storeImpl struct {
	shards []*shard
}

// New creates a sharded store.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization; the returned store is safe for concurrent use.
func New(opts *Options) kvstore.Store {
	numShards := runtime.NumCPU()
	if opts != nil && opts.NumShards > 0 {
		numShards = opts.NumShards
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = newShard()
	}
	return &storeImpl{shards: shards}
}

// shardIndex hashes the full key tuple to pick a shard. Every axis of the key
// participates so values of one block spread across shards no worse than
// values of many blocks.
func (s *storeImpl) shardIndex(key kvstore.Key) int {
	h := fnv.New64a()
	h.Write([]byte(key.Scope.String()))
	h.Write([]byte{0})
	h.Write([]byte(key.UserID))
	h.Write([]byte{0})
	h.Write([]byte(key.BlockScopeID))
	h.Write([]byte{0})
	h.Write([]byte(key.FieldName))
	h.Write([]byte{0})
	h.Write([]byte(key.BlockFamily))
	return int(h.Sum64() % uint64(len(s.shards)))
}

func (s *storeImpl) shardFor(key kvstore.Key) *shard {
	return s.shards[s.shardIndex(key)]
}

func (s *storeImpl) Get(key kvstore.Key) (interface{}, error) {
	return s.shardFor(key).get(key)
}

func (s *storeImpl) Set(key kvstore.Key, value interface{}) error {
	s.shardFor(key).set(key, value)
	return nil
}

func (s *storeImpl) Delete(key kvstore.Key) error {
	return s.shardFor(key).delete(key)
}

func (s *storeImpl) Has(key kvstore.Key) (bool, error) {
	return s.shardFor(key).has(key), nil
}

// Default reports no storage-level defaults; field defaults are the caller's
// concern.
func (s *storeImpl) Default(key kvstore.Key) (interface{}, error) {
	return nil, kvstore.NewKeyError(kvstore.RetCNotFound, key, "no storage default")
}

// SetMany holds the locks of all involved shards for the duration of the
// batch, so readers never observe it partially applied. Locks are acquired in
// shard order to rule out deadlock between concurrent batches.
func (s *storeImpl) SetMany(updates map[kvstore.Key]interface{}) error {
	grouped := make(map[int]map[kvstore.Key]interface{})
	for key, value := range updates {
		idx := s.shardIndex(key)
		if grouped[idx] == nil {
			grouped[idx] = map[kvstore.Key]interface{}{}
		}
		grouped[idx][key] = value
	}

	indices := make([]int, 0, len(grouped))
	for idx := range grouped {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		s.shards[idx].mu.Lock()
	}
	defer func() {
		for _, idx := range indices {
			s.shards[idx].mu.Unlock()
		}
	}()

	for _, idx := range indices {
		sh := s.shards[idx]
		for k, v := range grouped[idx] {
			sh.data[k] = v
		}
	}
	return nil
}
