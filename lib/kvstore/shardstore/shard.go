package shardstore

import (
	"sync"

	"github.com/coursekit/coursekit/lib/kvstore"
)

// shard is one lock-guarded partition of the key space.
type shard struct {
	mu   sync.RWMutex
	data map[kvstore.Key]interface{}
}

func newShard() *shard {
	return &shard{data: map[kvstore.Key]interface{}{}}
}

func (s *shard) get(key kvstore.Key) (interface{}, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, kvstore.NewKeyError(kvstore.RetCNotFound, key, "no value stored")
	}
	return v, nil
}

func (s *shard) set(key kvstore.Key, value interface{}) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *shard) delete(key kvstore.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return kvstore.NewKeyError(kvstore.RetCNotFound, key, "no value stored")
	}
	delete(s.data, key)
	return nil
}

func (s *shard) has(key kvstore.Key) bool {
	s.mu.RLock()
	_, ok := s.data[key]
	s.mu.RUnlock()
	return ok
}
