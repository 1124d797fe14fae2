package memstore

import (
	"sync"

	"github.com/coursekit/coursekit/lib/kvstore"
	"github.com/puzpuzpuz/xsync/v3"
)

// storeImpl is the in-memory Store backend. Reads go through a concurrent
// map; SetMany holds the batch lock so a batch becomes visible atomically
// with respect to other writers in the same process.
type storeImpl struct {
	data    *xsync.MapOf[kvstore.Key, interface{}]
	batchMu sync.Mutex
}

// New creates a new in-memory store instance. This backend is not persistent
// and only works within a single process.
func New() kvstore.Store {
	return &storeImpl{
		data: xsync.NewMapOf[kvstore.Key, interface{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kvstore/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key kvstore.Key) (interface{}, error) {
	if v, ok := s.data.Load(key); ok {
		return v, nil
	}
	return nil, kvstore.NewKeyError(kvstore.RetCNotFound, key, "no value stored")
}

func (s *storeImpl) Set(key kvstore.Key, value interface{}) error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.data.Store(key, value)
	return nil
}

func (s *storeImpl) Delete(key kvstore.Key) error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if _, ok := s.data.LoadAndDelete(key); !ok {
		return kvstore.NewKeyError(kvstore.RetCNotFound, key, "no value stored")
	}
	return nil
}

func (s *storeImpl) Has(key kvstore.Key) (bool, error) {
	_, ok := s.data.Load(key)
	return ok, nil
}

func (s *storeImpl) Default(key kvstore.Key) (interface{}, error) {
	// The in-memory backend has no backend-level defaults; the caller falls
	// back to the field's declared default.
	return nil, kvstore.NewKeyError(kvstore.RetCNotFound, key, "no backend default")
}

func (s *storeImpl) SetMany(updates map[kvstore.Key]interface{}) error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	for k, v := range updates {
		s.data.Store(k, v)
	}
	return nil
}
