// Package kvstore defines the storage contract beneath the scoped field
// system. It provides a unified Store interface over pluggable backends and a
// structured error type with typed return codes.
//
// The package focuses on:
//   - A unified interface (Store) for scoped field storage across backends
//   - A five-tuple Key derived from a field's scope and a block's ScopeIds
//   - Standardized not-found signalling so field defaults can kick in
//
// Key Components:
//
//   - Key: The storage tuple (scope, user id, block scope id, field name,
//     block family). A field's key is a deterministic function of the block's
//     ScopeIds and the field's declared scope; the derivation itself lives in
//     the runtime package's field data adapter.
//
//   - Store Interface: Get/Set/Delete/Has plus Default (backend-level
//     defaults) and SetMany (batched writes that same-process readers never
//     observe partially applied).
//
//   - Error System: KeyError pairs a RetCode with the offending key. The
//     IsNotFound helper is the standard way to detect "fall back to the field
//     default".
//
// Implementations:
//
//	Two in-memory implementations ship with the module. "memstore" is the
//	reference backend for tests and single-process embedding; "shardstore"
//	hashes keys across per-CPU lock-guarded shards and is the default for
//	runtimes serving concurrent requests. Persistent backends implement the
//	same interface; the reusable conformance suite in the "testing"
//	subpackage verifies any implementation.
package kvstore
