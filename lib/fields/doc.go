// Package fields implements the typed, scoped field model used by pluggable
// content blocks. A field pairs a name with a storage scope and a pair of
// codecs: FromJSON/ToJSON for the storage representation and
// FromString/ToString for textual (XML attribute) serialization.
//
// The package focuses on:
//   - A closed set of storage scopes combining a user axis and a block axis
//   - Field descriptors for the common primitive and container types
//   - Defaulting semantics, including the deterministic UniqueID default
//   - Strict ("enforced") and lenient codec modes
//
// Key Components:
//
//   - ScopeIds: The immutable four-tuple (user, block type, definition, usage)
//     that identifies one block instance for storage purposes. Every default
//     computation and storage key derivation starts from a ScopeIds value.
//
//   - Scope: A tagged combination of a UserScope and a BlockScope. The
//     predefined scopes (Content, Settings, UserState, UserStateSummary,
//     Preferences, UserInfo) cover the product semantics; Children and Parent
//     are special scopes reserved for the block tree structure.
//
//   - Field: A descriptor created by one of the typed constructors (Integer,
//     Float, Boolean, String, XMLString, DateTime, List, Set, Dict, Reference,
//     ReferenceList, Any, Dynamic). Fields do not hold values; they describe
//     how values are converted, defaulted and where they are stored. Blocks
//     own the values, keyed by field name.
//
//   - Codec: The conversion strategy behind a field. Dynamic fields accept a
//     caller supplied Codec, which is how host applications attach custom
//     serialization without subclassing.
//
// Enforcement: a field constructed with EnforceType performs strict
// conversion and surfaces TypeError/ValueError style failures from its codec.
// Without EnforceType the original value is passed through unchanged on codec
// failure and a deprecation warning is logged.
package fields
