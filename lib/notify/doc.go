// Package notify defines the user-notifications store: entity value objects,
// the persistence-and-query contract, filter/option types and the purge
// worker. Storage backends live in subpackages and are interchangeable.
//
// The package focuses on:
//   - Value-object entities; the store never exposes its storage schema
//   - Filtered counts and paginated reads, most-recent first
//   - Bulk fan-out inserts with an enforced size ceiling
//   - Read/unread state transitions and TTL-based purging with archival
//   - Write-through, name-invalidated caching of types and preferences
//
// Key Components:
//
//   - Store Interface: Every operation of the contract, context-aware. A
//     publisher saves a NotificationMessage once and fans it out with
//     BulkCreateUserNotification; consumers page through
//     GetNotificationsForUser and flip state with MarkUserNotificationsRead;
//     an external scheduler reads NotificationCallbackTimer rows.
//
//   - Filters/Options: The query surface. Read/unread are tri-stated by a
//     pair of booleans (both true = unfiltered; both false is invalid);
//     namespace, type name and an inclusive created range combine with AND.
//     Limits are bounded by the store configuration.
//
//   - Error System: ErrItemNotFound for single-entity lookups,
//     ErrBulkOperationTooLarge for oversized bulk inserts and
//     ErrInvalidArgument for contradictory filters or out-of-range sizes.
//     All other failures are backend errors and propagate wrapped.
//
//   - PurgeWorker: TTL-driven chunked removal of read/unread notifications
//     with optional archival, configurable chunk size and inter-chunk pause.
//
// Implementations:
//
//	The in-memory implementation ("memstore" subpackage) backs tests and
//	single-process embedding. The gorm-backed implementation ("sqlstore")
//	persists to any injected gorm dialector (sqlite in tests). The
//	conformance suite in the "testing" subpackage runs against both.
package notify
