package notify

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Store Metrics
// --------------------------------------------------------------------------

// Store implementations report their write traffic through these helpers so
// operators get one consistent metric surface regardless of backend.

// CountSaved increments the save counter for an entity kind
// ("type", "message", "user_notification", "timer", "preference").
func CountSaved(entity string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`coursekit_notify_saves_total{entity=%q}`, entity)).Inc()
}

// CountBulkInserted adds the size of a successful bulk insert.
func CountBulkInserted(n int) {
	metrics.GetOrCreateCounter(`coursekit_notify_bulk_inserted_total`).Add(n)
}

// CountMarkedRead adds the number of notifications flipped to read.
func CountMarkedRead(n int) {
	metrics.GetOrCreateCounter(`coursekit_notify_marked_read_total`).Add(n)
}

// CountPurged adds purge traffic (rows deleted, rows archived).
func CountPurged(deleted, archived int64) {
	metrics.GetOrCreateCounter(`coursekit_notify_purged_total`).Add(int(deleted))
	metrics.GetOrCreateCounter(`coursekit_notify_archived_total`).Add(int(archived))
}
