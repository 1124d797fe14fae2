package notify

import (
	"context"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// PurgeCutoffs selects which user notifications a purge removes. A nil
// member disables that side of the purge.
type PurgeCutoffs struct {
	// UnreadOlderThan removes unread notifications created before it.
	UnreadOlderThan *time.Time
	// ReadOlderThan removes read notifications created before it.
	ReadOlderThan *time.Time
}

// PurgeResult reports what a purge did.
type PurgeResult struct {
	Deleted  int64
	Archived int64
}

// Store is the persistence-and-query contract for user notifications.
// Implementations are process-concurrent: independent callers may invoke
// operations in parallel. Single-entity lookups fail with ErrItemNotFound;
// argument validation failures wrap ErrInvalidArgument; oversized bulk
// inserts fail with ErrBulkOperationTooLarge and insert nothing.
type Store interface {

	// --------------------------------------------------------------------------
	// Notification Types
	// --------------------------------------------------------------------------

	// SaveNotificationType upserts a type by name and refreshes the name
	// cache so subsequent reads never observe stale data.
	SaveNotificationType(ctx context.Context, nt *NotificationType) (*NotificationType, error)
	// GetNotificationType returns the type registered under name.
	GetNotificationType(ctx context.Context, name string) (*NotificationType, error)
	// GetAllNotificationTypes returns every registered type.
	GetAllNotificationTypes(ctx context.Context) ([]*NotificationType, error)

	// --------------------------------------------------------------------------
	// Messages
	// --------------------------------------------------------------------------

	// SaveNotificationMessage inserts when the id is zero, otherwise updates;
	// updating an unknown id fails with ErrItemNotFound.
	SaveNotificationMessage(ctx context.Context, msg *NotificationMessage) (*NotificationMessage, error)
	// GetNotificationMessageByID returns one message. With
	// Options.SelectRelated=false the message type is fetched lazily on
	// first access.
	GetNotificationMessageByID(ctx context.Context, id int64, opts *Options) (*NotificationMessage, error)

	// --------------------------------------------------------------------------
	// User Notifications
	// --------------------------------------------------------------------------

	// SaveUserNotification inserts when the id is zero, otherwise updates;
	// updating an unknown id fails with ErrItemNotFound.
	SaveUserNotification(ctx context.Context, un *UserNotification) (*UserNotification, error)
	// BulkCreateUserNotification persists all records in one round trip,
	// all-or-nothing. Inputs longer than the configured chunk size fail
	// with ErrBulkOperationTooLarge.
	BulkCreateUserNotification(ctx context.Context, uns []*UserNotification) error
	// GetNumNotificationsForUser counts the user's notifications matching
	// the filters.
	GetNumNotificationsForUser(ctx context.Context, userID int64, filters *Filters) (int, error)
	// GetNotificationsForUser returns the user's notifications matching the
	// filters, most recent first, honoring limit and offset.
	GetNotificationsForUser(ctx context.Context, userID int64, filters *Filters, opts *Options) ([]*UserNotification, error)
	// MarkUserNotificationsRead stamps ReadAt=now on every matching unread
	// notification. Idempotent.
	MarkUserNotificationsRead(ctx context.Context, userID int64, filters *Filters) error
	// PurgeExpiredNotifications removes notifications past their cutoffs,
	// first copying each removed row to the archive when archival is
	// enabled.
	PurgeExpiredNotifications(ctx context.Context, cutoffs PurgeCutoffs) (PurgeResult, error)
	// GetAllNamespaces returns the distinct namespaces currently in use.
	GetAllNamespaces(ctx context.Context) ([]string, error)

	// --------------------------------------------------------------------------
	// Timers
	// --------------------------------------------------------------------------

	// SaveNotificationTimer upserts a timer by name.
	SaveNotificationTimer(ctx context.Context, timer *NotificationCallbackTimer) (*NotificationCallbackTimer, error)
	// GetNotificationTimer returns the timer registered under name.
	GetNotificationTimer(ctx context.Context, name string) (*NotificationCallbackTimer, error)
	// GetAllActiveTimers returns active timers; unless includeExecuted is
	// set, only those that have not executed yet.
	GetAllActiveTimers(ctx context.Context, includeExecuted bool) ([]*NotificationCallbackTimer, error)

	// --------------------------------------------------------------------------
	// Preferences
	// --------------------------------------------------------------------------

	// SaveNotificationPreference upserts a preference declaration by name.
	SaveNotificationPreference(ctx context.Context, pref *NotificationPreference) (*NotificationPreference, error)
	// GetNotificationPreference returns the declaration registered under name.
	GetNotificationPreference(ctx context.Context, name string) (*NotificationPreference, error)
	// GetAllNotificationPreferences returns every declaration.
	GetAllNotificationPreferences(ctx context.Context) ([]*NotificationPreference, error)
	// SetUserPreference upserts one user's value for a preference.
	SetUserPreference(ctx context.Context, up *UserNotificationPreference) (*UserNotificationPreference, error)
	// GetUserPreference returns one user's value for a named preference.
	GetUserPreference(ctx context.Context, userID int64, name string) (*UserNotificationPreference, error)
	// GetAllUserPreferencesForUser returns every preference value of a user.
	GetAllUserPreferencesForUser(ctx context.Context, userID int64) ([]*UserNotificationPreference, error)
	// GetAllUserPreferencesWithName pages through every user holding the
	// named preference at the given value. Size is bounded by the store
	// configuration.
	GetAllUserPreferencesWithName(ctx context.Context, name, value string, size, offset int) ([]*UserNotificationPreference, error)
}

// ArchiveReader is the optional read surface over archived notifications.
// Stores configured with ArchiveEnabled implement it in addition to Store.
type ArchiveReader interface {
	// GetArchivedUserNotifications returns the archived rows for one user.
	GetArchivedUserNotifications(ctx context.Context, userID int64) ([]*UserNotificationArchive, error)
}
