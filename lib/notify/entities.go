package notify

import (
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Notification Types
// --------------------------------------------------------------------------

// NotificationType describes one kind of notification: how it is rendered
// and with what static context. Types are immutable after creation and
// cached by name inside the store.
type NotificationType struct {
	Name            string
	Renderer        string
	RendererContext map[string]interface{}
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// NotificationMessage is the payload published once per event. Fan-out to
// users happens via UserNotification rows referencing the message.
type NotificationMessage struct {
	ID           int64
	TypeName     string
	Namespace    string
	Payload      map[string]interface{}
	ResolveLinks map[string]interface{}
	ObjectID     string
	Created      time.Time

	typeOnce   sync.Once
	loadedType *NotificationType
	typeErr    error
	typeLoader func() (*NotificationType, error)
}

// Type returns the message's NotificationType. When the message was loaded
// without its related type (SelectRelated=false) the type is fetched lazily
// on first access and memoized.
func (m *NotificationMessage) Type() (*NotificationType, error) {
	m.typeOnce.Do(func() {
		if m.loadedType != nil || m.typeLoader == nil {
			return
		}
		m.loadedType, m.typeErr = m.typeLoader()
	})
	return m.loadedType, m.typeErr
}

// SetType attaches an eagerly loaded type.
func (m *NotificationMessage) SetType(t *NotificationType) {
	m.loadedType = t
}

// SetTypeLoader installs the lazy loader used by Type. Store implementations
// call this when loading without select-related.
func (m *NotificationMessage) SetTypeLoader(loader func() (*NotificationType, error)) {
	m.typeLoader = loader
}

// --------------------------------------------------------------------------
// User Notifications
// --------------------------------------------------------------------------

// UserNotification is one user's copy of a message. Read state is carried by
// ReadAt: the notification is read iff ReadAt is non-nil.
type UserNotification struct {
	ID      int64
	UserID  int64
	MsgID   int64
	Msg     *NotificationMessage
	Created time.Time
	ReadAt  *time.Time
}

// IsRead reports the read state.
func (un *UserNotification) IsRead() bool { return un.ReadAt != nil }

// UserNotificationArchive is the archived copy of a purged UserNotification.
// It carries the same essential fields.
type UserNotificationArchive struct {
	ID      int64
	UserID  int64
	MsgID   int64
	Created time.Time
	ReadAt  *time.Time
}

// --------------------------------------------------------------------------
// Timers
// --------------------------------------------------------------------------

// NotificationCallbackTimer is a passive scheduling record read by an
// external scheduler; the store itself never fires callbacks. The name is
// the primary key. A timer is pending while it is active and unexecuted.
type NotificationCallbackTimer struct {
	Name           string
	CallbackAt     time.Time
	ClassName      string
	Context        map[string]interface{}
	IsActive       bool
	PeriodicityMin int
	ExecutedAt     *time.Time
	ErrMsg         string
}

// IsPending reports whether the timer is active and has not yet executed.
func (t *NotificationCallbackTimer) IsPending() bool {
	return t.IsActive && t.ExecutedAt == nil
}

// --------------------------------------------------------------------------
// Preferences
// --------------------------------------------------------------------------

// NotificationPreference declares one tunable preference, unique by name.
type NotificationPreference struct {
	Name               string
	DisplayName        string
	DisplayDescription string
}

// UserNotificationPreference is one user's value for a preference, unique by
// (user, preference name).
type UserNotificationPreference struct {
	UserID     int64
	Preference *NotificationPreference
	Value      string
}
