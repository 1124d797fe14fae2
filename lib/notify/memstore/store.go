package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coursekit/coursekit/lib/logger"
	"github.com/coursekit/coursekit/lib/notify"
)

// storeImpl is the in-memory notify.Store backend. One mutex guards all
// tables; per-operation copies keep callers from aliasing store state.
type storeImpl struct {
	cfg notify.Config
	log *logger.Logger

	mu         sync.RWMutex
	types      map[string]*notify.NotificationType
	messages   map[int64]*notify.NotificationMessage
	userNotifs map[int64]*notify.UserNotification
	archive    []*notify.UserNotificationArchive
	timers     map[string]*notify.NotificationCallbackTimer
	prefs      map[string]*notify.NotificationPreference
	userPrefs  map[userPrefKey]*notify.UserNotificationPreference

	msgSerial int64
	unSerial  int64

	typeCache *notify.NameCache[*notify.NotificationType]
	prefCache *notify.NameCache[*notify.NotificationPreference]
}

type userPrefKey struct {
	userID int64
	name   string
}

// New creates a new in-memory notification store. This backend only works
// within a single process and is the reference implementation for tests.
func New(cfg notify.Config, log *logger.Logger) notify.Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &storeImpl{
		cfg:        cfg.WithDefaults(),
		log:        log.With("pkg", "notify.memstore"),
		types:      map[string]*notify.NotificationType{},
		messages:   map[int64]*notify.NotificationMessage{},
		userNotifs: map[int64]*notify.UserNotification{},
		timers:     map[string]*notify.NotificationCallbackTimer{},
		prefs:      map[string]*notify.NotificationPreference{},
		userPrefs:  map[userPrefKey]*notify.UserNotificationPreference{},
		typeCache:  notify.NewNameCache[*notify.NotificationType](),
		prefCache:  notify.NewNameCache[*notify.NotificationPreference](),
	}
}

// --------------------------------------------------------------------------
// Copy Helpers
// --------------------------------------------------------------------------

// Entities are copied on the way in and out. NotificationMessage is rebuilt
// field by field because it embeds lazy-load state that must not be shared.

func cloneType(nt *notify.NotificationType) *notify.NotificationType {
	if nt == nil {
		return nil
	}
	out := *nt
	return &out
}

func cloneMessage(m *notify.NotificationMessage) *notify.NotificationMessage {
	if m == nil {
		return nil
	}
	return &notify.NotificationMessage{
		ID:           m.ID,
		TypeName:     m.TypeName,
		Namespace:    m.Namespace,
		Payload:      m.Payload,
		ResolveLinks: m.ResolveLinks,
		ObjectID:     m.ObjectID,
		Created:      m.Created,
	}
}

func cloneUserNotification(un *notify.UserNotification) *notify.UserNotification {
	if un == nil {
		return nil
	}
	out := &notify.UserNotification{
		ID:      un.ID,
		UserID:  un.UserID,
		MsgID:   un.MsgID,
		Created: un.Created,
	}
	if un.ReadAt != nil {
		t := *un.ReadAt
		out.ReadAt = &t
	}
	return out
}

func cloneTimer(t *notify.NotificationCallbackTimer) *notify.NotificationCallbackTimer {
	if t == nil {
		return nil
	}
	out := *t
	if t.ExecutedAt != nil {
		e := *t.ExecutedAt
		out.ExecutedAt = &e
	}
	return &out
}

func clonePref(p *notify.NotificationPreference) *notify.NotificationPreference {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func cloneUserPref(up *notify.UserNotificationPreference) *notify.UserNotificationPreference {
	if up == nil {
		return nil
	}
	out := *up
	out.Preference = clonePref(up.Preference)
	return &out
}

// --------------------------------------------------------------------------
// Notification Types
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationType(_ context.Context, nt *notify.NotificationType) (*notify.NotificationType, error) {
	if nt.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	stored := cloneType(nt)

	s.mu.Lock()
	// Invalidate before the write so a concurrent reader re-fetches rather
	// than serving the entry being replaced.
	s.typeCache.Invalidate(nt.Name)
	s.types[nt.Name] = stored
	s.typeCache.Put(nt.Name, stored)
	s.mu.Unlock()

	notify.CountSaved("type")
	return cloneType(stored), nil
}

func (s *storeImpl) GetNotificationType(_ context.Context, name string) (*notify.NotificationType, error) {
	if cached, ok := s.typeCache.Get(name); ok {
		return cloneType(cached), nil
	}
	s.mu.RLock()
	nt, ok := s.types[name]
	s.mu.RUnlock()
	if !ok {
		return nil, notify.NewItemNotFound("notification type", name)
	}
	s.typeCache.Put(name, nt)
	return cloneType(nt), nil
}

func (s *storeImpl) GetAllNotificationTypes(_ context.Context) ([]*notify.NotificationType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*notify.NotificationType, 0, len(s.types))
	for _, nt := range s.types {
		out = append(out, cloneType(nt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationMessage(_ context.Context, msg *notify.NotificationMessage) (*notify.NotificationMessage, error) {
	stored := cloneMessage(msg)

	s.mu.Lock()
	if stored.ID == 0 {
		s.msgSerial++
		stored.ID = s.msgSerial
		if stored.Created.IsZero() {
			stored.Created = time.Now().UTC()
		}
	} else if _, ok := s.messages[stored.ID]; !ok {
		s.mu.Unlock()
		return nil, notify.NewItemNotFound("notification message", stored.ID)
	}
	s.messages[stored.ID] = stored
	s.mu.Unlock()

	notify.CountSaved("message")
	return cloneMessage(stored), nil
}

func (s *storeImpl) GetNotificationMessageByID(ctx context.Context, id int64, opts *notify.Options) (*notify.NotificationMessage, error) {
	s.mu.RLock()
	stored, ok := s.messages[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notify.NewItemNotFound("notification message", id)
	}

	out := cloneMessage(stored)
	s.attachType(ctx, out, opts.SelectRelatedFlag())
	return out, nil
}

// attachType resolves the message's type eagerly or installs a lazy loader.
func (s *storeImpl) attachType(ctx context.Context, msg *notify.NotificationMessage, eager bool) {
	if msg.TypeName == "" {
		return
	}
	if eager {
		if nt, err := s.GetNotificationType(ctx, msg.TypeName); err == nil {
			msg.SetType(nt)
		}
		return
	}
	name := msg.TypeName
	msg.SetTypeLoader(func() (*notify.NotificationType, error) {
		return s.GetNotificationType(context.Background(), name)
	})
}

// --------------------------------------------------------------------------
// User Notifications
// --------------------------------------------------------------------------

func (s *storeImpl) SaveUserNotification(_ context.Context, un *notify.UserNotification) (*notify.UserNotification, error) {
	stored := cloneUserNotification(un)

	s.mu.Lock()
	if stored.ID == 0 {
		s.unSerial++
		stored.ID = s.unSerial
		if stored.Created.IsZero() {
			stored.Created = time.Now().UTC()
		}
	} else if _, ok := s.userNotifs[stored.ID]; !ok {
		s.mu.Unlock()
		return nil, notify.NewItemNotFound("user notification", stored.ID)
	}
	s.userNotifs[stored.ID] = stored
	s.mu.Unlock()

	notify.CountSaved("user_notification")
	return cloneUserNotification(stored), nil
}

func (s *storeImpl) BulkCreateUserNotification(_ context.Context, uns []*notify.UserNotification) error {
	if err := s.cfg.CheckBulkSize(len(uns)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// All validation happens before the first insert so the batch is
	// all-or-nothing.
	now := time.Now().UTC()
	for _, un := range uns {
		stored := cloneUserNotification(un)
		s.unSerial++
		stored.ID = s.unSerial
		if stored.Created.IsZero() {
			stored.Created = now
		}
		s.userNotifs[stored.ID] = stored
	}
	notify.CountBulkInserted(len(uns))
	return nil
}

// matches applies the filters to one row. The caller holds the read lock
// (the message table is consulted for namespace/type filters).
func (s *storeImpl) matches(un *notify.UserNotification, filters *notify.Filters) bool {
	read, unread := filters.ReadFlags()
	if un.IsRead() && !read {
		return false
	}
	if !un.IsRead() && !unread {
		return false
	}
	if filters == nil {
		return true
	}
	if filters.Namespace != "" || filters.TypeName != "" {
		msg, ok := s.messages[un.MsgID]
		if !ok {
			return false
		}
		if filters.Namespace != "" && msg.Namespace != filters.Namespace {
			return false
		}
		if filters.TypeName != "" && msg.TypeName != filters.TypeName {
			return false
		}
	}
	if filters.StartDate != nil && un.Created.Before(*filters.StartDate) {
		return false
	}
	if filters.EndDate != nil && un.Created.After(*filters.EndDate) {
		return false
	}
	return true
}

// collectForUser returns the user's matching rows, most recent first. The
// caller must not hold the lock.
func (s *storeImpl) collectForUser(userID int64, filters *notify.Filters) ([]*notify.UserNotification, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*notify.UserNotification
	for _, un := range s.userNotifs {
		if un.UserID != userID {
			continue
		}
		if s.matches(un, filters) {
			out = append(out, un)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *storeImpl) GetNumNotificationsForUser(_ context.Context, userID int64, filters *notify.Filters) (int, error) {
	matched, err := s.collectForUser(userID, filters)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *storeImpl) GetNotificationsForUser(ctx context.Context, userID int64, filters *notify.Filters, opts *notify.Options) ([]*notify.UserNotification, error) {
	var limit, offset int
	if opts != nil {
		limit, offset = opts.Limit, opts.Offset
	}
	resolved, err := s.cfg.ResolveLimit(limit)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, notify.ErrInvalidArgument
	}

	matched, err := s.collectForUser(userID, filters)
	if err != nil {
		return nil, err
	}
	if offset >= len(matched) {
		return []*notify.UserNotification{}, nil
	}
	matched = matched[offset:]
	if len(matched) > resolved {
		matched = matched[:resolved]
	}

	eager := opts.SelectRelatedFlag()
	out := make([]*notify.UserNotification, len(matched))
	for i, un := range matched {
		clone := cloneUserNotification(un)
		s.mu.RLock()
		msg := cloneMessage(s.messages[un.MsgID])
		s.mu.RUnlock()
		if msg != nil {
			s.attachType(ctx, msg, eager)
			clone.Msg = msg
		}
		out[i] = clone
	}
	return out, nil
}

func (s *storeImpl) MarkUserNotificationsRead(_ context.Context, userID int64, filters *notify.Filters) error {
	if err := filters.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for _, un := range s.userNotifs {
		if un.UserID != userID || un.IsRead() {
			continue
		}
		if s.matches(un, filters) {
			t := now
			un.ReadAt = &t
			marked++
		}
	}
	notify.CountMarkedRead(marked)
	return nil
}

// --------------------------------------------------------------------------
// Purge
// --------------------------------------------------------------------------

func (s *storeImpl) PurgeExpiredNotifications(_ context.Context, cutoffs notify.PurgeCutoffs) (notify.PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result notify.PurgeResult
	for id, un := range s.userNotifs {
		var expired bool
		if un.IsRead() {
			expired = cutoffs.ReadOlderThan != nil && un.Created.Before(*cutoffs.ReadOlderThan)
		} else {
			expired = cutoffs.UnreadOlderThan != nil && un.Created.Before(*cutoffs.UnreadOlderThan)
		}
		if !expired {
			continue
		}
		if s.cfg.ArchiveEnabled {
			s.archive = append(s.archive, &notify.UserNotificationArchive{
				ID:      un.ID,
				UserID:  un.UserID,
				MsgID:   un.MsgID,
				Created: un.Created,
				ReadAt:  un.ReadAt,
			})
			result.Archived++
		}
		delete(s.userNotifs, id)
		result.Deleted++
	}
	notify.CountPurged(result.Deleted, result.Archived)
	return result, nil
}

// GetArchivedUserNotifications returns the archived rows for one user. It is
// part of the optional archive-reading surface, not the core contract.
func (s *storeImpl) GetArchivedUserNotifications(_ context.Context, userID int64) ([]*notify.UserNotificationArchive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*notify.UserNotificationArchive
	for _, row := range s.archive {
		if row.UserID == userID {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *storeImpl) GetAllNamespaces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	for _, msg := range s.messages {
		if msg.Namespace != "" {
			seen[msg.Namespace] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out, nil
}

// --------------------------------------------------------------------------
// Timers
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationTimer(_ context.Context, timer *notify.NotificationCallbackTimer) (*notify.NotificationCallbackTimer, error) {
	if timer.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	stored := cloneTimer(timer)

	s.mu.Lock()
	s.timers[stored.Name] = stored
	s.mu.Unlock()

	notify.CountSaved("timer")
	return cloneTimer(stored), nil
}

func (s *storeImpl) GetNotificationTimer(_ context.Context, name string) (*notify.NotificationCallbackTimer, error) {
	s.mu.RLock()
	timer, ok := s.timers[name]
	s.mu.RUnlock()
	if !ok {
		return nil, notify.NewItemNotFound("notification timer", name)
	}
	return cloneTimer(timer), nil
}

func (s *storeImpl) GetAllActiveTimers(_ context.Context, includeExecuted bool) ([]*notify.NotificationCallbackTimer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*notify.NotificationCallbackTimer
	for _, timer := range s.timers {
		if !timer.IsActive {
			continue
		}
		if !includeExecuted && timer.ExecutedAt != nil {
			continue
		}
		out = append(out, cloneTimer(timer))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --------------------------------------------------------------------------
// Preferences
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationPreference(_ context.Context, pref *notify.NotificationPreference) (*notify.NotificationPreference, error) {
	if pref.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	stored := clonePref(pref)

	s.mu.Lock()
	s.prefCache.Invalidate(pref.Name)
	s.prefs[pref.Name] = stored
	s.prefCache.Put(pref.Name, stored)
	s.mu.Unlock()

	notify.CountSaved("preference")
	return clonePref(stored), nil
}

func (s *storeImpl) GetNotificationPreference(_ context.Context, name string) (*notify.NotificationPreference, error) {
	if cached, ok := s.prefCache.Get(name); ok {
		return clonePref(cached), nil
	}
	s.mu.RLock()
	pref, ok := s.prefs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, notify.NewItemNotFound("notification preference", name)
	}
	s.prefCache.Put(name, pref)
	return clonePref(pref), nil
}

func (s *storeImpl) GetAllNotificationPreferences(_ context.Context) ([]*notify.NotificationPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*notify.NotificationPreference, 0, len(s.prefs))
	for _, pref := range s.prefs {
		out = append(out, clonePref(pref))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *storeImpl) SetUserPreference(ctx context.Context, up *notify.UserNotificationPreference) (*notify.UserNotificationPreference, error) {
	if up.Preference == nil || up.Preference.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	// The preference declaration must exist.
	if _, err := s.GetNotificationPreference(ctx, up.Preference.Name); err != nil {
		return nil, err
	}
	stored := cloneUserPref(up)

	s.mu.Lock()
	s.userPrefs[userPrefKey{userID: up.UserID, name: up.Preference.Name}] = stored
	s.mu.Unlock()

	return cloneUserPref(stored), nil
}

func (s *storeImpl) GetUserPreference(_ context.Context, userID int64, name string) (*notify.UserNotificationPreference, error) {
	s.mu.RLock()
	up, ok := s.userPrefs[userPrefKey{userID: userID, name: name}]
	s.mu.RUnlock()
	if !ok {
		return nil, notify.NewItemNotFound("user notification preference", name)
	}
	return cloneUserPref(up), nil
}

func (s *storeImpl) GetAllUserPreferencesForUser(_ context.Context, userID int64) ([]*notify.UserNotificationPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*notify.UserNotificationPreference
	for key, up := range s.userPrefs {
		if key.userID == userID {
			out = append(out, cloneUserPref(up))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Preference.Name < out[j].Preference.Name })
	return out, nil
}

func (s *storeImpl) GetAllUserPreferencesWithName(_ context.Context, name, value string, size, offset int) ([]*notify.UserNotificationPreference, error) {
	resolved, err := s.cfg.ResolveLimit(size)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, notify.ErrInvalidArgument
	}

	s.mu.RLock()
	var matched []*notify.UserNotificationPreference
	for key, up := range s.userPrefs {
		if key.name == name && up.Value == value {
			matched = append(matched, cloneUserPref(up))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].UserID < matched[j].UserID })
	if offset >= len(matched) {
		return []*notify.UserNotificationPreference{}, nil
	}
	matched = matched[offset:]
	if len(matched) > resolved {
		matched = matched[:resolved]
	}
	return matched, nil
}
