package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursekit/coursekit/lib/notify"
)

// StoreFactory is a function that creates a new instance of a Store
// implementation under test. Implementations should enable archival so the
// purge tests can observe archived rows.
type StoreFactory func() notify.Store

// RunStoreTests runs a conformance test suite for a Store implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Types", func(t *testing.T) {
			testTypes(t, factory())
		})
		t.Run("Messages", func(t *testing.T) {
			testMessages(t, factory())
		})
		t.Run("SelectRelated", func(t *testing.T) {
			testSelectRelated(t, factory())
		})
		t.Run("UserNotifications", func(t *testing.T) {
			testUserNotifications(t, factory())
		})
		t.Run("Filters", func(t *testing.T) {
			testFilters(t, factory())
		})
		t.Run("Paging", func(t *testing.T) {
			testPaging(t, factory())
		})
		t.Run("MarkRead", func(t *testing.T) {
			testMarkRead(t, factory())
		})
		t.Run("BulkCreate", func(t *testing.T) {
			testBulkCreate(t, factory())
		})
		t.Run("Purge", func(t *testing.T) {
			testPurge(t, factory())
		})
		t.Run("Namespaces", func(t *testing.T) {
			testNamespaces(t, factory())
		})
		t.Run("Timers", func(t *testing.T) {
			testTimers(t, factory())
		})
		t.Run("Preferences", func(t *testing.T) {
			testPreferences(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustSaveType(t *testing.T, store notify.Store, name string) *notify.NotificationType {
	t.Helper()
	nt, err := store.SaveNotificationType(context.Background(), &notify.NotificationType{
		Name:     name,
		Renderer: "renderer." + name,
	})
	if err != nil {
		t.Fatalf("SaveNotificationType failed: %v", err)
	}
	return nt
}

func mustSaveMessage(t *testing.T, store notify.Store, typeName, namespace string) *notify.NotificationMessage {
	t.Helper()
	msg, err := store.SaveNotificationMessage(context.Background(), &notify.NotificationMessage{
		TypeName:  typeName,
		Namespace: namespace,
		Payload:   map[string]interface{}{"subject": "hello"},
	})
	if err != nil {
		t.Fatalf("SaveNotificationMessage failed: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("Expected a generated message id")
	}
	return msg
}

func mustSaveUserNotification(t *testing.T, store notify.Store, userID, msgID int64, created time.Time) *notify.UserNotification {
	t.Helper()
	un, err := store.SaveUserNotification(context.Background(), &notify.UserNotification{
		UserID:  userID,
		MsgID:   msgID,
		Created: created,
	})
	if err != nil {
		t.Fatalf("SaveUserNotification failed: %v", err)
	}
	if un.ID == 0 {
		t.Fatal("Expected a generated user notification id")
	}
	return un
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testTypes(t *testing.T, store notify.Store) {
	ctx := context.Background()

	if _, err := store.GetNotificationType(ctx, "missing"); !notifyNotFound(err) {
		t.Errorf("Expected ErrItemNotFound for unknown type, got %v", err)
	}

	mustSaveType(t, store, "quiz.graded")
	mustSaveType(t, store, "forum.reply")

	// Upsert by name.
	_, err := store.SaveNotificationType(ctx, &notify.NotificationType{
		Name:     "quiz.graded",
		Renderer: "renderer.v2",
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	nt, err := store.GetNotificationType(ctx, "quiz.graded")
	if err != nil {
		t.Fatalf("GetNotificationType failed: %v", err)
	}
	if nt.Renderer != "renderer.v2" {
		t.Errorf("Expected updated renderer, got %q", nt.Renderer)
	}

	all, err := store.GetAllNotificationTypes(ctx)
	if err != nil {
		t.Fatalf("GetAllNotificationTypes failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 types, got %d", len(all))
	}
}

func testMessages(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	msg := mustSaveMessage(t, store, "quiz.graded", "course-1")

	loaded, err := store.GetNotificationMessageByID(ctx, msg.ID, nil)
	if err != nil {
		t.Fatalf("GetNotificationMessageByID failed: %v", err)
	}
	if loaded.Namespace != "course-1" {
		t.Errorf("Expected namespace course-1, got %q", loaded.Namespace)
	}
	if loaded.Payload["subject"] != "hello" {
		t.Errorf("Payload did not round-trip: %v", loaded.Payload)
	}

	// Update by id.
	loaded.Namespace = "course-2"
	if _, err := store.SaveNotificationMessage(ctx, loaded); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	reloaded, _ := store.GetNotificationMessageByID(ctx, msg.ID, nil)
	if reloaded.Namespace != "course-2" {
		t.Errorf("Expected namespace course-2 after update, got %q", reloaded.Namespace)
	}

	// Updating an unknown id must fail.
	_, err = store.SaveNotificationMessage(ctx, &notify.NotificationMessage{ID: 999999, TypeName: "quiz.graded"})
	if !notifyNotFound(err) {
		t.Errorf("Expected ErrItemNotFound for unknown message id, got %v", err)
	}

	if _, err := store.GetNotificationMessageByID(ctx, 999999, nil); !notifyNotFound(err) {
		t.Errorf("Expected ErrItemNotFound for unknown message, got %v", err)
	}
}

func testSelectRelated(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	msg := mustSaveMessage(t, store, "quiz.graded", "course-1")

	// Eager (default): the type is attached up front.
	eager, err := store.GetNotificationMessageByID(ctx, msg.ID, nil)
	if err != nil {
		t.Fatalf("GetNotificationMessageByID failed: %v", err)
	}
	nt, err := eager.Type()
	if err != nil || nt == nil || nt.Name != "quiz.graded" {
		t.Errorf("Expected eagerly loaded type, got %v (%v)", nt, err)
	}

	// Lazy: the type resolves on first access and is memoized.
	lazy, err := store.GetNotificationMessageByID(ctx, msg.ID, &notify.Options{SelectRelated: notify.Bool(false)})
	if err != nil {
		t.Fatalf("GetNotificationMessageByID failed: %v", err)
	}
	first, err := lazy.Type()
	if err != nil || first == nil || first.Name != "quiz.graded" {
		t.Errorf("Expected lazily loaded type, got %v (%v)", first, err)
	}
	second, _ := lazy.Type()
	if first != second {
		t.Errorf("Expected memoized type instance")
	}
}

func testUserNotifications(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	msg := mustSaveMessage(t, store, "quiz.graded", "course-1")

	now := time.Now().UTC().Truncate(time.Second)
	un := mustSaveUserNotification(t, store, 1, msg.ID, now)
	if un.IsRead() {
		t.Error("Expected a fresh notification to be unread")
	}

	list, err := store.GetNotificationsForUser(ctx, 1, nil, nil)
	if err != nil {
		t.Fatalf("GetNotificationsForUser failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(list))
	}
	if list[0].Msg == nil || list[0].Msg.Namespace != "course-1" {
		t.Errorf("Expected the related message to be attached, got %v", list[0].Msg)
	}

	// Other users see nothing.
	count, err := store.GetNumNotificationsForUser(ctx, 2, nil)
	if err != nil {
		t.Fatalf("GetNumNotificationsForUser failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 notifications for user 2, got %d", count)
	}

	// Updating an unknown id must fail.
	_, err = store.SaveUserNotification(ctx, &notify.UserNotification{ID: 999999, UserID: 1, MsgID: msg.ID})
	if !notifyNotFound(err) {
		t.Errorf("Expected ErrItemNotFound for unknown user notification id, got %v", err)
	}
}

func testFilters(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	mustSaveType(t, store, "forum.reply")
	quizMsg := mustSaveMessage(t, store, "quiz.graded", "course-1")
	forumMsg := mustSaveMessage(t, store, "forum.reply", "course-2")

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	mustSaveUserNotification(t, store, 1, quizMsg.ID, base)
	mustSaveUserNotification(t, store, 1, forumMsg.ID, base.Add(10*time.Minute))
	mustSaveUserNotification(t, store, 1, forumMsg.ID, base.Add(20*time.Minute))

	cases := []struct {
		name    string
		filters *notify.Filters
		want    int
	}{
		{"All", nil, 3},
		{"Namespace", &notify.Filters{Namespace: "course-2"}, 2},
		{"TypeName", &notify.Filters{TypeName: "quiz.graded"}, 1},
		{"NamespaceAndType", &notify.Filters{Namespace: "course-1", TypeName: "forum.reply"}, 0},
		{"StartDate", &notify.Filters{StartDate: timePtr(base.Add(5 * time.Minute))}, 2},
		{"EndDate", &notify.Filters{EndDate: timePtr(base.Add(5 * time.Minute))}, 1},
		{"UnreadOnly", &notify.Filters{Read: notify.Bool(false)}, 3},
		{"ReadOnly", &notify.Filters{Unread: notify.Bool(false)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			count, err := store.GetNumNotificationsForUser(ctx, 1, tc.filters)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if count != tc.want {
				t.Errorf("Expected %d notifications, got %d", tc.want, count)
			}
		})
	}

	// Both read flags false is contradictory.
	bad := &notify.Filters{Read: notify.Bool(false), Unread: notify.Bool(false)}
	if _, err := store.GetNumNotificationsForUser(ctx, 1, bad); !notifyInvalid(err) {
		t.Errorf("Expected ErrInvalidArgument for contradictory filters, got %v", err)
	}
	if _, err := store.GetNotificationsForUser(ctx, 1, bad, nil); !notifyInvalid(err) {
		t.Errorf("Expected ErrInvalidArgument for contradictory filters, got %v", err)
	}
}

func testPaging(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	msg := mustSaveMessage(t, store, "quiz.graded", "course-1")

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		mustSaveUserNotification(t, store, 1, msg.ID, base.Add(time.Duration(i)*time.Minute))
	}

	// Most recent first.
	list, err := store.GetNotificationsForUser(ctx, 1, nil, nil)
	if err != nil {
		t.Fatalf("GetNotificationsForUser failed: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("Expected 5 notifications, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Created.After(list[i-1].Created) {
			t.Errorf("Expected descending order by creation time")
		}
	}

	// Limit and offset.
	page, err := store.GetNotificationsForUser(ctx, 1, nil, &notify.Options{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("GetNotificationsForUser failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(page))
	}
	if !page[0].Created.Equal(list[1].Created) {
		t.Errorf("Expected the page to start at offset 1")
	}

	// Limits beyond the configured maximum are rejected.
	if _, err := store.GetNotificationsForUser(ctx, 1, nil, &notify.Options{Limit: notify.DefaultMaxListSize + 1}); !notifyInvalid(err) {
		t.Errorf("Expected ErrInvalidArgument for oversized limit, got %v", err)
	}
}

func testMarkRead(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	mustSaveType(t, store, "forum.reply")
	quizMsg := mustSaveMessage(t, store, "quiz.graded", "course-1")
	forumMsg := mustSaveMessage(t, store, "forum.reply", "course-1")

	now := time.Now().UTC().Truncate(time.Second)
	mustSaveUserNotification(t, store, 1, quizMsg.ID, now)
	mustSaveUserNotification(t, store, 1, forumMsg.ID, now)
	mustSaveUserNotification(t, store, 2, quizMsg.ID, now)

	// Mark only the quiz notifications of user 1.
	err := store.MarkUserNotificationsRead(ctx, 1, &notify.Filters{TypeName: "quiz.graded"})
	if err != nil {
		t.Fatalf("MarkUserNotificationsRead failed: %v", err)
	}

	readCount, err := store.GetNumNotificationsForUser(ctx, 1, &notify.Filters{Unread: notify.Bool(false)})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if readCount != 1 {
		t.Errorf("Expected 1 read notification, got %d", readCount)
	}

	// User 2 is untouched.
	otherRead, _ := store.GetNumNotificationsForUser(ctx, 2, &notify.Filters{Unread: notify.Bool(false)})
	if otherRead != 0 {
		t.Errorf("Expected user 2 to stay unread, got %d read", otherRead)
	}

	// Idempotent: the second pass changes nothing.
	if err := store.MarkUserNotificationsRead(ctx, 1, nil); err != nil {
		t.Fatalf("MarkUserNotificationsRead failed: %v", err)
	}
	if err := store.MarkUserNotificationsRead(ctx, 1, nil); err != nil {
		t.Fatalf("Repeated MarkUserNotificationsRead failed: %v", err)
	}
	allRead, _ := store.GetNumNotificationsForUser(ctx, 1, &notify.Filters{Unread: notify.Bool(false)})
	if allRead != 2 {
		t.Errorf("Expected 2 read notifications, got %d", allRead)
	}
}

func testBulkCreate(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	msg := mustSaveMessage(t, store, "quiz.graded", "course-1")

	batch := make([]*notify.UserNotification, 10)
	for i := range batch {
		batch[i] = &notify.UserNotification{UserID: int64(i + 1), MsgID: msg.ID}
	}
	if err := store.BulkCreateUserNotification(ctx, batch); err != nil {
		t.Fatalf("BulkCreateUserNotification failed: %v", err)
	}
	for i := range batch {
		count, err := store.GetNumNotificationsForUser(ctx, int64(i+1), nil)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 notification for user %d, got %d", i+1, count)
		}
	}

	// Oversized batches fail without inserting anything.
	big := make([]*notify.UserNotification, notify.DefaultMaxBulkSize+1)
	for i := range big {
		big[i] = &notify.UserNotification{UserID: 99, MsgID: msg.ID}
	}
	err := store.BulkCreateUserNotification(ctx, big)
	if !notifyBulkTooLarge(err) {
		t.Fatalf("Expected ErrBulkOperationTooLarge, got %v", err)
	}
	count, _ := store.GetNumNotificationsForUser(ctx, 99, nil)
	if count != 0 {
		t.Errorf("Expected nothing inserted for the rejected batch, got %d", count)
	}
}

func testPurge(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	msg := mustSaveMessage(t, store, "quiz.graded", "course-1")

	now := time.Now().UTC().Truncate(time.Second)
	old := now.Add(-48 * time.Hour)
	stale := mustSaveUserNotification(t, store, 1, msg.ID, old)
	fresh := mustSaveUserNotification(t, store, 1, msg.ID, now)

	// Mark the old one read, then purge read rows older than a day.
	if err := store.MarkUserNotificationsRead(ctx, 1, &notify.Filters{EndDate: timePtr(old.Add(time.Minute))}); err != nil {
		t.Fatalf("MarkUserNotificationsRead failed: %v", err)
	}
	cutoff := now.Add(-24 * time.Hour)
	result, err := store.PurgeExpiredNotifications(ctx, notify.PurgeCutoffs{ReadOlderThan: &cutoff})
	if err != nil {
		t.Fatalf("PurgeExpiredNotifications failed: %v", err)
	}
	if result.Deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", result.Deleted)
	}
	if result.Archived != 1 {
		t.Errorf("Expected 1 archived, got %d", result.Archived)
	}

	// The fresh notification survives.
	count, _ := store.GetNumNotificationsForUser(ctx, 1, nil)
	if count != 1 {
		t.Errorf("Expected 1 surviving notification, got %d", count)
	}
	list, _ := store.GetNotificationsForUser(ctx, 1, nil, nil)
	if len(list) != 1 || list[0].ID != fresh.ID {
		t.Errorf("Expected the fresh notification to survive")
	}

	// The archived row carries the purged notification's identity.
	reader, ok := store.(notify.ArchiveReader)
	if !ok {
		t.Fatal("Expected the store to implement ArchiveReader")
	}
	archived, err := reader.GetArchivedUserNotifications(ctx, 1)
	if err != nil {
		t.Fatalf("GetArchivedUserNotifications failed: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("Expected 1 archived row, got %d", len(archived))
	}
	if archived[0].ID != stale.ID || archived[0].MsgID != msg.ID || archived[0].ReadAt == nil {
		t.Errorf("Archived row does not match the purged notification: %+v", archived[0])
	}

	// A purge with no cutoffs is a no-op.
	result, err = store.PurgeExpiredNotifications(ctx, notify.PurgeCutoffs{})
	if err != nil {
		t.Fatalf("Empty purge failed: %v", err)
	}
	if result.Deleted != 0 || result.Archived != 0 {
		t.Errorf("Expected an empty purge to remove nothing, got %+v", result)
	}
}

func testNamespaces(t *testing.T, store notify.Store) {
	ctx := context.Background()
	mustSaveType(t, store, "quiz.graded")
	mustSaveMessage(t, store, "quiz.graded", "course-1")
	mustSaveMessage(t, store, "quiz.graded", "course-2")
	mustSaveMessage(t, store, "quiz.graded", "course-1")

	namespaces, err := store.GetAllNamespaces(ctx)
	if err != nil {
		t.Fatalf("GetAllNamespaces failed: %v", err)
	}
	if len(namespaces) != 2 {
		t.Fatalf("Expected 2 distinct namespaces, got %v", namespaces)
	}
	if namespaces[0] != "course-1" || namespaces[1] != "course-2" {
		t.Errorf("Expected sorted namespaces, got %v", namespaces)
	}
}

func testTimers(t *testing.T, store notify.Store) {
	ctx := context.Background()

	if _, err := store.GetNotificationTimer(ctx, "missing"); !notifyNotFound(err) {
		t.Errorf("Expected ErrItemNotFound for unknown timer, got %v", err)
	}

	callback := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	timer, err := store.SaveNotificationTimer(ctx, &notify.NotificationCallbackTimer{
		Name:       "digest-daily",
		CallbackAt: callback,
		ClassName:  "DigestCallback",
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("SaveNotificationTimer failed: %v", err)
	}
	if !timer.IsPending() {
		t.Error("Expected an active unexecuted timer to be pending")
	}

	_, err = store.SaveNotificationTimer(ctx, &notify.NotificationCallbackTimer{
		Name:     "digest-inactive",
		IsActive: false,
	})
	if err != nil {
		t.Fatalf("SaveNotificationTimer failed: %v", err)
	}

	active, err := store.GetAllActiveTimers(ctx, false)
	if err != nil {
		t.Fatalf("GetAllActiveTimers failed: %v", err)
	}
	if len(active) != 1 || active[0].Name != "digest-daily" {
		t.Errorf("Expected only the pending active timer, got %v", active)
	}

	// Executed timers drop out unless asked for.
	executed := time.Now().UTC().Truncate(time.Second)
	timer.ExecutedAt = &executed
	if _, err := store.SaveNotificationTimer(ctx, timer); err != nil {
		t.Fatalf("Timer update failed: %v", err)
	}
	active, _ = store.GetAllActiveTimers(ctx, false)
	if len(active) != 0 {
		t.Errorf("Expected no pending timers after execution, got %v", active)
	}
	all, _ := store.GetAllActiveTimers(ctx, true)
	if len(all) != 1 {
		t.Errorf("Expected the executed timer with includeExecuted, got %v", all)
	}
}

func testPreferences(t *testing.T, store notify.Store) {
	ctx := context.Background()

	pref, err := store.SaveNotificationPreference(ctx, &notify.NotificationPreference{
		Name:        "digest-frequency",
		DisplayName: "Digest frequency",
	})
	if err != nil {
		t.Fatalf("SaveNotificationPreference failed: %v", err)
	}

	// Setting a value for an undeclared preference fails.
	_, err = store.SetUserPreference(ctx, &notify.UserNotificationPreference{
		UserID:     1,
		Preference: &notify.NotificationPreference{Name: "undeclared"},
		Value:      "daily",
	})
	if !notifyNotFound(err) {
		t.Errorf("Expected ErrItemNotFound for undeclared preference, got %v", err)
	}

	for user := int64(1); user <= 3; user++ {
		value := "daily"
		if user == 3 {
			value = "weekly"
		}
		_, err := store.SetUserPreference(ctx, &notify.UserNotificationPreference{
			UserID:     user,
			Preference: pref,
			Value:      value,
		})
		if err != nil {
			t.Fatalf("SetUserPreference failed: %v", err)
		}
	}

	up, err := store.GetUserPreference(ctx, 1, "digest-frequency")
	if err != nil {
		t.Fatalf("GetUserPreference failed: %v", err)
	}
	if up.Value != "daily" {
		t.Errorf("Expected value daily, got %q", up.Value)
	}

	// Upsert replaces the value.
	if _, err := store.SetUserPreference(ctx, &notify.UserNotificationPreference{
		UserID:     1,
		Preference: pref,
		Value:      "never",
	}); err != nil {
		t.Fatalf("SetUserPreference upsert failed: %v", err)
	}
	up, _ = store.GetUserPreference(ctx, 1, "digest-frequency")
	if up.Value != "never" {
		t.Errorf("Expected value never after upsert, got %q", up.Value)
	}

	mine, err := store.GetAllUserPreferencesForUser(ctx, 2)
	if err != nil {
		t.Fatalf("GetAllUserPreferencesForUser failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Value != "daily" {
		t.Errorf("Expected user 2's single preference, got %v", mine)
	}

	// Paging through everyone holding a given value.
	holders, err := store.GetAllUserPreferencesWithName(ctx, "digest-frequency", "daily", 10, 0)
	if err != nil {
		t.Fatalf("GetAllUserPreferencesWithName failed: %v", err)
	}
	if len(holders) != 1 || holders[0].UserID != 2 {
		t.Errorf("Expected user 2 as the only daily holder, got %v", holders)
	}
}

// --------------------------------------------------------------------------
// Error classification
// --------------------------------------------------------------------------

func notifyNotFound(err error) bool {
	return errors.Is(err, notify.ErrItemNotFound)
}

func notifyInvalid(err error) bool {
	return errors.Is(err, notify.ErrInvalidArgument)
}

func notifyBulkTooLarge(err error) bool {
	return errors.Is(err, notify.ErrBulkOperationTooLarge)
}

func timePtr(t time.Time) *time.Time { return &t }
