package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit/lib/notify"
	"github.com/coursekit/coursekit/lib/notify/memstore"
)

func seedNotifications(t *testing.T, store notify.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.SaveNotificationType(ctx, &notify.NotificationType{Name: "quiz.graded"})
	require.NoError(t, err)
	msg, err := store.SaveNotificationMessage(ctx, &notify.NotificationMessage{
		TypeName:  "quiz.graded",
		Namespace: "course-1",
	})
	require.NoError(t, err)

	old := time.Now().UTC().Add(-48 * time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.SaveUserNotification(ctx, &notify.UserNotification{
			UserID:  1,
			MsgID:   msg.ID,
			Created: old,
		})
		require.NoError(t, err)
	}
	_, err = store.SaveUserNotification(ctx, &notify.UserNotification{
		UserID: 1,
		MsgID:  msg.ID,
	})
	require.NoError(t, err)
}

func TestPurgeWorkerRun(t *testing.T) {
	store := memstore.New(notify.Config{ArchiveEnabled: true}, nil)
	seedNotifications(t, store)

	worker := notify.NewPurgeWorker(store, notify.PurgeConfig{UnreadTTL: 24 * time.Hour}, nil)
	result, err := worker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Deleted)
	assert.Equal(t, int64(3), result.Archived)

	count, err := store.GetNumNotificationsForUser(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPurgeWorkerNoTTLs(t *testing.T) {
	store := memstore.New(notify.Config{}, nil)
	seedNotifications(t, store)

	worker := notify.NewPurgeWorker(store, notify.PurgeConfig{}, nil)
	result, err := worker.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Deleted)

	count, err := store.GetNumNotificationsForUser(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestPurgeWorkerRunEvery(t *testing.T) {
	store := memstore.New(notify.Config{}, nil)
	seedNotifications(t, store)

	worker := notify.NewPurgeWorker(store, notify.PurgeConfig{
		UnreadTTL:  24 * time.Hour,
		ChunkPause: time.Millisecond,
	}, nil)
	total, err := worker.RunEvery(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total.Deleted)
}

func TestPurgeWorkerCancelled(t *testing.T) {
	store := memstore.New(notify.Config{}, nil)
	seedNotifications(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := notify.NewPurgeWorker(store, notify.PurgeConfig{
		UnreadTTL:  time.Hour,
		ChunkPause: time.Hour,
	}, nil)
	_, err := worker.RunEvery(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
