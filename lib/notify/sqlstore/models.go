package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/coursekit/coursekit/lib/notify"
)

// --------------------------------------------------------------------------
// Row Models
// --------------------------------------------------------------------------

// Row types are private: the public surface speaks notify entities only.
// Map-valued fields are stored as JSON text so the schema works on any
// database gorm supports.

type notificationTypeRow struct {
	Name            string `gorm:"primaryKey;size:255"`
	Renderer        string `gorm:"size:255"`
	RendererContext string
}

func (notificationTypeRow) TableName() string { return "notify_types" }

type notificationMessageRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	TypeName     string `gorm:"size:255;index"`
	Namespace    string `gorm:"size:128;index"`
	Payload      string
	ResolveLinks string
	ObjectID     string    `gorm:"size:255;index"`
	Created      time.Time `gorm:"index"`
}

func (notificationMessageRow) TableName() string { return "notify_messages" }

type userNotificationRow struct {
	ID      int64      `gorm:"primaryKey;autoIncrement"`
	UserID  int64      `gorm:"index:idx_notify_user_created"`
	MsgID   int64      `gorm:"index"`
	Created time.Time  `gorm:"index:idx_notify_user_created"`
	ReadAt  *time.Time `gorm:"index"`
}

func (userNotificationRow) TableName() string { return "notify_user_notifications" }

type userNotificationArchiveRow struct {
	ID      int64 `gorm:"primaryKey"`
	UserID  int64 `gorm:"index"`
	MsgID   int64
	Created time.Time
	ReadAt  *time.Time
}

func (userNotificationArchiveRow) TableName() string { return "notify_user_notifications_archive" }

type notificationTimerRow struct {
	Name           string `gorm:"primaryKey;size:255"`
	CallbackAt     time.Time
	ClassName      string `gorm:"size:255"`
	Context        string
	IsActive       bool `gorm:"index"`
	PeriodicityMin int
	ExecutedAt     *time.Time
	ErrMsg         string
}

func (notificationTimerRow) TableName() string { return "notify_timers" }

type notificationPreferenceRow struct {
	Name               string `gorm:"primaryKey;size:255"`
	DisplayName        string `gorm:"size:255"`
	DisplayDescription string
}

func (notificationPreferenceRow) TableName() string { return "notify_preferences" }

type userPreferenceRow struct {
	UserID   int64  `gorm:"primaryKey;autoIncrement:false"`
	PrefName string `gorm:"primaryKey;size:255"`
	Value    string `gorm:"size:255;index:idx_notify_pref_value"`
}

func (userPreferenceRow) TableName() string { return "notify_user_preferences" }

// --------------------------------------------------------------------------
// Row Conversion
// --------------------------------------------------------------------------

func marshalJSONColumn(m map[string]interface{}) (string, error) {
	if m == nil {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode json column")
	}
	return string(raw), nil
}

func unmarshalJSONColumn(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "failed to decode json column")
	}
	return m, nil
}

func typeToRow(nt *notify.NotificationType) (*notificationTypeRow, error) {
	ctx, err := marshalJSONColumn(nt.RendererContext)
	if err != nil {
		return nil, err
	}
	return &notificationTypeRow{Name: nt.Name, Renderer: nt.Renderer, RendererContext: ctx}, nil
}

func rowToType(row *notificationTypeRow) (*notify.NotificationType, error) {
	ctx, err := unmarshalJSONColumn(row.RendererContext)
	if err != nil {
		return nil, err
	}
	return &notify.NotificationType{Name: row.Name, Renderer: row.Renderer, RendererContext: ctx}, nil
}

func messageToRow(msg *notify.NotificationMessage) (*notificationMessageRow, error) {
	payload, err := marshalJSONColumn(msg.Payload)
	if err != nil {
		return nil, err
	}
	links, err := marshalJSONColumn(msg.ResolveLinks)
	if err != nil {
		return nil, err
	}
	return &notificationMessageRow{
		ID:           msg.ID,
		TypeName:     msg.TypeName,
		Namespace:    msg.Namespace,
		Payload:      payload,
		ResolveLinks: links,
		ObjectID:     msg.ObjectID,
		Created:      msg.Created,
	}, nil
}

func rowToMessage(row *notificationMessageRow) (*notify.NotificationMessage, error) {
	payload, err := unmarshalJSONColumn(row.Payload)
	if err != nil {
		return nil, err
	}
	links, err := unmarshalJSONColumn(row.ResolveLinks)
	if err != nil {
		return nil, err
	}
	return &notify.NotificationMessage{
		ID:           row.ID,
		TypeName:     row.TypeName,
		Namespace:    row.Namespace,
		Payload:      payload,
		ResolveLinks: links,
		ObjectID:     row.ObjectID,
		Created:      row.Created,
	}, nil
}

func userNotificationToRow(un *notify.UserNotification) *userNotificationRow {
	return &userNotificationRow{
		ID:      un.ID,
		UserID:  un.UserID,
		MsgID:   un.MsgID,
		Created: un.Created,
		ReadAt:  un.ReadAt,
	}
}

func rowToUserNotification(row *userNotificationRow) *notify.UserNotification {
	return &notify.UserNotification{
		ID:      row.ID,
		UserID:  row.UserID,
		MsgID:   row.MsgID,
		Created: row.Created,
		ReadAt:  row.ReadAt,
	}
}

func timerToRow(t *notify.NotificationCallbackTimer) (*notificationTimerRow, error) {
	ctx, err := marshalJSONColumn(t.Context)
	if err != nil {
		return nil, err
	}
	return &notificationTimerRow{
		Name:           t.Name,
		CallbackAt:     t.CallbackAt,
		ClassName:      t.ClassName,
		Context:        ctx,
		IsActive:       t.IsActive,
		PeriodicityMin: t.PeriodicityMin,
		ExecutedAt:     t.ExecutedAt,
		ErrMsg:         t.ErrMsg,
	}, nil
}

func rowToTimer(row *notificationTimerRow) (*notify.NotificationCallbackTimer, error) {
	ctx, err := unmarshalJSONColumn(row.Context)
	if err != nil {
		return nil, err
	}
	return &notify.NotificationCallbackTimer{
		Name:           row.Name,
		CallbackAt:     row.CallbackAt,
		ClassName:      row.ClassName,
		Context:        ctx,
		IsActive:       row.IsActive,
		PeriodicityMin: row.PeriodicityMin,
		ExecutedAt:     row.ExecutedAt,
		ErrMsg:         row.ErrMsg,
	}, nil
}

func prefToRow(p *notify.NotificationPreference) *notificationPreferenceRow {
	return &notificationPreferenceRow{
		Name:               p.Name,
		DisplayName:        p.DisplayName,
		DisplayDescription: p.DisplayDescription,
	}
}

func rowToPref(row *notificationPreferenceRow) *notify.NotificationPreference {
	return &notify.NotificationPreference{
		Name:               row.Name,
		DisplayName:        row.DisplayName,
		DisplayDescription: row.DisplayDescription,
	}
}
