package sqlstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coursekit/coursekit/lib/logger"
	"github.com/coursekit/coursekit/lib/notify"
)

// storeImpl is the SQL notify.Store backend on top of gorm. It is safe for
// concurrent use; gorm's connection pool handles parallel callers.
type storeImpl struct {
	db  *gorm.DB
	cfg notify.Config
	log *logger.Logger

	typeCache *notify.NameCache[*notify.NotificationType]
	prefCache *notify.NameCache[*notify.NotificationPreference]
}

// New creates a SQL-backed notification store and migrates its tables. The
// caller owns the gorm handle (driver choice, pooling, lifecycle).
func New(db *gorm.DB, cfg notify.Config, log *logger.Logger) (notify.Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	err := db.AutoMigrate(
		&notificationTypeRow{},
		&notificationMessageRow{},
		&userNotificationRow{},
		&userNotificationArchiveRow{},
		&notificationTimerRow{},
		&notificationPreferenceRow{},
		&userPreferenceRow{},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to migrate notification tables")
	}
	return &storeImpl{
		db:        db,
		cfg:       cfg.WithDefaults(),
		log:       log.With("pkg", "notify.sqlstore"),
		typeCache: notify.NewNameCache[*notify.NotificationType](),
		prefCache: notify.NewNameCache[*notify.NotificationPreference](),
	}, nil
}

// --------------------------------------------------------------------------
// Notification Types
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationType(ctx context.Context, nt *notify.NotificationType) (*notify.NotificationType, error) {
	if nt.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	row, err := typeToRow(nt)
	if err != nil {
		return nil, err
	}

	s.typeCache.Invalidate(nt.Name)
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to save notification type")
	}

	stored, err := rowToType(row)
	if err != nil {
		return nil, err
	}
	s.typeCache.Put(stored.Name, stored)
	notify.CountSaved("type")
	return stored, nil
}

func (s *storeImpl) GetNotificationType(ctx context.Context, name string) (*notify.NotificationType, error) {
	if cached, ok := s.typeCache.Get(name); ok {
		copied := *cached
		return &copied, nil
	}
	var row notificationTypeRow
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notify.NewItemNotFound("notification type", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load notification type")
	}
	nt, err := rowToType(&row)
	if err != nil {
		return nil, err
	}
	s.typeCache.Put(name, nt)
	return nt, nil
}

func (s *storeImpl) GetAllNotificationTypes(ctx context.Context) ([]*notify.NotificationType, error) {
	var rows []notificationTypeRow
	err := s.db.WithContext(ctx).Order("name").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notification types")
	}
	out := make([]*notify.NotificationType, len(rows))
	for i := range rows {
		if out[i], err = rowToType(&rows[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationMessage(ctx context.Context, msg *notify.NotificationMessage) (*notify.NotificationMessage, error) {
	row, err := messageToRow(msg)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if row.ID == 0 {
		if row.Created.IsZero() {
			row.Created = time.Now().UTC()
		}
		err = db.Create(row).Error
	} else {
		res := db.Model(&notificationMessageRow{}).Where("id = ?", row.ID).
			Select("type_name", "namespace", "payload", "resolve_links", "object_id", "created").Updates(row)
		if err = res.Error; err == nil && res.RowsAffected == 0 {
			return nil, notify.NewItemNotFound("notification message", row.ID)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to save notification message")
	}

	notify.CountSaved("message")
	return rowToMessage(row)
}

func (s *storeImpl) GetNotificationMessageByID(ctx context.Context, id int64, opts *notify.Options) (*notify.NotificationMessage, error) {
	var row notificationMessageRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notify.NewItemNotFound("notification message", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load notification message")
	}
	msg, err := rowToMessage(&row)
	if err != nil {
		return nil, err
	}
	s.attachType(ctx, msg, opts.SelectRelatedFlag())
	return msg, nil
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

func (s *storeImpl) SaveUserNotification(ctx context.Context, un *notify.UserNotification) (*notify.UserNotification, error) {
	row := userNotificationToRow(un)

	db := s.db.WithContext(ctx)
	var err error
	if row.ID == 0 {
		if row.Created.IsZero() {
			row.Created = time.Now().UTC()
		}
		err = db.Create(row).Error
	} else {
		res := db.Model(&userNotificationRow{}).Where("id = ?", row.ID).
			Select("user_id", "msg_id", "created", "read_at").Updates(row)
		if err = res.Error; err == nil && res.RowsAffected == 0 {
			return nil, notify.NewItemNotFound("user notification", row.ID)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to save user notification")
	}

	notify.CountSaved("user_notification")
	return rowToUserNotification(row), nil
}

func (s *storeImpl) BulkCreateUserNotification(ctx context.Context, uns []*notify.UserNotification) error {
	if err := s.cfg.CheckBulkSize(len(uns)); err != nil {
		return err
	}
	if len(uns) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]*userNotificationRow, len(uns))
	for i, un := range uns {
		row := userNotificationToRow(un)
		row.ID = 0
		if row.Created.IsZero() {
			row.Created = now
		}
		rows[i] = row
	}

	// One transaction keeps the batch all-or-nothing even when the driver
	// splits it into several INSERT statements.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, s.cfg.MaxBulkSize).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to bulk insert user notifications")
	}
	notify.CountBulkInserted(len(uns))
	return nil
}

// applyFilters narrows a user-notification query. Namespace and type filters
// join against the messages table.
func (s *storeImpl) applyFilters(q *gorm.DB, userID int64, filters *notify.Filters) *gorm.DB {
	q = q.Where("notify_user_notifications.user_id = ?", userID)

	read, unread := filters.ReadFlags()
	if read && !unread {
		q = q.Where("notify_user_notifications.read_at IS NOT NULL")
	} else if unread && !read {
		q = q.Where("notify_user_notifications.read_at IS NULL")
	}
	if filters == nil {
		return q
	}
	if filters.Namespace != "" || filters.TypeName != "" {
		q = q.Joins("JOIN notify_messages ON notify_messages.id = notify_user_notifications.msg_id")
		if filters.Namespace != "" {
			q = q.Where("notify_messages.namespace = ?", filters.Namespace)
		}
		if filters.TypeName != "" {
			q = q.Where("notify_messages.type_name = ?", filters.TypeName)
		}
	}
	if filters.StartDate != nil {
		q = q.Where("notify_user_notifications.created >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		q = q.Where("notify_user_notifications.created <= ?", *filters.EndDate)
	}
	return q
}

func (s *storeImpl) GetNumNotificationsForUser(ctx context.Context, userID int64, filters *notify.Filters) (int, error) {
	if err := filters.Validate(); err != nil {
		return 0, err
	}
	var count int64
	q := s.applyFilters(s.db.WithContext(ctx).Model(&userNotificationRow{}), userID, filters)
	if err := q.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count user notifications")
	}
	return int(count), nil
}

func (s *storeImpl) GetNotificationsForUser(ctx context.Context, userID int64, filters *notify.Filters, opts *notify.Options) ([]*notify.UserNotification, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
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

	var rows []userNotificationRow
	q := s.applyFilters(s.db.WithContext(ctx).Model(&userNotificationRow{}), userID, filters).
		Order("notify_user_notifications.created DESC, notify_user_notifications.id DESC").
		Limit(resolved).Offset(offset)
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list user notifications")
	}

	eager := opts.SelectRelatedFlag()
	out := make([]*notify.UserNotification, len(rows))
	for i := range rows {
		un := rowToUserNotification(&rows[i])
		msg, err := s.loadMessage(ctx, un.MsgID, eager)
		if err != nil {
			return nil, err
		}
		un.Msg = msg
		out[i] = un
	}
	return out, nil
}

// loadMessage fetches the related message for a listing row. A missing
// message leaves Msg nil rather than failing the listing.
func (s *storeImpl) loadMessage(ctx context.Context, msgID int64, eager bool) (*notify.NotificationMessage, error) {
	var row notificationMessageRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", msgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load related message")
	}
	msg, err := rowToMessage(&row)
	if err != nil {
		return nil, err
	}
	s.attachType(ctx, msg, eager)
	return msg, nil
}

func (s *storeImpl) MarkUserNotificationsRead(ctx context.Context, userID int64, filters *notify.Filters) error {
	if err := filters.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	// Matching ids are resolved first so the UPDATE needs no join.
	var ids []int64
	q := s.applyFilters(s.db.WithContext(ctx).Model(&userNotificationRow{}), userID, filters).
		Where("notify_user_notifications.read_at IS NULL").
		Pluck("notify_user_notifications.id", &ids)
	if err := q.Error; err != nil {
		return errors.Wrap(err, "failed to select notifications to mark read")
	}
	if len(ids) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&userNotificationRow{}).
		Where("id IN ? AND read_at IS NULL", ids).
		Update("read_at", now)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to mark notifications read")
	}
	notify.CountMarkedRead(int(res.RowsAffected))
	return nil
}

// --------------------------------------------------------------------------
// Purge
// --------------------------------------------------------------------------

func (s *storeImpl) PurgeExpiredNotifications(ctx context.Context, cutoffs notify.PurgeCutoffs) (notify.PurgeResult, error) {
	var result notify.PurgeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&userNotificationRow{})
		switch {
		case cutoffs.UnreadOlderThan != nil && cutoffs.ReadOlderThan != nil:
			q = q.Where("(read_at IS NULL AND created < ?) OR (read_at IS NOT NULL AND created < ?)",
				*cutoffs.UnreadOlderThan, *cutoffs.ReadOlderThan)
		case cutoffs.UnreadOlderThan != nil:
			q = q.Where("read_at IS NULL AND created < ?", *cutoffs.UnreadOlderThan)
		case cutoffs.ReadOlderThan != nil:
			q = q.Where("read_at IS NOT NULL AND created < ?", *cutoffs.ReadOlderThan)
		default:
			return nil
		}

		var rows []userNotificationRow
		if err := q.Find(&rows).Error; err != nil {
			return errors.Wrap(err, "failed to select expired notifications")
		}
		if len(rows) == 0 {
			return nil
		}

		// Archive rows are written before the delete so a failed transaction
		// never loses data.
		if s.cfg.ArchiveEnabled {
			archived := make([]userNotificationArchiveRow, len(rows))
			for i, row := range rows {
				archived[i] = userNotificationArchiveRow{
					ID:      row.ID,
					UserID:  row.UserID,
					MsgID:   row.MsgID,
					Created: row.Created,
					ReadAt:  row.ReadAt,
				}
			}
			if err := tx.CreateInBatches(archived, s.cfg.MaxBulkSize).Error; err != nil {
				return errors.Wrap(err, "failed to archive expired notifications")
			}
			result.Archived = int64(len(archived))
		}

		ids := make([]int64, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		res := tx.Where("id IN ?", ids).Delete(&userNotificationRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to delete expired notifications")
		}
		result.Deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return notify.PurgeResult{}, err
	}
	notify.CountPurged(result.Deleted, result.Archived)
	return result, nil
}

// GetArchivedUserNotifications returns the archived rows for one user. It is
// part of the optional archive-reading surface, not the core contract.
func (s *storeImpl) GetArchivedUserNotifications(ctx context.Context, userID int64) ([]*notify.UserNotificationArchive, error) {
	var rows []userNotificationArchiveRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list archived notifications")
	}
	out := make([]*notify.UserNotificationArchive, len(rows))
	for i, row := range rows {
		out[i] = &notify.UserNotificationArchive{
			ID:      row.ID,
			UserID:  row.UserID,
			MsgID:   row.MsgID,
			Created: row.Created,
			ReadAt:  row.ReadAt,
		}
	}
	return out, nil
}

func (s *storeImpl) GetAllNamespaces(ctx context.Context) ([]string, error) {
	var namespaces []string
	err := s.db.WithContext(ctx).Model(&notificationMessageRow{}).
		Distinct("namespace").
		Where("namespace <> ''").
		Order("namespace").
		Pluck("namespace", &namespaces).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list namespaces")
	}
	return namespaces, nil
}

// --------------------------------------------------------------------------
// Timers
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationTimer(ctx context.Context, timer *notify.NotificationCallbackTimer) (*notify.NotificationCallbackTimer, error) {
	if timer.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	row, err := timerToRow(timer)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to save notification timer")
	}
	notify.CountSaved("timer")
	return rowToTimer(row)
}

func (s *storeImpl) GetNotificationTimer(ctx context.Context, name string) (*notify.NotificationCallbackTimer, error) {
	var row notificationTimerRow
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notify.NewItemNotFound("notification timer", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load notification timer")
	}
	return rowToTimer(&row)
}

func (s *storeImpl) GetAllActiveTimers(ctx context.Context, includeExecuted bool) ([]*notify.NotificationCallbackTimer, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name")
	if !includeExecuted {
		q = q.Where("executed_at IS NULL")
	}
	var rows []notificationTimerRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list active timers")
	}
	out := make([]*notify.NotificationCallbackTimer, len(rows))
	for i := range rows {
		timer, err := rowToTimer(&rows[i])
		if err != nil {
			return nil, err
		}
		out[i] = timer
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Preferences
// --------------------------------------------------------------------------

func (s *storeImpl) SaveNotificationPreference(ctx context.Context, pref *notify.NotificationPreference) (*notify.NotificationPreference, error) {
	if pref.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	row := prefToRow(pref)

	s.prefCache.Invalidate(pref.Name)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to save notification preference")
	}

	stored := rowToPref(row)
	s.prefCache.Put(stored.Name, stored)
	notify.CountSaved("preference")
	return stored, nil
}

func (s *storeImpl) GetNotificationPreference(ctx context.Context, name string) (*notify.NotificationPreference, error) {
	if cached, ok := s.prefCache.Get(name); ok {
		copied := *cached
		return &copied, nil
	}
	var row notificationPreferenceRow
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notify.NewItemNotFound("notification preference", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load notification preference")
	}
	pref := rowToPref(&row)
	s.prefCache.Put(name, pref)
	return pref, nil
}

func (s *storeImpl) GetAllNotificationPreferences(ctx context.Context) ([]*notify.NotificationPreference, error) {
	var rows []notificationPreferenceRow
	err := s.db.WithContext(ctx).Order("name").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notification preferences")
	}
	out := make([]*notify.NotificationPreference, len(rows))
	for i := range rows {
		out[i] = rowToPref(&rows[i])
	}
	return out, nil
}

func (s *storeImpl) SetUserPreference(ctx context.Context, up *notify.UserNotificationPreference) (*notify.UserNotificationPreference, error) {
	if up.Preference == nil || up.Preference.Name == "" {
		return nil, notify.ErrInvalidArgument
	}
	if _, err := s.GetNotificationPreference(ctx, up.Preference.Name); err != nil {
		return nil, err
	}

	row := &userPreferenceRow{UserID: up.UserID, PrefName: up.Preference.Name, Value: up.Value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to set user preference")
	}
	return s.GetUserPreference(ctx, up.UserID, up.Preference.Name)
}

func (s *storeImpl) GetUserPreference(ctx context.Context, userID int64, name string) (*notify.UserNotificationPreference, error) {
	var row userPreferenceRow
	err := s.db.WithContext(ctx).First(&row, "user_id = ? AND pref_name = ?", userID, name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notify.NewItemNotFound("user notification preference", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user preference")
	}
	pref, err := s.GetNotificationPreference(ctx, row.PrefName)
	if err != nil {
		return nil, err
	}
	return &notify.UserNotificationPreference{UserID: row.UserID, Preference: pref, Value: row.Value}, nil
}

func (s *storeImpl) GetAllUserPreferencesForUser(ctx context.Context, userID int64) ([]*notify.UserNotificationPreference, error) {
	var rows []userPreferenceRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("pref_name").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user preferences")
	}
	out := make([]*notify.UserNotificationPreference, len(rows))
	for i, row := range rows {
		pref, err := s.GetNotificationPreference(ctx, row.PrefName)
		if err != nil {
			return nil, err
		}
		out[i] = &notify.UserNotificationPreference{UserID: row.UserID, Preference: pref, Value: row.Value}
	}
	return out, nil
}

func (s *storeImpl) GetAllUserPreferencesWithName(ctx context.Context, name, value string, size, offset int) ([]*notify.UserNotificationPreference, error) {
	resolved, err := s.cfg.ResolveLimit(size)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, notify.ErrInvalidArgument
	}

	var rows []userPreferenceRow
	err = s.db.WithContext(ctx).
		Where("pref_name = ? AND value = ?", name, value).
		Order("user_id").
		Limit(resolved).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to page user preferences")
	}
	out := make([]*notify.UserNotificationPreference, len(rows))
	for i, row := range rows {
		pref, err := s.GetNotificationPreference(ctx, row.PrefName)
		if err != nil {
			return nil, err
		}
		out[i] = &notify.UserNotificationPreference{UserID: row.UserID, Preference: pref, Value: row.Value}
	}
	return out, nil
}
