package sqlstore

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coursekit/coursekit/lib/notify"
	dbtesting "github.com/coursekit/coursekit/lib/notify/testing"
)

func TestSQLStore(t *testing.T) {
	dbtesting.RunStoreTests(t, "SQLStore", func() notify.Store {
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			t.Fatalf("failed to open in-memory database: %v", err)
		}
		// An in-memory sqlite database exists per connection, so the pool
		// must be pinned to one connection or tables vanish between calls.
		sqlDB, err := db.DB()
		if err != nil {
			t.Fatalf("failed to access database handle: %v", err)
		}
		sqlDB.SetMaxOpenConns(1)
		store, err := New(db, notify.Config{ArchiveEnabled: true}, nil)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		return store
	})
}
