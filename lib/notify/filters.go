package notify

import (
	"time"
)

// --------------------------------------------------------------------------
// Filters
// --------------------------------------------------------------------------

// Bool is a convenience for building filter literals.
func Bool(b bool) *bool { return &b }

// Filters narrows user-notification queries. All set members combine with
// AND. Read and Unread default to true when nil (no read-state filtering);
// setting both to false is contradictory and rejected.
type Filters struct {
	// Namespace filters on the message namespace (equality).
	Namespace string
	// TypeName filters on the message type name (equality).
	TypeName string
	// Read/Unread select by read state. nil means true.
	Read   *bool
	Unread *bool
	// StartDate/EndDate bound the user-notification Created timestamp,
	// inclusive on both ends.
	StartDate *time.Time
	EndDate   *time.Time
}

// ReadFlags resolves the read/unread pair with their defaults applied.
func (f *Filters) ReadFlags() (read, unread bool) {
	read, unread = true, true
	if f == nil {
		return
	}
	if f.Read != nil {
		read = *f.Read
	}
	if f.Unread != nil {
		unread = *f.Unread
	}
	return
}

// Validate rejects contradictory filter combinations.
func (f *Filters) Validate() error {
	read, unread := f.ReadFlags()
	if !read && !unread {
		return errInvalidArgumentf("filters cannot exclude both read and unread notifications")
	}
	return nil
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options tunes reads. The zero value means: default limit, no offset,
// select related entities eagerly.
type Options struct {
	// Limit caps the result size. 0 means the configured default; values
	// above the configured maximum are rejected.
	Limit  int
	Offset int
	// SelectRelated controls whether related entities (the message's type)
	// are loaded eagerly. nil means true; with false, the type is fetched
	// lazily on first access.
	SelectRelated *bool
}

// SelectRelatedFlag resolves SelectRelated with its default applied.
func (o *Options) SelectRelatedFlag() bool {
	if o == nil || o.SelectRelated == nil {
		return true
	}
	return *o.SelectRelated
}

// --------------------------------------------------------------------------
// Store Configuration
// --------------------------------------------------------------------------

// Default bounds, suitable for interactive use.
const (
	DefaultMaxBulkSize = 1024
	DefaultMaxListSize = 100
)

// Config bounds store operations. The zero value is usable: zero members
// take the defaults above.
type Config struct {
	// MaxBulkSize is the ceiling on BulkCreateUserNotification input length.
	MaxBulkSize int
	// MaxListSize is the ceiling on query limits (and the default limit).
	MaxListSize int
	// ArchiveEnabled copies purged rows into the archive before deletion.
	ArchiveEnabled bool
}

// WithDefaults fills zero members with the default bounds.
func (c Config) WithDefaults() Config {
	if c.MaxBulkSize <= 0 {
		c.MaxBulkSize = DefaultMaxBulkSize
	}
	if c.MaxListSize <= 0 {
		c.MaxListSize = DefaultMaxListSize
	}
	return c
}

// ResolveLimit validates a requested limit against the configuration and
// substitutes the default for 0.
func (c Config) ResolveLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, errInvalidArgumentf("limit must not be negative, got %d", limit)
	}
	if limit > c.MaxListSize {
		return 0, errInvalidArgumentf("limit %d exceeds the maximum of %d", limit, c.MaxListSize)
	}
	if limit == 0 {
		return c.MaxListSize, nil
	}
	return limit, nil
}

// CheckBulkSize validates a bulk input length.
func (c Config) CheckBulkSize(n int) error {
	if n > c.MaxBulkSize {
		return errBulkTooLarge(n, c.MaxBulkSize)
	}
	return nil
}
