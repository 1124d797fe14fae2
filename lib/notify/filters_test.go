package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFlagsDefaults(t *testing.T) {
	var nilFilters *Filters
	read, unread := nilFilters.ReadFlags()
	assert.True(t, read)
	assert.True(t, unread)

	read, unread = (&Filters{}).ReadFlags()
	assert.True(t, read)
	assert.True(t, unread)

	read, unread = (&Filters{Read: Bool(false)}).ReadFlags()
	assert.False(t, read)
	assert.True(t, unread)

	read, unread = (&Filters{Unread: Bool(false)}).ReadFlags()
	assert.True(t, read)
	assert.False(t, unread)
}

func TestFiltersValidate(t *testing.T) {
	var nilFilters *Filters
	assert.NoError(t, nilFilters.Validate())
	assert.NoError(t, (&Filters{}).Validate())
	assert.NoError(t, (&Filters{Read: Bool(false)}).Validate())

	err := (&Filters{Read: Bool(false), Unread: Bool(false)}).Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSelectRelatedFlag(t *testing.T) {
	var nilOpts *Options
	assert.True(t, nilOpts.SelectRelatedFlag())
	assert.True(t, (&Options{}).SelectRelatedFlag())
	assert.False(t, (&Options{SelectRelated: Bool(false)}).SelectRelatedFlag())
	assert.True(t, (&Options{SelectRelated: Bool(true)}).SelectRelatedFlag())
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, DefaultMaxBulkSize, cfg.MaxBulkSize)
	assert.Equal(t, DefaultMaxListSize, cfg.MaxListSize)

	custom := Config{MaxBulkSize: 10, MaxListSize: 5}.WithDefaults()
	assert.Equal(t, 10, custom.MaxBulkSize)
	assert.Equal(t, 5, custom.MaxListSize)
}

func TestResolveLimit(t *testing.T) {
	cfg := Config{MaxListSize: 5}.WithDefaults()

	limit, err := cfg.ResolveLimit(0)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	limit, err = cfg.ResolveLimit(3)
	require.NoError(t, err)
	assert.Equal(t, 3, limit)

	_, err = cfg.ResolveLimit(6)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = cfg.ResolveLimit(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCheckBulkSize(t *testing.T) {
	cfg := Config{MaxBulkSize: 2}.WithDefaults()
	assert.NoError(t, cfg.CheckBulkSize(2))
	assert.ErrorIs(t, cfg.CheckBulkSize(3), ErrBulkOperationTooLarge)
}
