package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullI18nGettext(t *testing.T) {
	svc := NewNullI18n()
	assert.Equal(t, "Submit", svc.Gettext("Submit"))
	assert.Equal(t, "1 attempt", svc.Ngettext("1 attempt", "%d attempts", 1))
	assert.Equal(t, "%d attempts", svc.Ngettext("1 attempt", "%d attempts", 3))
}

func TestStrftimeDirectives(t *testing.T) {
	svc := NewNullI18n()
	// A Thursday afternoon with microseconds.
	ts := time.Date(2024, 3, 7, 15, 4, 5, 123456000, time.UTC)

	cases := []struct {
		format string
		want   string
	}{
		{"%Y-%m-%d", "2024-03-07"},
		{"%y", "24"},
		{"%H:%M:%S", "15:04:05"},
		{"%f", "123456"},
		{"%b %d, %Y", "Mar 07, 2024"},
		{"%A, %B %d, %Y", "Thursday, March 07, 2024"},
		{"%a", "Thu"},
		{"%I:%M %p", "03:04 PM"},
		{"%j", "067"},
		{"100%%", "100%"},
		// Unknown directives come through literally.
		{"%Q", "%Q"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, svc.Strftime(ts, tc.format), "format %q", tc.format)
	}
}

func TestStrftimeShortcuts(t *testing.T) {
	svc := NewNullI18n()
	ts := time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "Mar 07, 2024", svc.Strftime(ts, ShortDateFormat))
	assert.Equal(t, "Thursday, March 07, 2024", svc.Strftime(ts, LongDateFormat))
	assert.Equal(t, "09:30:00", svc.Strftime(ts, TimeFormat))
	assert.Equal(t, "Mar 07, 2024 at 09:30", svc.Strftime(ts, DateTimeFormat))
}

func TestStrftimeMidnightAndNoon(t *testing.T) {
	svc := NewNullI18n()

	midnight := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "12:00 AM", svc.Strftime(midnight, "%I:%M %p"))

	noon := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "12:00 PM", svc.Strftime(noon, "%I:%M %p"))
}
