// Package services provides the default implementations available through
// the runtime's services registry.
package services

import (
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// I18n Service
// --------------------------------------------------------------------------

// I18n is the translation and date-formatting service blocks request by the
// name "i18n".
type I18n interface {
	// Strftime formats a timestamp with a strftime-style pattern or one of
	// the named shortcuts (SHORT_DATE, LONG_DATE, TIME, DATE_TIME).
	Strftime(t time.Time, format string) string
	// Gettext returns the translation of a message.
	Gettext(msg string) string
	// Ngettext returns the singular or plural translation based on n.
	Ngettext(singular, plural string, n int) string
}

// Named format shortcuts accepted by Strftime.
const (
	ShortDateFormat = "SHORT_DATE"
	LongDateFormat  = "LONG_DATE"
	TimeFormat      = "TIME"
	DateTimeFormat  = "DATE_TIME"
)

// nullI18n performs no translation: Gettext is the identity and Ngettext
// picks by count. Date formatting uses English names.
type nullI18n struct{}

// NewNullI18n creates the default null translations service.
func NewNullI18n() I18n {
	return nullI18n{}
}

func (nullI18n) Gettext(msg string) string { return msg }

func (nullI18n) Ngettext(singular, plural string, n int) string {
	if n == 1 {
		return singular
	}
	return plural
}

func (i nullI18n) Strftime(t time.Time, format string) string {
	switch format {
	case ShortDateFormat:
		format = "%b %d, %Y"
	case LongDateFormat:
		format = "%A, %B %d, %Y"
	case TimeFormat:
		format = "%H:%M:%S"
	case DateTimeFormat:
		format = "%b %d, %Y at %H:%M"
	}
	return strftime(t, format)
}

// --------------------------------------------------------------------------
// strftime
// --------------------------------------------------------------------------

// strftime expands the strftime directives the platform actually uses.
// Unknown directives are emitted literally (percent included) so callers
// notice them in output rather than silently losing text.
func strftime(t time.Time, format string) string {
	var sb strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' || i == len(runes)-1 {
			sb.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case 'Y':
			sb.WriteString(strconv.Itoa(t.Year()))
		case 'y':
			sb.WriteString(pad2(t.Year() % 100))
		case 'm':
			sb.WriteString(pad2(int(t.Month())))
		case 'd':
			sb.WriteString(pad2(t.Day()))
		case 'H':
			sb.WriteString(pad2(t.Hour()))
		case 'M':
			sb.WriteString(pad2(t.Minute()))
		case 'S':
			sb.WriteString(pad2(t.Second()))
		case 'f':
			sb.WriteString(pad6(t.Nanosecond() / 1000))
		case 'b':
			sb.WriteString(t.Month().String()[:3])
		case 'B':
			sb.WriteString(t.Month().String())
		case 'a':
			sb.WriteString(t.Weekday().String()[:3])
		case 'A':
			sb.WriteString(t.Weekday().String())
		case 'p':
			if t.Hour() < 12 {
				sb.WriteString("AM")
			} else {
				sb.WriteString("PM")
			}
		case 'I':
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			sb.WriteString(pad2(h))
		case 'j':
			sb.WriteString(pad3(t.YearDay()))
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteRune(runes[i])
		}
	}
	return sb.String()
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func pad6(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}
