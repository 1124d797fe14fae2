package fields

import (
	"strings"
	"time"
)

// dateTimeLayout is the textual form emitted for timestamps. It matches the
// platform's historical %Y-%m-%dT%H:%M:%S.%f format (microseconds, no zone;
// values are always UTC).
const dateTimeLayout = "2006-01-02T15:04:05.000000"

// acceptedLayouts are tried in order when parsing. RFC3339 variants cover
// zone-suffixed input (including Z and fractional seconds); the bare layouts
// cover zone-less input, which is interpreted as UTC.
var acceptedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type dateTimeCodec struct{}

func (dateTimeCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return tv.UTC(), nil
	case *time.Time:
		if tv == nil {
			return nil, nil
		}
		return tv.UTC(), nil
	case string:
		if tv == "" {
			return nil, nil
		}
		s := strings.TrimSpace(tv)
		for _, layout := range acceptedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, badValuef("cannot parse %q as a timestamp", tv)
	default:
		return nil, badTypef("value of type %T is not a timestamp", v)
	}
}

func (c dateTimeCodec) ToJSON(v interface{}) (interface{}, error) {
	s, err := c.ToString(v)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return s, nil
}

func (c dateTimeCodec) FromString(s string) (interface{}, error) {
	return c.FromJSON(s)
}

func (dateTimeCodec) ToString(v interface{}) (string, error) {
	switch tv := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		return tv.UTC().Format(dateTimeLayout), nil
	case string:
		// Already serialized; emit unchanged.
		return tv, nil
	default:
		return "", badTypef("value of type %T is not a timestamp", v)
	}
}
