package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// --------------------------------------------------------------------------
// Shared Helpers
// --------------------------------------------------------------------------

// jsonEncode renders a storage value as compact JSON text. Used by codecs
// whose textual form is simply the JSON of their storage form.
func jsonEncode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", badValuef("value is not JSON-serializable: %v", err)
	}
	return string(b), nil
}

func jsonDecode(s string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, badValuef("malformed JSON: %v", err)
	}
	return v, nil
}

// copyValue deep-copies container values so that shared defaults are never
// mutated through an instance. Scalars are returned as-is.
func copyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, e := range tv {
			out[k] = copyValue(e)
		}
		return out
	case map[interface{}]struct{}:
		out := make(map[interface{}]struct{}, len(tv))
		for k := range tv {
			out[k] = struct{}{}
		}
		return out
	default:
		return v
	}
}

// sanitizeString strips ASCII control characters except \n, \r and \t.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// --------------------------------------------------------------------------
// Integer
// --------------------------------------------------------------------------

type integerCodec struct{}

func (integerCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case int:
		return tv, nil
	case int32:
		return int(tv), nil
	case int64:
		return int(tv), nil
	case bool:
		if tv {
			return 1, nil
		}
		return 0, nil
	case float32:
		return int(tv), nil
	case float64:
		return int(tv), nil
	case string:
		if tv == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(tv))
		if err != nil {
			return nil, badValuef("cannot convert %q to an integer", tv)
		}
		return n, nil
	default:
		return nil, badTypef("cannot convert %T to an integer", v)
	}
}

func (integerCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (c integerCodec) FromString(s string) (interface{}, error) { return c.FromJSON(s) }

func (integerCodec) ToString(v interface{}) (string, error) { return jsonEncode(v) }

// --------------------------------------------------------------------------
// Float
// --------------------------------------------------------------------------

type floatCodec struct{}

func (floatCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return tv, nil
	case float32:
		return float64(tv), nil
	case int:
		return float64(tv), nil
	case int64:
		return float64(tv), nil
	case bool:
		if tv {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		if tv == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64)
		if err != nil {
			return nil, badValuef("cannot convert %q to a float", tv)
		}
		return f, nil
	default:
		return nil, badTypef("cannot convert %T to a float", v)
	}
}

func (floatCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (c floatCodec) FromString(s string) (interface{}, error) { return c.FromJSON(s) }

func (floatCodec) ToString(v interface{}) (string, error) {
	// NaN and the infinities are not valid JSON; render them the way the
	// platform's textual format expects.
	if f, ok := v.(float64); ok {
		switch {
		case math.IsNaN(f):
			return "NaN", nil
		case math.IsInf(f, 1):
			return "Infinity", nil
		case math.IsInf(f, -1):
			return "-Infinity", nil
		}
	}
	return jsonEncode(v)
}

// --------------------------------------------------------------------------
// Boolean
// --------------------------------------------------------------------------

type booleanCodec struct{}

func (booleanCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return false, nil
	case bool:
		return tv, nil
	case string:
		return strings.EqualFold(tv, "true"), nil
	case int:
		return tv != 0, nil
	case int64:
		return tv != 0, nil
	case float64:
		return tv != 0, nil
	default:
		// Truthiness for containers: non-empty is true.
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array:
			return rv.Len() > 0, nil
		default:
			return true, nil
		}
	}
}

func (booleanCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (c booleanCodec) FromString(s string) (interface{}, error) { return c.FromJSON(s) }

func (booleanCodec) ToString(v interface{}) (string, error) { return jsonEncode(v) }

// --------------------------------------------------------------------------
// String
// --------------------------------------------------------------------------

type stringCodec struct{}

func (stringCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string:
		return sanitizeString(tv), nil
	case []byte:
		return sanitizeString(string(tv)), nil
	default:
		return nil, badTypef("value of type %T is not a string", v)
	}
}

func (stringCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (stringCodec) FromString(s string) (interface{}, error) {
	return sanitizeString(s), nil
}

func (stringCodec) ToString(v interface{}) (string, error) {
	switch tv := v.(type) {
	case nil:
		return "", nil
	case string:
		return tv, nil
	default:
		return "", badTypef("value of type %T is not a string", v)
	}
}

// --------------------------------------------------------------------------
// XMLString
// --------------------------------------------------------------------------

type xmlStringCodec struct{}

func (xmlStringCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string:
		doc := etree.NewDocument()
		if err := doc.ReadFromString(tv); err != nil {
			return nil, badValuef("value is not well-formed XML: %v", err)
		}
		return tv, nil
	default:
		return nil, badTypef("value of type %T is not an XML string", v)
	}
}

func (xmlStringCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (c xmlStringCodec) FromString(s string) (interface{}, error) { return c.FromJSON(s) }

func (xmlStringCodec) ToString(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", badTypef("value of type %T is not an XML string", v)
}

// --------------------------------------------------------------------------
// List
// --------------------------------------------------------------------------

type listCodec struct{}

func (listCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return tv, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return nil, badTypef("value of type %T is not a list", v)
}

func (listCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (listCodec) FromString(s string) (interface{}, error) { return jsonDecode(s) }

func (listCodec) ToString(v interface{}) (string, error) { return jsonEncode(v) }

// --------------------------------------------------------------------------
// Set
// --------------------------------------------------------------------------

type setCodec struct{}

func (setCodec) FromJSON(v interface{}) (interface{}, error) {
	out := map[interface{}]struct{}{}
	add := func(e interface{}) error {
		if e != nil && !reflect.TypeOf(e).Comparable() {
			return badValuef("unhashable set element of type %T", e)
		}
		out[e] = struct{}{}
		return nil
	}
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case map[interface{}]struct{}:
		return tv, nil
	case []interface{}:
		for _, e := range tv {
			if err := add(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case string:
		for _, r := range tv {
			out[string(r)] = struct{}{}
		}
		return out, nil
	case map[string]interface{}:
		for k := range tv {
			out[k] = struct{}{}
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if err := add(rv.Index(i).Interface()); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, badTypef("value of type %T is not iterable", v)
}

// ToJSON renders the set as a deterministically ordered list so that the
// serialized form is stable across reads (dirty tracking compares it).
func (setCodec) ToJSON(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	set, ok := v.(map[interface{}]struct{})
	if !ok {
		return nil, badTypef("value of type %T is not a set", v)
	}
	out := make([]interface{}, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out, nil
}

func (c setCodec) FromString(s string) (interface{}, error) {
	v, err := jsonDecode(s)
	if err != nil {
		return nil, err
	}
	return c.FromJSON(v)
}

func (c setCodec) ToString(v interface{}) (string, error) {
	j, err := c.ToJSON(v)
	if err != nil {
		return "", err
	}
	return jsonEncode(j)
}

// --------------------------------------------------------------------------
// Dict
// --------------------------------------------------------------------------

type dictCodec struct{}

func (dictCodec) FromJSON(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return tv, nil
	default:
		return nil, badTypef("value of type %T is not a mapping", v)
	}
}

func (dictCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (dictCodec) FromString(s string) (interface{}, error) { return jsonDecode(s) }

func (dictCodec) ToString(v interface{}) (string, error) { return jsonEncode(v) }

// --------------------------------------------------------------------------
// Reference / ReferenceList
// --------------------------------------------------------------------------

type referenceCodec struct{}

func (referenceCodec) FromJSON(v interface{}) (interface{}, error) {
	switch v.(type) {
	case nil, string:
		return v, nil
	default:
		return nil, badTypef("value of type %T is not a usage reference", v)
	}
}

func (referenceCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (referenceCodec) FromString(s string) (interface{}, error) { return s, nil }

func (referenceCodec) ToString(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", badTypef("value of type %T is not a usage reference", v)
}

type referenceListCodec struct{}

func (referenceListCodec) FromJSON(v interface{}) (interface{}, error) {
	lst, err := listCodec{}.FromJSON(v)
	if err != nil {
		return nil, err
	}
	if lst == nil {
		return nil, nil
	}
	for _, e := range lst.([]interface{}) {
		if _, ok := e.(string); !ok {
			return nil, badTypef("reference list element of type %T is not a usage reference", e)
		}
	}
	return lst, nil
}

func (referenceListCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (referenceListCodec) FromString(s string) (interface{}, error) { return jsonDecode(s) }

func (referenceListCodec) ToString(v interface{}) (string, error) { return jsonEncode(v) }

// --------------------------------------------------------------------------
// Any
// --------------------------------------------------------------------------

type anyCodec struct{}

func (anyCodec) FromJSON(v interface{}) (interface{}, error) { return v, nil }

func (anyCodec) ToJSON(v interface{}) (interface{}, error) { return v, nil }

func (anyCodec) FromString(s string) (interface{}, error) { return jsonDecode(s) }

func (anyCodec) ToString(v interface{}) (string, error) { return jsonEncode(v) }
