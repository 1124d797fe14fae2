package fields

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerCodec(t *testing.T) {
	f := Integer("count", ScopeSettings, Options{EnforceType: true})

	cases := []struct {
		in   interface{}
		want interface{}
	}{
		{nil, nil},
		{42, 42},
		{int64(7), 7},
		{true, 1},
		{false, 0},
		{3.9, 3},
		{"", nil},
		{" 12 ", 12},
	}
	for _, tc := range cases {
		got, err := f.FromJSON(tc.in)
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}

	_, err := f.FromJSON("12.5")
	assert.ErrorIs(t, err, ErrBadValue)
	_, err = f.FromJSON([]interface{}{1})
	assert.ErrorIs(t, err, ErrBadType)
}

func TestFloatCodec(t *testing.T) {
	f := Float("weight", ScopeSettings, Options{EnforceType: true})

	got, err := f.FromJSON("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	got, err = f.FromJSON(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = f.FromJSON("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.(float64)))

	s, err := f.ToString(math.NaN())
	require.NoError(t, err)
	assert.Equal(t, "NaN", s)
	s, err = f.ToString(math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, "Infinity", s)
	s, err = f.ToString(math.Inf(-1))
	require.NoError(t, err)
	assert.Equal(t, "-Infinity", s)
	s, err = f.ToString(1.5)
	require.NoError(t, err)
	assert.Equal(t, "1.5", s)
}

func TestBooleanCodec(t *testing.T) {
	f := Boolean("done", ScopeUserState, Options{EnforceType: true})

	cases := []struct {
		in   interface{}
		want bool
	}{
		{nil, false},
		{true, true},
		{"true", true},
		{"True", true},
		{"TRUE", true},
		{"false", false},
		{"anything else", false},
		{1, true},
		{0, false},
		{[]interface{}{}, false},
		{[]interface{}{1}, true},
	}
	for _, tc := range cases {
		got, err := f.FromJSON(tc.in)
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}
}

func TestStringCodecSanitizes(t *testing.T) {
	f := String("title", ScopeSettings, Options{EnforceType: true})

	got, err := f.FromJSON("a\x00b\x01c\nd\te\rf")
	require.NoError(t, err)
	assert.Equal(t, "abc\nd\te\rf", got)

	_, err = f.FromJSON(42)
	assert.ErrorIs(t, err, ErrBadType)
}

func TestXMLStringCodec(t *testing.T) {
	f := XMLString("markup", ScopeContent, Options{EnforceType: true})

	got, err := f.FromJSON("<p>hello</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", got)

	_, err = f.FromJSON("<p>unclosed")
	assert.ErrorIs(t, err, ErrBadValue)
}

func TestListCodec(t *testing.T) {
	f := List("items", ScopeContent, Options{EnforceType: true})

	got, err := f.FromJSON([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, got)

	_, err = f.FromJSON("not a list")
	assert.ErrorIs(t, err, ErrBadType)
	_, err = f.FromJSON(map[string]interface{}{"a": 1})
	assert.ErrorIs(t, err, ErrBadType)
}

func TestSetCodec(t *testing.T) {
	f := Set("tags", ScopeSettings, Options{EnforceType: true})

	got, err := f.FromJSON([]interface{}{"b", "a", "b"})
	require.NoError(t, err)
	set, ok := got.(map[interface{}]struct{})
	require.True(t, ok)
	assert.Len(t, set, 2)

	// Strings decompose into their characters.
	got, err = f.FromJSON("abca")
	require.NoError(t, err)
	assert.Len(t, got.(map[interface{}]struct{}), 3)

	// Mapping input keeps only the keys.
	got, err = f.FromJSON(map[string]interface{}{"x": 1, "y": 2})
	require.NoError(t, err)
	assert.Len(t, got.(map[interface{}]struct{}), 2)

	// Unhashable elements are rejected.
	_, err = f.FromJSON([]interface{}{[]interface{}{1}})
	assert.ErrorIs(t, err, ErrBadValue)

	// The serialized form is deterministically ordered.
	j, err := f.ToJSON(map[interface{}]struct{}{"c": {}, "a": {}, "b": {}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b", "c"}, j)
}

func TestDictCodec(t *testing.T) {
	f := Dict("meta", ScopeContent, Options{EnforceType: true})

	got, err := f.FromJSON(map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"k": "v"}, got)

	_, err = f.FromJSON([]interface{}{"k"})
	assert.ErrorIs(t, err, ErrBadType)
}

func TestReferenceListCodec(t *testing.T) {
	f := ReferenceList("children", ScopeChildren, Options{EnforceType: true})

	got, err := f.FromJSON([]interface{}{"usage-1", "usage-2"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"usage-1", "usage-2"}, got)

	_, err = f.FromJSON([]interface{}{"usage-1", 2})
	assert.ErrorIs(t, err, ErrBadType)
}

func TestDateTimeCodec(t *testing.T) {
	f := DateTime("due", ScopeSettings, Options{EnforceType: true})

	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-05-01T12:30:00Z",
		"2024-05-01T12:30:00",
		"2024-05-01T12:30:00.000000",
	} {
		got, err := f.FromJSON(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, want.Equal(got.(time.Time)), "input %q parsed to %v", in, got)
	}

	// Zone-suffixed input is normalized to UTC.
	got, err := f.FromJSON("2024-05-01T14:30:00+02:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got.(time.Time)))

	// The serialized form carries microseconds and no zone.
	j, err := f.ToJSON(want)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:30:00.000000", j)

	// Round trip through the serialized form.
	back, err := f.FromJSON(j)
	require.NoError(t, err)
	assert.True(t, want.Equal(back.(time.Time)))

	_, err = f.FromJSON("not a date")
	assert.ErrorIs(t, err, ErrBadValue)
}

func TestCopyValueIsolation(t *testing.T) {
	orig := map[string]interface{}{
		"list": []interface{}{1, 2},
		"map":  map[string]interface{}{"k": "v"},
	}
	copied := copyValue(orig).(map[string]interface{})

	copied["list"].([]interface{})[0] = 99
	copied["map"].(map[string]interface{})["k"] = "changed"

	assert.Equal(t, 1, orig["list"].([]interface{})[0])
	assert.Equal(t, "v", orig["map"].(map[string]interface{})["k"])
}
