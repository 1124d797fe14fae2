package fields

import (
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// --------------------------------------------------------------------------
// Codec Interface
// --------------------------------------------------------------------------

// Codec is the conversion strategy behind a field. FromJSON/ToJSON convert
// between application values and the storage representation; FromString and
// ToString convert between application values and textual (XML attribute)
// form. Codecs are strict: conversion failures are reported as errors and the
// owning Field decides, based on its enforcement mode, whether to surface or
// tolerate them.
type Codec interface {
	FromJSON(v interface{}) (interface{}, error)
	ToJSON(v interface{}) (interface{}, error)
	FromString(s string) (interface{}, error)
	ToString(v interface{}) (string, error)
}

// DefaultFunc computes a per-instance default from the enclosing block's
// ScopeIds. This is how defaults that depend on the instance (such as the
// UniqueID default) are expressed.
type DefaultFunc func(ScopeIds) interface{}

// --------------------------------------------------------------------------
// Field Options
// --------------------------------------------------------------------------

// Options configures a field beyond its name and scope. The zero value is a
// valid configuration (nil default, lenient codec).
type Options struct {
	// Default is the value returned when the field is unset. Container
	// defaults are deep-copied on every read so instances never share state.
	Default interface{}
	// DefaultFunc, when set, takes precedence over Default.
	DefaultFunc DefaultFunc
	// UniqueID directs the field to synthesize a deterministic per-instance
	// identifier as its default. Takes precedence over Default/DefaultFunc.
	UniqueID bool
	// EnforceType makes the codec strict: invalid input surfaces as an error
	// instead of being passed through with a warning.
	EnforceType bool

	DisplayName string
	Help        string
	// Values optionally enumerates the acceptable values (for editors).
	Values interface{}
}

// --------------------------------------------------------------------------
// Field
// --------------------------------------------------------------------------

// Field is a descriptor: it describes how one named, scoped value of a block
// is converted, defaulted and stored. Fields hold no values themselves.
type Field struct {
	name     string
	scope    Scope
	typeName string
	codec    Codec
	opts     Options
}

func newField(name string, scope Scope, typeName string, codec Codec, opts Options) *Field {
	return &Field{name: name, scope: scope, typeName: typeName, codec: codec, opts: opts}
}

func (f *Field) Name() string      { return f.name }
func (f *Field) Scope() Scope      { return f.scope }
func (f *Field) TypeName() string  { return f.typeName }
func (f *Field) EnforceType() bool { return f.opts.EnforceType }
func (f *Field) Help() string      { return f.opts.Help }

func (f *Field) Values() interface{} { return f.opts.Values }

// DisplayName returns the configured display name, falling back to the field
// name itself.
func (f *Field) DisplayName() string {
	if f.opts.DisplayName != "" {
		return f.opts.DisplayName
	}
	return f.name
}

// Default computes the default value of the field for one block instance.
// Container defaults are copied so that mutation of the returned value never
// leaks into other instances.
func (f *Field) Default(sids ScopeIds) interface{} {
	if f.opts.UniqueID {
		return f.uniqueID(sids)
	}
	if f.opts.DefaultFunc != nil {
		return f.opts.DefaultFunc(sids)
	}
	return copyValue(f.opts.Default)
}

// uniqueID derives the deterministic per-instance identifier. The usage id
// always participates; the user id participates only for per-user scopes, so
// that shared-scope fields agree across users of the same usage.
func (f *Field) uniqueID(sids ScopeIds) string {
	h := sha256.New()
	h.Write([]byte("usage:" + sids.UsageID))
	if f.scope.User == UserScopeOne {
		h.Write([]byte("|user:" + sids.UserID))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// FromJSON converts a storage value to the application value. In enforcing
// mode codec failures propagate; otherwise the raw value is accepted
// unchanged and a deprecation warning is logged.
func (f *Field) FromJSON(v interface{}) (interface{}, error) {
	out, err := f.codec.FromJSON(v)
	if err != nil {
		if f.opts.EnforceType {
			return nil, err
		}
		pkgLogger.Warnw("deprecated: field received a value its codec cannot convert",
			"field", f.name, "type", f.typeName, "err", err)
		return v, nil
	}
	return out, nil
}

// ToJSON converts an application value to its storage representation.
func (f *Field) ToJSON(v interface{}) (interface{}, error) {
	return f.codec.ToJSON(v)
}

// FromString parses the textual form of the field (XML attribute values).
func (f *Field) FromString(s string) (interface{}, error) {
	v, err := f.codec.FromString(s)
	if err != nil {
		if f.opts.EnforceType {
			return nil, err
		}
		pkgLogger.Warnw("deprecated: field received a string its codec cannot parse",
			"field", f.name, "type", f.typeName, "err", err)
		return s, nil
	}
	return v, nil
}

// ToString renders the textual form of the field.
func (f *Field) ToString(v interface{}) (string, error) {
	return f.codec.ToString(v)
}

// --------------------------------------------------------------------------
// Typed Constructors
// --------------------------------------------------------------------------

// Integer declares an integer field. Accepts ints, bools, floats (truncated)
// and numeric strings; nil and "" map to nil.
func Integer(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Integer", integerCodec{}, opts)
}

// Float declares a floating point field. NaN and the infinities are accepted.
func Float(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Float", floatCodec{}, opts)
}

// Boolean declares a boolean field with lenient string coercion ("true"/"True"
// case-insensitively are true, any other string is false).
func Boolean(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Boolean", booleanCodec{}, opts)
}

// String declares a string field. ASCII control characters other than
// \n, \r and \t are stripped on assignment.
func String(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "String", stringCodec{}, opts)
}

// XMLString declares a string field that must contain well-formed XML when
// enforcement is on.
func XMLString(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "XMLString", xmlStringCodec{}, opts)
}

// DateTime declares a timestamp field. ISO-8601 strings (with Z suffix and
// fractional seconds) and time.Time values are accepted; values are always
// normalized to UTC.
func DateTime(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "DateTime", dateTimeCodec{}, opts)
}

// List declares an ordered container field ([]interface{}).
func List(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "List", listCodec{}, opts)
}

// Set declares an unordered container field (map[interface{}]struct{}).
// Iterables of hashable values are coerced.
func Set(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Set", setCodec{}, opts)
}

// Dict declares a mapping field (map[string]interface{}).
func Dict(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Dict", dictCodec{}, opts)
}

// Reference declares an opaque reference to another usage.
func Reference(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Reference", referenceCodec{}, opts)
}

// ReferenceList declares an ordered list of usage references.
func ReferenceList(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "ReferenceList", referenceListCodec{}, opts)
}

// Any declares a field accepting any JSON-serializable value unchanged.
func Any(name string, scope Scope, opts Options) *Field {
	return newField(name, scope, "Any", anyCodec{}, opts)
}

// Dynamic declares a field with a caller-supplied codec. This is the
// extension point for host applications that need custom serialization.
func Dynamic(name string, scope Scope, codec Codec, opts Options) *Field {
	return newField(name, scope, "Dynamic", codec, opts)
}

// --------------------------------------------------------------------------
// Package Logger
// --------------------------------------------------------------------------

var pkgLogger = zap.NewNop().Sugar()

// SetLogger routes the package's deprecation warnings to the given logger.
func SetLogger(l *zap.Logger) {
	pkgLogger = l.Sugar().With("pkg", "fields")
}
