package runtime

import (
	"github.com/coursekit/coursekit/lib/fields"
)

// Block families. The family classifies an element during XML import and
// partitions field storage between primary blocks and asides.
const (
	FamilyBlock = "xblock.v1"
	FamilyAside = "xblock_asides.v1"
)

// --------------------------------------------------------------------------
// View / Handler Signatures
// --------------------------------------------------------------------------

// ViewFunc renders one named view of a block.
type ViewFunc func(b *Block, context map[string]interface{}) (*Fragment, error)

// FallbackViewFunc renders any view the class has no specific view for; it
// additionally receives the requested view name.
type FallbackViewFunc func(b *Block, viewName string, context map[string]interface{}) (*Fragment, error)

// AsideViewFunc renders one named view of an aside decorating a block.
type AsideViewFunc func(a *Aside, b *Block, context map[string]interface{}) (*Fragment, error)

// HandlerFunc services one named handler invocation on a block.
type HandlerFunc func(b *Block, req *Request, suffix string) (*Response, error)

// FallbackHandlerFunc services any handler the class has no specific handler
// for; it additionally receives the requested handler name.
type FallbackHandlerFunc func(b *Block, handlerName string, req *Request, suffix string) (*Response, error)

// ParseXMLFunc customizes how a class populates a fresh block from an XML
// element during import. node is an opaque *etree.Element passed through the
// XMLNode wrapper to keep etree out of most signatures.
type ParseXMLFunc func(b *Block, node *XMLNode) error

// Request is the transport-neutral handler input.
type Request struct {
	Method string
	Body   []byte
	Params map[string]string
}

// Response is the transport-neutral handler output.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// --------------------------------------------------------------------------
// Class
// --------------------------------------------------------------------------

// Class is the blueprint for a block or aside type: its field table, views,
// handlers and declarations. Classes are assembled once at registration time
// and treated as immutable afterwards; the Mixologist derives mixed variants
// without touching the original.
type Class struct {
	name   string
	family string

	fieldOrder []*fields.Field
	fieldIndex map[string]*fields.Field

	views           map[string]ViewFunc
	asideViews      map[string]AsideViewFunc
	fallbackView    FallbackViewFunc
	handlers        map[string]HandlerFunc
	fallbackHandler FallbackHandlerFunc

	// service declarations: needs are strict, wants are optional
	needs map[string]bool
	wants map[string]bool

	parseXML     ParseXMLFunc
	contentField string

	// aside-specific
	shouldApplyToBlock func(b *Block) bool
	needsSerialization bool

	mixins  []*Mixin
	unmixed *Class
}

// NewClass creates a block class. Every class carries the structural
// children/parent fields implicitly.
func NewClass(name string) *Class {
	c := &Class{
		name:       name,
		family:     FamilyBlock,
		fieldIndex: map[string]*fields.Field{},
		views:      map[string]ViewFunc{},
		asideViews: map[string]AsideViewFunc{},
		handlers:   map[string]HandlerFunc{},
		needs:      map[string]bool{},
		wants:      map[string]bool{},
	}
	c.AddField(fields.ReferenceList(ChildrenFieldName, fields.ScopeChildren, fields.Options{Default: []interface{}{}}))
	c.AddField(fields.Reference(ParentFieldName, fields.ScopeParent, fields.Options{}))
	return c
}

// NewAsideClass creates an aside class. By default an aside applies to every
// block; narrow with ApplyWhen.
func NewAsideClass(name string) *Class {
	c := NewClass(name)
	c.family = FamilyAside
	return c
}

// Structural field names present on every class.
const (
	ChildrenFieldName = "children"
	ParentFieldName   = "parent"
)

func (c *Class) Name() string   { return c.name }
func (c *Class) Family() string { return c.family }

// IsAside reports whether the class describes an aside type.
func (c *Class) IsAside() bool { return c.family == FamilyAside }

// Unmixed returns the base class a mixed class was derived from. For an
// unmixed class it returns the class itself.
func (c *Class) Unmixed() *Class {
	if c.unmixed != nil {
		return c.unmixed
	}
	return c
}

// Mixins returns the mixin tuple applied to this class, in order.
func (c *Class) Mixins() []*Mixin { return c.mixins }

// --------------------------------------------------------------------------
// Class Assembly
// --------------------------------------------------------------------------

// AddField appends a field to the class table. The first declaration of a
// name wins; later duplicates (e.g. from mixins) are ignored.
func (c *Class) AddField(f *fields.Field) *Class {
	if _, exists := c.fieldIndex[f.Name()]; exists {
		return c
	}
	c.fieldOrder = append(c.fieldOrder, f)
	c.fieldIndex[f.Name()] = f
	return c
}

// Field resolves a declared field by name, walking the composed table.
func (c *Class) Field(name string) (*fields.Field, bool) {
	f, ok := c.fieldIndex[name]
	return f, ok
}

// Fields returns the composed field table in declaration order.
func (c *Class) Fields() []*fields.Field { return c.fieldOrder }

// AddView registers a named view.
func (c *Class) AddView(name string, fn ViewFunc) *Class {
	c.views[name] = fn
	return c
}

// AddAsideView registers a named view on an aside class. Aside views receive
// both the aside and the block it decorates.
func (c *Class) AddAsideView(name string, fn AsideViewFunc) *Class {
	c.asideViews[name] = fn
	return c
}

// HasAsideView reports whether the aside class declares a view for name.
func (c *Class) HasAsideView(name string) bool {
	_, ok := c.asideViews[name]
	return ok
}

// SetFallbackView registers the view used when a requested view is missing.
func (c *Class) SetFallbackView(fn FallbackViewFunc) *Class {
	c.fallbackView = fn
	return c
}

// AddHandler registers a named handler. Only handlers registered here are
// dispatchable; arbitrary functions are not reachable through Handle.
func (c *Class) AddHandler(name string, fn HandlerFunc) *Class {
	c.handlers[name] = fn
	return c
}

// SetFallbackHandler registers the handler used when a requested handler is
// missing.
func (c *Class) SetFallbackHandler(fn FallbackHandlerFunc) *Class {
	c.fallbackHandler = fn
	return c
}

// Need declares services the class cannot function without.
func (c *Class) Need(services ...string) *Class {
	for _, s := range services {
		c.needs[s] = true
	}
	return c
}

// Want declares services the class can take advantage of but tolerates
// missing.
func (c *Class) Want(services ...string) *Class {
	for _, s := range services {
		c.wants[s] = true
	}
	return c
}

// SetParseXML installs a custom XML import hook.
func (c *Class) SetParseXML(fn ParseXMLFunc) *Class {
	c.parseXML = fn
	return c
}

// SetContentField names the field that receives the element text during XML
// import (and emits it during export).
func (c *Class) SetContentField(name string) *Class {
	c.contentField = name
	return c
}

// ApplyWhen narrows which blocks an aside class decorates.
func (c *Class) ApplyWhen(fn func(b *Block) bool) *Class {
	c.shouldApplyToBlock = fn
	return c
}

// SerializeWithBlock opts the aside into XML export alongside the blocks it
// decorates.
func (c *Class) SerializeWithBlock() *Class {
	c.needsSerialization = true
	return c
}

// ShouldApplyToBlock reports whether an aside of this class decorates b.
func (c *Class) ShouldApplyToBlock(b *Block) bool {
	if c.shouldApplyToBlock == nil {
		return true
	}
	return c.shouldApplyToBlock(b)
}

// NeedsSerialization reports whether the aside participates in XML export.
func (c *Class) NeedsSerialization() bool { return c.needsSerialization }

// clone copies the class for mixing. Maps are copied shallowly; the values
// (functions, fields) are shared, which is safe because they are immutable.
func (c *Class) clone() *Class {
	out := &Class{
		name:               c.name,
		family:             c.family,
		fieldOrder:         append([]*fields.Field{}, c.fieldOrder...),
		fieldIndex:         make(map[string]*fields.Field, len(c.fieldIndex)),
		views:              make(map[string]ViewFunc, len(c.views)),
		asideViews:         make(map[string]AsideViewFunc, len(c.asideViews)),
		handlers:           make(map[string]HandlerFunc, len(c.handlers)),
		needs:              make(map[string]bool, len(c.needs)),
		wants:              make(map[string]bool, len(c.wants)),
		fallbackView:       c.fallbackView,
		fallbackHandler:    c.fallbackHandler,
		parseXML:           c.parseXML,
		contentField:       c.contentField,
		shouldApplyToBlock: c.shouldApplyToBlock,
		needsSerialization: c.needsSerialization,
	}
	for k, v := range c.fieldIndex {
		out.fieldIndex[k] = v
	}
	for k, v := range c.views {
		out.views[k] = v
	}
	for k, v := range c.asideViews {
		out.asideViews[k] = v
	}
	for k, v := range c.handlers {
		out.handlers[k] = v
	}
	for k, v := range c.needs {
		out.needs[k] = v
	}
	for k, v := range c.wants {
		out.wants[k] = v
	}
	return out
}

// --------------------------------------------------------------------------
// Mixin
// --------------------------------------------------------------------------

// Mixin contributes fields, views and handlers to classes it is mixed into.
// A mixin never overrides what the base class already declares.
type Mixin struct {
	name     string
	fields   []*fields.Field
	views    map[string]ViewFunc
	handlers map[string]HandlerFunc
}

// NewMixin creates an empty mixin.
func NewMixin(name string) *Mixin {
	return &Mixin{
		name:     name,
		views:    map[string]ViewFunc{},
		handlers: map[string]HandlerFunc{},
	}
}

func (m *Mixin) Name() string { return m.name }

// AddField contributes a field.
func (m *Mixin) AddField(f *fields.Field) *Mixin {
	m.fields = append(m.fields, f)
	return m
}

// AddView contributes a view.
func (m *Mixin) AddView(name string, fn ViewFunc) *Mixin {
	m.views[name] = fn
	return m
}

// AddHandler contributes a handler.
func (m *Mixin) AddHandler(name string, fn HandlerFunc) *Mixin {
	m.handlers[name] = fn
	return m
}

// applyTo merges the mixin's contributions into a class under assembly.
func (m *Mixin) applyTo(c *Class) {
	for _, f := range m.fields {
		c.AddField(f)
	}
	for name, fn := range m.views {
		if _, exists := c.views[name]; !exists {
			c.views[name] = fn
		}
	}
	for name, fn := range m.handlers {
		if _, exists := c.handlers[name]; !exists {
			c.handlers[name] = fn
		}
	}
}
