package runtime

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/coursekit/coursekit/lib/fields"
	"github.com/coursekit/coursekit/lib/kvstore"
	"github.com/coursekit/coursekit/lib/kvstore/shardstore"
	"github.com/coursekit/coursekit/lib/logger"
	"github.com/coursekit/coursekit/lib/runtime/services"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config assembles a Runtime. Every component is optional; zero values fall
// back to the in-memory defaults, which is the configuration tests use.
type Config struct {
	// Store is the field storage backend (default: sharded in-memory).
	Store kvstore.Store
	// IDReader / IDGenerator manage ids (default: one shared MemoryIDManager).
	IDReader    IDReader
	IDGenerator IDGenerator
	// Mixins are applied to every class the runtime constructs.
	Mixins []*Mixin
	// Services seeds the services registry. An "i18n" service with null
	// translations is always present unless overridden here.
	Services map[string]interface{}
	// Select picks among multiple classes registered under one name.
	Select SelectFunc
	// Logger receives runtime diagnostics (default: nop).
	Logger *logger.Logger
}

// Runtime hosts block instances: it constructs them, renders their views,
// dispatches their handlers and moves them through XML.
type Runtime struct {
	store       kvstore.Store
	fieldData   FieldData
	idReader    IDReader
	idGenerator IDGenerator
	mixologist  *Mixologist

	blockRegistry *Registry
	asideRegistry *Registry

	services map[string]interface{}
	selectFn SelectFunc
	log      *logger.Logger

	// viewStack tracks the active view during nested RenderChild calls.
	viewStack []string
}

// New creates a Runtime from a Config.
func New(cfg Config) *Runtime {
	store := cfg.Store
	if store == nil {
		store = shardstore.New(nil)
	}
	idReader := cfg.IDReader
	idGenerator := cfg.IDGenerator
	if idReader == nil && idGenerator == nil {
		mgr := NewMemoryIDManager()
		idReader, idGenerator = mgr, mgr
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	svcs := map[string]interface{}{
		"i18n": services.NewNullI18n(),
	}
	for name, svc := range cfg.Services {
		svcs[name] = svc
	}

	return &Runtime{
		store:         store,
		fieldData:     NewKVStoreFieldData(store),
		idReader:      idReader,
		idGenerator:   idGenerator,
		mixologist:    NewMixologist(cfg.Mixins...),
		blockRegistry: NewRegistry(),
		asideRegistry: NewRegistry(),
		services:      svcs,
		selectFn:      cfg.Select,
		log:           log.With("pkg", "runtime"),
	}
}

// BlockRegistry returns the registry block classes are registered in.
func (r *Runtime) BlockRegistry() *Registry { return r.blockRegistry }

// AsideRegistry returns the registry aside classes are registered in.
func (r *Runtime) AsideRegistry() *Registry { return r.asideRegistry }

// IDGenerator returns the runtime's id generator.
func (r *Runtime) IDGenerator() IDGenerator { return r.idGenerator }

// IDReader returns the runtime's id reader.
func (r *Runtime) IDReader() IDReader { return r.idReader }

// RegisterBlockClass registers a block class by its type name.
func (r *Runtime) RegisterBlockClass(c *Class) {
	r.blockRegistry.Register(c.Name(), c)
}

// RegisterAsideClass registers an aside class by its type name.
func (r *Runtime) RegisterAsideClass(c *Class) {
	r.asideRegistry.Register(c.Name(), c)
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// ConstructBlock looks up the class for a block type, mixes it and
// instantiates it with the given ScopeIds.
func (r *Runtime) ConstructBlock(blockType string, sids fields.ScopeIds) (*Block, error) {
	class, err := r.blockRegistry.LoadClass(blockType, nil, r.selectFn)
	if err != nil {
		return nil, err
	}
	mixed := r.mixologist.Mix(class)
	return newBlock(mixed, r, r.fieldData, sids), nil
}

// GetBlock resolves a usage id to a block instance: usage -> definition ->
// block type, then construction. A missing definition is reported as a
// missing usage, because the caller only ever held the usage id.
func (r *Runtime) GetBlock(usageID string) (*Block, error) {
	return r.GetBlockForUser(usageID, "")
}

// GetBlockForUser is GetBlock with the user axis populated.
func (r *Runtime) GetBlockForUser(usageID, userID string) (*Block, error) {
	defID, err := r.idReader.GetDefinitionID(usageID)
	if err != nil {
		return nil, err
	}
	blockType, err := r.idReader.GetBlockType(defID)
	if err != nil {
		if errors.Is(err, ErrNoSuchDefinition) {
			return nil, errNoSuchUsage(usageID)
		}
		return nil, err
	}
	sids := fields.NewScopeIds(userID, blockType, defID, usageID)
	return r.ConstructBlock(blockType, sids)
}

// --------------------------------------------------------------------------
// Rendering
// --------------------------------------------------------------------------

// ActiveView returns the view currently being rendered, or "" outside a
// render.
func (r *Runtime) ActiveView() string {
	if len(r.viewStack) == 0 {
		return ""
	}
	return r.viewStack[len(r.viewStack)-1]
}

// Render renders a named view of a block: resolve the view (falling back to
// the class fallback view), invoke it, persist dirty fields, wrap the result
// and append the fragments of every applicable aside that declares the view.
func (r *Runtime) Render(b *Block, viewName string, context map[string]interface{}) (*Fragment, error) {
	r.viewStack = append(r.viewStack, viewName)
	defer func() { r.viewStack = r.viewStack[:len(r.viewStack)-1] }()

	var frag *Fragment
	var err error
	if viewFn, ok := b.class.views[viewName]; ok {
		frag, err = viewFn(b, context)
	} else if b.class.fallbackView != nil {
		frag, err = b.class.fallbackView(b, viewName, context)
	} else {
		return nil, errNoSuchView(viewName)
	}
	if err != nil {
		return nil, err
	}
	if err := b.Save(); err != nil {
		return nil, err
	}

	wrapped := r.wrapBlock(b, frag)

	asides, err := r.Asides(b)
	if err != nil {
		return nil, err
	}
	for _, aside := range asides {
		fn, ok := aside.Class().asideViews[viewName]
		if !ok {
			continue
		}
		asideFrag, err := fn(aside, b, context)
		if err != nil {
			return nil, err
		}
		if err := aside.Save(); err != nil {
			return nil, err
		}
		wrappedAside := r.wrapAside(aside, asideFrag)
		wrapped.Content += wrappedAside.Content
		wrapped.AddFragmentResources(wrappedAside)
	}
	return wrapped, nil
}

// RenderChild renders a child block in the currently active view.
func (r *Runtime) RenderChild(child *Block, context map[string]interface{}) (*Fragment, error) {
	view := r.ActiveView()
	if view == "" {
		return nil, errNoSuchView("(no active view)")
	}
	return r.Render(child, view, context)
}

// RenderChildren renders every child of a block in the active view, in
// order.
func (r *Runtime) RenderChildren(b *Block, context map[string]interface{}) ([]*Fragment, error) {
	childIDs, err := b.Children()
	if err != nil {
		return nil, err
	}
	out := make([]*Fragment, 0, len(childIDs))
	for _, usageID := range childIDs {
		child, err := r.GetBlockForUser(usageID, b.ScopeIds().UserID)
		if err != nil {
			return nil, err
		}
		frag, err := r.RenderChild(child, context)
		if err != nil {
			return nil, err
		}
		out = append(out, frag)
	}
	return out, nil
}

// wrapBlock wraps a fragment in an element identifying the block.
func (r *Runtime) wrapBlock(b *Block, frag *Fragment) *Fragment {
	var sb strings.Builder
	sb.WriteString(`<div class="xblock" data-block-type="`)
	sb.WriteString(html.EscapeString(b.class.Name()))
	sb.WriteString(`" data-usage-id="`)
	sb.WriteString(html.EscapeString(b.scopeIDs.UsageID))
	sb.WriteString(`"`)
	if frag.JSInit != "" {
		sb.WriteString(` data-init="`)
		sb.WriteString(html.EscapeString(frag.JSInit))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(frag.Content)
	sb.WriteString("</div>")

	out := NewFragment(sb.String())
	out.JSInit = frag.JSInit
	out.JSONInitArgs = frag.JSONInitArgs
	out.AddFragmentResources(frag)
	return out
}

// wrapAside wraps an aside fragment, identifying both the aside and the
// block it decorates.
func (r *Runtime) wrapAside(a *Aside, frag *Fragment) *Fragment {
	var sb strings.Builder
	sb.WriteString(`<div class="xblock-aside" data-aside-type="`)
	sb.WriteString(html.EscapeString(a.AsideType()))
	sb.WriteString(`" data-usage-id="`)
	sb.WriteString(html.EscapeString(a.Decorates().ScopeIds().UsageID))
	sb.WriteString(`"`)
	if frag.JSInit != "" {
		sb.WriteString(` data-init="`)
		sb.WriteString(html.EscapeString(frag.JSInit))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(frag.Content)
	sb.WriteString("</div>")

	out := NewFragment(sb.String())
	out.JSInit = frag.JSInit
	out.JSONInitArgs = frag.JSONInitArgs
	out.AddFragmentResources(frag)
	return out
}

// --------------------------------------------------------------------------
// Handler Dispatch
// --------------------------------------------------------------------------

// Handle dispatches a named handler on a block. Only handlers registered on
// the class are reachable; an unregistered name falls back to the class
// fallback handler or fails with ErrNoSuchHandler. Dirty fields are flushed
// only on handler success.
func (r *Runtime) Handle(b *Block, handlerName string, req *Request, suffix string) (*Response, error) {
	var resp *Response
	var err error
	if handlerFn, ok := b.class.handlers[handlerName]; ok {
		resp, err = handlerFn(b, req, suffix)
	} else if b.class.fallbackHandler != nil {
		resp, err = b.class.fallbackHandler(b, handlerName, req, suffix)
	} else {
		return nil, errNoSuchHandler(handlerName)
	}
	if err != nil {
		return nil, err
	}
	if err := b.Save(); err != nil {
		return nil, err
	}
	return resp, nil
}

// --------------------------------------------------------------------------
// Services
// --------------------------------------------------------------------------

// Service returns a named service for a block. The block must have declared
// the service: undeclared names fail outright, declared-but-missing names
// fail only when declared as a need.
func (r *Runtime) Service(b *Block, name string) (interface{}, error) {
	declared := b.class.needs[name] || b.class.wants[name]
	if !declared {
		return nil, errNoSuchService(name, "service was not requested")
	}
	svc, ok := r.services[name]
	if !ok {
		if b.class.needs[name] {
			return nil, errNoSuchService(name, "service is not available")
		}
		return nil, nil
	}
	return svc, nil
}

// RegisterService adds (or replaces) a service in the registry.
func (r *Runtime) RegisterService(name string, svc interface{}) {
	r.services[name] = svc
}

// --------------------------------------------------------------------------
// Diagnostics
// --------------------------------------------------------------------------

func (r *Runtime) String() string {
	return fmt.Sprintf("Runtime(blocks=%d, asides=%d)",
		len(r.blockRegistry.Names()), len(r.asideRegistry.Names()))
}
