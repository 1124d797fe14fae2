package runtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit/lib/fields"
)

func TestRenderWrapsFragment(t *testing.T) {
	class := NewClass("html")
	class.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("<p>hello</p>"), nil
	})

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "alice")

	frag, err := rt.Render(b, "student_view", nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Content, `class="xblock"`)
	assert.Contains(t, frag.Content, `data-block-type="html"`)
	assert.Contains(t, frag.Content, fmt.Sprintf(`data-usage-id="%s"`, b.ScopeIds().UsageID))
	assert.Contains(t, frag.Content, "<p>hello</p>")
}

func TestRenderFlushesDirtyFields(t *testing.T) {
	class := NewClass("counter")
	class.AddField(fields.Integer("views", fields.ScopeUserState, fields.Options{Default: 0}))
	class.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		v, err := b.GetField("views")
		if err != nil {
			return nil, err
		}
		if err := b.SetField("views", v.(int)+1); err != nil {
			return nil, err
		}
		return NewFragment("counted"), nil
	})

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "alice")
	_, err := rt.Render(b, "student_view", nil)
	require.NoError(t, err)

	reloaded, err := rt.GetBlockForUser(b.ScopeIds().UsageID, "alice")
	require.NoError(t, err)
	v, err := reloaded.GetField("views")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFallbackViewWrappedOnce(t *testing.T) {
	class := NewClass("fallback")
	class.SetFallbackView(func(b *Block, viewName string, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("fallback for " + viewName), nil
	})

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "")

	frag, err := rt.Render(b, "author_view", nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Content, "fallback for author_view")
	// The wrapper appears exactly once even though the view was resolved via
	// the fallback.
	assert.Equal(t, 1, countOccurrences(frag.Content, `class="xblock"`))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestRenderMissingView(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, NewClass("bare"), "")

	_, err := rt.Render(b, "student_view", nil)
	assert.ErrorIs(t, err, ErrNoSuchView)
}

func TestRenderChildrenUsesActiveView(t *testing.T) {
	child := NewClass("leaf")
	child.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("leaf content"), nil
	})

	parent := NewClass("container")
	parent.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		frags, err := b.Runtime().RenderChildren(b, ctx)
		if err != nil {
			return nil, err
		}
		out := NewFragment("")
		for _, f := range frags {
			out.Content += f.Content
			out.AddFragmentResources(f)
		}
		return out, nil
	})

	rt := New(Config{})
	childBlock := newTestBlock(t, rt, child, "alice")
	parentBlock := newTestBlock(t, rt, parent, "alice")
	require.NoError(t, parentBlock.AppendChild(childBlock.ScopeIds().UsageID))
	require.NoError(t, parentBlock.Save())

	frag, err := rt.Render(parentBlock, "student_view", nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Content, "leaf content")
	assert.Contains(t, frag.Content, `data-block-type="leaf"`)
}

func TestRenderAppendsAsideFragments(t *testing.T) {
	class := NewClass("html")
	class.AddView("student_view", func(b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("main content"), nil
	})

	aside := NewAsideClass("acid_aside")
	aside.AddAsideView("student_view", func(a *Aside, b *Block, ctx map[string]interface{}) (*Fragment, error) {
		return NewFragment("aside content for " + b.Class().Name()), nil
	})

	rt := New(Config{})
	rt.RegisterAsideClass(aside)
	b := newTestBlock(t, rt, class, "alice")

	frag, err := rt.Render(b, "student_view", nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Content, "main content")
	assert.Contains(t, frag.Content, "aside content for html")
	assert.Contains(t, frag.Content, `class="xblock-aside"`)
	assert.Contains(t, frag.Content, `data-aside-type="acid_aside"`)
}

func TestAsideApplyWhen(t *testing.T) {
	aside := NewAsideClass("picky")
	aside.ApplyWhen(func(b *Block) bool { return b.Class().Name() == "video" })

	rt := New(Config{})
	rt.RegisterAsideClass(aside)
	b := newTestBlock(t, rt, NewClass("html"), "")

	asides, err := rt.Asides(b)
	require.NoError(t, err)
	assert.Empty(t, asides)
}

func TestHandleDispatch(t *testing.T) {
	class := NewClass("problem")
	class.AddField(fields.Integer("attempts", fields.ScopeUserState, fields.Options{Default: 0}))
	class.AddHandler("submit", func(b *Block, req *Request, suffix string) (*Response, error) {
		v, err := b.GetField("attempts")
		if err != nil {
			return nil, err
		}
		if err := b.SetField("attempts", v.(int)+1); err != nil {
			return nil, err
		}
		return &Response{StatusCode: 200, Body: []byte("ok " + suffix)}, nil
	})

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "alice")

	resp, err := rt.Handle(b, "submit", &Request{Method: "POST"}, "final")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok final", string(resp.Body))

	// Handler success flushes dirty fields.
	reloaded, err := rt.GetBlockForUser(b.ScopeIds().UsageID, "alice")
	require.NoError(t, err)
	v, err := reloaded.GetField("attempts")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestHandleUnregisteredName(t *testing.T) {
	rt := New(Config{})
	b := newTestBlock(t, rt, NewClass("bare"), "")

	_, err := rt.Handle(b, "not_registered", &Request{}, "")
	assert.ErrorIs(t, err, ErrNoSuchHandler)
}

func TestHandleErrorDoesNotFlush(t *testing.T) {
	class := NewClass("failing")
	class.AddField(fields.Integer("counter", fields.ScopeUserState, fields.Options{Default: 0}))
	class.AddHandler("boom", func(b *Block, req *Request, suffix string) (*Response, error) {
		if err := b.SetField("counter", 99); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("handler exploded")
	})

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "alice")
	_, err := rt.Handle(b, "boom", &Request{}, "")
	require.Error(t, err)

	set, err := b.IsSet("counter")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestFallbackHandler(t *testing.T) {
	class := NewClass("catchall")
	class.SetFallbackHandler(func(b *Block, name string, req *Request, suffix string) (*Response, error) {
		return &Response{StatusCode: 200, Body: []byte("handled " + name)}, nil
	})

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "")

	resp, err := rt.Handle(b, "anything", &Request{}, "")
	require.NoError(t, err)
	assert.Equal(t, "handled anything", string(resp.Body))
}

func TestServiceDeclarations(t *testing.T) {
	class := NewClass("needy")
	class.Need("i18n", "grading")
	class.Want("analytics")

	rt := New(Config{})
	b := newTestBlock(t, rt, class, "")

	// A declared, available service resolves.
	svc, err := rt.Service(b, "i18n")
	require.NoError(t, err)
	assert.NotNil(t, svc)

	// A needed but unavailable service fails.
	_, err = rt.Service(b, "grading")
	assert.ErrorIs(t, err, ErrNoSuchService)

	// A wanted but unavailable service resolves to nil without error.
	svc, err = rt.Service(b, "analytics")
	require.NoError(t, err)
	assert.Nil(t, svc)

	// An undeclared service fails even when available.
	rt.RegisterService("secrets", struct{}{})
	_, err = rt.Service(b, "secrets")
	assert.ErrorIs(t, err, ErrNoSuchService)
}

func TestGetBlockUnknownUsage(t *testing.T) {
	rt := New(Config{})
	_, err := rt.GetBlock("usage.never-created")
	assert.ErrorIs(t, err, ErrNoSuchUsage)
}

func TestConstructBlockUnknownType(t *testing.T) {
	rt := New(Config{})
	_, err := rt.ConstructBlock("unregistered", fields.NewScopeIds("", "unregistered", "def-1", "usage-1"))
	assert.ErrorIs(t, err, ErrNoSuchBlockType)
}
