package runtime

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit/lib/fields"
)

func xmlTestRuntime() *Runtime {
	rt := New(Config{})

	course := NewClass("course")
	course.AddField(fields.String("title", fields.ScopeSettings, fields.Options{Default: ""}))
	rt.RegisterBlockClass(course)

	problem := NewClass("problem")
	problem.AddField(fields.String("display", fields.ScopeSettings, fields.Options{Default: ""}))
	problem.AddField(fields.String("markup", fields.ScopeContent, fields.Options{Default: ""}))
	problem.SetContentField("markup")
	rt.RegisterBlockClass(problem)

	notes := NewAsideClass("notes")
	notes.AddField(fields.String("note", fields.ScopeSettings, fields.Options{Default: ""}))
	notes.SerializeWithBlock()
	rt.RegisterAsideClass(notes)

	return rt
}

const courseXML = `<course title="Algebra">
  <problem display="P1">What is 2+2?</problem>
  <problem display="P2">
    <notes xblock-family="xblock_asides.v1" note="review this"/>
  </problem>
</course>`

func TestParseXMLString(t *testing.T) {
	rt := xmlTestRuntime()

	root, err := rt.ParseXMLString(courseXML)
	require.NoError(t, err)
	assert.Equal(t, "course", root.Class().Name())

	title, err := root.GetField("title")
	require.NoError(t, err)
	assert.Equal(t, "Algebra", title)

	children, err := root.Children()
	require.NoError(t, err)
	require.Len(t, children, 2)

	// Children come back in document order with the parent link set.
	first, err := rt.GetBlock(children[0])
	require.NoError(t, err)
	assert.Equal(t, "problem", first.Class().Name())
	display, err := first.GetField("display")
	require.NoError(t, err)
	assert.Equal(t, "P1", display)
	markup, err := first.GetField("markup")
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?", markup)
	parent, err := first.Parent()
	require.NoError(t, err)
	assert.Equal(t, root.ScopeIds().UsageID, parent)

	// The aside element became aside storage, not a child block.
	second, err := rt.GetBlock(children[1])
	require.NoError(t, err)
	grandchildren, err := second.Children()
	require.NoError(t, err)
	assert.Empty(t, grandchildren)

	asides, err := rt.Asides(second)
	require.NoError(t, err)
	require.Len(t, asides, 1)
	note, err := asides[0].GetField("note")
	require.NoError(t, err)
	assert.Equal(t, "review this", note)
}

func TestParseXMLUnknownBlockType(t *testing.T) {
	rt := xmlTestRuntime()
	_, err := rt.ParseXMLString(`<mystery/>`)
	assert.ErrorIs(t, err, ErrNoSuchBlockType)
}

func TestParseXMLMalformed(t *testing.T) {
	rt := xmlTestRuntime()
	_, err := rt.ParseXMLString(`<course><unclosed></course>`)
	assert.Error(t, err)
}

func TestCustomParseXMLHook(t *testing.T) {
	rt := New(Config{})

	custom := NewClass("custom")
	custom.AddField(fields.String("combined", fields.ScopeSettings, fields.Options{Default: ""}))
	custom.SetParseXML(func(b *Block, node *XMLNode) error {
		a, _ := node.Attr("first")
		z, _ := node.Attr("second")
		return b.SetField("combined", a+"+"+z)
	})
	rt.RegisterBlockClass(custom)

	root, err := rt.ParseXMLString(`<custom first="a" second="b"/>`)
	require.NoError(t, err)
	v, err := root.GetField("combined")
	require.NoError(t, err)
	assert.Equal(t, "a+b", v)
}

func TestExportToXMLRoundTrip(t *testing.T) {
	rt := xmlTestRuntime()
	root, err := rt.ParseXMLString(courseXML)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rt.ExportToXML(root, &buf))
	exported := buf.String()

	assert.Contains(t, exported, `title="Algebra"`)
	assert.Contains(t, exported, `display="P1"`)
	assert.Contains(t, exported, "What is 2+2?")
	assert.Contains(t, exported, `note="review this"`)
	assert.Contains(t, exported, `xblock-family="xblock_asides.v1"`)

	// The exported document imports back to an equivalent tree.
	again, err := rt.ParseXMLString(exported)
	require.NoError(t, err)
	assert.Equal(t, "course", again.Class().Name())
	title, err := again.GetField("title")
	require.NoError(t, err)
	assert.Equal(t, "Algebra", title)
	children, err := again.Children()
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestExportSkipsUnsetFields(t *testing.T) {
	rt := xmlTestRuntime()
	root, err := rt.ParseXMLString(`<course/>`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rt.ExportToXML(root, &buf))
	assert.NotContains(t, buf.String(), "title=")
}
