package runtime

import (
	"io"

	"github.com/beevik/etree"
	"github.com/coursekit/coursekit/lib/fields"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// XML Format
// --------------------------------------------------------------------------

// An element's tag is the block type. Elements carrying the family attribute
// with the aside family are routed to aside construction instead of becoming
// child blocks. The namespace map is fixed so external tooling can
// round-trip documents.
const (
	xmlFamilyAttr  = "xblock-family"
	xmlSlugAttr    = "slug"
	xmlNSPrefix    = "xblock"
	xmlNamespace   = "https://coursekit.dev/ns/xblock/1.0"
	xmlProcInstVal = `version="1.0" encoding="UTF-8"`
)

// XMLNode wraps the parsed element handed to custom ParseXML hooks, keeping
// the XML library out of block-facing signatures.
type XMLNode struct {
	el *etree.Element
}

// Tag returns the element tag (the block type).
func (n *XMLNode) Tag() string { return n.el.Tag }

// Attr returns a named attribute value and whether it is present.
func (n *XMLNode) Attr(name string) (string, bool) {
	if a := n.el.SelectAttr(name); a != nil {
		return a.Value, true
	}
	return "", false
}

// Attrs returns all attributes as a map.
func (n *XMLNode) Attrs() map[string]string {
	out := make(map[string]string, len(n.el.Attr))
	for _, a := range n.el.Attr {
		out[a.Key] = a.Value
	}
	return out
}

// Text returns the element's own text content.
func (n *XMLNode) Text() string { return n.el.Text() }

// --------------------------------------------------------------------------
// Import
// --------------------------------------------------------------------------

// ParseXMLString imports a block tree from an XML document and returns the
// root block. Definitions and usages are created for every element; asides
// referenced via the family attribute are constructed and stored alongside
// their blocks.
func (r *Runtime) ParseXMLString(s string) (*Block, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, errors.Wrap(err, "parsing XML")
	}
	return r.parseDocument(doc)
}

// ParseXML imports a block tree from a reader.
func (r *Runtime) ParseXML(reader io.Reader) (*Block, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(reader); err != nil {
		return nil, errors.Wrap(err, "parsing XML")
	}
	return r.parseDocument(doc)
}

// ParseXMLFile imports a block tree from a file on disk.
func (r *Runtime) ParseXMLFile(path string) (*Block, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, errors.Wrapf(err, "parsing XML file %s", path)
	}
	return r.parseDocument(doc)
}

func (r *Runtime) parseDocument(doc *etree.Document) (*Block, error) {
	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	// The root element is imported directly as the root block; no wrapper
	// element is synthesized around it.
	return r.parseBlockElement(root, "")
}

// parseBlockElement imports one element and its subtree.
func (r *Runtime) parseBlockElement(el *etree.Element, parentUsage string) (*Block, error) {
	blockType := el.Tag
	slug := el.SelectAttrValue(xmlSlugAttr, "")

	defID, err := r.idGenerator.CreateDefinition(blockType, slug)
	if err != nil {
		return nil, err
	}
	usageID, err := r.idGenerator.CreateUsage(defID)
	if err != nil {
		return nil, err
	}

	block, err := r.ConstructBlock(blockType, fields.NewScopeIds("", blockType, defID, usageID))
	if err != nil {
		return nil, err
	}

	// Partition children: aside elements are routed to aside construction,
	// everything else becomes a child block, in document order.
	var childElements []*etree.Element
	var asideElements []*etree.Element
	for _, child := range el.ChildElements() {
		if family := child.SelectAttrValue(xmlFamilyAttr, ""); family == FamilyAside {
			asideElements = append(asideElements, child)
		} else {
			childElements = append(childElements, child)
		}
	}

	if block.class.parseXML != nil {
		if err := block.class.parseXML(block, &XMLNode{el: el}); err != nil {
			return nil, errors.Wrapf(err, "parse_xml hook of %s", blockType)
		}
	} else if err := r.defaultParseXML(block, el); err != nil {
		return nil, err
	}

	if parentUsage != "" {
		if err := block.SetParent(parentUsage); err != nil {
			return nil, err
		}
	}

	for _, asideEl := range asideElements {
		if err := r.parseAsideElement(asideEl, block); err != nil {
			return nil, err
		}
	}

	for _, childEl := range childElements {
		child, err := r.parseBlockElement(childEl, usageID)
		if err != nil {
			return nil, err
		}
		if err := block.AppendChild(child.ScopeIds().UsageID); err != nil {
			return nil, err
		}
	}

	if err := block.Save(); err != nil {
		return nil, err
	}
	return block, nil
}

// defaultParseXML populates fields from attributes and the content field
// from the element text.
func (r *Runtime) defaultParseXML(b *Block, el *etree.Element) error {
	for _, attr := range el.Attr {
		if attr.Key == xmlFamilyAttr || attr.Key == xmlSlugAttr || attr.Space != "" {
			continue
		}
		field, ok := b.Class().Field(attr.Key)
		if !ok {
			continue
		}
		value, err := field.FromString(attr.Value)
		if err != nil {
			return errors.Wrapf(err, "attribute %s of <%s>", attr.Key, el.Tag)
		}
		if err := b.SetField(attr.Key, value); err != nil {
			return err
		}
	}
	if cf := b.Class().contentField; cf != "" {
		if text := el.Text(); text != "" {
			field, ok := b.Class().Field(cf)
			if !ok {
				return errors.Errorf("content field %s is not declared on %s", cf, b.Class().Name())
			}
			value, err := field.FromString(text)
			if err != nil {
				return errors.Wrapf(err, "text content of <%s>", el.Tag)
			}
			if err := b.SetField(cf, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseAsideElement constructs and stores the aside described by an element
// carrying the aside family attribute.
func (r *Runtime) parseAsideElement(el *etree.Element, decorated *Block) error {
	class, err := r.asideRegistry.LoadClass(el.Tag, nil, r.selectFn)
	if err != nil {
		return errors.Wrapf(err, "aside element <%s>", el.Tag)
	}
	aside, err := r.constructAside(class, decorated)
	if err != nil {
		return err
	}
	if err := r.defaultParseXML(aside.Block, el); err != nil {
		return err
	}
	return aside.Save()
}

// --------------------------------------------------------------------------
// Export
// --------------------------------------------------------------------------

// ExportToXML serializes a block tree rooted at b, including every aside
// that opts into serialization, and writes the document to w.
func (r *Runtime) ExportToXML(b *Block, w io.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlProcInstVal)

	root, err := r.exportElement(b)
	if err != nil {
		return err
	}
	root.CreateAttr("xmlns:"+xmlNSPrefix, xmlNamespace)
	doc.AddChild(root)
	doc.Indent(2)

	_, err = doc.WriteTo(w)
	return errors.Wrap(err, "writing XML")
}

func (r *Runtime) exportElement(b *Block) (*etree.Element, error) {
	el := etree.NewElement(b.Class().Name())

	if err := r.exportFields(b, el); err != nil {
		return nil, err
	}

	asides, err := r.Asides(b)
	if err != nil {
		return nil, err
	}
	for _, aside := range asides {
		if !aside.Class().NeedsSerialization() {
			continue
		}
		asideEl := etree.NewElement(aside.AsideType())
		asideEl.CreateAttr(xmlFamilyAttr, FamilyAside)
		if err := r.exportFields(aside.Block, asideEl); err != nil {
			return nil, err
		}
		el.AddChild(asideEl)
	}

	childIDs, err := b.Children()
	if err != nil {
		return nil, err
	}
	for _, usageID := range childIDs {
		child, err := r.GetBlock(usageID)
		if err != nil {
			return nil, err
		}
		childEl, err := r.exportElement(child)
		if err != nil {
			return nil, err
		}
		el.AddChild(childEl)
	}
	return el, nil
}

// exportFields writes every explicitly-set, non-structural field as an
// attribute (or as the element text for the content field).
func (r *Runtime) exportFields(b *Block, el *etree.Element) error {
	for _, field := range b.Class().Fields() {
		if field.Scope().IsStructural() {
			continue
		}
		set, err := b.IsSet(field.Name())
		if err != nil {
			return err
		}
		if !set {
			continue
		}
		value, err := b.GetField(field.Name())
		if err != nil {
			return err
		}
		text, err := field.ToString(value)
		if err != nil {
			return errors.Wrapf(err, "serializing field %s of %s", field.Name(), b.Class().Name())
		}
		if field.Name() == b.Class().contentField {
			el.SetText(text)
		} else {
			el.CreateAttr(field.Name(), text)
		}
	}
	return nil
}
