// Package xmlwire converts entities to and from their XML wire form: a root
// element named after the entity type, children in schema-declared order,
// nested entities as nested elements and collections as repeated siblings.
package xmlwire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/wisteria-social/federation"
)

// Marshal serializes an entity. Properties equal to their declared default
// and absent optional properties are omitted.
func Marshal(e *federation.Entity) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := encodeEntity(enc, e); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeEntity(enc *xml.Encoder, e *federation.Entity) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Schema().Wire()}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	for _, p := range e.Schema().Properties {
		v, ok := e.Lookup(p.Name)
		if !ok {
			continue
		}
		if p.Default != nil && v.Equal(*p.Default) {
			continue
		}

		switch p.Kind {
		case federation.KindEntity:
			if err := encodeEntity(enc, v.Entity()); err != nil {
				return err
			}
		case federation.KindEntities:
			for _, member := range v.Entities() {
				if err := encodeEntity(enc, member); err != nil {
					return err
				}
			}
		default:
			child := xml.StartElement{Name: xml.Name{Local: p.Wire()}}
			if err := enc.EncodeToken(child); err != nil {
				return err
			}
			if err := enc.EncodeToken(xml.CharData(v.Text())); err != nil {
				return err
			}
			if err := enc.EncodeToken(child.End()); err != nil {
				return err
			}
		}
	}

	return enc.EncodeToken(start.End())
}

// Unmarshal parses XML wire data into an entity of the type named by the
// root element. Unknown child elements are ignored for forward
// compatibility; an unregistered root yields a MalformedPayloadError and
// schema violations yield a ValidationError.
func Unmarshal(reg *federation.Registry, data []byte) (*federation.Entity, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, err
	}
	schema, err := reg.LookupWire(root.name)
	if err != nil {
		return nil, federation.MalformedPayloadError{Reason: fmt.Sprintf("unknown root element <%s>", root.name)}
	}
	return decodeEntity(reg, schema, root)
}

func decodeEntity(reg *federation.Registry, schema *federation.Schema, n *node) (*federation.Entity, error) {
	fields := make(map[string]any, len(schema.Properties))

	for _, p := range schema.Properties {
		switch p.Kind {
		case federation.KindEntity:
			nested, err := reg.Lookup(p.EntityType)
			if err != nil {
				return nil, err
			}
			child := n.first(nested.Wire())
			if child == nil {
				continue
			}
			member, err := decodeEntity(reg, nested, child)
			if err != nil {
				return nil, err
			}
			fields[p.Name] = member

		case federation.KindEntities:
			nested, err := reg.Lookup(p.EntityType)
			if err != nil {
				return nil, err
			}
			var members []*federation.Entity
			for _, child := range n.all(nested.Wire()) {
				member, err := decodeEntity(reg, nested, child)
				if err != nil {
					return nil, err
				}
				members = append(members, member)
			}
			if members != nil {
				fields[p.Name] = members
			}

		default:
			child := n.first(p.Wire())
			if child == nil {
				continue
			}
			fields[p.Name] = child.text
		}
	}

	return reg.New(schema.Name, fields)
}

// node is a minimal element tree. The schema walk needs names, text and
// ordered children, nothing more.
type node struct {
	name     string
	text     string
	children []*node
}

func (n *node) first(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) all(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root *node
	var stack []*node
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, federation.MalformedPayloadError{Reason: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, federation.MalformedPayloadError{Reason: "multiple root elements"}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
			text.Reset()

		case xml.CharData:
			text.Write(t)

		case xml.EndElement:
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(n.children) == 0 {
				n.text = strings.TrimSpace(text.String())
			}
			text.Reset()
		}
	}

	if root == nil {
		return nil, federation.MalformedPayloadError{Reason: "empty document"}
	}
	return root, nil
}
