// Package jsonwire converts entities to and from their JSON wire form:
//
//	{"entity_type": "<type>", "entity_data": {...}}
//
// Nested entities use the same envelope shape recursively, collections are
// ordered arrays of such objects. Decoded field values funnel through the
// same validator as the XML path, so both formats produce identical,
// schema-valid entities for equivalent data.
package jsonwire

import (
	"encoding/json"
	"fmt"

	"github.com/wisteria-social/federation"
)

type document struct {
	EntityType string          `json:"entity_type"`
	EntityData json.RawMessage `json:"entity_data"`
}

// Marshal serializes an entity. Integers and booleans are native JSON
// scalars, timestamps are RFC3339 strings. Properties equal to their
// declared default and absent optional properties are omitted.
func Marshal(e *federation.Entity) ([]byte, error) {
	return json.Marshal(encodeEntity(e))
}

func encodeEntity(e *federation.Entity) map[string]any {
	data := make(map[string]any)
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
			data[p.Wire()] = encodeEntity(v.Entity())
		case federation.KindEntities:
			members := make([]any, 0, len(v.Entities()))
			for _, member := range v.Entities() {
				members = append(members, encodeEntity(member))
			}
			data[p.Wire()] = members
		case federation.KindInteger:
			data[p.Wire()] = v.Int()
		case federation.KindBoolean:
			data[p.Wire()] = v.Bool()
		default:
			data[p.Wire()] = v.Text()
		}
	}

	return map[string]any{
		"entity_type": e.Schema().Wire(),
		"entity_data": data,
	}
}

// Unmarshal parses JSON wire data into an entity of the type named by
// entity_type. Unknown keys are ignored for forward compatibility; an
// unregistered type yields a MalformedPayloadError and schema violations
// yield a ValidationError.
func Unmarshal(reg *federation.Registry, data []byte) (*federation.Entity, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, federation.MalformedPayloadError{Reason: err.Error()}
	}
	return decodeDocument(reg, doc)
}

func decodeDocument(reg *federation.Registry, doc document) (*federation.Entity, error) {
	if doc.EntityType == "" {
		return nil, federation.MalformedPayloadError{Reason: "missing entity_type"}
	}
	schema, err := reg.LookupWire(doc.EntityType)
	if err != nil {
		return nil, federation.MalformedPayloadError{Reason: fmt.Sprintf("unknown entity type %q", doc.EntityType)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc.EntityData, &raw); err != nil {
		return nil, federation.MalformedPayloadError{Reason: err.Error()}
	}

	fields := make(map[string]any, len(schema.Properties))
	for _, p := range schema.Properties {
		value, ok := raw[p.Wire()]
		if !ok {
			continue
		}

		switch p.Kind {
		case federation.KindEntity:
			var nested document
			if err := json.Unmarshal(value, &nested); err != nil {
				return nil, federation.MalformedPayloadError{Reason: err.Error()}
			}
			member, err := decodeDocument(reg, nested)
			if err != nil {
				return nil, err
			}
			fields[p.Name] = member

		case federation.KindEntities:
			var docs []document
			if err := json.Unmarshal(value, &docs); err != nil {
				return nil, federation.MalformedPayloadError{Reason: err.Error()}
			}
			members := make([]*federation.Entity, 0, len(docs))
			for _, d := range docs {
				member, err := decodeDocument(reg, d)
				if err != nil {
					return nil, err
				}
				members = append(members, member)
			}
			fields[p.Name] = members

		default:
			var scalar any
			if err := json.Unmarshal(value, &scalar); err != nil {
				return nil, federation.MalformedPayloadError{Reason: err.Error()}
			}
			fields[p.Name] = scalar
		}
	}

	return reg.New(schema.Name, fields)
}
