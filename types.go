package federation

import (
	"strconv"
	"time"
)

// Kind is the closed set of property kinds an entity schema can declare.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInteger
	KindBoolean
	KindTimestamp
	KindEntity   // a single nested entity of a registered type
	KindEntities // an ordered collection of nested entities of one registered type
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInteger:
		return "Integer"
	case KindBoolean:
		return "Boolean"
	case KindTimestamp:
		return "Timestamp"
	case KindEntity:
		return "Entity"
	case KindEntities:
		return "Entities"
	default:
		return "Invalid"
	}
}

// Property describes one field of an entity type.
type Property struct {
	Name     string // unique within the type
	WireName string // XML tag / JSON key. Empty means Name.
	Kind     Kind
	// EntityType names the registered type for KindEntity/KindEntities.
	EntityType string
	Optional   bool
	// Default is applied when the property is absent from input.
	// A present value equal to its default is omitted from wire output.
	Default *Value
}

// Wire returns the wire tag of the property.
func (p Property) Wire() string {
	if p.WireName != "" {
		return p.WireName
	}
	return p.Name
}

// Value is a tagged union holding exactly one typed property value.
// The zero Value has KindInvalid and represents an absent property.
type Value struct {
	kind     Kind
	str      string
	num      int64
	flag     bool
	ts       time.Time
	entity   *Entity
	entities []*Entity
}

// String wraps a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Integer wraps an integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, num: i} }

// Boolean wraps a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, flag: b} }

// Timestamp wraps a timestamp value. Timestamps are normalized to UTC with
// second precision, the resolution of the wire encoding.
func Timestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, ts: t.UTC().Truncate(time.Second)}
}

// Nested wraps a single nested entity.
func Nested(e *Entity) Value { return Value{kind: KindEntity, entity: e} }

// Collection wraps an ordered collection of nested entities.
func Collection(es []*Entity) Value { return Value{kind: KindEntities, entities: es} }

func (v Value) Kind() Kind { return v.kind }

// Text returns the canonical textual form emitted on the wire:
// booleans as "true"/"false", timestamps as UTC RFC3339, integers in
// base 10, strings as-is. Nested kinds have no textual form.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindBoolean:
		if v.flag {
			return "true"
		}
		return "false"
	case KindTimestamp:
		return v.ts.Format(time.RFC3339)
	default:
		return ""
	}
}

func (v Value) Str() string         { return v.str }
func (v Value) Int() int64          { return v.num }
func (v Value) Bool() bool          { return v.flag }
func (v Value) Time() time.Time     { return v.ts }
func (v Value) Entity() *Entity     { return v.entity }
func (v Value) Entities() []*Entity { return v.entities }

// Equal reports structural equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInteger:
		return v.num == o.num
	case KindBoolean:
		return v.flag == o.flag
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	case KindEntity:
		return v.entity.Equal(o.entity)
	case KindEntities:
		if len(v.entities) != len(o.entities) {
			return false
		}
		for i := range v.entities {
			if !v.entities[i].Equal(o.entities[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
