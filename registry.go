package federation

import (
	"fmt"
	"strings"
	"unicode"
)

// Rule is a per-property format constraint checked after coercion.
// Check receives the coerced value and reports whether it is acceptable.
type Rule struct {
	Property string
	Desc     string
	Check    func(Value) bool
}

// EntityRule is a cross-field constraint checked over the full normalized
// field map after every per-property rule passed coercion.
type EntityRule struct {
	Desc  string
	Check func(map[string]Value) bool
}

// Schema is the immutable declarative description of one entity type.
type Schema struct {
	// Name is the CamelCase type name, e.g. "PollAnswer".
	Name string
	// WireName is the lower-snake wire tag, e.g. "poll_answer".
	// Empty means the snake-cased Name.
	WireName string
	// Properties in declared order. Order is the wire serialization order.
	Properties []Property
	// Rules are format constraints checked during validation.
	Rules []Rule
	// EntityRules are cross-field constraints checked during validation.
	EntityRules []EntityRule

	identity string // property used for the display identity, "" if none
	byName   map[string]int
}

// Property returns the descriptor for name.
func (s *Schema) Property(name string) (Property, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Property{}, false
	}
	return s.Properties[i], true
}

// Wire returns the wire tag of the schema.
func (s *Schema) Wire() string { return s.WireName }

// Registry holds the schemas of every known entity type. Registration order
// matters: a nested type must be registered before any type referencing it,
// which keeps the nesting graph acyclic.
type Registry struct {
	types  map[string]*Schema
	byWire map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:  make(map[string]*Schema),
		byWire: make(map[string]*Schema),
	}
}

// RegisterType stores an immutable schema. It fails when the type name is
// taken, property names or wire names collide, a rule names an undeclared
// property, or a nested property references a type that is not registered
// yet.
func (r *Registry) RegisterType(s Schema) error {
	if s.Name == "" {
		return fmt.Errorf("entity type name must not be empty")
	}
	if _, ok := r.types[s.Name]; ok {
		return fmt.Errorf("entity type %q already registered", s.Name)
	}
	if s.WireName == "" {
		s.WireName = snakeCase(s.Name)
	}
	if _, ok := r.byWire[s.WireName]; ok {
		return fmt.Errorf("wire name %q already registered", s.WireName)
	}

	s.byName = make(map[string]int, len(s.Properties))
	wires := make(map[string]bool, len(s.Properties))
	for i, p := range s.Properties {
		if p.Name == "" {
			return fmt.Errorf("%s: property name must not be empty", s.Name)
		}
		if _, dup := s.byName[p.Name]; dup {
			return fmt.Errorf("%s: duplicate property %q", s.Name, p.Name)
		}
		if wires[p.Wire()] {
			return fmt.Errorf("%s: duplicate wire name %q", s.Name, p.Wire())
		}
		s.byName[p.Name] = i
		wires[p.Wire()] = true

		switch p.Kind {
		case KindEntity, KindEntities:
			if _, ok := r.types[p.EntityType]; !ok {
				return fmt.Errorf("%s.%s: nested type %q is not registered", s.Name, p.Name, p.EntityType)
			}
		case KindString, KindInteger, KindBoolean, KindTimestamp:
			if p.EntityType != "" {
				return fmt.Errorf("%s.%s: scalar property must not name an entity type", s.Name, p.Name)
			}
		default:
			return fmt.Errorf("%s.%s: invalid kind", s.Name, p.Name)
		}

		if p.Default != nil && p.Default.Kind() != p.Kind {
			return fmt.Errorf("%s.%s: default kind %s does not match %s", s.Name, p.Name, p.Default.Kind(), p.Kind)
		}
	}

	for _, rule := range s.Rules {
		if _, ok := s.byName[rule.Property]; !ok {
			return fmt.Errorf("%s: rule %q names undeclared property %q", s.Name, rule.Desc, rule.Property)
		}
	}

	if _, ok := s.byName["guid"]; ok {
		s.identity = "guid"
	}

	r.types[s.Name] = &s
	r.byWire[s.WireName] = &s
	return nil
}

// Lookup returns the schema registered under the given type name.
func (r *Registry) Lookup(typeName string) (*Schema, error) {
	s, ok := r.types[typeName]
	if !ok {
		return nil, UnknownEntityTypeError{TypeName: typeName}
	}
	return s, nil
}

// LookupWire returns the schema registered under the given wire tag.
func (r *Registry) LookupWire(wireName string) (*Schema, error) {
	s, ok := r.byWire[wireName]
	if !ok {
		return nil, UnknownEntityTypeError{TypeName: wireName}
	}
	return s, nil
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
