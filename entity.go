package federation

import "fmt"

// Entity is an immutable, schema-validated social object. Instances are
// produced by Registry.New or by one of the wire codecs; modeling a changed
// entity means constructing a new one.
type Entity struct {
	schema *Schema
	values map[string]Value
}

// New constructs an entity of the given registered type from a field map.
// The map is validated as a whole; on failure a ValidationError listing
// every violation is returned and no entity is produced.
func (r *Registry) New(typeName string, fields map[string]any) (*Entity, error) {
	schema, err := r.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	values, err := r.validate(schema, fields)
	if err != nil {
		return nil, err
	}
	return &Entity{schema: schema, values: values}, nil
}

// TypeName returns the registered type name, e.g. "PollAnswer".
func (e *Entity) TypeName() string { return e.schema.Name }

// Schema returns the schema the entity was constructed against.
func (e *Entity) Schema() *Schema { return e.schema }

// Get returns the value of a declared property. Absent optional properties
// yield the zero Value (KindInvalid). Undeclared names yield a
// NoSuchPropertyError.
func (e *Entity) Get(name string) (Value, error) {
	if _, ok := e.schema.Property(name); !ok {
		return Value{}, NoSuchPropertyError{EntityType: e.schema.Name, Property: name}
	}
	return e.values[name], nil
}

// Lookup returns the value of a declared property and whether it is present.
func (e *Entity) Lookup(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Fields returns a copy of the present property values, keyed by name.
// Nested entities stay nested, they are not flattened.
func (e *Entity) Fields() map[string]Value {
	out := make(map[string]Value, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Equal reports structural equality: same type and equal values for every
// property.
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.schema.Name != o.schema.Name || len(e.values) != len(o.values) {
		return false
	}
	for name, v := range e.values {
		ov, ok := o.values[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String returns the stable display identity, "<TypeName>:<guid>" when the
// schema declares a guid property, the bare type name otherwise.
func (e *Entity) String() string {
	if e.schema.identity != "" {
		if v, ok := e.values[e.schema.identity]; ok {
			return fmt.Sprintf("%s:%s", e.schema.Name, v.Str())
		}
	}
	return e.schema.Name
}
