package federation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validate normalizes a candidate field map against the schema of typeName:
// defaults are applied, wire-format strings are coerced to their declared
// kinds, and every rule is checked. Either the whole map passes and the
// normalized values are returned, or a ValidationError carrying every
// violation is returned. Keys the schema does not declare are ignored.
func (r *Registry) Validate(typeName string, fields map[string]any) (map[string]Value, error) {
	schema, err := r.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	return r.validate(schema, fields)
}

func (r *Registry) validate(schema *Schema, fields map[string]any) (map[string]Value, error) {
	values := make(map[string]Value, len(schema.Properties))
	var violations []string

	for _, prop := range schema.Properties {
		raw, present := fields[prop.Name]
		if !present || raw == nil {
			if prop.Default != nil {
				values[prop.Name] = *prop.Default
				continue
			}
			if !prop.Optional {
				violations = append(violations, fmt.Sprintf("%s: missing required property", prop.Name))
			}
			continue
		}

		value, err := r.coerce(prop, raw)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s: %v", prop.Name, err))
			continue
		}
		values[prop.Name] = value
	}

	for _, rule := range schema.Rules {
		value, ok := values[rule.Property]
		if !ok {
			continue
		}
		if !rule.Check(value) {
			violations = append(violations, fmt.Sprintf("%s: %s", rule.Property, rule.Desc))
		}
	}

	if len(violations) == 0 {
		for _, rule := range schema.EntityRules {
			if !rule.Check(values) {
				violations = append(violations, rule.Desc)
			}
		}
	}

	if len(violations) > 0 {
		return nil, ValidationError{EntityType: schema.Name, Violations: violations}
	}
	return values, nil
}

// coerce is lenient on input, the wire formats hand over strings, but the
// resulting Value always carries the declared kind.
func (r *Registry) coerce(prop Property, raw any) (Value, error) {
	if v, ok := raw.(Value); ok {
		if v.Kind() != prop.Kind {
			return Value{}, fmt.Errorf("expected %s, got %s", prop.Kind, v.Kind())
		}
		if prop.Kind == KindEntity || prop.Kind == KindEntities {
			return r.coerceNested(prop, v)
		}
		return v, nil
	}

	switch prop.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		return String(s), nil

	case KindInteger:
		switch n := raw.(type) {
		case int:
			return Integer(int64(n)), nil
		case int32:
			return Integer(int64(n)), nil
		case int64:
			return Integer(n), nil
		case float64:
			if n != float64(int64(n)) {
				return Value{}, fmt.Errorf("expected integer, got %v", n)
			}
			return Integer(int64(n)), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("expected integer, got %q", n)
			}
			return Integer(i), nil
		default:
			return Value{}, fmt.Errorf("expected integer, got %T", raw)
		}

	case KindBoolean:
		switch b := raw.(type) {
		case bool:
			return Boolean(b), nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "t", "yes", "y", "1":
				return Boolean(true), nil
			case "false", "f", "no", "n", "0":
				return Boolean(false), nil
			}
			return Value{}, fmt.Errorf("expected boolean, got %q", b)
		default:
			return Value{}, fmt.Errorf("expected boolean, got %T", raw)
		}

	case KindTimestamp:
		switch t := raw.(type) {
		case time.Time:
			return Timestamp(t), nil
		case string:
			parsed, err := parseTimestamp(strings.TrimSpace(t))
			if err != nil {
				return Value{}, err
			}
			return Timestamp(parsed), nil
		default:
			return Value{}, fmt.Errorf("expected timestamp, got %T", raw)
		}

	case KindEntity:
		switch e := raw.(type) {
		case *Entity:
			return r.coerceNested(prop, Nested(e))
		case map[string]any:
			nested, err := r.New(prop.EntityType, e)
			if err != nil {
				return Value{}, err
			}
			return Nested(nested), nil
		default:
			return Value{}, fmt.Errorf("expected %s entity, got %T", prop.EntityType, raw)
		}

	case KindEntities:
		switch es := raw.(type) {
		case []*Entity:
			return r.coerceNested(prop, Collection(es))
		case []any:
			members := make([]*Entity, 0, len(es))
			for _, m := range es {
				value, err := r.coerce(Property{Name: prop.Name, Kind: KindEntity, EntityType: prop.EntityType}, m)
				if err != nil {
					return Value{}, err
				}
				members = append(members, value.Entity())
			}
			return Collection(members), nil
		case []map[string]any:
			members := make([]*Entity, 0, len(es))
			for _, m := range es {
				nested, err := r.New(prop.EntityType, m)
				if err != nil {
					return Value{}, err
				}
				members = append(members, nested)
			}
			return Collection(members), nil
		default:
			return Value{}, fmt.Errorf("expected %s collection, got %T", prop.EntityType, raw)
		}

	default:
		return Value{}, fmt.Errorf("invalid kind")
	}
}

// coerceNested checks that already-constructed nested entities carry the
// declared type.
func (r *Registry) coerceNested(prop Property, v Value) (Value, error) {
	if v.Kind() == KindEntity {
		if v.Entity() == nil {
			return Value{}, fmt.Errorf("nil %s entity", prop.EntityType)
		}
		if v.Entity().TypeName() != prop.EntityType {
			return Value{}, fmt.Errorf("expected %s entity, got %s", prop.EntityType, v.Entity().TypeName())
		}
		return v, nil
	}
	for _, m := range v.Entities() {
		if m == nil {
			return Value{}, fmt.Errorf("nil %s entity in collection", prop.EntityType)
		}
		if m.TypeName() != prop.EntityType {
			return Value{}, fmt.Errorf("expected %s collection, got %s member", prop.EntityType, m.TypeName())
		}
	}
	return v, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05 MST"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected ISO-8601 timestamp, got %q", s)
}

var (
	guidPattern       = regexp.MustCompile(`^[0-9A-Za-z\-_@.:]{6,255}$`)
	diasporaIDPattern = regexp.MustCompile(`^[0-9a-z\-_.]+@[0-9a-z\-.]+$`)
)

// GUIDRule checks the diaspora GUID syntax.
func GUIDRule(property string) Rule {
	return Rule{
		Property: property,
		Desc:     "not a valid guid",
		Check:    func(v Value) bool { return guidPattern.MatchString(v.Str()) },
	}
}

// DiasporaIDRule checks the user@pod identifier syntax.
func DiasporaIDRule(property string) Rule {
	return Rule{
		Property: property,
		Desc:     "not a valid diaspora id",
		Check:    func(v Value) bool { return diasporaIDPattern.MatchString(v.Str()) },
	}
}

// NotEmptyRule rejects empty strings.
func NotEmptyRule(property string) Rule {
	return Rule{
		Property: property,
		Desc:     "must not be empty",
		Check:    func(v Value) bool { return v.Str() != "" },
	}
}

// NonNegativeRule rejects negative integers.
func NonNegativeRule(property string) Rule {
	return Rule{
		Property: property,
		Desc:     "must not be negative",
		Check:    func(v Value) bool { return v.Int() >= 0 },
	}
}

// OneOfRule restricts a string property to an enumerated set.
func OneOfRule(property string, allowed ...string) Rule {
	return Rule{
		Property: property,
		Desc:     fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")),
		Check: func(v Value) bool {
			for _, a := range allowed {
				if v.Str() == a {
					return true
				}
			}
			return false
		},
	}
}
