package extract

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedType rejects a schema declaring a type outside FieldType's set.
var ErrUnsupportedType = errors.New("unsupported field type")

// ErrInvalidSchema rejects a malformed schema: nil, a blank field name or a
// repeated one.
var ErrInvalidSchema = errors.New("invalid schema")

// FieldType is the declared semantic type of a field.
type FieldType string

const (
	Boolean FieldType = "boolean"
	Integer FieldType = "integer"
	Float   FieldType = "float"
	Text    FieldType = "text"
)

// Supported reports whether values of this type can be coerced.
func (t FieldType) Supported() bool {
	switch t {
	case Boolean, Integer, Float, Text:
		return true
	}
	return false
}

// Field declares one named, typed value of a record.
type Field struct {
	Name        string    `yaml:"name" json:"name"`
	Type        FieldType `yaml:"type" json:"type"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	// Optional fields may be null in a built record.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// Schema describes a target record.
type Schema struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// NewSchema returns a validated schema.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{Name: name, Fields: fields}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSchema is NewSchema for statically known schemas.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadSchema reads a schema from a YAML file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field names and types.
func (s *Schema) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: %s has a field with an empty name", ErrInvalidSchema, s.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s declares field %q twice", ErrInvalidSchema, s.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.Supported() {
			return fmt.Errorf("%w: field %q of schema %s has type %q", ErrUnsupportedType, f.Name, s.Name, f.Type)
		}
	}
	return nil
}

// FieldError describes one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field the record constructor rejected.
type ValidationError struct {
	Schema   string       `json:"schema"`
	Problems []FieldError `json:"problems"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Reason
	}
	return fmt.Sprintf("invalid %s record: %s", e.Schema, strings.Join(parts, "; "))
}

// Build is the validating record constructor. Integer values may be given as
// int or int64; they are stored as int64.
func (s *Schema) Build(values map[string]any) (Record, error) {
	verr := &ValidationError{Schema: s.Name}
	known := make(map[string]struct{}, len(s.Fields))
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = struct{}{}
		v := values[f.Name]
		if v == nil {
			if !f.Optional {
				verr.Problems = append(verr.Problems, FieldError{Field: f.Name, Reason: "required value is missing"})
			}
			out[f.Name] = nil
			continue
		}
		norm, ok := conform(f.Type, v)
		if !ok {
			verr.Problems = append(verr.Problems, FieldError{Field: f.Name, Reason: fmt.Sprintf("%T is not a %s", v, f.Type)})
			continue
		}
		out[f.Name] = norm
	}
	var unknown []string
	for name := range values {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		verr.Problems = append(verr.Problems, FieldError{Field: name, Reason: "not declared by the schema"})
	}
	if len(verr.Problems) > 0 {
		return Record{}, verr
	}
	return Record{schema: s, values: out}, nil
}

func conform(t FieldType, v any) (any, bool) {
	switch t {
	case Boolean:
		b, ok := v.(bool)
		return b, ok
	case Integer:
		switch n := v.(type) {
		case int64:
			return n, true
		case int:
			return int64(n), true
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		}
	case Text:
		s, ok := v.(string)
		return s, ok
	}
	return nil, false
}

// Record is a validated set of field values.
type Record struct {
	schema *Schema
	values map[string]any
}

// Get returns the value of a field; nil means null.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r Record) Bool(name string) (bool, bool) {
	v, ok := r.values[name].(bool)
	return v, ok
}

func (r Record) Int(name string) (int64, bool) {
	v, ok := r.values[name].(int64)
	return v, ok
}

func (r Record) Float(name string) (float64, bool) {
	v, ok := r.values[name].(float64)
	return v, ok
}

func (r Record) Text(name string) (string, bool) {
	v, ok := r.values[name].(string)
	return v, ok
}

// Values returns a copy of the field values keyed by name.
func (r Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// String renders the record as "name=value" pairs in schema order.
func (r Record) String() string {
	if r.schema == nil {
		return ""
	}
	parts := make([]string, 0, len(r.schema.Fields))
	for _, f := range r.schema.Fields {
		v := r.values[f.Name]
		if v == nil {
			parts = append(parts, f.Name+"=null")
			continue
		}
		if s, ok := v.(string); ok {
			parts = append(parts, fmt.Sprintf("%s=%q", f.Name, s))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", f.Name, v))
	}
	return strings.Join(parts, ", ")
}
