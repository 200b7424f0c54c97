// Package schema builds JSON-schema style object descriptions from explicit
// field descriptors. Schemas are declared values; nothing is inferred from Go
// type metadata.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind is the primitive JSON type of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("schema validation failed")

// Field describes one property of an object schema.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	Nullable    bool
	Enum        []string
	Default     any
}

// String starts a string field descriptor.
func String(name string) *Field { return &Field{Name: name, Kind: KindString} }

// Number starts a number field descriptor.
func Number(name string) *Field { return &Field{Name: name, Kind: KindNumber} }

// Integer starts an integer field descriptor.
func Integer(name string) *Field { return &Field{Name: name, Kind: KindInteger} }

// Boolean starts a boolean field descriptor.
func Boolean(name string) *Field { return &Field{Name: name, Kind: KindBoolean} }

func (f *Field) Describe(desc string) *Field {
	f.Description = desc
	return f
}

func (f *Field) MarkRequired() *Field {
	f.Required = true
	return f
}

func (f *Field) MarkNullable() *Field {
	f.Nullable = true
	return f
}

func (f *Field) OneOf(values ...string) *Field {
	f.Enum = append([]string(nil), values...)
	return f
}

func (f *Field) WithDefault(v any) *Field {
	f.Default = v
	return f
}

// Object is an ordered set of fields.
type Object struct {
	Title       string
	Description string
	Fields      []*Field
}

// NewObject creates an object schema from field descriptors. Field order is
// preserved in Required and in JSON output listings.
func NewObject(title string, fields ...*Field) *Object {
	return &Object{Title: title, Fields: fields}
}

// Field returns the named field descriptor, or nil.
func (o *Object) Field(name string) *Field {
	for _, f := range o.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// RequiredNames lists required fields in declaration order.
func (o *Object) RequiredNames() []string {
	var names []string
	for _, f := range o.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// JSON renders the schema as a JSON-schema document.
func (o *Object) JSON() map[string]any {
	props := make(map[string]any, len(o.Fields))
	for _, f := range o.Fields {
		p := map[string]any{"type": string(f.Kind)}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			p["enum"] = append([]string(nil), f.Enum...)
		}
		if f.Nullable {
			p["nullable"] = true
		}
		if f.Default != nil {
			p["default"] = f.Default
		}
		props[f.Name] = p
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if o.Title != "" {
		out["title"] = o.Title
	}
	if o.Description != "" {
		out["description"] = o.Description
	}
	if req := o.RequiredNames(); len(req) > 0 {
		out["required"] = req
	}
	return out
}

// Validate checks a decoded JSON object against the schema and fills in
// declared defaults for absent fields.
func (o *Object) Validate(values map[string]any) error {
	if values == nil {
		return fmt.Errorf("%w: expected an object", ErrInvalid)
	}
	for _, f := range o.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			if ok && v == nil && !f.Nullable && f.Required {
				return fmt.Errorf("%w: %s must not be null", ErrInvalid, f.Name)
			}
			if !ok && f.Default != nil {
				values[f.Name] = f.Default
				continue
			}
			if !ok && f.Required {
				return fmt.Errorf("%w: missing required field %s", ErrInvalid, f.Name)
			}
			continue
		}
		if err := f.check(v); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field) check(v any) error {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalid, f.Name)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			return fmt.Errorf("%w: %s must be one of [%s], got %q", ErrInvalid, f.Name, strings.Join(f.Enum, ", "), s)
		}
	case KindNumber:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("%w: %s must be a number", ErrInvalid, f.Name)
		}
	case KindInteger:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("%w: %s must be an integer", ErrInvalid, f.Name)
		}
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalid, f.Name)
		}
	default:
		return fmt.Errorf("%w: %s has unsupported kind %q", ErrInvalid, f.Name, f.Kind)
	}
	return nil
}

// Decode parses raw as a single JSON object, validates it and unmarshals the
// validated values into dst.
func (o *Object) Decode(raw []byte, dst any) error {
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}
	return o.Bind(values, dst)
}

// Bind validates already decoded values and copies them into dst.
func (o *Object) Bind(values map[string]any, dst any) error {
	if err := o.Validate(values); err != nil {
		return err
	}
	normalized, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, dst)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
