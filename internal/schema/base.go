// Package schema implements the declarative parameter/result descriptor
// tree: JSON-Schema Draft-4 emission, validation, and typed parsing.
package schema

import (
	"fmt"
)

// Parameter is a node in the parameter tree. Every concrete descriptor
// (StringParameter, ObjectParameter, ArrayParameter, ...) implements it.
type Parameter interface {
	// ToSchema renders the JSON-Schema document for this node. When
	// includeVersion is true, the top-level $schema key is added.
	ToSchema(includeVersion bool) map[string]any
	// Parse normalizes a raw decoded-JSON value into its typed Go
	// representation, or returns an error.
	Parse(value any, context string) (any, error)
	IsRequired() bool
	Simple() bool
	Description() string
	JSONType() any
}

// Option configures a descriptor at construction time.
type Option func(*options)

type options struct {
	requiredSet bool
	required    bool
	hasDefault  bool
	defaultVal  any
}

// Optional marks the parameter as not required, with no default value
// (a missing input parses to nil).
func Optional() Option {
	return func(o *options) {
		o.requiredSet = true
		o.required = false
	}
}

// WithDefault marks the parameter as not required (unless Required is
// also given, which makes construction fail) and supplies the value
// substituted in when the input is missing.
func WithDefault(v any) Option {
	return func(o *options) {
		o.hasDefault = true
		o.defaultVal = v
		if !o.requiredSet {
			o.required = false
		}
	}
}

// Required explicitly marks the parameter as required. Combined with
// WithDefault, construction fails: a required parameter must not
// carry a default.
func Required() Option {
	return func(o *options) {
		o.requiredSet = true
		o.required = true
	}
}

func resolveOptions(opts []Option) options {
	o := options{requiredSet: false, required: true}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Base holds the fields and logic shared by every concrete descriptor.
type Base struct {
	description string
	required    bool
	hasDefault  bool
	defaultVal  any
	jsonType    any // string or []string
	extra       map[string]any
}

// newBase builds the common descriptor state. jsonType may be a
// string or a []string (used by union-typed nodes like OneOf/AnyOf).
func newBase(description string, jsonType any, extra map[string]any, opts ...Option) (Base, error) {
	o := resolveOptions(opts)
	if o.required && o.hasDefault {
		return Base{}, fmt.Errorf("required parameters can't have default values")
	}
	if extra == nil {
		extra = map[string]any{}
	}
	return Base{
		description: description,
		required:    o.required,
		hasDefault:  o.hasDefault,
		defaultVal:  o.defaultVal,
		jsonType:    jsonType,
		extra:       extra,
	}, nil
}

func mustBase(description string, jsonType any, extra map[string]any, opts ...Option) Base {
	b, err := newBase(description, jsonType, extra, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Description returns the human-readable description of this node.
func (b Base) Description() string { return b.description }

// IsRequired reports whether the input MUST be present.
func (b Base) IsRequired() bool { return b.required }

// Simple reports true for scalar (non-container) types. A union
// jsonType (used by OneOf/AnyOf, a list of each option's own type)
// never equals the literal "object"/"array", so it is always simple —
// matching the original's `type not in ("array", "object")` check.
func (b Base) Simple() bool {
	s, ok := b.jsonType.(string)
	if !ok {
		return true
	}
	return s != "object" && s != "array"
}

// JSONType exposes the node's raw type tag (string, []string, or
// []any for a union of option types) to callers composing it into a
// parent node's own jsonType, e.g. OneOf/AnyOf.
func (b Base) JSONType() any { return b.jsonType }

func (b Base) effectiveType() any {
	if b.required {
		return b.jsonType
	}
	switch t := b.jsonType.(type) {
	case []string:
		out := make([]any, 0, len(t)+1)
		out = append(out, "null")
		for _, s := range t {
			out = append(out, s)
		}
		return out
	case []any:
		return append([]any{"null"}, t...)
	case string:
		return []string{"null", t}
	default:
		return t
	}
}

// ToSchema renders the JSON-Schema document for this node.
func (b Base) ToSchema(includeVersion bool) map[string]any {
	out := map[string]any{
		"type":        b.effectiveType(),
		"description": b.description,
	}
	if b.hasDefault {
		out["default"] = b.defaultVal
	}
	for k, v := range b.extra {
		out[k] = v
	}
	if includeVersion {
		out["$schema"] = "http://json-schema.org/draft-04/schema"
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// parseOuter implements the shared parse() contract: null+optional
// substitutes (and recursively normalizes) the default, null+required
// raises, and any error from inner is wrapped with a context prefix.
func (b Base) parseOuter(value any, context string, inner func(v any, ctx string) (any, error)) (any, error) {
	if value != nil {
		result, err := inner(value, context)
		if err != nil {
			return nil, fmt.Errorf("Exception while parsing %s: %w", context, err)
		}
		return result, nil
	}
	if !b.required {
		if !b.hasDefault || b.defaultVal == nil {
			return nil, nil
		}
		result, err := inner(b.defaultVal, context+"/-default-/")
		if err != nil {
			return nil, fmt.Errorf("Exception while parsing %s: %w", context, err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("%s-Missing required parameter (description: %s)", context, truncate(b.description, 40))
}
