package schema

import (
	"errors"
	"log/slog"
)

// ErrNoOptionMatched is returned by OneOfParameter/AnyOfParameter.Parse
// when none of the declared options accept the value. Unlike the
// original's `false` sentinel, this is distinguishable from a
// legitimate boolean `false` parse result.
var ErrNoOptionMatched = errors.New("no option matched")

func optionTypesRaw(options []Parameter) []any {
	out := make([]any, len(options))
	for i, o := range options {
		out[i] = o.JSONType()
	}
	return out
}

func optionSchemas(options []Parameter) []any {
	out := make([]any, len(options))
	for i, o := range options {
		out[i] = o.ToSchema(false)
	}
	return out
}

// OneOfParameter tries each option in order, returning the first
// option whose Parse produces a non-nil value.
type OneOfParameter struct {
	Base
	Options []Parameter
}

func NewOneOf(description string, options []Parameter, opts ...Option) (*OneOfParameter, error) {
	b, err := newBase(description, optionTypesRaw(options), map[string]any{"oneOf": optionSchemas(options)}, opts...)
	if err != nil {
		return nil, err
	}
	return &OneOfParameter{Base: b, Options: options}, nil
}

func MustOneOf(description string, options []Parameter, opts ...Option) *OneOfParameter {
	p, err := NewOneOf(description, options, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *OneOfParameter) innerParse(value any, context string) (any, error) {
	for _, option := range p.Options {
		val, err := option.Parse(value, context+":OneOf:")
		if err != nil {
			slog.Debug("while parsing OneOf option", "error", err, "option", option.Description())
			continue
		}
		if val != nil {
			return val, nil
		}
	}
	return nil, ErrNoOptionMatched
}

func (p *OneOfParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// AnyOfParameter tries each option in order, returning the first
// option whose Parse produces a non-nil value.
type AnyOfParameter struct {
	Base
	Options []Parameter
}

func NewAnyOf(description string, options []Parameter, opts ...Option) (*AnyOfParameter, error) {
	b, err := newBase(description, optionTypesRaw(options), map[string]any{"anyOf": optionSchemas(options)}, opts...)
	if err != nil {
		return nil, err
	}
	return &AnyOfParameter{Base: b, Options: options}, nil
}

func MustAnyOf(description string, options []Parameter, opts ...Option) *AnyOfParameter {
	p, err := NewAnyOf(description, options, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *AnyOfParameter) innerParse(value any, context string) (any, error) {
	for _, option := range p.Options {
		val, err := option.Parse(value, context+":AnyOf:")
		if err != nil {
			slog.Debug("while parsing AnyOf option", "error", err, "option", option.Description())
			continue
		}
		if val != nil {
			return val, nil
		}
	}
	return nil, ErrNoOptionMatched
}

func (p *AnyOfParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}
