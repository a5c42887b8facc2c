package schema

import (
	"fmt"
	"time"

	"github.com/antigravity-dev/fulfillment/internal/resolver"
)

// ResolverObjectParameter is an ObjectParameter variant whose Parse
// returns a *resolver.Container instead of a plain map: each declared
// property either defers to a Resolver (if its raw value contains
// code) or is stored directly, with the property's own Parse attached
// as the post-evaluation transform so normalization still applies to
// code-resolved results.
type ResolverObjectParameter struct {
	Base
	ResolverContext string
	Properties      []Property
	ExtraType       Parameter
	Timeout         time.Duration
}

// ResolverObjectOption configures the optional bits of a
// ResolverObjectParameter: an open-ended extra-property schema and a
// per-container evaluation timeout.
type ResolverObjectOption func(*resolverObjectOptions)

type resolverObjectOptions struct {
	extraType Parameter
	timeout   time.Duration
}

func WithExtraType(p Parameter) ResolverObjectOption {
	return func(o *resolverObjectOptions) { o.extraType = p }
}

func WithResolverTimeout(d time.Duration) ResolverObjectOption {
	return func(o *resolverObjectOptions) { o.timeout = d }
}

func NewResolverObject(resolverContext, description string, properties []Property, roOpts []ResolverObjectOption, opts ...Option) (*ResolverObjectParameter, error) {
	ro := resolverObjectOptions{timeout: resolver.DefaultTimeout}
	for _, apply := range roOpts {
		apply(&ro)
	}
	props, required := propsToSchema(properties)
	b, err := newBase(description, "object", map[string]any{
		"properties": props,
		"required":   required,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &ResolverObjectParameter{
		Base:            b,
		ResolverContext: resolverContext,
		Properties:      properties,
		ExtraType:       ro.extraType,
		Timeout:         ro.timeout,
	}, nil
}

func MustResolverObject(resolverContext, description string, properties []Property, roOpts []ResolverObjectOption, opts ...Option) *ResolverObjectParameter {
	p, err := NewResolverObject(resolverContext, description, properties, roOpts, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func isResolverObject(p Parameter) bool {
	_, ok := p.(*ResolverObjectParameter)
	return ok
}

func (p *ResolverObjectParameter) innerParse(value any, context string) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", value)
	}
	out := resolver.NewContainer(p.ResolverContext, p.Timeout)

	declared := make(map[string]bool, len(p.Properties))
	for _, prop := range p.Properties {
		declared[prop.Name] = true
		scontext := fmt.Sprintf("%s/%s[%s]", p.ResolverContext, context, prop.Name)
		prop := prop
		transform := func(v any) (any, error) { return prop.Param.Parse(v, scontext) }
		if err := out.Add(prop.Name, m[prop.Name], transform, isResolverObject(prop.Param)); err != nil {
			return nil, err
		}
	}
	if p.ExtraType != nil {
		for name, val := range m {
			if declared[name] {
				continue
			}
			scontext := fmt.Sprintf("%s/%s[%s]", p.ResolverContext, context, name)
			extra := p.ExtraType
			transform := func(v any) (any, error) { return extra.Parse(v, scontext) }
			if err := out.Add(name, val, transform, isResolverObject(extra)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (p *ResolverObjectParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}
