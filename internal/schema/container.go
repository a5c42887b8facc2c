package schema

import "fmt"

// Property names one field of an ObjectParameter.
type Property struct {
	Name  string
	Param Parameter
}

func propsToSchema(properties []Property) (map[string]any, []string) {
	props := make(map[string]any, len(properties))
	required := make([]string, 0, len(properties))
	for _, p := range properties {
		props[p.Name] = p.Param.ToSchema(false)
		if p.Param.IsRequired() {
			required = append(required, p.Name)
		}
	}
	return props, required
}

// ObjectParameter recursively parses a fixed set of declared
// properties, dropping keys whose parsed value is nil.
type ObjectParameter struct {
	Base
	Properties []Property
}

func NewObject(description string, properties []Property, opts ...Option) (*ObjectParameter, error) {
	props, required := propsToSchema(properties)
	b, err := newBase(description, "object", map[string]any{
		"properties": props,
		"required":   required,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &ObjectParameter{Base: b, Properties: properties}, nil
}

func MustObject(description string, properties []Property, opts ...Option) *ObjectParameter {
	p, err := NewObject(description, properties, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *ObjectParameter) innerParse(value any, context string) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", value)
	}
	out := map[string]any{}
	for _, prop := range p.Properties {
		v, err := prop.Param.Parse(m[prop.Name], fmt.Sprintf("%s[%s]", context, prop.Name))
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[prop.Name] = v
		}
	}
	return out, nil
}

func (p *ObjectParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// LooseObjectParameter parses every entry in an open-ended map against
// a single shared value schema, keyed by a regex-matched property name.
type LooseObjectParameter struct {
	Base
	ValueType Parameter
	KeyRegex  string
}

func NewLooseObject(description string, valueType Parameter, keyRegex string, opts ...Option) (*LooseObjectParameter, error) {
	if keyRegex == "" {
		keyRegex = ".+"
	}
	b, err := newBase(description, "object", map[string]any{
		"minProperties":        1,
		"patternProperties":    map[string]any{keyRegex: valueType.ToSchema(false)},
		"additionalProperties": false,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &LooseObjectParameter{Base: b, ValueType: valueType, KeyRegex: keyRegex}, nil
}

func MustLooseObject(description string, valueType Parameter, keyRegex string, opts ...Option) *LooseObjectParameter {
	p, err := NewLooseObject(description, valueType, keyRegex, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *LooseObjectParameter) innerParse(value any, context string) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", value)
	}
	out := map[string]any{}
	for name, v := range m {
		parsed, err := p.ValueType.Parse(v, fmt.Sprintf("%s[%s]", context, name))
		if err != nil {
			return nil, err
		}
		out[name] = parsed
	}
	return out, nil
}

func (p *LooseObjectParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// StringMapParameter is an object whose values are enforced to be
// strings by the emitted schema, but which passes its value through
// unparsed (the original never re-normalizes a plain string map).
type StringMapParameter struct {
	Base
	ValueType *StringParameter
}

func NewStringMap(description string, opts ...Option) (*StringMapParameter, error) {
	valueType := MustString("Value", "", 0, 0)
	b, err := newBase(description, "object", map[string]any{
		"additionalProperties": map[string]any{
			"type":        "string",
			"description": "string values",
		},
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &StringMapParameter{Base: b, ValueType: valueType}, nil
}

func MustStringMap(description string, opts ...Option) *StringMapParameter {
	p, err := NewStringMap(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *StringMapParameter) innerParse(value any, _ string) (any, error) {
	return value, nil
}

func (p *StringMapParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// ArrayParameter parses every element of a sequence with a single
// shared element schema.
type ArrayParameter struct {
	Base
	Element  Parameter
	MinItems int
	MaxItems int
	Unique   bool
}

func NewArray(description string, element Parameter, minItems, maxItems int, unique bool, opts ...Option) (*ArrayParameter, error) {
	extra := map[string]any{"items": element.ToSchema(false)}
	if minItems > 0 {
		extra["minItems"] = minItems
	}
	if maxItems > 0 {
		extra["maxItems"] = maxItems
	}
	if unique {
		extra["uniqueItems"] = unique
	}
	b, err := newBase(description, "array", extra, opts...)
	if err != nil {
		return nil, err
	}
	return &ArrayParameter{Base: b, Element: element, MinItems: minItems, MaxItems: maxItems, Unique: unique}, nil
}

func MustArray(description string, element Parameter, minItems, maxItems int, unique bool, opts ...Option) *ArrayParameter {
	p, err := NewArray(description, element, minItems, maxItems, unique, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *ArrayParameter) innerParse(value any, context string) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", value)
	}
	out := make([]any, len(arr))
	for i, v := range arr {
		parsed, err := p.Element.Parse(v, fmt.Sprintf("%s[%d/%d]", context, i, len(arr)))
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

func (p *ArrayParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}
