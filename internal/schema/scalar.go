package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// StringParameter accepts a string and trims surrounding whitespace.
type StringParameter struct {
	Base
}

// NewString builds a StringParameter. pattern/minLength/maxLength are
// zero-value-means-absent (matching the original's "only add if truthy"
// schema assembly).
func NewString(description string, pattern string, minLength, maxLength int, opts ...Option) (*StringParameter, error) {
	extra := map[string]any{}
	if pattern != "" {
		extra["pattern"] = pattern
	}
	if maxLength > 0 {
		extra["maxLength"] = maxLength
	}
	if minLength > 0 {
		extra["minLength"] = minLength
	}
	b, err := newBase(description, "string", extra, opts...)
	if err != nil {
		return nil, err
	}
	return &StringParameter{Base: b}, nil
}

func MustString(description string, pattern string, minLength, maxLength int, opts ...Option) *StringParameter {
	p, err := NewString(description, pattern, minLength, maxLength, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *StringParameter) innerParse(value any, _ string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	return strings.TrimSpace(s), nil
}

func (p *StringParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// EnumParameter accepts a string that, once trimmed, must be one of Options.
type EnumParameter struct {
	Base
	Options []string
}

func NewEnum(description string, options []string, opts ...Option) (*EnumParameter, error) {
	b, err := newBase(description, "string", map[string]any{"enum": options}, opts...)
	if err != nil {
		return nil, err
	}
	return &EnumParameter{Base: b, Options: options}, nil
}

func MustEnum(description string, options []string, opts ...Option) *EnumParameter {
	p, err := NewEnum(description, options, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *EnumParameter) innerParse(value any, _ string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	v := strings.TrimSpace(s)
	for _, o := range p.Options {
		if o == v {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%s is not a valid value for Enum", v)
}

func (p *EnumParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// BooleanParameter accepts a bool and rejects anything else.
type BooleanParameter struct {
	Base
}

func NewBoolean(description string, opts ...Option) (*BooleanParameter, error) {
	b, err := newBase(description, "boolean", nil, opts...)
	if err != nil {
		return nil, err
	}
	return &BooleanParameter{Base: b}, nil
}

func MustBoolean(description string, opts ...Option) *BooleanParameter {
	p, err := NewBoolean(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *BooleanParameter) innerParse(value any, _ string) (any, error) {
	v, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("expected a boolean, got %T", value)
	}
	return v, nil
}

func (p *BooleanParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// UriParameter accepts a non-empty string flagged with format=uri.
type UriParameter struct {
	Base
}

func NewUri(description string, opts ...Option) (*UriParameter, error) {
	b, err := newBase(description, "string", map[string]any{"format": "uri", "minLength": 1}, opts...)
	if err != nil {
		return nil, err
	}
	return &UriParameter{Base: b}, nil
}

func MustUri(description string, opts ...Option) *UriParameter {
	p, err := NewUri(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *UriParameter) innerParse(value any, _ string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	return strings.TrimSpace(s), nil
}

func (p *UriParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

const uuidPattern = `^[0-9A-Fa-f]{8}-([0-9A-Fa-f]{4}-){3}[0-9A-Fa-f]{12}$`

// UuidParameter accepts a canonically-hyphenated UUID string.
type UuidParameter struct {
	Base
}

func NewUuid(description string, opts ...Option) (*UuidParameter, error) {
	b, err := newBase(description, "string", map[string]any{"pattern": uuidPattern}, opts...)
	if err != nil {
		return nil, err
	}
	return &UuidParameter{Base: b}, nil
}

func MustUuid(description string, opts ...Option) *UuidParameter {
	p, err := NewUuid(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *UuidParameter) innerParse(value any, _ string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid uuid: %w", s, err)
	}
	return parsed.String(), nil
}

func (p *UuidParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// IntParameter coerces its input to an integer, optionally bounded.
type IntParameter struct {
	Base
}

func NewInt(description string, minimum, maximum int, hasMin, hasMax bool, opts ...Option) (*IntParameter, error) {
	extra := map[string]any{}
	if hasMin {
		extra["minimum"] = minimum
	}
	if hasMax {
		extra["maximum"] = maximum
	}
	b, err := newBase(description, "integer", extra, opts...)
	if err != nil {
		return nil, err
	}
	return &IntParameter{Base: b}, nil
}

func MustInt(description string, minimum, maximum int, hasMin, hasMax bool, opts ...Option) *IntParameter {
	p, err := NewInt(description, minimum, maximum, hasMin, hasMax, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *IntParameter) innerParse(value any, _ string) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid integer", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to integer", value)
	}
}

func (p *IntParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// FloatParameter coerces its input to a float64, optionally bounded.
type FloatParameter struct {
	Base
}

func NewFloat(description string, minimum, maximum float64, hasMin, hasMax bool, opts ...Option) (*FloatParameter, error) {
	extra := map[string]any{}
	if hasMin {
		extra["minimum"] = minimum
	}
	if hasMax {
		extra["maximum"] = maximum
	}
	b, err := newBase(description, "number", extra, opts...)
	if err != nil {
		return nil, err
	}
	return &FloatParameter{Base: b}, nil
}

func MustFloat(description string, minimum, maximum float64, hasMin, hasMax bool, opts ...Option) *FloatParameter {
	p, err := NewFloat(description, minimum, maximum, hasMin, hasMax, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *FloatParameter) innerParse(value any, _ string) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid number", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to float", value)
	}
}

func (p *FloatParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}

// IsoDateParameter is a plain string carrying an ISO-8601 date/time
// value. The wire format is not syntax-checked beyond being a string,
// and its emitted schema carries no pattern either, mirroring the
// original's bare StringParameter reuse.
type IsoDateParameter struct {
	StringParameter
}

func NewIsoDate(description string, opts ...Option) (*IsoDateParameter, error) {
	s, err := NewString(description, "", 0, 0, opts...)
	if err != nil {
		return nil, err
	}
	return &IsoDateParameter{StringParameter: *s}, nil
}

func MustIsoDate(description string, opts ...Option) *IsoDateParameter {
	p, err := NewIsoDate(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *IsoDateParameter) Parse(value any, context string) (any, error) {
	return p.Base.parseOuter(value, context, p.StringParameter.innerParse)
}

// NaiveIsoDateParameter is an ISO-8601 date/time string with no
// timezone offset (a calendar-local instant).
type NaiveIsoDateParameter struct {
	StringParameter
}

func NewNaiveIsoDate(description string, opts ...Option) (*NaiveIsoDateParameter, error) {
	s, err := NewString(description, "", 0, 0, opts...)
	if err != nil {
		return nil, err
	}
	return &NaiveIsoDateParameter{StringParameter: *s}, nil
}

func MustNaiveIsoDate(description string, opts ...Option) *NaiveIsoDateParameter {
	p, err := NewNaiveIsoDate(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *NaiveIsoDateParameter) Parse(value any, context string) (any, error) {
	return p.Base.parseOuter(value, context, p.StringParameter.innerParse)
}

// LocalIsoDateTimeParameter is an ISO-8601 date-time string expressed
// in the activity's configured local timezone rather than UTC.
type LocalIsoDateTimeParameter struct {
	StringParameter
}

func NewLocalIsoDateTime(description string, opts ...Option) (*LocalIsoDateTimeParameter, error) {
	s, err := NewString(description, "", 0, 0, opts...)
	if err != nil {
		return nil, err
	}
	return &LocalIsoDateTimeParameter{StringParameter: *s}, nil
}

func MustLocalIsoDateTime(description string, opts ...Option) *LocalIsoDateTimeParameter {
	p, err := NewLocalIsoDateTime(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *LocalIsoDateTimeParameter) Parse(value any, context string) (any, error) {
	return p.Base.parseOuter(value, context, p.StringParameter.innerParse)
}

// JsonParameter accepts any JSON-representable value unchanged; its
// schema type is the union of all six JSON types.
type JsonParameter struct {
	Base
}

func NewJson(description string, opts ...Option) (*JsonParameter, error) {
	b, err := newBase(description, []string{"array", "boolean", "integer", "number", "object", "string"}, nil, opts...)
	if err != nil {
		return nil, err
	}
	return &JsonParameter{Base: b}, nil
}

func MustJson(description string, opts ...Option) *JsonParameter {
	p, err := NewJson(description, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *JsonParameter) innerParse(value any, _ string) (any, error) {
	return value, nil
}

func (p *JsonParameter) Parse(value any, context string) (any, error) {
	return p.parseOuter(value, context, p.innerParse)
}
