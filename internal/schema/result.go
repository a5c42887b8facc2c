package schema

// Result types are thin aliases over their Parameter counterparts —
// no behavioral difference, they exist purely so a handler's return
// schema reads as "this is what I produce" rather than "this is what
// I require".
type (
	StringResult      = StringParameter
	ObjectResult       = ObjectParameter
	ArrayResult        = ArrayParameter
	FloatResult        = FloatParameter
	IntResult          = IntParameter
	IsoDateResult      = IsoDateParameter
	LooseObjectResult  = LooseObjectParameter
	JsonResult         = JsonParameter
	UriResult          = UriParameter
)

// GenericResult is a bare, identity-parsed descriptor — the Go
// equivalent of the original's base SchemaResult, which never
// overrides _parse and so returns its input unchanged.
type GenericResult struct {
	Base
}

func NewGenericResult(description string, opts ...Option) (*GenericResult, error) {
	b, err := newBase(description, "string", nil, opts...)
	if err != nil {
		return nil, err
	}
	return &GenericResult{Base: b}, nil
}

func MustGenericResult(description string, opts ...Option) *GenericResult {
	r, err := NewGenericResult(description, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *GenericResult) innerParse(value any, _ string) (any, error) {
	return value, nil
}

func (r *GenericResult) Parse(value any, context string) (any, error) {
	return r.parseOuter(value, context, r.innerParse)
}
