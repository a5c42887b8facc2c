package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// ValidationError is the flat record shape the worker reports back to
// the caller on a validation failure — one entry per violated
// keyword, in the tradition of python-jsonschema's iter_errors().
type ValidationError struct {
	Cause          string
	Context        string
	Message        string
	Path           string
	RelativePath   string
	AbsolutePath   string
	Validator      string
	ValidatorValue any
}

// Validator compiles an ObjectParameter's emitted schema once and
// validates decoded-JSON event bodies against it, using
// github.com/kaptinlin/jsonschema as the Draft-4 evaluation engine.
type Validator struct {
	compiled *jsonschema.Schema
}

// NewValidator builds the Draft-4 document for root (typically an
// ObjectParameter describing an activity's top-level parameters) and
// compiles it.
func NewValidator(root Parameter) (*Validator, error) {
	doc := root.ToSchema(true)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema document: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compiling schema document: %w", err)
	}
	return &Validator{compiled: schema}, nil
}

// Validate reports every Draft-4 keyword violation found in event, in
// the same flat shape the original ParamValidator produced. kaptinlin
// owns the actual Draft-4 evaluation; here we only own presentation —
// walking event by each result's InstanceLocation to recover the
// offending value and re-deriving a python-jsonschema-style message
// and a bare validator_value instead of passing kaptinlin's own
// template text (and raw multi-key params map) straight through.
func (v *Validator) Validate(event any) []ValidationError {
	result := v.compiled.Validate(event)
	if result.IsValid() {
		return nil
	}
	var out []ValidationError
	collectErrors(result, event, &out)
	return out
}

func collectErrors(res *jsonschema.EvaluationResult, root any, out *[]ValidationError) {
	if res == nil {
		return
	}
	path := jsonPointerToPath(res.InstanceLocation)
	instance, hasInstance := valueAtPointer(root, res.InstanceLocation)
	for _, evalErr := range res.Errors {
		message, value := deriveMessage(evalErr, instance, hasInstance)
		*out = append(*out, ValidationError{
			Message:        message,
			Path:           path,
			RelativePath:   path,
			AbsolutePath:   path,
			Validator:      evalErr.Keyword,
			ValidatorValue: value,
		})
	}
	for _, detail := range res.Details {
		collectErrors(detail, root, out)
	}
}

// deriveMessage re-derives a python-jsonschema-flavored message and a
// bare validator_value for the keywords this worker is known to emit
// in its own schema documents (type, required, enum, pattern,
// minLength, maxLength, minimum, maximum). Keywords outside that set
// fall back to kaptinlin's own rendered message and its generic
// single-key params collapse.
func deriveMessage(evalErr *jsonschema.EvaluationError, instance any, hasInstance bool) (string, any) {
	params := evalErr.Params
	switch evalErr.Keyword {
	case "type":
		expected, _ := params["expected"].(string)
		types := splitList(expected)
		quoted := make([]string, len(types))
		for i, t := range types {
			quoted[i] = "'" + t + "'"
		}
		message := fmt.Sprintf("%s is not of type %s", pythonRepr(instance, hasInstance), strings.Join(quoted, ", "))
		if len(types) == 1 {
			return message, types[0]
		}
		return message, expected
	case "required":
		if prop, ok := params["property"].(string); ok {
			name := strings.Trim(prop, "'")
			return fmt.Sprintf("%s is a required property", pythonRepr(name, true)), name
		}
		if props, ok := params["properties"].(string); ok {
			return fmt.Sprintf("%s are required properties", props), props
		}
	case "enum":
		return fmt.Sprintf("%s is not one of the allowed values", pythonRepr(instance, hasInstance)), nil
	case "pattern":
		pattern, _ := params["pattern"].(string)
		return fmt.Sprintf("%s does not match %s", pythonRepr(instance, hasInstance), pythonRepr(pattern, true)), pattern
	case "minLength":
		minLength := params["min_length"]
		return fmt.Sprintf("%s is too short", pythonRepr(instance, hasInstance)), minLength
	case "maxLength":
		maxLength := params["max_length"]
		return fmt.Sprintf("%s is too long", pythonRepr(instance, hasInstance)), maxLength
	case "minimum":
		minimum := params["minimum"]
		return fmt.Sprintf("%s is less than the minimum of %s", pythonRepr(instance, hasInstance), fmt.Sprint(minimum)), minimum
	case "maximum":
		maximum := params["maximum"]
		return fmt.Sprintf("%s is greater than the maximum of %s", pythonRepr(instance, hasInstance), fmt.Sprint(maximum)), maximum
	}
	return evalErr.Error(), paramValue(params)
}

func paramValue(params map[string]any) any {
	if params == nil {
		return nil
	}
	if len(params) == 1 {
		for _, v := range params {
			return v
		}
	}
	return params
}

// splitList turns kaptinlin's comma-joined "expected" string (e.g.
// strings.Join(schema.Type, ", ")) back into its parts.
func splitList(joined string) []string {
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pythonRepr renders a decoded-JSON value the way Python's repr()
// would, matching the wording python-jsonschema embeds in its own
// validation messages (e.g. "1 is not of type 'string'").
func pythonRepr(value any, present bool) string {
	if !present {
		return "None"
	}
	switch v := value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
	case float64:
		return reprNumber(v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = pythonRepr(e, true)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func reprNumber(f float64) string {
	if !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// valueAtPointer walks a JSON Pointer (RFC 6901) into root, the
// originally-decoded event, to recover the instance value a
// kaptinlin EvaluationResult's InstanceLocation refers to.
func valueAtPointer(root any, pointer string) (any, bool) {
	cur := root
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return cur, true
	}
	for _, seg := range strings.Split(pointer, "/") {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		switch v := cur.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = val
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func jsonPointerToPath(p string) string {
	return strings.Trim(p, "/")
}
