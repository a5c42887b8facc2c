package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/antigravity-dev/fulfillment/internal/timeline"
)

// DefaultTimeout is used when a Resolver is constructed without an
// explicit timeout.
const DefaultTimeout = 5 * time.Second

// Resolver wraps a single input value that may contain `<(`-marked
// code, evaluating it exactly once and recording the outcome on its
// own Timeline.
type Resolver struct {
	Input    any
	Timeout  time.Duration
	Timeline *timeline.Timeline

	needsEvaluation bool
	evaluated       bool
	resolved        bool
	resolvable      bool
	result          any
	code            string
}

// New builds a Resolver over input. A zero timeout falls back to
// DefaultTimeout.
func New(input any, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	needsEval := ContainsCode(input)
	return &Resolver{
		Input:           input,
		Timeout:         timeout,
		Timeline:        timeline.New(),
		needsEvaluation: needsEval,
		evaluated:       !needsEval,
		resolved:        !needsEval,
		resolvable:      true,
		result:          input,
	}
}

// Evaluate runs the evaluation exactly once; repeat calls return the
// memoized result.
func (r *Resolver) Evaluate() any {
	if r.evaluated {
		return r.GetResult()
	}
	r.evaluated = true

	result, err := r.evaluateValue(r.Input)
	if err != nil {
		r.Timeline.Error(err.Error())
		r.resolvable = false
		return nil
	}
	r.result = result
	r.resolved = true
	return result
}

func (r *Resolver) evaluateValue(e any) (any, error) {
	switch v := e.(type) {
	case map[string]any:
		var offending []string
		for k := range v {
			if IsCode(k) {
				offending = append(offending, k)
			}
		}
		if len(offending) > 0 {
			return nil, fmt.Errorf("Operators like '%v' are NOT supported!", offending)
		}
		out := make(map[string]any, len(v))
		for k, val := range v {
			parsed, err := r.evaluateValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = parsed
		}
		return out, nil
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok && s == CodeStart {
				lines := make([]string, len(v))
				for i, elem := range v {
					s, ok := elem.(string)
					if !ok {
						return nil, fmt.Errorf("code block element %d is not a string", i)
					}
					lines[i] = s
				}
				return r.evaluateString(strings.Join(lines, "\n"))
			}
		}
		out := make([]any, len(v))
		for i, val := range v {
			parsed, err := r.evaluateValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = parsed
		}
		return out, nil
	case string:
		if IsCode(v) {
			return r.evaluateString(v)
		}
		return v, nil
	default:
		return e, nil
	}
}

func (r *Resolver) evaluateString(s string) (any, error) {
	code := s[len(CodeStart):]
	val, wrapped, serr := execute(code, r.Timeout)
	r.code = wrapped
	if serr != nil {
		return nil, serr
	}
	return val, nil
}

// GetResult returns the memoized result if the Resolver is fully
// resolved, nil otherwise.
func (r *Resolver) GetResult() any {
	if r.IsResolved() {
		return r.result
	}
	return nil
}

func (r *Resolver) IsResolved() bool   { return r.resolvable && r.resolved }
func (r *Resolver) IsResolvable() bool { return r.resolvable }
func (r *Resolver) IsEvaluated() bool  { return r.evaluated }

// LastMsg returns the first message of the most recent Timeline
// event, or "" if nothing has been logged.
func (r *Resolver) LastMsg() string {
	return r.Timeline.LastMessage()
}

// ToJSON renders the Resolver's diagnostic envelope.
func (r *Resolver) ToJSON() map[string]any {
	return map[string]any{
		"input":           r.Input,
		"result":          r.GetResult(),
		"resolvable":      r.resolvable,
		"resolved":        r.IsResolved(),
		"evaluated":       r.evaluated,
		"needsEvaluation": r.needsEvaluation,
		"timeline":        r.Timeline.ToJSON(),
		"code":            r.code,
	}
}
