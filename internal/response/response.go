// Package response implements the activity task response envelope:
// the compound result/notes/trace/reason object a worker hands back
// to its task queue on completion, cancellation, or failure.
package response

import (
	"encoding/json"
	"fmt"
)

// Status is an SWF-activity-task-shaped outcome code. Each value maps
// to one of the three ActivityTask dispositions: Complete, Fail, or
// Cancel.
type Status string

const (
	// Complete.
	StatusSuccess Status = "SUCCESS"

	// Fail — a retry without fixing the input will not help.
	StatusInvalid Status = "INVALID"
	// Fail — a retry with the current input will never help.
	StatusFatal Status = "FATAL"

	// Cancel — a retry might work.
	StatusFailed Status = "FAILED"
	// Cancel — an error was encountered, a retry might work.
	StatusError Status = "ERROR"
	// Cancel — result isn't available yet, retry.
	StatusDefer Status = "DEFER"

	StatusCachedResultPending Status = "CACHED_RESULT_PENDING"
	StatusUnknown             Status = "UNKNOWN"
)

// Result wraps a handler's raw return value. Response.Result unwraps
// exactly one level of this before serialization.
type Result struct {
	value any
}

// NewResult wraps value.
func NewResult(value any) *Result { return &Result{value: value} }

// Value returns the wrapped value.
func (r *Result) Value() any { return r.value }

// Cache describes a cached-result pointer attached to a response.
type Cache struct {
	Key          string
	Cached       string
	Expires      string
	RunID        string
	WorkflowID   string
	SectionName  string
}

// Response is the compound envelope returned by an activity: its
// outcome status, an optional result, diagnostic notes/trace, and (on
// a validation failure) the flat validation-error list.
type Response struct {
	Status Status

	activityResult any // raw value or *Result

	Notes  []string
	Trace  []string
	Reason string

	Cache    *Cache
	Instance string

	ValidationErrors []map[string]any
}

// New builds a Response with the given status; Notes and Trace start
// empty, matching the original's `notes or []` / `trace or []`
// defaulting.
func New(status Status) *Response {
	return &Response{
		Status: status,
		Notes:  []string{},
		Trace:  []string{},
	}
}

// SetResult stores either a raw value or a *Result.
func (r *Response) SetResult(v any) { r.activityResult = v }

// Result unwraps exactly one level of *Result, mirroring the
// original's isinstance(self.activity_result, ActivityResult) check.
// It errors if no result has been set.
func (r *Response) Result() (any, error) {
	if r.activityResult == nil {
		return nil, fmt.Errorf("response has no activity result")
	}
	if wrapped, ok := r.activityResult.(*Result); ok {
		return wrapped.Value(), nil
	}
	return r.activityResult, nil
}

// ToJSON renders the wire envelope.
func (r *Response) ToJSON() (map[string]any, error) {
	out := map[string]any{
		"status": string(r.Status),
	}
	if r.activityResult != nil {
		v, err := r.Result()
		if err != nil {
			return nil, err
		}
		out["result"] = v
	}
	out["notes"] = r.Notes
	out["trace"] = r.Trace
	out["reason"] = r.Reason

	if r.Cache != nil && r.Cache.Key != "" {
		out["cache"] = map[string]any{
			"key":         r.Cache.Key,
			"cached":      r.Cache.Cached,
			"expires":     r.Cache.Expires,
			"runId":       r.Cache.RunID,
			"workflowId":  r.Cache.WorkflowID,
			"sectionName": r.Cache.SectionName,
		}
	}
	if r.Instance != "" {
		out["instance"] = r.Instance
	}
	if len(r.ValidationErrors) > 0 {
		out["validation_errors"] = r.ValidationErrors
	}
	return out, nil
}

// Serialize renders the response as a JSON string.
func (r *Response) Serialize() (string, error) {
	doc, err := r.ToJSON()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FromJSON reconstructs a Response from a decoded JSON object.
func FromJSON(obj map[string]any) (*Response, error) {
	rawStatus, ok := obj["status"]
	if !ok {
		return nil, fmt.Errorf("invalid response format! (no status)")
	}
	statusStr, ok := rawStatus.(string)
	if !ok {
		return nil, fmt.Errorf("invalid response format! (status is not a string)")
	}

	r := New(Status(statusStr))

	if v, ok := obj["result"]; ok {
		r.activityResult = NewResult(v)
	}

	if notes, ok := obj["notes"].([]any); ok {
		for _, n := range notes {
			if s, ok := n.(string); ok {
				r.Notes = append(r.Notes, s)
			}
		}
	}
	if trace, ok := obj["trace"].([]any); ok {
		for _, t := range trace {
			if s, ok := t.(string); ok {
				r.Trace = append(r.Trace, s)
			}
		}
	}
	if reason, ok := obj["reason"].(string); ok {
		r.Reason = reason
	}
	if instance, ok := obj["instance"].(string); ok {
		r.Instance = instance
	}
	if verrs, ok := obj["validation_errors"].([]any); ok {
		for _, e := range verrs {
			if m, ok := e.(map[string]any); ok {
				r.ValidationErrors = append(r.ValidationErrors, m)
			}
		}
	}
	if cache, ok := obj["cache"].(map[string]any); ok {
		r.Cache = &Cache{
			Key:         stringField(cache, "key"),
			Cached:      stringField(cache, "cached"),
			Expires:     stringField(cache, "expires"),
			RunID:       stringField(cache, "runId"),
			WorkflowID:  stringField(cache, "workflowId"),
			SectionName: stringField(cache, "sectionName"),
		}
	}
	return r, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// ParseResult attempts to decode result as JSON; on failure it is
// returned unchanged, mirroring the original's "wasn't JSON, so it's
// automatically a JSON string" fallback.
func ParseResult(result string) any {
	var v any
	if err := json.Unmarshal([]byte(result), &v); err != nil {
		return result
	}
	return v
}
