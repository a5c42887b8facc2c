package response

import (
	"encoding/json"
	"testing"
)

func TestNewResponseDefaultsNotesAndTrace(t *testing.T) {
	r := New(StatusSuccess)
	if r.Notes == nil || r.Trace == nil {
		t.Fatal("expected Notes and Trace to default to empty slices, not nil")
	}
}

func TestResponseResultUnwrapsWrappedResult(t *testing.T) {
	r := New(StatusSuccess)
	r.SetResult(NewResult(map[string]any{"a": 1}))
	v, err := r.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["a"] != 1 {
		t.Fatalf("expected one level of unwrap, got %v", v)
	}
}

func TestResponseResultPassesThroughRawValue(t *testing.T) {
	r := New(StatusSuccess)
	r.SetResult(42)
	v, err := r.Result()
	if err != nil || v != 42 {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
}

func TestResponseResultErrorsWhenUnset(t *testing.T) {
	r := New(StatusSuccess)
	if _, err := r.Result(); err == nil {
		t.Fatal("expected an error when no result has been set")
	}
}

func TestResponseToJSONIncludesCacheWhenKeyed(t *testing.T) {
	r := New(StatusSuccess)
	r.Cache = &Cache{Key: "k1", Cached: "yes"}
	doc, err := r.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, ok := doc["cache"].(map[string]any)
	if !ok || cache["key"] != "k1" {
		t.Fatalf("expected cache block in the envelope, got %v", doc)
	}
}

func TestResponseToJSONOmitsCacheWhenKeyEmpty(t *testing.T) {
	r := New(StatusSuccess)
	r.Cache = &Cache{}
	doc, err := r.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := doc["cache"]; present {
		t.Fatal("expected no cache block when the cache key is empty")
	}
}

func TestResponseSerializeRoundTripsThroughFromJSON(t *testing.T) {
	r := New(StatusInvalid)
	r.SetResult("bad input")
	r.Notes = []string{"n1"}
	r.Trace = []string{"t1"}
	r.Reason = "validation failed"

	serialized, err := r.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(serialized), &decoded); err != nil {
		t.Fatalf("unexpected error decoding serialized response: %v", err)
	}

	rebuilt, err := FromJSON(decoded)
	if err != nil {
		t.Fatalf("unexpected error reconstructing response: %v", err)
	}
	if rebuilt.Status != StatusInvalid {
		t.Fatalf("unexpected status: %v", rebuilt.Status)
	}
	if len(rebuilt.Notes) != 1 || rebuilt.Notes[0] != "n1" {
		t.Fatalf("unexpected notes: %v", rebuilt.Notes)
	}
	v, err := rebuilt.Result()
	if err != nil || v != "bad input" {
		t.Fatalf("unexpected rebuilt result: %v, %v", v, err)
	}
}

func TestFromJSONRejectsMissingStatus(t *testing.T) {
	if _, err := FromJSON(map[string]any{}); err == nil {
		t.Fatal("expected an error for a response with no status field")
	}
}

func TestParseResultDecodesJSON(t *testing.T) {
	got := ParseResult(`{"a":1}`)
	m, ok := got.(map[string]any)
	if !ok || m["a"] != float64(1) {
		t.Fatalf("expected decoded JSON object, got %v", got)
	}
}

func TestParseResultFallsBackToRawStringOnDecodeFailure(t *testing.T) {
	got := ParseResult("not json at all")
	if got != "not json at all" {
		t.Fatalf("expected raw string fallback, got %v", got)
	}
}
