package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/antigravity-dev/fulfillment/internal/blobstore"
	"github.com/antigravity-dev/fulfillment/internal/response"
	"github.com/antigravity-dev/fulfillment/internal/schema"
	"github.com/antigravity-dev/fulfillment/internal/taskqueue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoProperties() []schema.Property {
	return []schema.Property{
		{Name: "customerId", Param: schema.MustString("the customer", "", 0, 0, schema.Required())},
	}
}

func newTestWorker(t *testing.T, cfg Config, handler Handler, opts ...Option) (*Worker, *taskqueue.InMemoryQueue, *blobstore.InMemoryStore) {
	t.Helper()
	tq := taskqueue.NewInMemoryQueue(4)
	bs := blobstore.NewInMemoryStore()
	if cfg.Properties == nil {
		cfg.Properties = echoProperties()
	}
	if cfg.Result == nil {
		cfg.Result = schema.MustGenericResult("the result", schema.Optional())
	}
	w, err := New(cfg, handler, tq, bs, discardLogger(), opts...)
	if err != nil {
		t.Fatalf("building worker: %v", err)
	}
	return w, tq, bs
}

func TestWorkerRunSuccessRoundTrip(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return map[string]any{"greeting": "hello " + args["customer_id"].(string)}, []string{"ok"}, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok1", Input: `{"customerId":"Ada"}`})
	processed, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected a task to have been processed")
	}

	resp := tq.Responses()["tok1"]
	if resp.Kind != "completed" {
		t.Fatalf("expected completed, got %q (%s)", resp.Kind, resp.Details)
	}

	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["status"] != string(response.StatusSuccess) {
		t.Fatalf("unexpected status: %v", envelope["status"])
	}
	result, ok := envelope["result"].(map[string]any)
	if !ok || result["greeting"] != "hello Ada" {
		t.Fatalf("unexpected result: %v", envelope["result"])
	}
	notes, ok := envelope["notes"].([]any)
	if !ok || len(notes) != 1 || notes[0] != "ok" {
		t.Fatalf("unexpected notes: %v", envelope["notes"])
	}
}

func TestWorkerRunNoTaskAvailable(t *testing.T) {
	w, _, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		t.Fatal("handler should not be invoked with no task queued")
		return nil, nil, nil
	})

	processed, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Fatal("expected no task to have been processed")
	}
}

func TestWorkerRunValidationFailureRespondsFailed(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		t.Fatal("handler should not run when validation fails")
		return nil, nil, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok2", Input: `{}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok2"]
	if resp.Kind != "failed" {
		t.Fatalf("expected failed, got %q", resp.Kind)
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["status"] != string(response.StatusInvalid) {
		t.Fatalf("unexpected status: %v", envelope["status"])
	}
	verrs, ok := envelope["validation_errors"].([]any)
	if !ok || len(verrs) != 1 {
		t.Fatalf("expected exactly one validation error, got %v", envelope["validation_errors"])
	}
	verr, ok := verrs[0].(map[string]any)
	if !ok {
		t.Fatalf("expected a validation error object, got %T", verrs[0])
	}
	if verr["validator"] != "required" {
		t.Fatalf("expected validator %q, got %v", "required", verr["validator"])
	}
	if verr["validator_value"] != "customerId" {
		t.Fatalf("expected validator_value %q, got %v", "customerId", verr["validator_value"])
	}
	if verr["message"] != "'customerId' is a required property" {
		t.Fatalf("expected message %q, got %v", "'customerId' is a required property", verr["message"])
	}
}

func TestWorkerRunHandlerFatalExceptionIsNotRetried(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return nil, nil, NewFatalException("cannot ever succeed", nil)
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok3", Input: `{"customerId":"Ada"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok3"]
	if resp.Kind != "failed" {
		t.Fatalf("fatal exceptions should not be retried, got disposition %q", resp.Kind)
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["status"] != string(response.StatusFatal) {
		t.Fatalf("unexpected status: %v", envelope["status"])
	}
}

func TestWorkerRunUntypedHandlerErrorIsRetried(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return nil, nil, errors.New("transient downstream failure")
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok4", Input: `{"customerId":"Ada"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok4"]
	if resp.Kind != "canceled" {
		t.Fatalf("expected an untyped error to default to a retryable disposition, got %q", resp.Kind)
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["status"] != string(response.StatusFailed) {
		t.Fatalf("expected the default exception factory's status, got %v", envelope["status"])
	}
	if !strings.Contains(envelope["result"].(string), "transient downstream failure") {
		t.Fatalf("expected the inner error message to be preserved, got %v", envelope["result"])
	}
}

func TestWorkerRunCustomDefaultExceptionFactory(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return nil, nil, errors.New("boom")
	}, WithDefaultException(func(message string, inner error) TypedError {
		return NewErrorException(message, inner)
	}))

	tq.Enqueue(&taskqueue.Task{Token: "tok5", Input: `{"customerId":"Ada"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok5"]
	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["status"] != string(response.StatusError) {
		t.Fatalf("expected the custom default exception factory to be used, got %v", envelope["status"])
	}
}

func TestWorkerRunReturnSchemaShortCircuits(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{Description: "does a thing"}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		t.Fatal("handler should not run for a RETURN_SCHEMA request")
		return nil, nil, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok6", Input: `{"RETURN_SCHEMA":true}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok6"]
	if resp.Kind != "completed" {
		t.Fatalf("expected the schema request to complete, got %q", resp.Kind)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &doc); err != nil {
		t.Fatalf("unexpected error decoding schema document: %v", err)
	}
	if doc["description"] != "does a thing" {
		t.Fatalf("unexpected description: %v", doc["description"])
	}
	if _, ok := doc["params"]; !ok {
		t.Fatal("expected a params schema in the document")
	}
	if _, ok := doc["result"]; !ok {
		t.Fatal("expected a result schema in the document")
	}
}

func TestWorkerRunDisableProtocolReturnsRawResult(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{DisableProtocol: true}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return map[string]any{"ok": true}, nil, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok7", Input: `{"customerId":"Ada"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok7"]
	var raw map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &raw); err != nil {
		t.Fatalf("unexpected error decoding raw result: %v", err)
	}
	if _, hasEnvelope := raw["status"]; hasEnvelope {
		t.Fatal("DISABLE_PROTOCOL should return the bare result, not the envelope")
	}
	if raw["ok"] != true {
		t.Fatalf("unexpected raw result: %v", raw)
	}
}

func TestWorkerRunEventDisableProtocolOverridesConfig(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return "plain", nil, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok8", Input: `{"customerId":"Ada","DISABLE_PROTOCOL":true}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok8"]
	var raw any
	if err := json.Unmarshal([]byte(resp.Details), &raw); err != nil {
		t.Fatalf("unexpected error decoding raw result: %v", err)
	}
	if raw != "plain" {
		t.Fatalf("expected the event-level override to disable the envelope, got %v", raw)
	}
}

func TestWorkerRunDebugModeDispatchesToDebugHandler(t *testing.T) {
	called := false
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		t.Fatal("the regular handler should not run when DEBUG_MODE is present")
		return nil, nil, nil
	}, WithDebugHandler(func(ctx context.Context, debugMode any, args map[string]any) (any, []string, error) {
		called = true
		if debugMode != "trace" {
			t.Fatalf("unexpected debug mode value: %v", debugMode)
		}
		return "debugged", nil, nil
	}))

	tq.Enqueue(&taskqueue.Task{Token: "tok9", Input: `{"customerId":"Ada","DEBUG_MODE":"trace"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected the debug handler to have been invoked")
	}

	resp := tq.Responses()["tok9"]
	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["result"] != "debugged" {
		t.Fatalf("unexpected result: %v", envelope["result"])
	}
}

func TestWorkerRunResultValidationFailureRespondsError(t *testing.T) {
	w, tq, _ := newTestWorker(t, Config{
		Result: schema.MustInt("must be an integer", 0, 0, false, false, schema.Required()),
	}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return "not an integer", nil, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok10", Input: `{"customerId":"Ada"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok10"]
	if resp.Kind != "canceled" {
		t.Fatalf("expected a retryable disposition for a malformed result, got %q", resp.Kind)
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(resp.Details), &envelope); err != nil {
		t.Fatalf("unexpected error decoding envelope: %v", err)
	}
	if envelope["status"] != string(response.StatusFailed) {
		t.Fatalf("unexpected status: %v", envelope["status"])
	}
}

func TestWorkerRunLargeResultOverflowsThroughSizeLimit(t *testing.T) {
	big := strings.Repeat("x", 500000)
	w, tq, _ := newTestWorker(t, Config{SizeLimit: 1000}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return big, nil, nil
	})

	tq.Enqueue(&taskqueue.Task{Token: "tok11", Input: `{"customerId":"Ada"}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := tq.Responses()["tok11"]
	if resp.Kind != "completed" {
		t.Fatalf("expected completed, got %q", resp.Kind)
	}
	if !strings.HasPrefix(resp.Details, "FF-ZIP:") && !strings.HasPrefix(resp.Details, "FF-URL:") {
		t.Fatalf("expected the oversized envelope to be size-limit encoded, got prefix %q", resp.Details[:10])
	}
}

func TestWorkerRunLogsInputWhenRequested(t *testing.T) {
	var buf strings.Builder
	w, tq, _ := newTestWorker(t, Config{}, func(ctx context.Context, args map[string]any) (any, []string, error) {
		return "ok", nil, nil
	})
	w.logger = slog.New(slog.NewTextHandler(&buf, nil))

	tq.Enqueue(&taskqueue.Task{Token: "tok12", Input: `{"customerId":"Ada","LOG_INPUT":true}`})
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "customerId") {
		t.Fatalf("expected the logged output to include the event body, got %q", buf.String())
	}
}
