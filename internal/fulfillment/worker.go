package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/antigravity-dev/fulfillment/internal/blobstore"
	"github.com/antigravity-dev/fulfillment/internal/resolver"
	"github.com/antigravity-dev/fulfillment/internal/response"
	"github.com/antigravity-dev/fulfillment/internal/schema"
	"github.com/antigravity-dev/fulfillment/internal/sizelimit"
	"github.com/antigravity-dev/fulfillment/internal/taskqueue"
)

// Handler is the activity body: given the parsed, snake_cased
// argument map, it produces a result, optional notes, or an error.
// Returning a *fulfillment* TypedError controls the response's status
// code and retry disposition directly; any other error is wrapped by
// the worker's default ExceptionFactory (a FailedException unless
// WithDefaultException supplies another).
type Handler func(ctx context.Context, args map[string]any) (result any, notes []string, err error)

// DebugHandler is invoked instead of Handler when the event carries a
// DEBUG_MODE key.
type DebugHandler func(ctx context.Context, debugMode any, args map[string]any) (result any, notes []string, err error)

// ExceptionFactory builds the TypedError an unhandled (non-typed)
// handler error is wrapped in.
type ExceptionFactory func(message string, inner error) TypedError

// Config is the fixed, per-activity configuration a Worker is built
// from — the union of fulfillment_worker's SWF identity fields and
// fulfillment_function's event-key toggles.
type Config struct {
	Description string
	Properties  []schema.Property
	Result      schema.Parameter

	Region           string
	ActivityName     string
	ActivityVersion  string
	SWFDomain        string

	Bucket          string
	SizeLimit       int
	ResolverTimeout time.Duration
	DisableProtocol bool
}

// Worker runs the decode → validate → parse → handle → encode →
// respond loop for one activity against an injected TaskQueue and
// BlobStore, the same dependency-injection shape the teacher's
// temporal.Activities struct uses for its store/graph/tier deps.
type Worker struct {
	cfg Config

	handler          Handler
	debugHandler     DebugHandler
	defaultException ExceptionFactory

	params    *schema.ObjectParameter
	validator *schema.Validator
	schemaDoc map[string]any

	taskQueue taskqueue.TaskQueue
	blobStore blobstore.Store
	logger    *slog.Logger
}

// Option configures optional Worker behavior.
type Option func(*Worker)

func WithDebugHandler(h DebugHandler) Option {
	return func(w *Worker) { w.debugHandler = h }
}

func WithDefaultException(f ExceptionFactory) Option {
	return func(w *Worker) { w.defaultException = f }
}

// New builds a Worker. A non-positive cfg.SizeLimit falls back to
// sizelimit.DefaultLimit and a non-positive cfg.ResolverTimeout to
// resolver.DefaultTimeout. cfg.ResolverTimeout is not passed on to
// ResolverObject properties: they keep the timeout they were built
// with (WithResolverTimeout, else resolver.DefaultTimeout).
func New(cfg Config, handler Handler, tq taskqueue.TaskQueue, bs blobstore.Store, logger *slog.Logger, opts ...Option) (*Worker, error) {
	if cfg.SizeLimit <= 0 {
		cfg.SizeLimit = sizelimit.DefaultLimit
	}
	if cfg.ResolverTimeout <= 0 {
		cfg.ResolverTimeout = resolver.DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	params, err := schema.NewObject("", cfg.Properties)
	if err != nil {
		return nil, fmt.Errorf("building parameter schema: %w", err)
	}
	validator, err := schema.NewValidator(params)
	if err != nil {
		return nil, fmt.Errorf("compiling parameter schema: %w", err)
	}

	w := &Worker{
		cfg:       cfg,
		handler:   handler,
		taskQueue: tq,
		blobStore: bs,
		logger:    logger,
		params:    params,
		validator: validator,
		schemaDoc: map[string]any{
			"description": cfg.Description,
			"params":      params.ToSchema(false),
			"result":      cfg.Result.ToSchema(false),
		},
		defaultException: func(message string, inner error) TypedError {
			return NewFailedException(message, inner)
		},
	}
	for _, apply := range opts {
		apply(w)
	}
	return w, nil
}

// Run executes at most one poll/handle step. It reports whether a
// task was actually processed.
func (w *Worker) Run(ctx context.Context) (bool, error) {
	w.logger.Info("polling", "domain", w.cfg.SWFDomain, "activity", w.cfg.ActivityName)

	task, err := w.taskQueue.Poll(ctx)
	if err != nil {
		return false, fmt.Errorf("polling for task: %w", err)
	}
	if task == nil {
		w.logger.Info("no work to be done", "domain", w.cfg.SWFDomain, "activity", w.cfg.ActivityName)
		return false, nil
	}
	w.logger.Info("task received", "token", task.Token)

	raw, err := sizelimit.Receive(ctx, w.blobStore, task.Input)
	if err != nil {
		return true, fmt.Errorf("receiving task input: %w", err)
	}
	var event map[string]any
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return true, fmt.Errorf("decoding task input: %w", err)
	}

	w.handle(ctx, task.Token, event)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, token string, event map[string]any) {
	if _, ok := event["LOG_INPUT"]; ok {
		pretty, _ := json.MarshalIndent(event, "", "  ")
		w.logger.Info("event input", "body", string(pretty))
	}

	if _, ok := event["RETURN_SCHEMA"]; ok {
		w.respondSchema(ctx, token)
		return
	}

	disableProtocol := w.cfg.DisableProtocol
	if v, ok := event["DISABLE_PROTOCOL"]; ok {
		if b, ok := v.(bool); ok {
			disableProtocol = b
		}
	}

	if verrs := w.validator.Validate(event); len(verrs) > 0 {
		w.respondInvalid(ctx, token, verrs, disableProtocol)
		return
	}

	kwargs, err := w.parseParams(event)
	if err != nil {
		w.respondError(ctx, token, w.asTyped(err), disableProtocol)
		return
	}

	var result any
	var notes []string
	if dm, ok := event["DEBUG_MODE"]; ok && w.debugHandler != nil {
		result, notes, err = w.debugHandler(ctx, dm, kwargs)
	} else {
		result, notes, err = w.handler(ctx, kwargs)
	}
	if err != nil {
		w.respondError(ctx, token, w.asTyped(err), disableProtocol)
		return
	}

	validResult, err := w.cfg.Result.Parse(result, "Parsing result:")
	if err != nil {
		w.respondError(ctx, token, w.asTyped(err), disableProtocol)
		return
	}
	w.respondSuccess(ctx, token, validResult, notes, disableProtocol)
}

func (w *Worker) asTyped(err error) TypedError {
	if te, ok := err.(TypedError); ok {
		return te
	}
	return w.defaultException("unhandled exception", err)
}

func (w *Worker) parseParams(event map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, prop := range w.params.Properties {
		value, hasValue := event[prop.Name]
		if !hasValue {
			value = nil
		}
		parsed, err := prop.Param.Parse(value, prop.Name)
		if err != nil {
			return nil, NewValidationException(fmt.Sprintf("Error parsing parameter '%s'", prop.Name), err)
		}
		out[snakeCase(prop.Name)] = parsed
	}
	return out, nil
}

func (w *Worker) encode(ctx context.Context, text string) string {
	encoded, err := sizelimit.Deliver(ctx, w.blobStore, w.cfg.Bucket, text, w.cfg.SizeLimit)
	if err != nil {
		w.logger.Error("size-limit delivery failed, sending payload as-is", "error", err)
		return text
	}
	return encoded
}

func (w *Worker) respondSchema(ctx context.Context, token string) {
	raw, err := json.Marshal(w.schemaDoc)
	if err != nil {
		w.logger.Error("marshaling schema document", "error", err)
		return
	}
	if err := w.taskQueue.RespondCompleted(ctx, token, string(raw)); err != nil {
		w.logger.Error("responding with schema", "error", err)
	}
}

func (w *Worker) respondSuccess(ctx context.Context, token string, result any, notes []string, disableProtocol bool) {
	if disableProtocol {
		raw, err := json.Marshal(result)
		if err != nil {
			w.logger.Error("marshaling raw result", "error", err)
			return
		}
		if err := w.taskQueue.RespondCompleted(ctx, token, w.encode(ctx, string(raw))); err != nil {
			w.logger.Error("responding completed", "error", err)
		}
		return
	}

	resp := response.New(response.StatusSuccess)
	resp.SetResult(result)
	resp.Notes = notes
	serialized, err := resp.Serialize()
	if err != nil {
		w.logger.Error("serializing success response", "error", err)
		return
	}
	if err := w.taskQueue.RespondCompleted(ctx, token, w.encode(ctx, serialized)); err != nil {
		w.logger.Error("responding completed", "error", err)
	}
}

func (w *Worker) respondInvalid(ctx context.Context, token string, verrs []schema.ValidationError, disableProtocol bool) {
	asMaps := make([]map[string]any, len(verrs))
	for i, v := range verrs {
		asMaps[i] = map[string]any{
			"cause":           v.Cause,
			"context":         v.Context,
			"message":         v.Message,
			"path":            v.Path,
			"relative_path":   v.RelativePath,
			"absolute_path":   v.AbsolutePath,
			"validator":       v.Validator,
			"validator_value": v.ValidatorValue,
		}
	}

	if disableProtocol {
		raw, _ := json.Marshal(asMaps)
		if err := w.taskQueue.RespondFailed(ctx, token, w.encode(ctx, string(raw))); err != nil {
			w.logger.Error("responding failed (invalid)", "error", err)
		}
		return
	}

	resp := response.New(response.StatusInvalid)
	resp.ValidationErrors = asMaps
	serialized, err := resp.Serialize()
	if err != nil {
		w.logger.Error("serializing invalid response", "error", err)
		return
	}
	if err := w.taskQueue.RespondFailed(ctx, token, w.encode(ctx, serialized)); err != nil {
		w.logger.Error("responding failed (invalid)", "error", err)
	}
}

func (w *Worker) respondError(ctx context.Context, token string, e TypedError, disableProtocol bool) {
	message := e.Error()
	reason := message
	if len(reason) > 256 {
		reason = reason[:256]
	}

	if disableProtocol {
		encoded := w.encode(ctx, message)
		w.respondByDisposition(ctx, token, e, encoded)
		return
	}

	resp := response.New(e.ResponseCode())
	resp.Notes = e.Notes()
	resp.Trace = e.Trace()
	resp.Reason = reason
	resp.SetResult(message)
	serialized, err := resp.Serialize()
	if err != nil {
		w.logger.Error("serializing error response", "error", err)
		return
	}
	w.respondByDisposition(ctx, token, e, w.encode(ctx, serialized))
}

func (w *Worker) respondByDisposition(ctx context.Context, token string, e TypedError, details string) {
	var err error
	if e.Retry() {
		err = w.taskQueue.RespondCanceled(ctx, token, details)
	} else {
		err = w.taskQueue.RespondFailed(ctx, token, details)
	}
	if err != nil {
		w.logger.Error("responding to failure", "error", err, "retry", e.Retry())
	}
}
