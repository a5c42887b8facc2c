// Package fulfillment implements the activity worker: poll, validate,
// parse, handle, encode, respond — and the typed exception taxonomy
// that drives the fail/cancel disposition of that loop.
package fulfillment

import (
	"runtime/debug"

	"github.com/antigravity-dev/fulfillment/internal/response"
)

// TypedError is the common interface every taxonomy member satisfies.
// Worker.handle inspects ResponseCode/Retry to decide how to respond
// to the task queue.
type TypedError interface {
	error
	ResponseCode() response.Status
	Retry() bool
	Notes() []string
	Trace() []string
}

type baseException struct {
	message string
	notes   []string
	trace   []string
}

func newBaseException(message string, inner error, notes []string) baseException {
	var trace []string
	if inner != nil {
		if te, ok := inner.(TypedError); ok {
			trace = append(trace, te.Trace()...)
		}
		message = message + ": " + inner.Error()
	}
	trace = append(trace, string(debug.Stack()))
	return baseException{message: message, notes: notes, trace: trace}
}

func (e baseException) Error() string    { return e.message }
func (e baseException) Notes() []string  { return e.notes }
func (e baseException) Trace() []string  { return e.trace }

// ValidationException: a retry without fixing the input will not work.
type ValidationException struct{ baseException }

func NewValidationException(message string, inner error, notes ...string) *ValidationException {
	return &ValidationException{newBaseException(message, inner, notes)}
}
func (*ValidationException) ResponseCode() response.Status { return response.StatusInvalid }
func (*ValidationException) Retry() bool                   { return false }

// FatalException: a retry with the current input will not work.
type FatalException struct{ baseException }

func NewFatalException(message string, inner error, notes ...string) *FatalException {
	return &FatalException{newBaseException(message, inner, notes)}
}
func (*FatalException) ResponseCode() response.Status { return response.StatusFatal }
func (*FatalException) Retry() bool                   { return false }

// FailedException: a retry might work.
type FailedException struct{ baseException }

func NewFailedException(message string, inner error, notes ...string) *FailedException {
	return &FailedException{newBaseException(message, inner, notes)}
}
func (*FailedException) ResponseCode() response.Status { return response.StatusFailed }
func (*FailedException) Retry() bool                   { return true }

// ErrorException: an error was encountered, a retry might work.
type ErrorException struct{ baseException }

func NewErrorException(message string, inner error, notes ...string) *ErrorException {
	return &ErrorException{newBaseException(message, inner, notes)}
}
func (*ErrorException) ResponseCode() response.Status { return response.StatusError }
func (*ErrorException) Retry() bool                   { return true }

// DeferException: result not yet available, retry.
type DeferException struct{ baseException }

func NewDeferException(message string, inner error, notes ...string) *DeferException {
	return &DeferException{newBaseException(message, inner, notes)}
}
func (*DeferException) ResponseCode() response.Status { return response.StatusDefer }
func (*DeferException) Retry() bool                   { return true }
