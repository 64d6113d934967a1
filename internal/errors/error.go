package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/keyed"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// Category groups error codes.
type Category string

const (
	CategoryReactive Category = "reactive"
	CategoryTree     Category = "tree"
	CategoryRender   Category = "render"
	CategoryConfig   Category = "config"
	CategoryStorage  Category = "storage"
	CategoryCLI      Category = "cli"
)

// Error is a coded error with an explanation and a fix suggestion.
type Error struct {
	// Code is a unique identifier such as "R001".
	Code string

	Category Category

	// Message is a short description.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Subject names what failed: a node, an effect, a file.
	Subject string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSubject sets what failed.
func (e *Error) WithSubject(s string) *Error {
	e.Subject = s
	return e
}

// WithSuggestion replaces the fix suggestion.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap sets the underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in an Error with the given code. An *Error is
// returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// Classify maps a runtime error to its code. Errors that match no runtime
// kind are returned as an uncoded Error. The first matching kind wins, in
// code order.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var cycle *reactive.CycleError
	if stderrors.As(err, &cycle) {
		return New("R001").WithSubject("effects " + strings.Join(cycle.Effects, ", ")).Wrap(err)
	}
	var dup *keyed.DuplicateKeyError
	if stderrors.As(err, &dup) {
		return New("R002").WithSubject(fmt.Sprintf("key %v", dup.Key)).Wrap(err)
	}
	var stale *tree.NodeError
	if stderrors.As(err, &stale) && stderrors.Is(err, tree.ErrStaleNode) {
		return New("R003").WithSubject(fmt.Sprintf("node %s (%s)", stale.Handle, stale.Op)).Wrap(err)
	}
	var draw *compositor.DrawError
	if stderrors.As(err, &draw) {
		e := New("R004").WithSubject(fmt.Sprintf("node %s (%s)", draw.Handle, draw.Kind)).Wrap(err)
		if draw.Panicked {
			e.Suggestion = "The draw function panicked. " + e.Suggestion
		}
		return e
	}
	var effect *reactive.EffectError
	if stderrors.As(err, &effect) {
		return New("R005").WithSubject("effect " + effect.Effect).Wrap(err)
	}
	return &Error{Message: err.Error(), Wrapped: err}
}
