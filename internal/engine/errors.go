package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/remix"
	"github.com/satindergrewal/tonesmith/internal/synth"
)

// Error kinds. Every error returned by Generate or Remix matches exactly one
// of these with errors.Is, except context cancellation which is returned
// as is.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrIO                = errors.New("i/o error")
)

// Error is a failed engine operation.
type Error struct {
	Kind error  // one of the Err* kinds
	Op   string // "generate" or "remix"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

func newError(op string, kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify maps a stage error onto an error kind.
func classify(op string, err error) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, synth.ErrInvalidRequest), errors.Is(err, remix.ErrInvalidRequest):
		return newError(op, ErrInvalidRequest, err)
	case errors.Is(err, audio.ErrUnsupported):
		return newError(op, ErrUnsupportedFormat, err)
	}
	return newError(op, ErrIO, err)
}
