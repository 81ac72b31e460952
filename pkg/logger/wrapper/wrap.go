package wrap

import (
	"context"
	"errors"
)

// ctxError carries the LogCtx of the place an error was first wrapped.
type ctxError struct {
	err    error
	logCtx LogCtx
}

func (e *ctxError) Error() string { return e.err.Error() }
func (e *ctxError) Unwrap() error { return e.err }

// Error wraps an error with the current LogCtx from the context.
// When ctx carries no LogCtx the context of an already wrapped error is kept.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	lc, ok := ctx.Value(LogCtxKey).(LogCtx)
	if !ok {
		var e *ctxError
		if errors.As(err, &e) {
			return err
		}
	}

	return &ctxError{err: err, logCtx: lc}
}

// ErrorCtx merges the LogCtx carried by err over the one in ctx.
// Fields the error did not record, like the request id of a background call, are kept from ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *ctxError
	if !errors.As(err, &e) || e == nil {
		return ctx
	}
	return WithLogCtx(ctx, e.logCtx)
}
