package registry

import (
	"context"
	"errors"
	"time"

	"github.com/pgmcp/pgmcp/internal/catalog"
	"github.com/pgmcp/pgmcp/internal/pool"
	"github.com/pgmcp/pgmcp/internal/shape"
)

// Invoke resolves, validates and executes one operation and returns its
// shaped envelope. Every failure mode is returned as a structured error
// envelope; Invoke never panics the process over a bad call.
//
// Exactly one lease is held per invocation, acquired only after
// validation and the destructive-confirmation check pass, and released
// on every exit path. Operation bodies that run several statements
// reuse that single lease; there is no nested acquisition.
func (r *Registry) Invoke(ctx context.Context, name string, raw map[string]any) shape.Envelope {
	start := time.Now()

	op, err := r.catalog.Operation(name)
	if err != nil {
		return r.fail(nil, name, start, errUnknownOperation(name))
	}
	if !r.isRegistered(op.Category) {
		return r.fail(op, name, start, errNotLoaded(name, op.Category))
	}

	args, violations := validateArgs(op, raw)
	if violations != nil {
		return r.fail(op, name, start, &Error{
			Kind:       KindInvalidArguments,
			Message:    "arguments did not validate",
			Violations: violations,
		})
	}

	if op.Risk == catalog.RiskDestructive && raw["confirm"] != true {
		return r.fail(op, name, start, &Error{
			Kind:    KindConfirmationRequired,
			Message: "this operation is destructive; repeat the call with \"confirm\": true",
		})
	}

	lease, err := r.pool.Acquire(ctx)
	if err != nil {
		return r.fail(op, name, start, acquireError(err))
	}
	defer lease.Release()

	result, err := op.Execute(ctx, lease, args)
	if err != nil {
		return r.fail(op, name, start, &Error{Kind: KindExecutionFailure, Message: err.Error()})
	}

	env := shape.Shape(result, r.limits)
	r.observe(op, name, start, env.Status, "")
	return env
}

// acquireError maps pool sentinels onto the taxonomy. pool_exhausted is
// transient and worth a retry; shutdown_in_progress is not.
func acquireError(err error) *Error {
	switch {
	case errors.Is(err, pool.ErrDraining):
		return &Error{Kind: KindShutdownInProgress, Message: "server is shutting down"}
	case errors.Is(err, pool.ErrExhausted), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindPoolExhausted, Message: "no database connection became available; retry shortly"}
	default:
		return &Error{Kind: KindExecutionFailure, Message: err.Error()}
	}
}

func (r *Registry) fail(op *catalog.Operation, name string, start time.Time, derr *Error) shape.Envelope {
	env := shape.ShapeError(derr.Kind, derr.detail())
	r.logger.Warn("invocation failed", "operation", name, "kind", derr.Kind)
	r.observe(op, name, start, shape.StatusError, derr.Kind)
	return env
}

func (r *Registry) observe(op *catalog.Operation, name string, start time.Time, status, kind string) {
	if r.record == nil {
		return
	}
	e := Entry{
		Operation: name,
		Status:    status,
		ErrorKind: kind,
		Duration:  time.Since(start),
	}
	if op != nil {
		e.Category = op.Category
		e.Risk = string(op.Risk)
	}
	r.record(e)
}
