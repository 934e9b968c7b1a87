package functions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/room4-2/agentbridge/messages"
	"github.com/room4-2/agentbridge/metrics"
)

// Dispatcher runs agent function calls against a Registry and turns every
// outcome into a response. It never fails the session.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. A zero timeout lets functions run
// until the session context ends.
func NewDispatcher(registry *Registry, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
		logger:   logger,
	}
}

// Respond decodes the arguments of call, dispatches it and builds the
// response envelope. Exactly one response is produced per call.
func (d *Dispatcher) Respond(ctx context.Context, call messages.FunctionCall) *messages.FunctionCallResponse {
	raw := []byte(call.Arguments)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var result any
	var args Args
	err := call.DecodeErr
	if err == nil {
		err = messages.Decode(raw, &args)
	}
	if err != nil {
		d.logger.Warn("function arguments undecodable",
			slog.String("function", call.Name), slog.String("call_id", call.ID), slog.Any("err", err))
		result = (&CallError{Kind: ErrInvalidArguments, Name: call.Name, Err: err}).Result()
		metrics.RecordFunctionCall(d.metricName(call.Name), "error", 0)
	} else {
		result = d.dispatch(ctx, call.Name, raw, args)
	}

	content, err := messages.Encode(result)
	if err != nil {
		d.logger.Error("function result not encodable",
			slog.String("function", call.Name), slog.Any("err", err))
		content, _ = messages.Encode(Errorf("Function failed with: %v", err))
	}

	return messages.NewFunctionCallResponse(call.ID, call.Name, string(content))
}

// Dispatch runs name with already decoded arguments and returns either
// its result or an ErrorResult.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args Args) any {
	raw, err := messages.Encode(args)
	if err != nil {
		return (&CallError{Kind: ErrInvalidArguments, Name: name, Err: err}).Result()
	}
	return d.dispatch(ctx, name, raw, args)
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, raw []byte, args Args) any {
	start := time.Now()
	result, err := d.run(ctx, name, raw, args)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		var callErr *CallError
		if !errors.As(err, &callErr) {
			callErr = &CallError{Kind: ErrFunctionFailed, Name: name, Err: err}
		}
		d.logger.Warn("function call failed",
			slog.String("function", name), slog.Any("err", err))
		metrics.RecordFunctionCall(d.metricName(name), "error", elapsed)
		return callErr.Result()
	}

	status := "success"
	if _, isErr := result.(ErrorResult); isErr {
		status = "error"
	}
	d.logger.Info("function executed",
		slog.String("function", name), slog.Any("result", result))
	metrics.RecordFunctionCall(name, status, elapsed)
	if result == nil {
		return map[string]any{"success": true}
	}
	return result
}

func (d *Dispatcher) run(ctx context.Context, name string, raw []byte, args Args) (any, error) {
	fn, ok := d.registry.Lookup(name)
	if !ok {
		return nil, &CallError{Kind: ErrFunctionNotFound, Name: name}
	}
	if err := d.registry.Validate(name, raw); err != nil {
		return nil, err
	}
	if args == nil {
		args = Args{}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		res, err := fn.Invoke(ctx, args)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil && errors.Is(o.err, ctx.Err()) {
				return nil, d.contextError(ctx, name)
			}
			return nil, &CallError{Kind: ErrFunctionFailed, Name: name, Err: o.err}
		}
		return o.result, nil
	case <-ctx.Done():
		return nil, d.contextError(ctx, name)
	}
}

func (d *Dispatcher) contextError(ctx context.Context, name string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &CallError{Kind: ErrFunctionTimeout, Name: name, Err: fmt.Errorf("no result after %s", d.timeout)}
	}
	return &CallError{Kind: ErrFunctionFailed, Name: name, Err: ctx.Err()}
}

// metricName keeps names the agent made up out of the label set.
func (d *Dispatcher) metricName(name string) string {
	if _, ok := d.registry.Lookup(name); !ok {
		return messages.UnknownCallField
	}
	return name
}
