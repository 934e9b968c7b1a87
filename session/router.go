package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/room4-2/agentbridge/functions"
	"github.com/room4-2/agentbridge/messages"
	"github.com/room4-2/agentbridge/metrics"
)

// JSONWriter sends one JSON message on a leg.
type JSONWriter interface {
	WriteJSON(v any) error
}

// Router handles agent control messages: barge-in clears the caller's
// playback buffer, function calls are dispatched and answered.
type Router struct {
	bargeIn    map[string]bool
	streamID   *StreamID
	caller     JSONWriter
	agent      JSONWriter
	dispatcher *functions.Dispatcher
	logger     *slog.Logger

	batches sync.WaitGroup
}

// NewRouter creates a router. bargeInTypes lists the control types that
// mean the caller started talking over the agent.
func NewRouter(streamID *StreamID, caller, agent JSONWriter, dispatcher *functions.Dispatcher, bargeInTypes []string, logger *slog.Logger) *Router {
	types := make(map[string]bool, len(bargeInTypes))
	for _, t := range bargeInTypes {
		types[t] = true
	}
	return &Router{
		bargeIn:    types,
		streamID:   streamID,
		caller:     caller,
		agent:      agent,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Route handles one agent text frame. Only a malformed envelope or a failed
// write to the caller is returned; everything else is contained.
func (rt *Router) Route(ctx context.Context, data []byte) error {
	msg, err := messages.ParseAgentMessage(data)
	if err != nil {
		return decodeError("agent", err)
	}

	switch {
	case rt.bargeIn[msg.Type]:
		return rt.clearPlayback(ctx)

	case msg.Type == messages.TypeFunctionCallRequest:
		req, err := messages.ParseFunctionCallRequest(data)
		if err != nil {
			return decodeError("agent", err)
		}
		rt.dispatchBatch(ctx, req.Functions)

	case msg.Type == messages.TypeError:
		rt.logger.Error("agent reported an error", slog.String("message", string(data)))

	case msg.Type == messages.TypeWarning:
		rt.logger.Warn("agent warning", slog.String("message", string(data)))

	default:
		rt.logger.Debug("agent message", slog.String("type", msg.Type), slog.String("message", string(data)))
	}
	return nil
}

// Wait blocks until every dispatched batch has finished.
func (rt *Router) Wait() {
	rt.batches.Wait()
}

func (rt *Router) clearPlayback(ctx context.Context) error {
	sid, err := rt.streamID.Wait(ctx)
	if err != nil {
		return err
	}
	if err := rt.caller.WriteJSON(messages.NewTwilioClearMessage(sid)); err != nil {
		return err
	}
	metrics.RecordBargeIn()
	rt.logger.Info("caller barged in, cleared playback")
	return nil
}

// dispatchBatch answers calls in order on their own goroutine so a slow
// function never holds up audio.
func (rt *Router) dispatchBatch(ctx context.Context, calls []messages.FunctionCall) {
	if len(calls) == 0 {
		return
	}
	rt.batches.Add(1)
	go func() {
		defer rt.batches.Done()
		for _, call := range calls {
			rt.logger.Info("function call request",
				slog.String("function", call.Name), slog.String("call_id", call.ID))

			resp := rt.dispatcher.Respond(ctx, call)
			if err := rt.agent.WriteJSON(resp); err != nil {
				rt.logger.Error("failed to send function response",
					slog.String("function", call.Name), slog.String("call_id", call.ID), slog.Any("err", err))
				return
			}
		}
	}()
}
