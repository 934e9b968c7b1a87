package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/room4-2/agentbridge/functions"
	"github.com/room4-2/agentbridge/messages"
	"github.com/room4-2/agentbridge/metrics"
)

// State is the lifecycle position of a Relay. It only moves forward.
type State int32

const (
	StateAwaitingStreamID State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingStreamID:
		return "awaiting_stream_id"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RelayConfig holds the per-call settings of a Relay.
type RelayConfig struct {
	ID           string
	FrameSize    int
	QueueSize    int
	WriteTimeout time.Duration
	BargeInTypes []string

	// Settings is sent to the agent before any audio. Empty skips the
	// handshake.
	Settings []byte

	Dispatcher *functions.Dispatcher
	Logger     *slog.Logger
}

// Relay bridges one Twilio media stream and one agent connection.
type Relay struct {
	ID        string
	CreatedAt time.Time

	// OnStreamStart is called from the caller reader once the stream SID
	// is known. Set it before Run.
	OnStreamStart func(streamSid string)

	caller   *leg
	agent    *leg
	frames   chan []byte
	acc      *FrameAccumulator
	streamID *StreamID
	router   *Router
	settings []byte
	logger   atomic.Pointer[slog.Logger]

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewRelay wires a relay over an accepted Twilio connection and a dialed
// agent connection. The relay owns both connections from here on.
func NewRelay(caller, agent Conn, cfg RelayConfig) *Relay {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 3200
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 50
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("session_id", cfg.ID))

	ctx, cancel := context.WithCancelCause(context.Background())

	r := &Relay{
		ID:        cfg.ID,
		CreatedAt: time.Now(),
		caller:    newLeg("twilio", caller, cfg.WriteTimeout),
		agent:     newLeg("agent", agent, cfg.WriteTimeout),
		frames:    make(chan []byte, cfg.QueueSize),
		acc:       NewFrameAccumulator(cfg.FrameSize),
		streamID:  NewStreamID(),
		settings:  cfg.Settings,
		ctx:       ctx,
		cancel:    cancel,
	}
	r.logger.Store(logger)
	r.router = NewRouter(r.streamID, r.caller, r.agent, cfg.Dispatcher, cfg.BargeInTypes, logger)
	return r
}

// State returns the current lifecycle state.
func (r *Relay) State() State {
	return State(r.state.Load())
}

// StreamSid returns the Twilio stream SID, empty until the start event.
func (r *Relay) StreamSid() string {
	sid, _ := r.streamID.Get()
	return sid
}

// Close ends the session. Run returns ErrSessionClosed.
func (r *Relay) Close() {
	r.cancel(ErrSessionClosed)
}

// Run relays until the call stops, either leg fails, or ctx ends. It
// returns nil after a Twilio stop event and the error that ended the
// session otherwise. Both connections are closed when Run returns.
func (r *Relay) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { r.cancel(context.Cause(ctx)) })
	defer stop()

	started := time.Now()
	metrics.RecordSessionStart()
	r.log().Info("session started")

	g, gctx := errgroup.WithContext(r.ctx)
	context.AfterFunc(gctx, r.shutdown)

	if len(r.settings) > 0 {
		if err := r.agent.write(websocket.TextMessage, r.settings); err != nil {
			r.cancel(err)
		}
	}

	g.Go(r.flow(gctx, r.readTelephony))
	g.Go(r.flow(gctx, r.writeAgent))
	g.Go(r.flow(gctx, r.readAgent))
	_ = g.Wait()

	r.router.Wait()
	r.advance(StateClosed)

	cause := context.Cause(r.ctx)
	reason := EndReason(cause)
	metrics.RecordSessionEnd(reason, time.Since(started).Seconds())

	logger := r.log().With(
		slog.String("reason", reason),
		slog.Duration("duration", time.Since(started)),
	)
	switch {
	case errors.Is(cause, errStreamStopped):
		logger.Info("session ended")
		return nil
	case errors.Is(cause, ErrSessionClosed), isNormalClose(cause):
		logger.Info("session ended", slog.Any("err", cause))
	default:
		logger.Error("session failed", slog.Any("err", cause))
	}
	return cause
}

// flow cancels the session with the first error any flow returns.
func (r *Relay) flow(ctx context.Context, fn func(context.Context) error) func() error {
	return func() error {
		err := fn(ctx)
		if err != nil {
			r.cancel(err)
		}
		return err
	}
}

// readTelephony reads Twilio events, publishes the stream SID and feeds
// inbound audio into fixed-size frames.
func (r *Relay) readTelephony(ctx context.Context) error {
	for {
		_, data, err := r.caller.read()
		if err != nil {
			return err
		}

		evt, err := messages.ParseTwilioEvent(data)
		if err != nil {
			return decodeError("twilio", err)
		}

		switch evt.Event {
		case messages.EventStart:
			sid, err := evt.StreamID()
			if err != nil {
				return decodeError("twilio", err)
			}
			if err := r.streamID.Set(sid); err != nil {
				r.log().Warn("ignoring repeated start event", slog.String("stream_sid", sid))
				continue
			}
			r.advance(StateActive)
			r.logger.Store(r.log().With(slog.String("stream_sid", sid)))
			r.log().Info("twilio stream started")
			if r.OnStreamStart != nil {
				r.OnStreamStart(sid)
			}

		case messages.EventMedia:
			audio, err := evt.Audio()
			if err != nil {
				return decodeError("twilio", err)
			}
			if !evt.IsInbound() {
				continue
			}
			r.acc.Append(audio)
			for frame := range r.acc.Drain() {
				select {
				case r.frames <- frame:
				case <-ctx.Done():
					return context.Cause(ctx)
				}
			}

		case messages.EventStop:
			r.log().Info("twilio stream stopped", slog.Int("discarded_bytes", r.acc.Buffered()))
			close(r.frames)
			return nil

		case messages.EventConnected:
			r.log().Debug("twilio stream connected")

		case messages.EventMark:
			if evt.Mark != nil {
				r.log().Debug("twilio mark", slog.String("name", evt.Mark.Name))
			}

		case messages.EventDTMF:
			if evt.DTMF != nil {
				r.log().Info("caller pressed key", slog.String("digit", evt.DTMF.Digit))
			}

		default:
			r.log().Debug("ignoring twilio event", slog.String("event", evt.Event))
		}
	}
}

// writeAgent forwards queued frames to the agent in order. After a stop
// event it drains the queue before ending the session.
func (r *Relay) writeAgent(ctx context.Context) error {
	for {
		select {
		case frame, ok := <-r.frames:
			if !ok {
				return errStreamStopped
			}
			if err := r.agent.write(websocket.BinaryMessage, frame); err != nil {
				return err
			}
			metrics.RecordFrame(metrics.DirectionToAgent)
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
}

// readAgent plays agent audio into the call and routes control messages.
func (r *Relay) readAgent(ctx context.Context) error {
	for {
		mt, data, err := r.agent.read()
		if err != nil {
			return err
		}

		switch mt {
		case websocket.BinaryMessage:
			sid, err := r.streamID.Wait(ctx)
			if err != nil {
				return err
			}
			if err := r.caller.WriteJSON(messages.NewTwilioMediaMessage(sid, data)); err != nil {
				return err
			}
			metrics.RecordFrame(metrics.DirectionToCaller)

		case websocket.TextMessage:
			if err := r.router.Route(ctx, data); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) shutdown() {
	r.advance(StateClosing)
	r.caller.close()
	r.agent.close()
}

func (r *Relay) advance(to State) {
	for {
		cur := r.state.Load()
		if State(cur) >= to {
			return
		}
		if r.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

func (r *Relay) log() *slog.Logger {
	return r.logger.Load()
}

func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
}
