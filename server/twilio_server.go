package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/room4-2/agentbridge/config"
	"github.com/room4-2/agentbridge/metrics"
	"github.com/room4-2/agentbridge/session"
)

const twilioReadLimit = 64 * 1024

// TwilioServer accepts Twilio media streams and relays each call to the
// agent.
type TwilioServer struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	dial           session.AgentDialer
	logger         *slog.Logger
}

func NewTwilioServer(cfg *config.Config, sessionManager *session.Manager, dial session.AgentDialer, reg *prometheus.Registry, logger *slog.Logger) *TwilioServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TwilioServer{
		sessionManager: sessionManager,
		config:         cfg,
		dial:           dial,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// Twilio doesn't support WebSocket compression
			EnableCompression: false,
			CheckOrigin: func(r *http.Request) bool {
				// Twilio connections don't send browser Origin headers.
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("/voice", s.handleVoiceCall)
	mux.HandleFunc("GET /health", s.handleHealth)
	if reg != nil {
		mux.Handle("GET /metrics", metrics.Handler(reg))
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No ReadTimeout/WriteTimeout: they would cut long-lived media streams.
		// Each leg sets its own write deadline.
	}

	return s
}

// Handler returns the routed handler, for embedding and tests.
func (s *TwilioServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for connections
func (s *TwilioServer) Start() error {
	addr := s.httpServer.Addr
	s.logger.Info("twilio server starting",
		slog.String("addr", addr),
		slog.String("stream", "ws://localhost"+addr+"/stream"),
		slog.String("voice", "http://localhost"+addr+"/voice"))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting calls. Streams already upgraded are ended by
// the session manager.
func (s *TwilioServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down twilio server")
	return s.httpServer.Shutdown(ctx)
}

func (s *TwilioServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("twilio websocket upgrade failed", slog.Any("err", err))
		return
	}
	conn.SetReadLimit(twilioReadLimit)

	relay, err := s.sessionManager.CreateTwilioSession(r.Context(), conn, s.dial)
	if err != nil {
		s.logger.Error("failed to create twilio session", slog.Any("err", err))
		code, reason := websocket.CloseInternalServerErr, "agent unavailable"
		switch {
		case errors.Is(err, session.ErrMaxSessions):
			code, reason = websocket.CloseTryAgainLater, "too many calls"
		case errors.Is(err, session.ErrSessionClosed):
			code, reason = websocket.CloseGoingAway, "server shutting down"
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer s.sessionManager.RemoveSession(context.WithoutCancel(r.Context()), relay.ID)

	// Run logs how the session ended.
	_ = relay.Run(r.Context())
}

func (s *TwilioServer) handleVoiceCall(w http.ResponseWriter, r *http.Request) {
	host := s.config.PublicHost
	if host == "" {
		host = r.Host
	}
	wsURL := "wss://" + host + "/stream"

	// TwiML to connect the call to the WebSocket stream
	xmlResponse := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
	<Say>Connecting you to the banking assistant.</Say>
	<Connect>
		<Stream url="%s" />
	</Connect>
</Response>`, wsURL)

	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(xmlResponse))
}

func (s *TwilioServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","server":"twilio","sessions":%d}`, s.sessionManager.GetActiveSessionCount())
}

// GetAddr returns the server's listen address (for logging in main)
func (s *TwilioServer) GetAddr() string {
	return s.httpServer.Addr
}
