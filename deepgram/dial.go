package deepgram

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/room4-2/agentbridge/session"
)

const (
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 1 << 20
)

// Dial opens the agent websocket. The API key travels as the "token"
// subprotocol, the way the agent endpoint expects browser-style clients
// to authenticate.
func Dial(ctx context.Context, url, apiKey string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{"token", apiKey},
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if len(body) > 0 {
				return nil, fmt.Errorf("agent connect (status %d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("agent connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("agent connect: %w", err)
	}

	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// Dialer binds Dial to one endpoint for the session manager.
func Dialer(url, apiKey string) session.AgentDialer {
	return func(ctx context.Context) (session.Conn, error) {
		conn, err := Dial(ctx, url, apiKey)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
