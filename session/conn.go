package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/room4-2/agentbridge/messages"
)

// Conn is the subset of *websocket.Conn the relay uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// leg serializes writes to one websocket; gorilla allows a single
// concurrent writer.
type leg struct {
	name         string
	conn         Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

func newLeg(name string, conn Conn, writeTimeout time.Duration) *leg {
	return &leg{name: name, conn: conn, writeTimeout: writeTimeout}
}

func (l *leg) write(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	if err := l.conn.WriteMessage(messageType, data); err != nil {
		return transportError(l.name, err)
	}
	return nil
}

// WriteJSON encodes v and sends it as a text frame.
func (l *leg) WriteJSON(v any) error {
	data, err := messages.Encode(v)
	if err != nil {
		return fmt.Errorf("%s: %w", l.name, err)
	}
	return l.write(websocket.TextMessage, data)
}

func (l *leg) read() (int, []byte, error) {
	mt, data, err := l.conn.ReadMessage()
	if err != nil {
		return 0, nil, transportError(l.name, err)
	}
	return mt, data, nil
}

// close sends a normal closure frame and releases the connection.
func (l *leg) close() {
	l.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = l.conn.Close()
	})
}
