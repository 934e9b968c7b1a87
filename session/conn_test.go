package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errFakeClosed = errors.New("use of closed network connection")

type frame struct {
	mt   int
	data []byte
}

// fakeConn is an in-memory websocket. Tests push peer frames with send and
// inspect what the relay wrote with written.
type fakeConn struct {
	in     chan frame
	closed chan struct{}
	hangup chan error

	// gate, when set, holds every data write until it is closed.
	gate chan struct{}

	mu        sync.Mutex
	out       []frame
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan frame, 256),
		closed: make(chan struct{}),
		hangup: make(chan error, 1),
	}
}

func (c *fakeConn) send(mt int, data []byte) {
	c.in <- frame{mt: mt, data: data}
}

func (c *fakeConn) sendText(s string) {
	c.send(websocket.TextMessage, []byte(s))
}

// peerClose makes the next read fail as if the remote side hung up.
func (c *fakeConn) peerClose(code int) {
	c.hangup <- &websocket.CloseError{Code: code}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.in:
		return f.mt, f.data, nil
	case err := <-c.hangup:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(mt int, data []byte) error {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-c.closed:
		}
	}
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, frame{mt: mt, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written(mt int) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.out {
		if f.mt == mt {
			out = append(out, f.data)
		}
	}
	return out
}
