package session

import (
	"context"
	"errors"
	"sync"
)

// StreamID is the single-slot handoff of the Twilio stream SID: written
// once by the caller reader, awaited by everything that addresses the
// caller leg.
type StreamID struct {
	mu    sync.Mutex
	value string
	ready chan struct{}
}

func NewStreamID() *StreamID {
	return &StreamID{ready: make(chan struct{})}
}

// Set publishes id. Only the first call succeeds.
func (s *StreamID) Set(id string) error {
	if id == "" {
		return errors.New("empty stream sid")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value != "" {
		return ErrStreamIDAlreadySet
	}
	s.value = id
	close(s.ready)
	return nil
}

// Get returns the SID if it has been published.
func (s *StreamID) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.value != ""
}

// Wait blocks until the SID is published or ctx ends.
func (s *StreamID) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		id, _ := s.Get()
		return id, nil
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}
