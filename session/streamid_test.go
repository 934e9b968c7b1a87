package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamID_SetOnce(t *testing.T) {
	s := NewStreamID()
	_, ok := s.Get()
	assert.False(t, ok)

	require.Error(t, s.Set(""))
	require.NoError(t, s.Set("MZ1"))
	assert.ErrorIs(t, s.Set("MZ2"), ErrStreamIDAlreadySet)

	id, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "MZ1", id)
}

func TestStreamID_WaitBlocksUntilSet(t *testing.T) {
	s := NewStreamID()
	got := make(chan string, 1)
	go func() {
		id, err := s.Wait(context.Background())
		if err == nil {
			got <- id
		}
	}()

	select {
	case <-got:
		t.Fatal("Wait returned before the SID was set")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, s.Set("MZ1"))
	select {
	case id := <-got:
		assert.Equal(t, "MZ1", id)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
}

func TestStreamID_WaitReturnsCause(t *testing.T) {
	s := NewStreamID()
	ctx, cancel := context.WithCancelCause(context.Background())
	boom := errors.New("boom")
	cancel(boom)

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, boom)
}
