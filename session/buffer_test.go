package session

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAccumulator_HoldsPartialFrames(t *testing.T) {
	fa := NewFrameAccumulator(4)

	fa.Append([]byte{1, 2, 3})
	assert.Empty(t, slices.Collect(fa.Drain()))
	assert.Equal(t, 3, fa.Buffered())

	fa.Append([]byte{4, 5, 6, 7, 8, 9})
	frames := slices.Collect(fa.Drain())
	assert.Equal(t, [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}, frames)
	assert.Equal(t, 1, fa.Buffered())
}

func TestFrameAccumulator_EarlyBreakKeepsRemainingFrames(t *testing.T) {
	fa := NewFrameAccumulator(2)
	fa.Append([]byte{1, 2, 3, 4, 5})

	for frame := range fa.Drain() {
		assert.Equal(t, []byte{1, 2}, frame)
		break
	}
	assert.Equal(t, 3, fa.Buffered())
	assert.Equal(t, [][]byte{{3, 4}}, slices.Collect(fa.Drain()))
}

func TestFrameAccumulator_FramesAreIndependentCopies(t *testing.T) {
	fa := NewFrameAccumulator(2)
	fa.Append([]byte{1, 2})
	first := slices.Collect(fa.Drain())[0]

	fa.Append([]byte{9, 9})
	_ = slices.Collect(fa.Drain())
	assert.Equal(t, []byte{1, 2}, first)
}

func TestFrameAccumulator_PreservesStream(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 200; trial++ {
		size := 1 + rng.IntN(64)
		fa := NewFrameAccumulator(size)

		var in, out bytes.Buffer
		for range rng.IntN(40) {
			chunk := make([]byte, rng.IntN(3*size))
			for i := range chunk {
				chunk[i] = byte(rng.Uint32())
			}
			in.Write(chunk)
			fa.Append(chunk)

			for frame := range fa.Drain() {
				require.Len(t, frame, size)
				out.Write(frame)
			}
		}

		require.Less(t, fa.Buffered(), size)
		require.Equal(t, in.Len(), out.Len()+fa.Buffered())
		require.Equal(t, in.Bytes()[:out.Len()], out.Bytes())
	}
}

func TestNewFrameAccumulator_RejectsNonPositiveSize(t *testing.T) {
	assert.Panics(t, func() { NewFrameAccumulator(0) })
}
