package session

import "iter"

// FrameAccumulator collects caller audio and cuts it into fixed-size
// frames. It is owned by a single goroutine and is not safe for concurrent
// use.
type FrameAccumulator struct {
	size int
	buf  []byte
}

// NewFrameAccumulator creates an accumulator emitting frames of size bytes.
func NewFrameAccumulator(size int) *FrameAccumulator {
	if size <= 0 {
		panic("session: frame size must be positive")
	}
	return &FrameAccumulator{
		size: size,
		buf:  make([]byte, 0, size*2),
	}
}

// Size returns the frame size in bytes.
func (fa *FrameAccumulator) Size() int {
	return fa.size
}

// Append adds raw audio to the buffer.
func (fa *FrameAccumulator) Append(chunk []byte) {
	fa.buf = append(fa.buf, chunk...)
}

// Buffered returns the number of bytes waiting for a full frame.
func (fa *FrameAccumulator) Buffered() int {
	return len(fa.buf)
}

// Drain yields every complete frame currently buffered, removing each one
// as it is yielded. The tail shorter than a frame stays buffered. Frames
// are fresh copies the caller may keep.
func (fa *FrameAccumulator) Drain() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		consumed := 0
		defer func() {
			n := copy(fa.buf, fa.buf[consumed:])
			fa.buf = fa.buf[:n]
		}()

		for len(fa.buf)-consumed >= fa.size {
			frame := make([]byte, fa.size)
			copy(frame, fa.buf[consumed:consumed+fa.size])
			consumed += fa.size
			if !yield(frame) {
				return
			}
		}
	}
}
