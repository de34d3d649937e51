package encoder

import (
	"strings"
	"sync"
)

// TailBuffer is an io.Writer that keeps only the last N bytes written to it.
// It collects encoder stderr so a failed run can report what ffmpeg said
// last without holding the whole log in memory.
//
// The storage is a ring: once full, each new byte overwrites the oldest.
//
//	size 5, write "abc":  [a b c _ _]  start=0 end=3
//	write "de":           [a b c d e]  start=0 end=0 full
//	write "fg":           [f g c d e]  start=2 end=2 -> "cdefg"
type TailBuffer struct {
	mu    sync.RWMutex
	data  []byte
	size  int
	start int
	end   int
	full  bool
}

// NewTailBuffer creates a TailBuffer holding at most size bytes. A size
// below 1 is raised to 1.
func NewTailBuffer(size int) *TailBuffer {
	if size < 1 {
		size = 1
	}
	return &TailBuffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write implements io.Writer. It never fails.
func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Only the last size bytes of p can survive.
	in := p
	if len(in) > t.size {
		in = in[len(in)-t.size:]
	}
	for _, b := range in {
		t.data[t.end] = b
		t.end = (t.end + 1) % t.size
		if t.full {
			t.start = (t.start + 1) % t.size
		}
		if t.end == t.start {
			t.full = true
		}
	}
	return len(p), nil
}

// Bytes returns a copy of the retained bytes, oldest first.
func (t *TailBuffer) Bytes() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full && t.start == 0 {
		return append([]byte(nil), t.data[:t.end]...)
	}
	out := make([]byte, 0, t.len())
	if t.full || t.end < t.start {
		out = append(out, t.data[t.start:]...)
		out = append(out, t.data[:t.end]...)
	} else {
		out = append(out, t.data[t.start:t.end]...)
	}
	return out
}

// String returns the retained text with surrounding whitespace removed.
func (t *TailBuffer) String() string {
	return strings.TrimSpace(string(t.Bytes()))
}

// Len returns the number of retained bytes.
func (t *TailBuffer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.len()
}

func (t *TailBuffer) len() int {
	if t.full {
		return t.size
	}
	if t.end >= t.start {
		return t.end - t.start
	}
	return t.size - t.start + t.end
}

// Reset discards the retained bytes.
func (t *TailBuffer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start, t.end, t.full = 0, 0, false
}
