// Package process holds helpers shared by the child processes the service drives
// (ffmpeg, ffprobe and the landmark worker).
package process

import (
	"strings"
	"sync"
)

// DefaultTailSize is how much of a child's stderr is kept for error reports
const DefaultTailSize = 64 * 1024

// TailBuffer captures a child's stderr. It is safe to read while exec's copy goroutine
// is still writing, and it keeps only the last limit bytes so long runs stay bounded.
type TailBuffer struct {
	mu      sync.Mutex
	limit   int
	buf     []byte
	dropped int64
}

// NewTailBuffer keeps the last limit bytes; limit <= 0 means DefaultTailSize
func NewTailBuffer(limit int) *TailBuffer {
	if limit <= 0 {
		limit = DefaultTailSize
	}
	return &TailBuffer{limit: limit}
}

func (b *TailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.limit {
		b.dropped += int64(len(b.buf) + n - b.limit)
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	if over := len(b.buf) + n - b.limit; over > 0 {
		b.dropped += int64(over)
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

// Len is the number of bytes currently held
func (b *TailBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// String returns the trimmed tail, prefixed with "..." when older output was dropped
func (b *TailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := strings.TrimSpace(string(b.buf))
	if b.dropped > 0 {
		return "..." + s
	}
	return s
}
