package logging

import (
	"strings"
	"sync"
)

const captureLines = 32

// Capture keeps the most recent lines written to it.
type Capture struct {
	mu    sync.RWMutex
	lines []string
	size  int
}

// NewCapture creates a capture holding up to size lines.
func NewCapture(size int) *Capture {
	return &Capture{size: size}
}

// Console receives the server log at INFO and above.
var Console = NewCapture(captureLines)

// Journal receives every flight event.
var Journal = NewCapture(captureLines)

// Write implements io.Writer. Each call is stored as one line.
func (c *Capture) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == c.size {
		copy(c.lines, c.lines[1:])
		c.lines = c.lines[:c.size-1]
	}
	c.lines = append(c.lines, line)
	return len(p), nil
}

// Last returns the newest line, or "" when nothing was written.
func (c *Capture) Last() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[len(c.lines)-1]
}

// Recent returns up to n lines, newest last.
func (c *Capture) Recent(n int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n > len(c.lines) {
		n = len(c.lines)
	}
	out := make([]string, n)
	copy(out, c.lines[len(c.lines)-n:])
	return out
}
