// Package framebuffer holds the most recently decoded frame for the presenter
// and provides the pure pixel conversions the backends share.
package framebuffer

import (
	"sync/atomic"

	"github.com/user/splicer/pkg/ports"
)

// Buffer is a single-slot mailbox: a new frame replaces the previous one and
// readers never block or trigger decoding.
type Buffer struct {
	current    atomic.Pointer[ports.Frame]
	generation atomic.Uint64
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Store replaces the current frame. A nil frame is ignored.
func (b *Buffer) Store(f *ports.Frame) {
	if f == nil {
		return
	}
	b.current.Store(f)
	b.generation.Add(1)
}

// Current returns the latest frame, if any.
func (b *Buffer) Current() (*ports.Frame, bool) {
	f := b.current.Load()
	return f, f != nil
}

// Generation increases on every Store and Clear. Presenters compare it with the
// value they last drew to skip redundant uploads.
func (b *Buffer) Generation() uint64 {
	return b.generation.Load()
}

// Clear drops the current frame.
func (b *Buffer) Clear() {
	b.current.Store(nil)
	b.generation.Add(1)
}
