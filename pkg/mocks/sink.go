package mocks

import (
	"sync"

	"github.com/user/splicer/pkg/ports"
)

// SavedFrame is one frame recorded by FrameSink.
type SavedFrame struct {
	Index int
	Frame *ports.Frame
	Label string
}

// FrameSink is a mock implementation of ports.FrameSink.
type FrameSink struct {
	mu      sync.Mutex
	enabled bool

	Saved []SavedFrame
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink(enabled bool) *FrameSink {
	return &FrameSink{enabled: enabled}
}

func (m *FrameSink) Enabled() bool {
	return m.enabled
}

func (m *FrameSink) SaveFrame(index int, frame *ports.Frame, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, SavedFrame{Index: index, Frame: frame, Label: label})
	return nil
}

// Count returns the number of saved frames.
func (m *FrameSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saved)
}

var _ ports.FrameSink = (*FrameSink)(nil)
