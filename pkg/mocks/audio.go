package mocks

import (
	"sync"

	"github.com/user/splicer/pkg/ports"
)

// AudioSink is a mock ports.AudioSink that records transitions.
type AudioSink struct {
	mu sync.Mutex

	playing bool
	// Drained simulates a device that ran out of samples: IsPlaying turns false.
	Drained bool

	Calls  []string
	Closed bool
}

func (m *AudioSink) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "play")
	m.playing = true
}

func (m *AudioSink) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "pause")
	m.playing = false
}

func (m *AudioSink) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "stop")
	m.playing = false
}

func (m *AudioSink) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.Drained
}

func (m *AudioSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	m.playing = false
	return nil
}

// CallCount returns how many times the named transition was requested.
func (m *AudioSink) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

var _ ports.AudioSink = (*AudioSink)(nil)
