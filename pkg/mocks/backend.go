package mocks

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/splicer/pkg/ports"
)

// Backend is a synthetic ports.DecoderBackend. It produces Info.FPS frames per
// second for Info.Duration, with a keyframe every GOP frames. Each frame's pixels
// are filled with the low byte of its index.
type Backend struct {
	mu sync.Mutex

	Path        string
	MediaInfo   ports.MediaInfo
	GOP         int
	PixelWidth  int
	PixelHeight int

	SeekFunc func(to time.Duration) error
	ReadFunc func() (*ports.Frame, error)

	cursor  int
	playing bool
	closed  bool

	Seeks          []time.Duration
	Reads          int
	AudioPlayCalls int
	AudioPauseCall int
	AudioStopCalls int
}

// NewBackend creates a backend with a 30-frame GOP and 4x4 pixel frames.
func NewBackend(path string, info ports.MediaInfo) *Backend {
	return &Backend{
		Path:        path,
		MediaInfo:   info,
		GOP:         30,
		PixelWidth:  4,
		PixelHeight: 4,
	}
}

// FrameCount returns the number of frames the backend produces.
func (m *Backend) FrameCount() int {
	if m.MediaInfo.FPS <= 0 {
		return 0
	}
	return int(m.MediaInfo.Duration.Seconds()*m.MediaInfo.FPS + 0.5)
}

// FrameTime returns the presentation timestamp of frame k.
func (m *Backend) FrameTime(k int) time.Duration {
	return time.Duration(float64(k) * float64(time.Second) / m.MediaInfo.FPS)
}

func (m *Backend) Info() ports.MediaInfo {
	return m.MediaInfo
}

func (m *Backend) Seek(to time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seeks = append(m.Seeks, to)
	if m.SeekFunc != nil {
		return m.SeekFunc(to)
	}
	if m.closed {
		return fmt.Errorf("%w: backend closed", ports.ErrSeekFailed)
	}
	if to < 0 {
		to = 0
	}
	idx := int(to.Seconds() * m.MediaInfo.FPS)
	if n := m.FrameCount(); idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	gop := m.GOP
	if gop <= 0 {
		gop = 1
	}
	m.cursor = idx - idx%gop
	return nil
}

func (m *Backend) ReadNextFrame() (*ports.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	if m.closed {
		return nil, fmt.Errorf("backend closed")
	}
	if m.cursor >= m.FrameCount() {
		return nil, io.EOF
	}
	k := m.cursor
	m.cursor++

	pix := make([]byte, m.PixelWidth*m.PixelHeight*4)
	for i := range pix {
		pix[i] = byte(k)
	}
	return &ports.Frame{
		Pix:       pix,
		Width:     m.PixelWidth,
		Height:    m.PixelHeight,
		Timestamp: m.FrameTime(k),
	}, nil
}

func (m *Backend) AudioPlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioPlayCalls++
	if m.MediaInfo.HasAudio {
		m.playing = true
	}
}

func (m *Backend) AudioPause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioPauseCall++
	m.playing = false
}

func (m *Backend) AudioStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioStopCalls++
	m.playing = false
}

func (m *Backend) AudioIsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Backend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.playing = false
	return nil
}

// Closed reports whether Close was called.
func (m *Backend) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SeekCount returns the number of Seek calls so far.
func (m *Backend) SeekCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Seeks)
}

var _ ports.DecoderBackend = (*Backend)(nil)

// Opener is a mock ports.Opener that hands out Backends for known paths.
type Opener struct {
	mu sync.Mutex

	Sources  map[string]ports.MediaInfo
	OpenFunc func(path string) (ports.DecoderBackend, error)
	// Configure, when set, adjusts every backend before it is returned.
	Configure func(b *Backend)

	Opened []*Backend
}

// NewOpener creates an opener serving the given sources.
func NewOpener(sources map[string]ports.MediaInfo) *Opener {
	if sources == nil {
		sources = make(map[string]ports.MediaInfo)
	}
	return &Opener{Sources: sources}
}

func (m *Opener) Open(path string) (ports.DecoderBackend, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.Sources[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such file", ports.ErrOpenFailed, path)
	}
	b := NewBackend(path, info)
	if m.Configure != nil {
		m.Configure(b)
	}
	m.Opened = append(m.Opened, b)
	return b, nil
}

// OpenCount returns the number of sessions opened so far.
func (m *Opener) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Opened)
}

// Last returns the most recently opened backend, or nil.
func (m *Opener) Last() *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Opened) == 0 {
		return nil
	}
	return m.Opened[len(m.Opened)-1]
}

var _ ports.Opener = (*Opener)(nil)
