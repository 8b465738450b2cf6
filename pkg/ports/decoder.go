package ports

import (
	"errors"
	"time"
)

var (
	// ErrOpenFailed is returned when a source cannot be opened or has no decodable video stream.
	ErrOpenFailed = errors.New("open failed")
	// ErrSeekFailed is returned when a backend cannot reposition its decode cursor.
	ErrSeekFailed = errors.New("seek failed")
)

// Frame is one decoded picture in RGBA order, 4 bytes per pixel, rows tightly packed.
// Frames are never mutated after a backend returns them.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Timestamp time.Duration // presentation time relative to the source start
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return f.Width * 4
}

// MediaInfo is the probed, immutable description of a source.
type MediaInfo struct {
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
	HasAudio bool
}

// FrameInterval returns the nominal duration of one frame, or zero when fps is unknown.
func (m MediaInfo) FrameInterval() time.Duration {
	if m.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / m.FPS)
}

// DecoderBackend is one open decode session over a single source.
// Implementations are not safe for concurrent use.
type DecoderBackend interface {
	// Info returns the probed metadata. It never scans packets.
	Info() MediaInfo

	// Seek positions the decode cursor at the nearest keyframe at or before to,
	// discarding any buffered frame. Errors wrap ErrSeekFailed.
	Seek(to time.Duration) error

	// ReadNextFrame decodes the next presentable frame. It returns io.EOF at
	// end of stream. Transient packet errors are skipped internally.
	ReadNextFrame() (*Frame, error)

	AudioPlay()
	AudioPause()
	AudioStop()
	AudioIsPlaying() bool

	// Close releases the session, including its audio output.
	Close() error
}

// Opener creates decode sessions. Errors wrap ErrOpenFailed.
type Opener interface {
	Open(path string) (DecoderBackend, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (DecoderBackend, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (DecoderBackend, error) {
	return f(path)
}
