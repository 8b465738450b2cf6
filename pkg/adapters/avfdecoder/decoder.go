//go:build darwin && nolibav

// Package avfdecoder implements the macOS-native decode backend on
// AVFoundation. Video is read through AVAssetReader as BGRA pictures and audio
// is played by an AVPlayer over the same file.
package avfdecoder

import (
	"fmt"
	"io"
	"time"

	"github.com/user/splicer/pkg/adapters/mp4index"
	"github.com/user/splicer/pkg/audio"
	"github.com/user/splicer/pkg/framebuffer"
	"github.com/user/splicer/pkg/ports"
)

// Decoder opens AVFoundation decode sessions. It implements ports.Opener.
type Decoder struct {
	log   ports.Logger
	audio bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAudio enables audio output for sources with an audio track.
func WithAudio(enabled bool) Option {
	return func(d *Decoder) { d.audio = enabled }
}

// New creates a Decoder. Audio output is enabled by default.
func New(log ports.Logger, opts ...Option) *Decoder {
	d := &Decoder{log: log.WithComponent("avf"), audio: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open prepares the asset for reading from its start.
func (d *Decoder) Open(path string) (ports.DecoderBackend, error) {
	r, ri, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrOpenFailed, path, err)
	}
	if err := r.start(0); err != nil {
		r.close()
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrOpenFailed, path, err)
	}

	s := &session{
		path:   path,
		log:    d.log,
		reader: r,
		info: ports.MediaInfo{
			Width:    ri.width,
			Height:   ri.height,
			FPS:      ri.fps,
			Duration: ri.duration,
			HasAudio: ri.hasAudio,
		},
	}

	// The keyframe index is optional; without it seeks start at the target.
	if ix, err := mp4index.BuildFromFile(path); err == nil {
		s.index = ix
	} else {
		d.log.Debug("No keyframe index for %s: %v", path, err)
	}

	var sink ports.AudioSink
	if d.audio && ri.hasAudio {
		sink = &playerSink{p: newPlayer(path)}
	}
	s.audio = audio.NewController(sink, d.log)

	d.log.Debug("Opened %s: %dx%d %.3f fps %s audio=%v", path, ri.width, ri.height, ri.fps, ri.duration, ri.hasAudio)
	return s, nil
}

type session struct {
	path   string
	log    ports.Logger
	info   ports.MediaInfo
	reader *reader
	index  *mp4index.Index
	audio  *audio.Controller
	eof    bool
}

func (s *session) Info() ports.MediaInfo {
	return s.info
}

// Seek restarts the reader at the keyframe at or before to.
func (s *session) Seek(to time.Duration) error {
	if to < 0 {
		to = 0
	}
	start := to
	if s.index != nil {
		start = s.index.KeyframeAtOrBefore(to)
	}
	if err := s.reader.start(start); err != nil {
		return fmt.Errorf("%w: %s to %s: %v", ports.ErrSeekFailed, s.path, to, err)
	}
	s.eof = false
	return nil
}

func (s *session) ReadNextFrame() (*ports.Frame, error) {
	if s.eof {
		return nil, io.EOF
	}
	pix, w, h, stride, pts, done, err := s.reader.next()
	if err != nil {
		return nil, fmt.Errorf("read frame from %s: %w", s.path, err)
	}
	if done {
		s.eof = true
		return nil, io.EOF
	}
	rgba, err := framebuffer.BGRAToRGBA(pix, w, h, stride)
	if err != nil {
		return nil, fmt.Errorf("convert frame from %s: %w", s.path, err)
	}
	return &ports.Frame{Pix: rgba, Width: w, Height: h, Timestamp: pts}, nil
}

func (s *session) AudioPlay()           { s.audio.Play() }
func (s *session) AudioPause()          { s.audio.Pause() }
func (s *session) AudioStop()           { s.audio.Stop() }
func (s *session) AudioIsPlaying() bool { return s.audio.IsPlaying() }

func (s *session) Close() error {
	err := s.audio.Close()
	s.reader.close()
	return err
}

// playerSink adapts an AVPlayer to ports.AudioSink.
type playerSink struct {
	p *player
}

func (a *playerSink) Play()           { a.p.play() }
func (a *playerSink) Pause()          { a.p.pause() }
func (a *playerSink) Stop()           { a.p.stop() }
func (a *playerSink) IsPlaying() bool { return a.p.isPlaying() }

func (a *playerSink) Close() error {
	a.p.release()
	return nil
}

var (
	_ ports.Opener         = (*Decoder)(nil)
	_ ports.DecoderBackend = (*session)(nil)
	_ ports.AudioSink      = (*playerSink)(nil)
)
