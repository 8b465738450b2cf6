//go:build !nolibav

// Package libavdecoder implements the cross-platform decode backend on the
// FFmpeg libraries (libavformat, libavcodec, libswscale, libswresample)
// through go-astiav.
package libavdecoder

import (
	"io"
	"sync"

	"github.com/asticode/go-astiav"

	"github.com/user/splicer/pkg/adapters/otosink"
	"github.com/user/splicer/pkg/audio"
	"github.com/user/splicer/pkg/ports"
)

var quietOnce sync.Once

// Decoder opens libav decode sessions. It implements ports.Opener.
type Decoder struct {
	log   ports.Logger
	audio bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAudio enables audio output for sessions whose source has an audio stream.
func WithAudio(enabled bool) Option {
	return func(d *Decoder) { d.audio = enabled }
}

// New creates a Decoder. Audio output is enabled by default.
func New(log ports.Logger, opts ...Option) *Decoder {
	quietOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelQuiet)
	})
	d := &Decoder{log: log.WithComponent("libav"), audio: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open probes path and prepares video decoding at source resolution.
func (d *Decoder) Open(path string) (ports.DecoderBackend, error) {
	s, err := openSession(path, d.log)
	if err != nil {
		return nil, err
	}

	var sink ports.AudioSink
	if d.audio && s.info.HasAudio {
		otoSink, err := otosink.New(func() (io.ReadCloser, error) {
			r, err := openPCM(path, d.log)
			if err != nil {
				return nil, err
			}
			return r, nil
		}, d.log)
		if err != nil {
			d.log.Warn("Audio disabled for %s: %v", path, err)
		} else {
			sink = otoSink
		}
	}
	s.audio = audio.NewController(sink, d.log)
	return s, nil
}

var _ ports.Opener = (*Decoder)(nil)
