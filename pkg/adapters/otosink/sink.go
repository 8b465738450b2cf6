// Package otosink plays PCM streams through the system audio device using oto.
package otosink

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/user/splicer/pkg/ports"
)

// Output format shared by every sink in the process.
const (
	SampleRate   = 48000
	ChannelCount = 2
	// BytesPerFrame is the size of one interleaved stereo float32 sample frame.
	BytesPerFrame = ChannelCount * 4
)

// oto allows a single context per process.
var (
	ctxOnce sync.Once
	ctx     *oto.Context
	ctxErr  error
)

func sharedContext() (*oto.Context, error) {
	ctxOnce.Do(func() {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: ChannelCount,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			ctxErr = fmt.Errorf("audio device: %w", err)
			return
		}
		<-ready
		ctx = c
	})
	return ctx, ctxErr
}

// SourceFunc opens the PCM stream from its beginning. The stream must be
// interleaved little-endian float32 at SampleRate with ChannelCount channels.
type SourceFunc func() (io.ReadCloser, error)

// Sink implements ports.AudioSink on an oto player. Stop discards the player
// and its stream; the next Play opens a fresh stream from the start.
type Sink struct {
	ctx       *oto.Context
	newSource SourceFunc
	log       ports.Logger

	mu     sync.Mutex
	src    io.ReadCloser
	player *oto.Player
}

// New creates a sink. It fails when no audio device is available.
func New(newSource SourceFunc, log ports.Logger) (*Sink, error) {
	c, err := sharedContext()
	if err != nil {
		return nil, err
	}
	return &Sink{ctx: c, newSource: newSource, log: log.WithComponent("audio")}, nil
}

func (s *Sink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		src, err := s.newSource()
		if err != nil {
			s.log.Warn("Cannot open audio stream: %v", err)
			return
		}
		s.src = src
		s.player = s.ctx.NewPlayer(src)
	}
	s.player.Play()
}

func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Pause()
	}
}

func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discard()
}

// IsPlaying is false once the stream is exhausted or the player failed.
func (s *Sink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return false
	}
	if err := s.player.Err(); err != nil {
		s.log.Debug("Audio player error: %v", err)
		return false
	}
	return s.player.IsPlaying()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discard()
}

func (s *Sink) discard() error {
	var firstErr error
	if s.player != nil {
		s.player.Pause()
		if err := s.player.Close(); err != nil {
			firstErr = err
		}
		s.player = nil
	}
	if s.src != nil {
		if err := s.src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.src = nil
	}
	return firstErr
}

var _ ports.AudioSink = (*Sink)(nil)
