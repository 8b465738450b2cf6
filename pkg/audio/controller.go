// Package audio serializes play/pause/stop control of one audio sink.
package audio

import (
	"sync"

	"github.com/user/splicer/pkg/ports"
)

// Controller drives a ports.AudioSink. Transitions are idempotent and the
// playing flag always comes from the sink, so a drained or failed device reads
// as not playing. A Controller with a nil sink is silent.
type Controller struct {
	mu      sync.Mutex
	sink    ports.AudioSink
	log     ports.Logger
	stopped bool
	closed  bool
}

// NewController wraps sink. Pass a nil sink for sources without audio.
func NewController(sink ports.AudioSink, log ports.Logger) *Controller {
	return &Controller{
		sink:    sink,
		log:     log.WithComponent("audio"),
		stopped: true,
	}
}

// Enabled reports whether a sink is attached.
func (c *Controller) Enabled() bool {
	return c.sink != nil
}

// Play starts or resumes output. It does nothing while already playing.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil || c.closed || c.sink.IsPlaying() {
		return
	}
	c.sink.Play()
	c.stopped = false
	c.log.Debug("Audio playing")
}

// Pause suspends output without rewinding.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil || c.closed || !c.sink.IsPlaying() {
		return
	}
	c.sink.Pause()
	c.log.Debug("Audio paused")
}

// Stop halts output and rewinds. Stopping a stopped controller does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil || c.closed || c.stopped {
		return
	}
	c.sink.Stop()
	c.stopped = true
	c.log.Debug("Audio stopped")
}

// IsPlaying queries the sink.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil || c.closed {
		return false
	}
	return c.sink.IsPlaying()
}

// Close stops output and releases the sink.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil || c.closed {
		return nil
	}
	c.closed = true
	if !c.stopped {
		c.sink.Stop()
		c.stopped = true
	}
	return c.sink.Close()
}
