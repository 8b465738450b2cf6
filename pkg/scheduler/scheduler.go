// Package scheduler drives playback: it advances the playhead in wall-clock
// time, resolves it against the timeline and pulls frames from a decode
// session into the frame buffer.
//
// Audio follows the play, pause and stop transitions only. It is not
// resynchronized to the video source time after a seek or scrub, so drift is
// bounded by how often the playhead jumps.
package scheduler

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/splicer/pkg/framebuffer"
	"github.com/user/splicer/pkg/media"
	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/timeline"
)

// ErrDecodeStall is returned when the decoder could not reach the target time
// within the skip budget of one tick. Playback continues on the next tick.
var ErrDecodeStall = errors.New("decode stall")

// Config tunes seeking and skipping.
type Config struct {
	// SeekTolerance is how far ahead of the decode cursor the target may be
	// before a seek is cheaper than decoding forward.
	SeekTolerance time.Duration
	// MaxSkipFrames bounds the frames discarded in a single tick while catching up.
	MaxSkipFrames int
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		SeekTolerance: 500 * time.Millisecond,
		MaxSkipFrames: 120,
	}
}

// Status describes what a tick did.
type Status int

const (
	// StatusIdle means the scheduler is not playing and nothing was decoded.
	StatusIdle Status = iota
	// StatusPresented means a new frame was stored in the buffer.
	StatusPresented
	// StatusHeld means the buffered frame still covers the target.
	StatusHeld
	// StatusGap means no clip covers the playhead; the last frame stays up.
	StatusGap
	// StatusStalled means the skip budget ran out before reaching the target.
	StatusStalled
	// StatusEnded means the playhead reached the end and playback stopped.
	StatusEnded
	// StatusOpenFailed means the clip's source could not be opened.
	StatusOpenFailed
	// StatusSeekFailed means seeking failed even on a fresh session.
	StatusSeekFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPresented:
		return "presented"
	case StatusHeld:
		return "held"
	case StatusGap:
		return "gap"
	case StatusStalled:
		return "stalled"
	case StatusEnded:
		return "ended"
	case StatusOpenFailed:
		return "open-failed"
	case StatusSeekFailed:
		return "seek-failed"
	default:
		return "unknown"
	}
}

// TickResult reports the outcome of one Tick or SetPlayhead.
type TickResult struct {
	Status     Status
	Position   time.Duration
	Clip       timeline.ClipID // zero over gaps
	SourceTime time.Duration
	Frame      *ports.Frame // the buffered frame after the call, may be nil
}

// Stats counts scheduler activity since creation.
type Stats struct {
	Ticks          int
	Presented      int
	Held           int
	Gaps           int
	Seeks          int
	SkippedFrames  int
	Stalls         int
	DecodeErrors   int
	SessionsOpened int
	Reopens        int
}

// session is the single live decoder plus the cursor bookkeeping for it.
type session struct {
	media   *media.Handle
	backend ports.DecoderBackend

	cursor      time.Duration // timestamp of the last decoded frame or the last seek target
	cursorValid bool
	last        *ports.Frame // last frame decoded since the most recent seek
	catchingUp  bool         // a stall left the cursor behind the target
	eof         bool
}

// Scheduler owns the playhead and the active decode session. All methods are
// serialized; backends are only ever called from inside them.
type Scheduler struct {
	tl     *timeline.Timeline
	opener ports.Opener
	buf    *framebuffer.Buffer
	clock  Clock
	cfg    Config
	log    ports.Logger

	mu        sync.Mutex
	state     State
	head      PlayheadState
	sess      *session
	lastClip  timeline.ClipID
	forceSeek bool
	stats     Stats
}

// New creates a stopped scheduler with the playhead at zero.
func New(tl *timeline.Timeline, opener ports.Opener, buf *framebuffer.Buffer, clock Clock, cfg Config, log ports.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.MaxSkipFrames <= 0 {
		cfg.MaxSkipFrames = DefaultConfig().MaxSkipFrames
	}
	if cfg.SeekTolerance <= 0 {
		cfg.SeekTolerance = DefaultConfig().SeekTolerance
	}
	return &Scheduler{
		tl:        tl,
		opener:    opener,
		buf:       buf,
		clock:     clock,
		cfg:       cfg,
		log:       log.WithComponent("scheduler"),
		forceSeek: true,
	}
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Playhead returns a copy of the playhead state.
func (s *Scheduler) Playhead() PlayheadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// Stats returns a snapshot of the activity counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ActiveSource returns the source of the live session, if any.
func (s *Scheduler) ActiveSource() (*media.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil, false
	}
	return s.sess.media, true
}

// Play starts playback from the current playhead. Calling Play while playing
// does nothing: the clock is not reset and audio is not restarted.
func (s *Scheduler) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Playing {
		return nil
	}
	s.state = Playing
	s.head.Playing = true
	s.head.LastAdvance = s.clock.Now()
	s.log.Info("Playback started at %s", s.head.Position)

	if r, ok := s.tl.Resolve(s.head.Position); ok {
		opened, err := s.ensureSession(r.Clip.Media)
		if err != nil {
			return err
		}
		if opened {
			return nil
		}
	}
	if s.sess != nil {
		s.sess.backend.AudioPlay()
	}
	return nil
}

// Pause freezes the playhead. It does nothing unless playing.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return
	}
	s.head = Advance(s.head, s.clock.Now())
	s.head.Playing = false
	s.state = Paused
	if s.sess != nil {
		s.sess.backend.AudioPause()
	}
	s.log.Info("Playback paused at %s", s.head.Position)
}

// Stop halts playback and rewinds the playhead to zero.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.state == Stopped && s.head.Position == 0 {
		return
	}
	s.state = Stopped
	s.head = PlayheadState{LastAdvance: s.clock.Now()}
	s.forceSeek = true
	s.lastClip = 0
	if s.sess != nil {
		s.sess.backend.AudioStop()
	}
	s.log.Info("Playback stopped")
}

// Tick advances the playhead by the elapsed wall-clock time and brings the
// frame buffer up to date. It does nothing unless playing.
func (s *Scheduler) Tick() (TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return s.result(StatusIdle, nil), nil
	}
	s.stats.Ticks++
	s.head = Advance(s.head, s.clock.Now())

	if end := s.tl.End(); s.head.Position >= end {
		s.log.Info("Reached end of timeline at %s", end)
		s.stopLocked()
		return s.result(StatusEnded, nil), nil
	}
	return s.present(s.head.Position)
}

// SetPlayhead moves the playhead (scrubbing). The next decode always seeks.
// When not playing the frame at the new position is presented immediately and
// the state is left unchanged, so Play resumes from the new position.
func (s *Scheduler) SetPlayhead(global time.Duration) (TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if global < 0 {
		global = 0
	}
	s.head.Position = global
	s.head.LastAdvance = s.clock.Now()
	s.forceSeek = true
	s.log.Debug("Playhead set to %s", global)

	if s.state == Playing {
		return s.result(StatusIdle, nil), nil
	}
	return s.present(global)
}

// Close stops audio and releases the decode session.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Playing {
		s.head = Advance(s.head, s.clock.Now())
		s.head.Playing = false
		s.state = Paused
	}
	return s.closeSession()
}

func (s *Scheduler) result(status Status, r *timeline.Resolution) TickResult {
	res := TickResult{Status: status, Position: s.head.Position}
	if r != nil {
		res.Clip = r.Clip.ID
		res.SourceTime = r.SourceTime
	}
	res.Frame, _ = s.buf.Current()
	return res
}

// present makes the buffer show the frame for global time g.
func (s *Scheduler) present(g time.Duration) (TickResult, error) {
	r, ok := s.tl.Resolve(g)
	if !ok {
		s.lastClip = 0
		s.stats.Gaps++
		return s.result(StatusGap, nil), nil
	}

	clipChanged := r.Clip.ID != s.lastClip
	s.lastClip = r.Clip.ID

	if _, err := s.ensureSession(r.Clip.Media); err != nil {
		s.lastClip = 0
		return s.result(StatusOpenFailed, &r), err
	}

	target := r.SourceTime
	interval := r.Clip.Media.Info.FrameInterval()
	if interval <= 0 {
		interval = time.Millisecond
	}

	if s.needsSeek(target, interval, clipChanged) {
		if err := s.seek(target); err != nil {
			return s.result(StatusSeekFailed, &r), err
		}
	}

	return s.readTo(target, interval, &r)
}

func (s *Scheduler) needsSeek(target, interval time.Duration, clipChanged bool) bool {
	sess := s.sess
	switch {
	case s.forceSeek, clipChanged, !sess.cursorValid:
		return true
	case target < sess.cursor-interval:
		return true
	case target > sess.cursor+s.cfg.SeekTolerance && !sess.catchingUp:
		return true
	}
	return false
}

// readTo decodes forward until a frame covers target, discarding at most
// MaxSkipFrames older frames.
func (s *Scheduler) readTo(target, interval time.Duration, r *timeline.Resolution) (TickResult, error) {
	sess := s.sess
	if covers(sess.last, target, interval) {
		s.stats.Held++
		return s.result(StatusHeld, r), nil
	}

	skipped := 0
	for {
		if sess.eof {
			s.stats.Held++
			return s.result(StatusHeld, r), nil
		}
		f, err := sess.backend.ReadNextFrame()
		if errors.Is(err, io.EOF) {
			sess.eof = true
			s.log.Debug("End of stream in %s before %s", sess.media.Path, target)
			continue
		}
		if err != nil {
			s.stats.DecodeErrors++
			s.log.Debug("Decode error in %s: %v", sess.media.Path, err)
			s.stats.Held++
			return s.result(StatusHeld, r), nil
		}

		sess.last = f
		sess.cursor = f.Timestamp
		sess.cursorValid = true

		if covers(f, target, interval) {
			sess.catchingUp = false
			s.buf.Store(f)
			s.stats.Presented++
			return s.result(StatusPresented, r), nil
		}

		skipped++
		s.stats.SkippedFrames++
		if skipped >= s.cfg.MaxSkipFrames {
			sess.catchingUp = true
			s.buf.Store(f)
			s.stats.Stalls++
			s.log.Debug("Decoder stalled at %s, target %s", f.Timestamp, target)
			return s.result(StatusStalled, r), fmt.Errorf("%w: at %s after %d frames, target %s", ErrDecodeStall, f.Timestamp, skipped, target)
		}
	}
}

// covers reports whether frame f is the one to show at target: it starts no
// later than target and the next frame would start after it, or it is ahead.
func covers(f *ports.Frame, target, interval time.Duration) bool {
	if f == nil {
		return false
	}
	return f.Timestamp >= target || f.Timestamp+interval > target
}

// seek repositions the session. A failing seek gets one retry on a freshly
// opened session before it is reported.
func (s *Scheduler) seek(target time.Duration) error {
	err := s.seekSession(target)
	if err == nil {
		return nil
	}
	s.log.Warn("Seek to %s failed, reopening %s: %v", target, s.sess.media.Path, err)

	h := s.sess.media
	if cerr := s.closeSession(); cerr != nil {
		s.log.Debug("Closing failed session: %v", cerr)
	}
	if _, oerr := s.ensureSession(h); oerr != nil {
		return seekError(oerr)
	}
	s.stats.Reopens++
	if err := s.seekSession(target); err != nil {
		return seekError(err)
	}
	return nil
}

func (s *Scheduler) seekSession(target time.Duration) error {
	sess := s.sess
	s.stats.Seeks++
	if err := sess.backend.Seek(target); err != nil {
		sess.cursorValid = false
		return err
	}
	sess.cursor = target
	sess.cursorValid = true
	sess.last = nil
	sess.catchingUp = false
	sess.eof = false
	s.forceSeek = false
	s.log.Debug("Seeked %s to %s", sess.media.Path, target)
	return nil
}

func seekError(err error) error {
	if errors.Is(err, ports.ErrSeekFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ports.ErrSeekFailed, err)
}

// ensureSession makes h the active source, closing any other session. It
// reports whether a new session was opened; new sessions start audio when playing.
func (s *Scheduler) ensureSession(h *media.Handle) (bool, error) {
	if s.sess != nil && s.sess.media == h {
		return false, nil
	}
	if err := s.closeSession(); err != nil {
		s.log.Debug("Closing previous session: %v", err)
	}

	backend, err := s.opener.Open(h.Path)
	if err != nil {
		s.log.Error("Cannot open %s: %v", h.Path, err)
		return false, err
	}
	s.sess = &session{media: h, backend: backend}
	s.forceSeek = true
	s.stats.SessionsOpened++
	s.log.Debug("Opened decode session for %s", h.Path)

	if s.state == Playing {
		backend.AudioPlay()
	}
	return true, nil
}

func (s *Scheduler) closeSession() error {
	if s.sess == nil {
		return nil
	}
	sess := s.sess
	s.sess = nil
	sess.backend.AudioStop()
	return sess.backend.Close()
}
