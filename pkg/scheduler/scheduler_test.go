package scheduler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/splicer/pkg/adapters/logger"
	"github.com/user/splicer/pkg/framebuffer"
	"github.com/user/splicer/pkg/media"
	"github.com/user/splicer/pkg/mocks"
	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/timeline"
)

const ms = time.Millisecond

var hd30 = ports.MediaInfo{Width: 1920, Height: 1080, FPS: 30, Duration: 10 * time.Second, HasAudio: true}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	sched  *Scheduler
	tl     *timeline.Timeline
	opener *mocks.Opener
	clock  *fakeClock
	buf    *framebuffer.Buffer
}

func newFixture(t *testing.T, cfg Config, sources map[string]ports.MediaInfo) *fixture {
	t.Helper()
	log := logger.NewNoop()
	f := &fixture{
		tl:     timeline.New(log),
		opener: mocks.NewOpener(sources),
		clock:  &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		buf:    framebuffer.New(),
	}
	f.sched = New(f.tl, f.opener, f.buf, f.clock, cfg, log)
	t.Cleanup(func() { _ = f.sched.Close() })
	return f
}

func (f *fixture) handle(path string) *media.Handle {
	return media.NewHandle(path, f.opener.Sources[path])
}

func (f *fixture) load(t *testing.T, path string) timeline.Clip {
	t.Helper()
	c, err := f.tl.Load(f.handle(path))
	require.NoError(t, err)
	return c
}

func TestAdvance(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   PlayheadState
		now  time.Time
		want time.Duration
	}{
		{"playing adds elapsed", PlayheadState{Position: time.Second, Playing: true, LastAdvance: t0}, t0.Add(250 * ms), 1250 * ms},
		{"paused keeps position", PlayheadState{Position: time.Second, LastAdvance: t0}, t0.Add(time.Hour), time.Second},
		{"first advance has no reference", PlayheadState{Playing: true}, t0, 0},
		{"clock going backwards", PlayheadState{Position: time.Second, Playing: true, LastAdvance: t0}, t0.Add(-time.Second), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(tt.in, tt.now)
			assert.Equal(t, tt.want, got.Position)
			assert.Equal(t, tt.now, got.LastAdvance)
			assert.Equal(t, tt.in.Playing, got.Playing)
		})
	}
}

func TestPlay_Idempotent(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")

	require.NoError(t, f.sched.Play())
	f.clock.Advance(time.Second)
	require.NoError(t, f.sched.Play())

	assert.Equal(t, Playing, f.sched.State())
	backend := f.opener.Last()
	require.NotNil(t, backend)
	assert.Equal(t, 1, backend.AudioPlayCalls, "second play must not restart audio")
	assert.True(t, backend.AudioIsPlaying())

	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, time.Second, res.Position, "second play must not reset the clock")
}

func TestTick_AutoStopsAtEnd(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")

	require.NoError(t, f.sched.Play())
	f.clock.Advance(10500 * ms)

	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, res.Status)
	assert.Equal(t, time.Duration(0), res.Position)
	assert.Equal(t, Stopped, f.sched.State())
	assert.Equal(t, time.Duration(0), f.sched.Playhead().Position)

	backend := f.opener.Last()
	assert.GreaterOrEqual(t, backend.AudioStopCalls, 1)
	assert.False(t, backend.AudioIsPlaying())

	res, err = f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, res.Status)
}

func TestTick_EmptyTimelineEndsImmediately(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.sched.Play())

	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, res.Status)
	assert.Equal(t, Stopped, f.sched.State())
}

func TestTick_PresentsFramesInOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")
	require.NoError(t, f.sched.Play())

	interval := hd30.FrameInterval()
	var last time.Duration = -1
	presented := 0
	for i := 0; i < 120; i++ {
		res, err := f.sched.Tick()
		require.NoError(t, err)
		require.NotNil(t, res.Frame, "tick %d", i)

		ts := res.Frame.Timestamp
		assert.GreaterOrEqual(t, ts, last, "timestamps must not go backwards")
		assert.LessOrEqual(t, ts, res.Position, "frame from the future at tick %d", i)
		assert.Greater(t, ts+interval, res.Position, "stale frame at tick %d", i)
		if res.Status == StatusPresented {
			presented++
		}
		last = ts
		f.clock.Advance(time.Second / 60)
	}

	stats := f.sched.Stats()
	assert.Equal(t, 1, stats.Seeks, "sequential playback seeks only once")
	assert.Equal(t, 0, stats.SkippedFrames)
	assert.InDelta(t, 60, presented, 1)
}

func TestSetPlayhead_PresentsWhenNotPlaying(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")

	res, err := f.sched.SetPlayhead(5500 * ms)
	require.NoError(t, err)
	assert.Equal(t, StatusPresented, res.Status)
	assert.Equal(t, Stopped, f.sched.State())
	require.NotNil(t, res.Frame)
	assert.Equal(t, 5500*ms, res.Frame.Timestamp)
	assert.Equal(t, 5500*ms, res.SourceTime)

	backend := f.opener.Last()
	assert.Equal(t, []time.Duration{5500 * ms}, backend.Seeks)
	assert.Equal(t, 15, f.sched.Stats().SkippedFrames, "decode forward from the keyframe at 5s")

	cur, ok := f.buf.Current()
	require.True(t, ok)
	assert.Same(t, res.Frame, cur)
}

func TestSetPlayhead_SeekRoundTrip(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")
	interval := hd30.FrameInterval()

	for _, target := range []time.Duration{0, 3500 * ms, 9 * time.Second, 1234 * ms, 9990 * ms} {
		t.Run(target.String(), func(t *testing.T) {
			res, err := f.sched.SetPlayhead(target)
			require.NoError(t, err)
			require.NotNil(t, res.Frame)
			assert.LessOrEqual(t, res.Frame.Timestamp, target)
			assert.Greater(t, res.Frame.Timestamp+interval, target)
		})
	}
	assert.Equal(t, 1, f.opener.OpenCount(), "one session for one source")
}

func TestSetPlayhead_WhilePlayingSeeksOnNextTick(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")
	require.NoError(t, f.sched.Play())
	_, err := f.sched.Tick()
	require.NoError(t, err)

	res, err := f.sched.SetPlayhead(100 * ms)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, res.Status)

	_, err = f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, 2, f.sched.Stats().Seeks, "scrub forces a seek even inside the tolerance")

	_, err = f.sched.SetPlayhead(-time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), f.sched.Playhead().Position)
}

func TestTick_GapHoldsLastFrame(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	h := f.handle("a.mp4")
	require.NoError(t, f.tl.Restore(timeline.Clip{ID: 1, Media: h, Start: 0, End: time.Second, Position: 0}))
	require.NoError(t, f.tl.Restore(timeline.Clip{ID: 2, Media: h, Start: 5 * time.Second, End: 6 * time.Second, Position: 2 * time.Second}))

	require.NoError(t, f.sched.Play())
	f.clock.Advance(900 * ms)
	before, err := f.sched.Tick()
	require.NoError(t, err)
	require.NotNil(t, before.Frame)

	backend := f.opener.Last()
	reads := backend.Reads

	f.clock.Advance(500 * ms)
	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, StatusGap, res.Status)
	assert.Equal(t, timeline.ClipID(0), res.Clip)
	assert.Same(t, before.Frame, res.Frame, "gap keeps the last frame")
	assert.Equal(t, reads, backend.Reads, "no decoding over a gap")

	f.clock.Advance(700 * ms)
	res, err = f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, StatusPresented, res.Status)
	assert.Equal(t, timeline.ClipID(2), res.Clip)
	assert.Equal(t, 5100*ms, res.SourceTime)
	assert.Equal(t, 5100*ms, backend.Seeks[len(backend.Seeks)-1])
}

func TestTick_ClipChangeSeeks(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	c := f.load(t, "a.mp4")
	second, err := f.tl.Split(c.ID, 2*time.Second)
	require.NoError(t, err)
	// The source is continuous across the cut, but crossing into another clip still seeks.
	require.NoError(t, f.sched.Play())

	f.clock.Advance(1900 * ms)
	_, err = f.sched.Tick()
	require.NoError(t, err)
	seeks := f.sched.Stats().Seeks

	f.clock.Advance(200 * ms)
	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, second.ID, res.Clip)
	assert.Equal(t, seeks+1, f.sched.Stats().Seeks)
}

func TestTick_StallBoundsSkipping(t *testing.T) {
	f := newFixture(t, Config{SeekTolerance: 500 * ms, MaxSkipFrames: 5}, map[string]ports.MediaInfo{"a.mp4": hd30})
	f.opener.Configure = func(b *mocks.Backend) { b.GOP = 1000 }
	f.load(t, "a.mp4")

	res, err := f.sched.SetPlayhead(5 * time.Second)
	assert.ErrorIs(t, err, ErrDecodeStall)
	assert.Equal(t, StatusStalled, res.Status)
	require.NotNil(t, res.Frame, "the newest decoded frame is still shown")
	assert.Equal(t, f.opener.Last().FrameTime(4), res.Frame.Timestamp)

	require.NoError(t, f.sched.Play())
	_, err = f.sched.Tick()
	assert.ErrorIs(t, err, ErrDecodeStall)
	assert.Equal(t, 1, f.sched.Stats().Seeks, "catching up continues without re-seeking")
	assert.Equal(t, 2, f.sched.Stats().Stalls)
	cur, _ := f.buf.Current()
	assert.Equal(t, f.opener.Last().FrameTime(9), cur.Timestamp)
}

func TestSeekFailure_ReopensSession(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	opened := 0
	f.opener.Configure = func(b *mocks.Backend) {
		if opened == 0 {
			b.SeekFunc = func(time.Duration) error {
				return fmt.Errorf("%w: reader cancelled", ports.ErrSeekFailed)
			}
		}
		opened++
	}
	f.load(t, "a.mp4")

	res, err := f.sched.SetPlayhead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusPresented, res.Status)
	assert.Equal(t, 2, f.opener.OpenCount())
	assert.True(t, f.opener.Opened[0].Closed())
	assert.Equal(t, 1, f.sched.Stats().Reopens)
}

func TestSeekFailure_ReportedAfterRetry(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.opener.Configure = func(b *mocks.Backend) {
		b.SeekFunc = func(time.Duration) error { return errors.New("io error") }
	}
	f.load(t, "a.mp4")

	res, err := f.sched.SetPlayhead(time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrSeekFailed)
	assert.Equal(t, StatusSeekFailed, res.Status)
	assert.Equal(t, 1, f.tl.Len(), "backend failures never touch the timeline")
}

func TestOpenFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{})
	_, err := f.tl.Load(media.NewHandle("gone.mp4", hd30))
	require.NoError(t, err)

	res, err := f.sched.SetPlayhead(0)
	assert.ErrorIs(t, err, ports.ErrOpenFailed)
	assert.Equal(t, StatusOpenFailed, res.Status)
}

func TestReadError_HoldsFrame(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.opener.Configure = func(b *mocks.Backend) {
		b.ReadFunc = func() (*ports.Frame, error) { return nil, errors.New("corrupt packet") }
	}
	f.load(t, "a.mp4")

	res, err := f.sched.SetPlayhead(0)
	require.NoError(t, err)
	assert.Equal(t, StatusHeld, res.Status)
	assert.Equal(t, 1, f.sched.Stats().DecodeErrors)
}

func TestSourceSwitch_MovesAudio(t *testing.T) {
	b := ports.MediaInfo{Width: 640, Height: 360, FPS: 25, Duration: 4 * time.Second, HasAudio: true}
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30, "b.mov": b})
	require.NoError(t, f.tl.Restore(timeline.Clip{ID: 1, Media: f.handle("a.mp4"), Start: 0, End: 2 * time.Second}))
	require.NoError(t, f.tl.Restore(timeline.Clip{ID: 2, Media: f.handle("b.mov"), Start: 0, End: 4 * time.Second, Position: 2 * time.Second}))

	require.NoError(t, f.sched.Play())
	f.clock.Advance(time.Second)
	_, err := f.sched.Tick()
	require.NoError(t, err)
	first := f.opener.Last()

	f.clock.Advance(1500 * ms)
	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, timeline.ClipID(2), res.Clip)

	second := f.opener.Last()
	require.NotSame(t, first, second)
	assert.True(t, first.Closed())
	assert.GreaterOrEqual(t, first.AudioStopCalls, 1)
	assert.Equal(t, 1, second.AudioPlayCalls)
	assert.True(t, second.AudioIsPlaying())

	src, ok := f.sched.ActiveSource()
	require.True(t, ok)
	assert.Equal(t, "b.mov", src.Path)
}

func TestPause_FreezesPlayhead(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")

	f.sched.Pause()
	assert.Equal(t, Stopped, f.sched.State(), "pause outside playing is a no-op")

	require.NoError(t, f.sched.Play())
	f.clock.Advance(time.Second)
	f.sched.Pause()
	f.sched.Pause()
	f.clock.Advance(5 * time.Second)

	res, err := f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, res.Status)
	assert.Equal(t, Paused, f.sched.State())
	assert.Equal(t, time.Second, f.sched.Playhead().Position)
	assert.Equal(t, 1, f.opener.Last().AudioPauseCall)

	require.NoError(t, f.sched.Play())
	f.clock.Advance(500 * ms)
	res, err = f.sched.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1500*ms, res.Position)
	assert.Equal(t, 2, f.opener.Last().AudioPlayCalls)
}

func TestStop_RewindsOnce(t *testing.T) {
	f := newFixture(t, DefaultConfig(), map[string]ports.MediaInfo{"a.mp4": hd30})
	f.load(t, "a.mp4")

	require.NoError(t, f.sched.Play())
	f.clock.Advance(2 * time.Second)
	_, err := f.sched.Tick()
	require.NoError(t, err)

	f.sched.Stop()
	backend := f.opener.Last()
	stops := backend.AudioStopCalls
	f.sched.Stop()

	assert.Equal(t, Stopped, f.sched.State())
	assert.Equal(t, time.Duration(0), f.sched.Playhead().Position)
	assert.Equal(t, stops, backend.AudioStopCalls, "stop after stop is a no-op")
}
