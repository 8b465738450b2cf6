// Package editor is the command surface for a UI: it owns the source library,
// the timeline, the frame buffer and the playback scheduler, and keeps the
// preview in sync after every edit.
package editor

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/user/splicer/pkg/framebuffer"
	"github.com/user/splicer/pkg/media"
	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/project"
	"github.com/user/splicer/pkg/scheduler"
	"github.com/user/splicer/pkg/summarizer"
	"github.com/user/splicer/pkg/timeline"
)

// ErrNoSelection is returned by commands that act on the selected clip when none is selected.
var ErrNoSelection = errors.New("no clip selected")

// Config contains all configuration for the editor.
type Config struct {
	Scheduler scheduler.Config

	// Preview bounds the image returned by Preview.
	PreviewWidth  int
	PreviewHeight int

	// Backend names the linked decode backend for summaries.
	Backend string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Scheduler:     scheduler.DefaultConfig(),
		PreviewWidth:  640,
		PreviewHeight: 360,
	}
}

// Editor coordinates edits and playback.
type Editor struct {
	lib   *media.Library
	tl    *timeline.Timeline
	buf   *framebuffer.Buffer
	sched *scheduler.Scheduler
	fs    ports.FileSystem
	clock scheduler.Clock
	cfg   Config
	log   ports.Logger

	created time.Time

	mu       sync.Mutex
	selected timeline.ClipID
}

// New creates an editor with an empty timeline.
func New(opener ports.Opener, fs ports.FileSystem, clock scheduler.Clock, cfg Config, log ports.Logger) *Editor {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	tl := timeline.New(log)
	buf := framebuffer.New()
	return &Editor{
		lib:     media.NewLibrary(opener, fs, log),
		tl:      tl,
		buf:     buf,
		sched:   scheduler.New(tl, opener, buf, clock, cfg.Scheduler, log),
		fs:      fs,
		clock:   clock,
		cfg:     cfg,
		log:     log.WithComponent("editor"),
		created: clock.Now(),
	}
}

// Load probes path and appends a clip spanning the whole source at position 0.
// The new clip becomes the selection.
func (e *Editor) Load(path string) (timeline.Clip, error) {
	h, err := e.lib.Open(path)
	if err != nil {
		e.log.Error("Cannot open %s: %v", path, err)
		return timeline.Clip{}, err
	}
	c, err := e.tl.Load(h)
	if err != nil {
		// Unreferenced handles leave the library on release.
		if h.Refs() == 0 {
			h.Release()
		}
		return timeline.Clip{}, fmt.Errorf("load %s: %w", path, err)
	}
	e.setSelected(c.ID)
	e.refresh()
	return c, nil
}

// Select makes id the selected clip.
func (e *Editor) Select(id timeline.ClipID) error {
	if _, ok := e.tl.Get(id); !ok {
		return fmt.Errorf("%w: %d", timeline.ErrClipNotFound, id)
	}
	e.setSelected(id)
	e.log.Debug("Selected clip %d", id)
	return nil
}

// Selected returns the selected clip.
func (e *Editor) Selected() (timeline.Clip, bool) {
	e.mu.Lock()
	id := e.selected
	e.mu.Unlock()
	if id == 0 {
		return timeline.Clip{}, false
	}
	return e.tl.Get(id)
}

// Split cuts clip id at source time at and returns the new second half.
func (e *Editor) Split(id timeline.ClipID, at time.Duration) (timeline.Clip, error) {
	c, err := e.tl.Split(id, at)
	if err != nil {
		return timeline.Clip{}, err
	}
	e.refresh()
	return c, nil
}

// SplitAtPlayhead splits the selected clip where the playhead crosses it.
func (e *Editor) SplitAtPlayhead() (timeline.Clip, error) {
	sel, ok := e.Selected()
	if !ok {
		return timeline.Clip{}, ErrNoSelection
	}
	pos := e.Playhead()
	if !sel.Covers(pos) {
		return timeline.Clip{}, fmt.Errorf("%w: playhead %s is outside clip %d", timeline.ErrSplitRejected, pos, sel.ID)
	}
	return e.Split(sel.ID, sel.SourceTime(pos))
}

// Delete removes clip id. Deleting the selected clip clears the selection.
func (e *Editor) Delete(id timeline.ClipID) error {
	if err := e.tl.Delete(id); err != nil {
		return err
	}
	e.mu.Lock()
	if e.selected == id {
		e.selected = 0
	}
	e.mu.Unlock()
	e.refresh()
	return nil
}

// DeleteSelected removes the selected clip.
func (e *Editor) DeleteSelected() error {
	sel, ok := e.Selected()
	if !ok {
		return ErrNoSelection
	}
	return e.Delete(sel.ID)
}

// Move places clip id at a new timeline position.
func (e *Editor) Move(id timeline.ClipID, position time.Duration) (timeline.Clip, error) {
	c, err := e.tl.Move(id, position)
	if err != nil {
		return timeline.Clip{}, err
	}
	e.refresh()
	return c, nil
}

// Play starts playback from the playhead.
func (e *Editor) Play() error {
	return e.sched.Play()
}

// Pause freezes playback.
func (e *Editor) Pause() {
	e.sched.Pause()
}

// Stop halts playback and rewinds to the start.
func (e *Editor) Stop() {
	e.sched.Stop()
}

// TogglePlay pauses when playing and plays otherwise.
func (e *Editor) TogglePlay() error {
	if e.sched.State() == scheduler.Playing {
		e.sched.Pause()
		return nil
	}
	return e.sched.Play()
}

// Scrub moves the playhead to t and presents the frame there.
func (e *Editor) Scrub(t time.Duration) (scheduler.TickResult, error) {
	return e.sched.SetPlayhead(t)
}

// Tick advances playback. Call it at the display rate.
func (e *Editor) Tick() (scheduler.TickResult, error) {
	return e.sched.Tick()
}

// State returns the playback state.
func (e *Editor) State() scheduler.State {
	return e.sched.State()
}

// Playhead returns the current global playhead position.
func (e *Editor) Playhead() time.Duration {
	return e.sched.Playhead().Position
}

// Stats returns the scheduler counters.
func (e *Editor) Stats() scheduler.Stats {
	return e.sched.Stats()
}

// CurrentFrame returns the frame on screen at source resolution.
func (e *Editor) CurrentFrame() (*ports.Frame, bool) {
	return e.buf.Current()
}

// Preview returns the frame on screen fitted inside the preview bounds.
func (e *Editor) Preview() (*image.RGBA, bool) {
	f, ok := e.buf.Current()
	if !ok {
		return nil, false
	}
	return framebuffer.Fit(f, e.cfg.PreviewWidth, e.cfg.PreviewHeight), true
}

// Info returns the probed metadata of clip id's source.
func (e *Editor) Info(id timeline.ClipID) (ports.MediaInfo, error) {
	c, ok := e.tl.Get(id)
	if !ok {
		return ports.MediaInfo{}, fmt.Errorf("%w: %d", timeline.ErrClipNotFound, id)
	}
	return c.Media.Info, nil
}

// ClipAt returns the clip visible at global time t.
func (e *Editor) ClipAt(t time.Duration) (timeline.Clip, bool) {
	r, ok := e.tl.Resolve(t)
	if !ok {
		return timeline.Clip{}, false
	}
	return r.Clip, true
}

// Clips returns the timeline in position order.
func (e *Editor) Clips() []timeline.Clip {
	return e.tl.Clips()
}

// End returns the global time at which the last clip ends.
func (e *Editor) End() time.Duration {
	return e.tl.End()
}

// SaveProject writes the clip list to path.
func (e *Editor) SaveProject(path string) error {
	if err := project.Save(e.fs, path, e.tl.Clips()); err != nil {
		return err
	}
	e.log.Info("Project saved to %s", path)
	return nil
}

// LoadProject replaces the timeline with the clips in path. Playback stops and
// the selection is cleared. On error the previous timeline is put back.
func (e *Editor) LoadProject(path string) error {
	doc, err := project.Load(e.fs, path)
	if err != nil {
		return err
	}

	// Hold every involved source so clearing the timeline cannot evict a
	// handle that the new clip list still needs.
	var held []*media.Handle
	defer func() {
		for _, h := range held {
			h.Release()
		}
	}()
	old := e.tl.Clips()
	for _, c := range old {
		c.Media.Retain()
		held = append(held, c.Media)
	}

	clips := make([]timeline.Clip, 0, len(doc.Clips))
	for _, entry := range doc.Clips {
		h, err := e.lib.Open(entry.Source)
		if err != nil {
			return fmt.Errorf("project %s: clip %d: %w", path, entry.ID, err)
		}
		h.Retain()
		held = append(held, h)
		clips = append(clips, timeline.Clip{
			ID:       timeline.ClipID(entry.ID),
			Media:    h,
			Start:    entry.Start,
			End:      entry.End,
			Position: entry.Position,
		})
	}

	e.sched.Stop()
	e.tl.Clear()
	for _, c := range clips {
		if err := e.tl.Restore(c); err != nil {
			e.tl.Clear()
			for _, o := range old {
				if rerr := e.tl.Restore(o); rerr != nil {
					e.log.Warn("Cannot restore clip %d: %v", o.ID, rerr)
				}
			}
			e.refresh()
			return fmt.Errorf("project %s: %w", path, err)
		}
	}
	e.setSelected(0)
	e.log.Info("Project loaded from %s (%d clips)", path, len(clips))
	e.refresh()
	return nil
}

// Summary reports sources, clips and playback counters.
func (e *Editor) Summary() *summarizer.Summary {
	b := summarizer.NewBuilder().WithBackend(e.cfg.Backend)
	for _, c := range e.tl.Clips() {
		info := c.Media.Info
		b.AddSource(summarizer.SourceInfo{
			Path:     c.Media.Path,
			Width:    info.Width,
			Height:   info.Height,
			FPS:      info.FPS,
			Duration: info.Duration,
			HasAudio: info.HasAudio,
		})
		b.AddClip(summarizer.ClipInfo{
			ID:       uint64(c.ID),
			Source:   c.Media.Path,
			Start:    c.Start,
			End:      c.End,
			Position: c.Position,
		})
	}

	st := e.sched.Stats()
	b.WithPlayback(summarizer.PlaybackInfo{
		WallTime:       e.clock.Now().Sub(e.created),
		FinalPosition:  e.Playhead(),
		Ticks:          st.Ticks,
		Presented:      st.Presented,
		Held:           st.Held,
		Gaps:           st.Gaps,
		Seeks:          st.Seeks,
		SkippedFrames:  st.SkippedFrames,
		Stalls:         st.Stalls,
		DecodeErrors:   st.DecodeErrors,
		SessionsOpened: st.SessionsOpened,
		Reopens:        st.Reopens,
	})
	return b.Build()
}

// Close stops playback, releases the decode session and empties the timeline.
func (e *Editor) Close() error {
	err := e.sched.Close()
	e.tl.Clear()
	e.buf.Clear()
	return err
}

func (e *Editor) setSelected(id timeline.ClipID) {
	e.mu.Lock()
	e.selected = id
	e.mu.Unlock()
}

// refresh re-presents the playhead after an edit so a paused or stopped
// preview never shows a frame the timeline no longer contains. While playing,
// the next tick picks up the change.
func (e *Editor) refresh() {
	if e.sched.State() == scheduler.Playing {
		return
	}
	res, err := e.sched.SetPlayhead(e.Playhead())
	if err != nil {
		e.log.Debug("Preview refresh at %s: %v", res.Position, err)
		return
	}
	if res.Status == scheduler.StatusGap {
		e.buf.Clear()
	}
}
