// Package timeline implements the non-destructive clip model: clips reference a
// span of a source and sit at a position on the global timeline.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/splicer/pkg/media"
	"github.com/user/splicer/pkg/ports"
)

var (
	// ErrSplitRejected is returned when the split point is not strictly inside the clip.
	ErrSplitRejected = errors.New("split rejected")
	// ErrClipNotFound is returned for an unknown clip id.
	ErrClipNotFound = errors.New("clip not found")
	// ErrInvalidPosition is returned for a negative timeline position.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrEmptySource is returned when loading a source without a positive duration.
	ErrEmptySource = errors.New("source has no duration")
	// ErrInvalidClip is returned by Restore for a clip violating the model invariants.
	ErrInvalidClip = errors.New("invalid clip")
)

// ClipID uniquely identifies a clip. IDs grow monotonically and are never reused.
type ClipID uint64

// Clip is a trimmed view [Start, End) of a source placed at Position on the timeline.
type Clip struct {
	ID       ClipID
	Media    *media.Handle
	Start    time.Duration
	End      time.Duration
	Position time.Duration
}

// Duration returns the clip's length on the timeline.
func (c Clip) Duration() time.Duration {
	return c.End - c.Start
}

// TimelineEnd returns the global time at which the clip stops covering the timeline.
func (c Clip) TimelineEnd() time.Duration {
	return c.Position + c.Duration()
}

// Covers reports whether the global time falls in [Position, TimelineEnd).
func (c Clip) Covers(global time.Duration) bool {
	return global >= c.Position && global < c.TimelineEnd()
}

// SourceTime maps a global time inside the clip to the source timestamp.
func (c Clip) SourceTime(global time.Duration) time.Duration {
	return c.Start + (global - c.Position)
}

// Resolution is the result of mapping a global time onto the timeline.
type Resolution struct {
	Clip       Clip
	SourceTime time.Duration
}

// Timeline holds the ordered clip list. It is safe for concurrent use: the
// editor mutates it while the scheduler resolves.
type Timeline struct {
	log ports.Logger

	mu     sync.RWMutex
	clips  []Clip // ascending Position; equal positions keep insertion order
	nextID ClipID
}

// New creates an empty timeline. The first clip gets ID 1.
func New(log ports.Logger) *Timeline {
	return &Timeline{
		log:    log.WithComponent("timeline"),
		nextID: 1,
	}
}

// Load appends one clip covering the whole source at position 0.
func (t *Timeline) Load(h *media.Handle) (Clip, error) {
	if h == nil || h.Info.Duration <= 0 {
		return Clip{}, ErrEmptySource
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c := Clip{
		ID:       t.allocID(),
		Media:    h,
		Start:    0,
		End:      h.Info.Duration,
		Position: 0,
	}
	h.Retain()
	t.insert(c)
	t.log.Info("Loaded clip %d from %s (%s)", c.ID, h.Path, h.Info.Duration)
	return c, nil
}

// Split cuts clip id at source time at. The original clip keeps [Start, at) and a
// new clip [at, End) is placed right where the original's content continues.
func (t *Timeline) Split(id ClipID, at time.Duration) (Clip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return Clip{}, fmt.Errorf("%w: %d", ErrClipNotFound, id)
	}
	orig := t.clips[i]
	if at <= orig.Start || at >= orig.End {
		return Clip{}, fmt.Errorf("%w: %s is not inside clip %d [%s, %s)", ErrSplitRejected, at, id, orig.Start, orig.End)
	}

	second := Clip{
		ID:       t.allocID(),
		Media:    orig.Media,
		Start:    at,
		End:      orig.End,
		Position: orig.Position + (at - orig.Start),
	}
	t.clips[i].End = at
	orig.Media.Retain()

	// The second half starts later than the original, so it belongs after it;
	// walk forward past clips that start before it.
	j := i + 1
	for j < len(t.clips) && t.clips[j].Position <= second.Position {
		j++
	}
	t.clips = append(t.clips, Clip{})
	copy(t.clips[j+1:], t.clips[j:])
	t.clips[j] = second

	t.log.Info("Split clip %d at %s into %d", id, at, second.ID)
	return second, nil
}

// Delete removes a clip. Other clips keep their positions; no ripple is applied.
func (t *Timeline) Delete(id ClipID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrClipNotFound, id)
	}
	c := t.clips[i]
	t.clips = append(t.clips[:i], t.clips[i+1:]...)
	c.Media.Release()
	t.log.Info("Deleted clip %d", id)
	return nil
}

// Move places a clip at a new global position.
func (t *Timeline) Move(id ClipID, position time.Duration) (Clip, error) {
	if position < 0 {
		return Clip{}, fmt.Errorf("%w: %s", ErrInvalidPosition, position)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return Clip{}, fmt.Errorf("%w: %d", ErrClipNotFound, id)
	}
	c := t.clips[i]
	t.clips = append(t.clips[:i], t.clips[i+1:]...)
	c.Position = position
	t.insertByID(c)
	t.log.Debug("Moved clip %d to %s", id, position)
	return c, nil
}

// Restore inserts a clip with a caller-chosen ID, as read back from a project file.
// Later allocations continue after the largest ID seen.
func (t *Timeline) Restore(c Clip) error {
	switch {
	case c.Media == nil:
		return fmt.Errorf("%w: clip %d has no source", ErrInvalidClip, c.ID)
	case c.Start < 0 || c.Start >= c.End:
		return fmt.Errorf("%w: clip %d span [%s, %s)", ErrInvalidClip, c.ID, c.Start, c.End)
	case c.End > c.Media.Info.Duration:
		return fmt.Errorf("%w: clip %d ends at %s past source duration %s", ErrInvalidClip, c.ID, c.End, c.Media.Info.Duration)
	case c.Position < 0:
		return fmt.Errorf("%w: %s", ErrInvalidPosition, c.Position)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if c.ID == 0 || t.indexOf(c.ID) >= 0 {
		return fmt.Errorf("%w: duplicate or zero id %d", ErrInvalidClip, c.ID)
	}
	if c.ID >= t.nextID {
		t.nextID = c.ID + 1
	}
	c.Media.Retain()
	t.insertByID(c)
	return nil
}

// Resolve finds the clip covering a global time. When clips overlap, the one with
// the smallest ID wins. It reports false over gaps and past the end.
func (t *Timeline) Resolve(global time.Duration) (Resolution, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		best  Clip
		found bool
	)
	for _, c := range t.clips {
		if c.Position > global {
			break
		}
		if !c.Covers(global) {
			continue
		}
		if !found || c.ID < best.ID {
			best = c
			found = true
		}
	}
	if !found {
		return Resolution{}, false
	}
	return Resolution{Clip: best, SourceTime: best.SourceTime(global)}, true
}

// End returns the largest TimelineEnd over all clips, zero when empty.
func (t *Timeline) End() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var end time.Duration
	for _, c := range t.clips {
		if e := c.TimelineEnd(); e > end {
			end = e
		}
	}
	return end
}

// Get returns the clip with the given ID.
func (t *Timeline) Get(id ClipID) (Clip, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i := t.indexOf(id); i >= 0 {
		return t.clips[i], true
	}
	return Clip{}, false
}

// Clips returns a copy of the clips in timeline order.
func (t *Timeline) Clips() []Clip {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Clip(nil), t.clips...)
}

// Len returns the number of clips.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clips)
}

// Clear removes every clip, releasing their sources. IDs keep increasing.
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.clips {
		c.Media.Release()
	}
	t.clips = nil
}

func (t *Timeline) allocID() ClipID {
	id := t.nextID
	t.nextID++
	return id
}

func (t *Timeline) indexOf(id ClipID) int {
	for i, c := range t.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// insert places c after every clip with Position <= c.Position.
func (t *Timeline) insert(c Clip) {
	i := sort.Search(len(t.clips), func(i int) bool {
		return t.clips[i].Position > c.Position
	})
	t.clips = append(t.clips, Clip{})
	copy(t.clips[i+1:], t.clips[i:])
	t.clips[i] = c
}

// insertByID places c by Position, ordering equal positions by ID.
func (t *Timeline) insertByID(c Clip) {
	i := sort.Search(len(t.clips), func(i int) bool {
		o := t.clips[i]
		return o.Position > c.Position || (o.Position == c.Position && o.ID > c.ID)
	})
	t.clips = append(t.clips, Clip{})
	copy(t.clips[i+1:], t.clips[i:])
	t.clips[i] = c
}
