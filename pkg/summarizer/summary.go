package summarizer

import "time"

// Summary contains the data collected during one playback run.
type Summary struct {
	GeneratedAt time.Time

	// Backend is the linked decode backend ("libav", "avfoundation").
	Backend string

	Sources  []SourceInfo
	Timeline TimelineInfo
	Playback PlaybackInfo
}

// SourceInfo describes one probed media file.
type SourceInfo struct {
	Path     string
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
	HasAudio bool
}

// TimelineInfo describes the edited clip list.
type TimelineInfo struct {
	Clips []ClipInfo
	End   time.Duration
}

// ClipInfo is one clip on the timeline.
type ClipInfo struct {
	ID       uint64
	Source   string
	Start    time.Duration
	End      time.Duration
	Position time.Duration
}

// PlaybackInfo holds scheduler counters and wall-clock totals.
type PlaybackInfo struct {
	WallTime      time.Duration
	FinalPosition time.Duration

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

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithBackend records the decode backend name.
func (b *Builder) WithBackend(name string) *Builder {
	b.summary.Backend = name
	return b
}

// AddSource appends a probed source. Duplicate paths are ignored.
func (b *Builder) AddSource(src SourceInfo) *Builder {
	for _, s := range b.summary.Sources {
		if s.Path == src.Path {
			return b
		}
	}
	b.summary.Sources = append(b.summary.Sources, src)
	return b
}

// AddClip appends a clip and extends the timeline end.
func (b *Builder) AddClip(c ClipInfo) *Builder {
	b.summary.Timeline.Clips = append(b.summary.Timeline.Clips, c)
	if end := c.Position + (c.End - c.Start); end > b.summary.Timeline.End {
		b.summary.Timeline.End = end
	}
	return b
}

// WithPlayback sets playback counters.
func (b *Builder) WithPlayback(p PlaybackInfo) *Builder {
	b.summary.Playback = p
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
