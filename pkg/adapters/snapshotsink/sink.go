// Package snapshotsink writes presented frames to PNG files with a label bar
// underneath, for inspecting headless playback runs.
package snapshotsink

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"

	"github.com/user/splicer/pkg/framebuffer"
	"github.com/user/splicer/pkg/ports"
)

// BarHeight is the height of the label bar appended below each frame.
const BarHeight = 28

// Theme colors the label bar.
type Theme struct {
	Background color.Color
	Text       color.Color
	Accent     color.Color
}

// DefaultTheme returns the dark bar used when no theme is configured.
func DefaultTheme() Theme {
	return Theme{
		Background: color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 255},
		Text:       color.White,
		Accent:     color.RGBA{R: 0x4a, G: 0xde, B: 0x80, A: 255},
	}
}

// Sink saves frames as dir/frame-NNNNN.png.
type Sink struct {
	dir      string
	fs       ports.FileSystem
	renderer ports.Renderer
	theme    Theme
	// maxWidth downscales wider frames before drawing; 0 keeps source size.
	maxWidth int

	once   sync.Once
	dirErr error
}

// Option configures a Sink.
type Option func(*Sink)

// WithTheme sets the label bar colors.
func WithTheme(t Theme) Option {
	return func(s *Sink) { s.theme = t }
}

// WithMaxWidth downscales frames wider than w.
func WithMaxWidth(w int) Option {
	return func(s *Sink) { s.maxWidth = w }
}

// New creates a sink writing under dir.
func New(dir string, fs ports.FileSystem, renderer ports.Renderer, opts ...Option) *Sink {
	s := &Sink{
		dir:      dir,
		fs:       fs,
		renderer: renderer,
		theme:    DefaultTheme(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveFrame composes the frame above a bar showing label and writes it as PNG.
func (s *Sink) SaveFrame(index int, frame *ports.Frame, label string) error {
	if frame == nil {
		return fmt.Errorf("snapshot %d: no frame", index)
	}
	s.once.Do(func() { s.dirErr = s.fs.MkdirAll(s.dir) })
	if s.dirErr != nil {
		return fmt.Errorf("create snapshot directory: %w", s.dirErr)
	}

	var img image.Image = framebuffer.ToImage(frame)
	w, h := frame.Width, frame.Height
	if s.maxWidth > 0 && w > s.maxWidth {
		w, h = framebuffer.FitSize(w, h, s.maxWidth, h)
		img = s.renderer.ResizeImage(img, w, h)
	}

	canvas := s.renderer.CreateCanvas(w, h+BarHeight, s.theme.Background)
	canvas.DrawImage(img, 0, 0)
	canvas.DrawRect(0, h, 4, BarHeight, s.theme.Accent)
	canvas.DrawText(label, 12, h+BarHeight/2, ports.TextStyle{
		FontSize: 14,
		Color:    s.theme.Text,
		Align:    ports.AlignLeft,
	})

	data, err := s.renderer.EncodeImage(canvas.ToImage(), ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", index, err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("frame-%05d.png", index))
	if err := s.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write snapshot %d: %w", index, err)
	}
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
