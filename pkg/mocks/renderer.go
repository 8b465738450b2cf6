package mocks

import (
	"image"
	"image/color"
	"sync"

	"github.com/user/splicer/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
// Every canvas it creates records the text drawn on it into Texts.
type Renderer struct {
	mu    sync.Mutex
	Texts []string

	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return &Canvas{width: width, height: height, renderer: m}
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	b := img.Bounds()
	return []byte{byte(format), byte(b.Dx()), byte(b.Dy())}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

// DrawnTexts returns a copy of the recorded text calls.
func (m *Renderer) DrawnTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Texts...)
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	width    int
	height   int
	renderer *Renderer
}

func (m *Canvas) DrawImage(img image.Image, x, y int) {}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	if m.renderer == nil {
		return
	}
	m.renderer.mu.Lock()
	defer m.renderer.mu.Unlock()
	m.renderer.Texts = append(m.renderer.Texts, text)
}

func (m *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	return float64(len(text)) * style.FontSize * 0.6, style.FontSize
}

func (m *Canvas) ToImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
