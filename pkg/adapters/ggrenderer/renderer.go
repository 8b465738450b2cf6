// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/splicer/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage resizes an image to the specified dimensions.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc *gg.Context
}

// DrawImage draws an image at the specified position.
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawText draws text vertically centered on y. Without a FontPath gg's
// built-in face is used and FontSize is ignored.
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.setFont(style)
	c.dc.SetColor(style.Color)

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}

	c.dc.DrawStringAnchored(text, float64(x), float64(y), ax, 0.5)
}

// MeasureText returns the rendered size of text.
func (c *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	c.setFont(style)
	return c.dc.MeasureString(text)
}

func (c *Canvas) setFont(style ports.TextStyle) {
	if style.FontPath == "" {
		return
	}
	// A missing font keeps the previous face.
	_ = c.dc.LoadFontFace(style.FontPath, style.FontSize)
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

var _ ports.Canvas = (*Canvas)(nil)
