package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts the drawing used for snapshot overlays.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas filled with bg.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations on a single image.
type Canvas interface {
	DrawImage(img image.Image, x, y int)
	DrawRect(x, y, w, h int, c color.Color)
	DrawText(text string, x, y int, style TextStyle)
	MeasureText(text string, style TextStyle) (width, height float64)
	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)
