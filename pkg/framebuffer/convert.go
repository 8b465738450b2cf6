package framebuffer

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/user/splicer/pkg/ports"
)

// BGRAToRGBA converts a BGRA image with the given row stride into a tightly packed RGBA buffer.
func BGRAToRGBA(src []byte, width, height, stride int) ([]byte, error) {
	if err := checkPlane(len(src), width*4, height, stride); err != nil {
		return nil, err
	}
	dst := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		s := src[y*stride : y*stride+width*4]
		d := dst[y*width*4 : (y+1)*width*4]
		for x := 0; x < width*4; x += 4 {
			d[x+0] = s[x+2]
			d[x+1] = s[x+1]
			d[x+2] = s[x+0]
			d[x+3] = s[x+3]
		}
	}
	return dst, nil
}

func checkPlane(size, rowBytes, height, stride int) error {
	if rowBytes < 0 || height < 0 {
		return fmt.Errorf("negative dimensions")
	}
	if stride < rowBytes {
		return fmt.Errorf("stride %d shorter than row %d", stride, rowBytes)
	}
	if height > 0 && size < (height-1)*stride+rowBytes {
		return fmt.Errorf("buffer of %d bytes too small for %d rows of stride %d", size, height, stride)
	}
	return nil
}

// ToImage wraps the frame's pixels in an *image.RGBA without copying.
// The result must be treated as read-only.
func ToImage(f *ports.Frame) *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride(),
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Fit scales the frame to fit inside maxW x maxH, keeping the aspect ratio.
// Frames already within the bounds are returned as a zero-copy view.
func Fit(f *ports.Frame, maxW, maxH int) *image.RGBA {
	src := ToImage(f)
	if maxW <= 0 || maxH <= 0 || (f.Width <= maxW && f.Height <= maxH) {
		return src
	}
	w, h := FitSize(f.Width, f.Height, maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// FitSize returns the largest size with the source aspect ratio inside maxW x maxH.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w*maxH > h*maxW {
		nh := h * maxW / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := w * maxH / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}
