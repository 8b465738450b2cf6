package snapshotsink

import (
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/splicer/pkg/mocks"
	"github.com/user/splicer/pkg/ports"
)

var testDir = filepath.Join("snapshots")

func testFrame(w, h int) *ports.Frame {
	return &ports.Frame{Pix: make([]byte, w*h*4), Width: w, Height: h, Timestamp: 1500 * time.Millisecond}
}

func TestSink_Enabled(t *testing.T) {
	sink := New(testDir, mocks.NewFileSystem(), &mocks.Renderer{})
	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	renderer := &mocks.Renderer{}
	sink := New(testDir, fs, renderer)

	if err := sink.SaveFrame(7, testFrame(64, 36), "00:01.500  clip 1"); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	path := filepath.Join(testDir, "frame-00007.png")
	data, ok := fs.GetFile(path)
	if !ok {
		t.Fatalf("expected file at %s", path)
	}
	// The mock encoder writes format, width and height.
	if data[0] != byte(ports.FormatPNG) || data[1] != 64 || data[2] != 36+BarHeight {
		t.Errorf("unexpected encoded image header %v", data)
	}
	if ok, _ := fs.Exists(testDir); !ok {
		t.Error("expected snapshot directory to be created")
	}

	texts := renderer.DrawnTexts()
	if len(texts) != 1 || texts[0] != "00:01.500  clip 1" {
		t.Errorf("expected label to be drawn, got %v", texts)
	}
}

func TestSink_SaveFrame_Downscales(t *testing.T) {
	fs := mocks.NewFileSystem()
	var resized [2]int
	renderer := &mocks.Renderer{
		ResizeImageFunc: func(img image.Image, w, h int) image.Image {
			resized = [2]int{w, h}
			return image.NewRGBA(image.Rect(0, 0, w, h))
		},
	}
	sink := New(testDir, fs, renderer, WithMaxWidth(32))

	if err := sink.SaveFrame(0, testFrame(64, 36), "x"); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}
	if resized != [2]int{32, 18} {
		t.Errorf("expected resize to 32x18, got %v", resized)
	}
	data, _ := fs.GetFile(filepath.Join(testDir, "frame-00000.png"))
	if data[1] != 32 || data[2] != 18+BarHeight {
		t.Errorf("unexpected canvas size %dx%d", data[1], data[2])
	}
}

func TestSink_SaveFrame_Errors(t *testing.T) {
	t.Run("nil frame", func(t *testing.T) {
		sink := New(testDir, mocks.NewFileSystem(), &mocks.Renderer{})
		if err := sink.SaveFrame(0, nil, ""); err == nil {
			t.Error("expected error for nil frame")
		}
	})

	t.Run("mkdir", func(t *testing.T) {
		fs := mocks.NewFileSystem()
		fs.MkdirAllFunc = func(string) error { return errors.New("read-only") }
		sink := New(testDir, fs, &mocks.Renderer{})
		if err := sink.SaveFrame(0, testFrame(4, 4), ""); err == nil {
			t.Error("expected mkdir error")
		}
	})

	t.Run("encode", func(t *testing.T) {
		renderer := &mocks.Renderer{
			EncodeImageFunc: func(image.Image, ports.ImageFormat, int) ([]byte, error) {
				return nil, errors.New("boom")
			},
		}
		sink := New(testDir, mocks.NewFileSystem(), renderer)
		if err := sink.SaveFrame(0, testFrame(4, 4), ""); err == nil {
			t.Error("expected encode error")
		}
	})
}
