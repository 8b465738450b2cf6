package mp4index

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

func TestKeyframesFromStbl(t *testing.T) {
	// 90 samples of 512 ticks at 15360 Hz (30 fps), keyframes every 30 samples.
	stbl := &mp4.StblBox{
		Stts: &mp4.SttsBox{SampleCount: []uint32{90}, SampleTimeDelta: []uint32{512}},
		Stss: &mp4.StssBox{SampleNumber: []uint32{61, 1, 31}},
		Stsz: &mp4.StszBox{SampleNumber: 90},
	}

	keys, count, err := keyframesFromStbl(stbl, 15360)
	if err != nil {
		t.Fatal(err)
	}
	if count != 90 {
		t.Errorf("expected 90 samples, got %d", count)
	}
	want := []time.Duration{0, time.Second, 2 * time.Second}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keyframe %d: got %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestKeyframesFromStbl_AllSyncWithoutStss(t *testing.T) {
	stbl := &mp4.StblBox{
		Stts: &mp4.SttsBox{SampleCount: []uint32{4}, SampleTimeDelta: []uint32{1000}},
		Stsz: &mp4.StszBox{SampleNumber: 4},
	}
	keys, _, err := keyframesFromStbl(stbl, 25000)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 4 || keys[3] != 120*time.Millisecond {
		t.Errorf("unexpected keyframes %v", keys)
	}
}

func TestKeyframesFromStbl_MissingBoxes(t *testing.T) {
	if _, _, err := keyframesFromStbl(&mp4.StblBox{}, 1000); err == nil {
		t.Error("expected error without stsz")
	}
	if _, _, err := keyframesFromStbl(&mp4.StblBox{Stsz: &mp4.StszBox{SampleNumber: 1}}, 1000); err == nil {
		t.Error("expected error without stts")
	}
}

func TestKeyframeAtOrBefore(t *testing.T) {
	ix := &Index{Keyframes: []time.Duration{0, 2 * time.Second, 4 * time.Second}}

	tests := []struct {
		t    time.Duration
		want time.Duration
	}{
		{0, 0},
		{1999 * time.Millisecond, 0},
		{2 * time.Second, 2 * time.Second},
		{3500 * time.Millisecond, 2 * time.Second},
		{time.Hour, 4 * time.Second},
		{-time.Second, 0},
	}
	for _, tt := range tests {
		if got := ix.KeyframeAtOrBefore(tt.t); got != tt.want {
			t.Errorf("KeyframeAtOrBefore(%s) = %s, want %s", tt.t, got, tt.want)
		}
	}

	if got := (&Index{}).KeyframeAtOrBefore(time.Second); got != 0 {
		t.Errorf("empty index should map to zero, got %s", got)
	}
}

func TestCodecOf(t *testing.T) {
	tests := map[string]Codec{
		"avc1": CodecH264,
		"avc3": CodecH264,
		"hvc1": CodecHEVC,
		"av01": CodecAV1,
		"vp09": CodecVP9,
		"apcn": CodecProRes,
		"mp4a": CodecUnknown,
	}
	for box, want := range tests {
		if got := codecOf(box); got != want {
			t.Errorf("codecOf(%q) = %s, want %s", box, got, want)
		}
	}
}

func TestTicks(t *testing.T) {
	if got := ticks(90000*3+45000, 90000); got != 3500*time.Millisecond {
		t.Errorf("got %s", got)
	}
	if got := ticks(10, 0); got != 0 {
		t.Errorf("zero timescale should give zero, got %s", got)
	}
}

func TestFPS(t *testing.T) {
	ix := &Index{SampleCount: 300, Duration: 10 * time.Second}
	if ix.FPS() != 30 {
		t.Errorf("expected 30 fps, got %f", ix.FPS())
	}
}

func TestBuild_RejectsGarbage(t *testing.T) {
	if _, err := Build(bytes.NewReader([]byte("not an mp4 file at all"))); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestBuildFromFile_Sample(t *testing.T) {
	path := os.Getenv("SPLICER_TEST_MEDIA")
	if path == "" {
		t.Skip("SPLICER_TEST_MEDIA not set")
	}
	ix, err := BuildFromFile(path)
	if err != nil {
		t.Fatalf("BuildFromFile: %v", err)
	}
	if len(ix.Keyframes) == 0 {
		t.Error("expected at least one keyframe")
	}
	t.Logf("codec=%s %dx%d fps=%.3f keyframes=%d", ix.Codec, ix.Width, ix.Height, ix.FPS(), len(ix.Keyframes))
}
