//go:build !nolibav

package libavdecoder

import (
	"errors"
	"io"
	"math"
	"os"
	"testing"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/splicer/pkg/adapters/logger"
	"github.com/user/splicer/pkg/adapters/mp4index"
	"github.com/user/splicer/pkg/adapters/otosink"
	"github.com/user/splicer/pkg/ports"
)

// testMedia returns the sample file named by SPLICER_TEST_MEDIA. Any H.264 or
// HEVC MP4 of a few seconds works.
func testMedia(t *testing.T) string {
	t.Helper()
	path := os.Getenv("SPLICER_TEST_MEDIA")
	if path == "" {
		t.Skip("SPLICER_TEST_MEDIA not set")
	}
	return path
}

func openTest(t *testing.T) ports.DecoderBackend {
	t.Helper()
	b, err := New(logger.NewNoop(), WithAudio(false)).Open(testMedia(t))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := New(logger.NewNoop()).Open("/nonexistent/clip.mp4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrOpenFailed))
}

func TestInfo(t *testing.T) {
	b := openTest(t)
	info := b.Info()
	assert.Positive(t, info.Width)
	assert.Positive(t, info.Height)
	assert.Positive(t, info.FPS)
	assert.Positive(t, info.Duration)
}

func TestReadNextFrame_Sequential(t *testing.T) {
	b := openTest(t)
	info := b.Info()

	var prev time.Duration = -1
	for i := 0; i < 10; i++ {
		f, err := b.ReadNextFrame()
		require.NoError(t, err)
		assert.Equal(t, info.Width, f.Width)
		assert.Equal(t, info.Height, f.Height)
		assert.Len(t, f.Pix, f.Width*f.Height*4)
		assert.Greater(t, f.Timestamp, prev)
		prev = f.Timestamp
	}
}

func TestSeek_RoundTrip(t *testing.T) {
	b := openTest(t)
	info := b.Info()
	target := info.Duration / 2

	require.NoError(t, b.Seek(target))
	f, err := b.ReadNextFrame()
	require.NoError(t, err)
	assert.LessOrEqual(t, f.Timestamp, target+info.FrameInterval())

	// The first frame after a seek is the keyframe opening target's GOP.
	if ix, err := mp4index.BuildFromFile(testMedia(t)); err == nil {
		kf := ix.KeyframeAtOrBefore(target)
		assert.GreaterOrEqual(t, f.Timestamp, kf-2*info.FrameInterval(), "landed before the GOP of %s", target)
	}

	require.NoError(t, b.Seek(0))
	f, err = b.ReadNextFrame()
	require.NoError(t, err)
	assert.Less(t, f.Timestamp, info.FrameInterval())
}

func TestStreamTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		num, den int
		start    int64
		want     int64
	}{
		{"zero start", 2 * time.Second, 1, 90000, 0, 180000},
		{"transport stream offset", 2 * time.Second, 1, 90000, 900000, 1080000},
		{"mp4 timescale", 500 * time.Millisecond, 1, 15360, 1024, 8704},
		{"unknown time base", time.Second, 0, 0, 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, streamTimestamp(tt.d, tt.num, tt.den, tt.start))
		})
	}
}

func TestFrameRate(t *testing.T) {
	assert.Equal(t, 29.97, frameRate(29.97, 30))
	assert.Equal(t, 25.0, frameRate(math.NaN(), 25))
	assert.Equal(t, 25.0, frameRate(0, 25))
	assert.Equal(t, 0.0, frameRate(math.NaN(), math.NaN()))
	assert.Equal(t, 0.0, frameRate(math.Inf(1), 0))
}

func TestPCMReader_FlushWithoutAudioEndsCleanly(t *testing.T) {
	r := &pcmReader{
		path: "test",
		log:  logger.NewNoop(),
		out:  astiav.AllocFrame(),
		swr:  astiav.AllocSoftwareResampleContext(),
	}
	defer r.Close()

	r.finish()
	assert.True(t, r.done)
	n, err := r.Read(make([]byte, 64))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPCMReader_ReadsWholeStream(t *testing.T) {
	path := testMedia(t)
	r, err := openPCM(path, logger.NewNoop())
	if err != nil {
		t.Skipf("no audio in %s: %v", path, err)
	}
	defer r.Close()

	total, err := io.Copy(io.Discard, r)
	require.NoError(t, err)

	// float32 stereo
	samples := total / 8
	tb := r.stream.TimeBase()
	if d := r.stream.Duration(); d > 0 && tb.Den() > 0 {
		want := float64(d) * float64(tb.Num()) / float64(tb.Den()) * otosink.SampleRate
		assert.InEpsilon(t, want, float64(samples), 0.05)
	} else {
		assert.Positive(t, samples)
	}
}

func TestReadNextFrame_EOF(t *testing.T) {
	b := openTest(t)
	info := b.Info()
	require.NoError(t, b.Seek(info.Duration))

	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		_, err = b.ReadNextFrame()
	}
	assert.ErrorIs(t, err, io.EOF)
}

func TestAudio_DisabledIsSilent(t *testing.T) {
	b := openTest(t)
	b.AudioPlay()
	assert.False(t, b.AudioIsPlaying())
	b.AudioStop()
}
