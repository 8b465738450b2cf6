package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/splicer/pkg/adapters/logger"
	"github.com/user/splicer/pkg/config"
	"github.com/user/splicer/pkg/editor"
	"github.com/user/splicer/pkg/mocks"
	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/scheduler"
	"github.com/user/splicer/pkg/timeline"
)

func newTestEditor(t *testing.T, sources map[string]ports.MediaInfo) (*editor.Editor, *mocks.FileSystem) {
	t.Helper()
	opener := mocks.NewOpener(sources)
	fs := mocks.NewFileSystem()
	ed := editor.New(opener, fs, nil, editor.DefaultConfig(), logger.NewNoop())
	t.Cleanup(func() { _ = ed.Close() })
	return ed, fs
}

func TestBuildTimeline_ConcatSplitDelete(t *testing.T) {
	ed, fs := newTestEditor(t, map[string]ports.MediaInfo{
		"/a.mp4": {FPS: 30, Duration: 10 * time.Second},
		"/b.mp4": {FPS: 25, Duration: 4 * time.Second},
	})

	cmd := &PlayCmd{
		Files:   []string{"/a.mp4", "/b.mp4"},
		Split:   []time.Duration{4 * time.Second, 12 * time.Second},
		Delete:  []uint64{3},
		Project: "/edit.yaml",
	}
	require.NoError(t, cmd.buildTimeline(ed))

	// a: 1 [0,4) + 3 [4,10) deleted; b: 2 at 10s split at 12s into 2 and 4.
	clips := ed.Clips()
	require.Len(t, clips, 3)
	assert.Equal(t, timeline.ClipID(1), clips[0].ID)
	assert.Equal(t, timeline.ClipID(2), clips[1].ID)
	assert.Equal(t, 10*time.Second, clips[1].Position)
	assert.Equal(t, 2*time.Second, clips[1].End)
	assert.Equal(t, timeline.ClipID(4), clips[2].ID)
	assert.Equal(t, 12*time.Second, clips[2].Position)

	data, ok := fs.GetFile("/edit.yaml")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(data), "version: 1"))
}

func TestBuildTimeline_SplitOverGap(t *testing.T) {
	ed, _ := newTestEditor(t, map[string]ports.MediaInfo{"/a.mp4": {FPS: 30, Duration: 2 * time.Second}})

	cmd := &PlayCmd{Files: []string{"/a.mp4"}, Split: []time.Duration{5 * time.Second}}
	assert.ErrorIs(t, cmd.buildTimeline(ed), timeline.ErrSplitRejected)
}

func TestPlayLoop_RunsToEndAndSnapshots(t *testing.T) {
	ed, _ := newTestEditor(t, map[string]ports.MediaInfo{"/a.mp4": {FPS: 30, Duration: 300 * time.Millisecond}})
	_, err := ed.Load("/a.mp4")
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Playback.TickRate = 500
	cfg.Snapshots.Every = 2
	sink := mocks.NewFrameSink(true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, playLoop(ctx, ed, sink, cfg, logger.NewNoop()))

	assert.Equal(t, scheduler.Stopped, ed.State())
	require.NotZero(t, sink.Count())
	for i, s := range sink.Saved {
		assert.Equal(t, i, s.Index)
		assert.Contains(t, s.Label, "#1")
	}
	assert.LessOrEqual(t, sink.Count(), (ed.Stats().Presented+1)/2)
}

func TestPlayLoop_Cancelled(t *testing.T) {
	ed, _ := newTestEditor(t, map[string]ports.MediaInfo{"/a.mp4": {FPS: 30, Duration: time.Hour}})
	_, err := ed.Load("/a.mp4")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, playLoop(ctx, ed, mocks.NewFrameSink(false), config.Defaults(), logger.NewNoop()))
	assert.Equal(t, scheduler.Paused, ed.State())
}

func TestBuildConfig_Overrides(t *testing.T) {
	every := 5
	tol := 2 * time.Second
	cmd := &PlayCmd{Snapshots: "/snaps", SnapshotEvery: &every, SeekTolerance: &tol, NoAudio: true}
	cmd.LogLevel = "debug"

	cfg, err := cmd.buildConfig()
	require.NoError(t, err)
	assert.Equal(t, "/snaps", cfg.Snapshots.Dir)
	assert.Equal(t, 5, cfg.Snapshots.Every)
	assert.Equal(t, 2*time.Second, cfg.Playback.SeekTolerance)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)

	zero := 0
	_, err = (&PlayCmd{SnapshotEvery: &zero}).buildConfig()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFormatTimecode(t *testing.T) {
	assert.Equal(t, "00:00.000", formatTimecode(0))
	assert.Equal(t, "01:02.250", formatTimecode(62250*time.Millisecond))
}
