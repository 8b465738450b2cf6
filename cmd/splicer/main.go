// Package main provides the CLI entry point for splicer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/splicer/pkg/adapters/backend"
	"github.com/user/splicer/pkg/adapters/ggrenderer"
	"github.com/user/splicer/pkg/adapters/logger"
	"github.com/user/splicer/pkg/adapters/mp4index"
	"github.com/user/splicer/pkg/adapters/nullsink"
	"github.com/user/splicer/pkg/adapters/osfilesystem"
	"github.com/user/splicer/pkg/adapters/snapshotsink"
	"github.com/user/splicer/pkg/config"
	"github.com/user/splicer/pkg/editor"
	"github.com/user/splicer/pkg/framebuffer"
	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/scheduler"
	"github.com/user/splicer/pkg/summarizer"
	"github.com/user/splicer/pkg/timeline"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Probe    ProbeCmd    `cmd:"" help:"Show media information for a file"`
	Play     PlayCmd     `cmd:"" help:"Play an edited timeline headlessly"`
	Snapshot SnapshotCmd `cmd:"" help:"Write the frame at a timestamp as an image"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// LogFlags are shared by every command that logs.
type LogFlags struct {
	LogLevel string `short:"l" help:"Log level (debug, info, warn, error)" group:"Logging"`
	Quiet    bool   `short:"Q" help:"Suppress all log output" group:"Logging"`
}

// newLogger builds the logger; an empty level defers to fallback.
func (f LogFlags) newLogger(fallback string) (ports.Logger, error) {
	if f.Quiet {
		return logger.NewNoop(), nil
	}
	name := f.LogLevel
	if name == "" {
		name = fallback
	}
	level, err := ports.ParseLogLevel(name)
	if err != nil {
		return nil, err
	}
	return logger.NewConsole(level), nil
}

// ProbeCmd defines the probe subcommand.
type ProbeCmd struct {
	File string `arg:"" type:"existingfile" help:"Media file to probe"`
	LogFlags
}

// PlayCmd defines the play subcommand.
type PlayCmd struct {
	Files []string `arg:"" optional:"" type:"existingfile" help:"Media files placed one after another"`

	// Editing
	Split  []time.Duration `help:"Split the visible clip at this timeline position (repeatable)" group:"Editing"`
	Delete []uint64        `help:"Delete the clip with this id after splitting (repeatable)" group:"Editing"`
	From   time.Duration   `help:"Start playback at this timeline position" group:"Editing"`

	// Project
	Project string `help:"Project file: loaded when no files are given, otherwise written after editing" group:"Project"`
	Config  string `short:"c" type:"existingfile" help:"Configuration file (YAML)" group:"Project"`

	// Output
	Snapshots     string `help:"Directory for PNG snapshots of presented frames" group:"Output"`
	SnapshotEvery *int   `help:"Write one snapshot every N presented frames" group:"Output"`
	Summary       string `help:"Output playback summary to file (Markdown format)" group:"Output"`

	// Playback overrides
	SeekTolerance *time.Duration `help:"Seek instead of decoding forward beyond this distance" group:"Playback"`
	TickRate      *float64       `help:"Presentations per second" group:"Playback"`
	NoAudio       bool           `help:"Disable audio output" group:"Playback"`

	LogFlags
}

// SnapshotCmd defines the snapshot subcommand.
type SnapshotCmd struct {
	File    string        `arg:"" type:"existingfile" help:"Media file"`
	At      time.Duration `required:"" help:"Source timestamp to capture"`
	Output  string        `short:"o" required:"" help:"Output image path (.png, .jpg or .jpeg)"`
	Quality int           `short:"q" default:"90" help:"JPEG quality (1-100)"`
	Width   int           `short:"W" help:"Scale the frame to fit this width (0 = source size)"`
	LogFlags
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("splicer"),
		kong.Description(l10n.T("Non-destructive clip timeline with synchronized preview playback")),
		kong.UsageOnError(),
		kong.ValueFormatter(func(value *kong.Value) string {
			return l10n.T(kong.DefaultHelpValueFormatter(value))
		}),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run() error {
	log, err := cmd.newLogger("warn")
	if err != nil {
		return err
	}

	b, err := backend.New(log, false).Open(cmd.File)
	if err != nil {
		return err
	}
	info := b.Info()
	if err := b.Close(); err != nil {
		log.Debug("Closing probe session for %s: %v", cmd.File, err)
	}

	fmt.Println(l10n.F("Backend: %s", backend.Name()))
	fmt.Println(l10n.F("Resolution: %dx%d", info.Width, info.Height))
	fmt.Println(l10n.F("Frame rate: %.3f fps", info.FPS))
	fmt.Println(l10n.F("Duration: %s", info.Duration))
	fmt.Println(l10n.F("Audio: %v", info.HasAudio))

	ix, err := mp4index.BuildFromFile(cmd.File)
	if err != nil {
		log.Debug("No MP4 index for %s: %v", cmd.File, err)
		return nil
	}
	fmt.Println(l10n.F("Codec: %s", ix.Codec))
	fmt.Println(l10n.F("Keyframes: %d of %d samples", len(ix.Keyframes), ix.SampleCount))
	if ix.Fragmented {
		fmt.Println(l10n.T("Fragmented MP4"))
	}
	return nil
}

// Run executes the play command.
func (cmd *PlayCmd) Run() error {
	cfg, err := cmd.buildConfig()
	if err != nil {
		return err
	}
	if len(cmd.Files) == 0 && cmd.Project == "" {
		return errors.New(l10n.T("Either media files or --project is required"))
	}

	log, err := cmd.newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()
	opener := backend.New(log, cfg.Audio.Enabled)

	ed := editor.New(opener, fs, nil, editor.Config{
		Scheduler:     cfg.ToSchedulerConfig(),
		PreviewWidth:  cfg.Preview.Width,
		PreviewHeight: cfg.Preview.Height,
		Backend:       backend.Name(),
	}, log)
	defer func() {
		if err := ed.Close(); err != nil {
			log.Debug("Close: %v", err)
		}
	}()

	if err := cmd.buildTimeline(ed); err != nil {
		return err
	}

	var sink ports.FrameSink = nullsink.New()
	if cfg.Snapshots.Dir != "" {
		theme := cfg.Snapshots.Theme
		sink = snapshotsink.New(cfg.Snapshots.Dir, fs, renderer, snapshotsink.WithTheme(snapshotsink.Theme{
			Background: config.ParseColor(theme.BackgroundColor),
			Text:       config.ParseColor(theme.TextColor),
			Accent:     config.ParseColor(theme.AccentColor),
		}))
	}

	if cmd.From > 0 {
		if _, err := ed.Scrub(cmd.From); err != nil {
			log.Warn("Cannot present %s: %v", cmd.From, err)
		}
	}

	if err := playLoop(ctx, ed, sink, cfg, log); err != nil {
		return err
	}

	if cmd.Summary != "" {
		w := summarizer.NewWriter(fs, summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		))
		if err := w.Write(cmd.Summary, ed.Summary()); err != nil {
			log.Error("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", cmd.Summary)
		}
	}
	return nil
}

// buildConfig loads the config file and applies flag overrides.
func (cmd *PlayCmd) buildConfig() (config.Config, error) {
	cfg := config.Defaults()
	if cmd.Config != "" {
		loaded, err := config.LoadFromFile(cmd.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if cmd.Snapshots != "" {
		cfg.Snapshots.Dir = cmd.Snapshots
	}
	if cmd.SnapshotEvery != nil {
		cfg.Snapshots.Every = *cmd.SnapshotEvery
	}
	if cmd.SeekTolerance != nil {
		cfg.Playback.SeekTolerance = *cmd.SeekTolerance
	}
	if cmd.TickRate != nil {
		cfg.Playback.TickRate = *cmd.TickRate
	}
	if cmd.NoAudio {
		cfg.Audio.Enabled = false
	}
	if cmd.LogLevel != "" {
		cfg.LogLevel = cmd.LogLevel
	}

	return cfg, cfg.Validate()
}

// buildTimeline loads the inputs back to back, then applies splits and deletes.
func (cmd *PlayCmd) buildTimeline(ed *editor.Editor) error {
	if len(cmd.Files) == 0 {
		return ed.LoadProject(cmd.Project)
	}

	for _, path := range cmd.Files {
		end := ed.End()
		c, err := ed.Load(path)
		if err != nil {
			return err
		}
		if end > 0 {
			if _, err := ed.Move(c.ID, end); err != nil {
				return err
			}
		}
	}

	for _, at := range cmd.Split {
		c, ok := ed.ClipAt(at)
		if !ok {
			return fmt.Errorf("%w: no clip at %s", timeline.ErrSplitRejected, at)
		}
		if _, err := ed.Split(c.ID, c.SourceTime(at)); err != nil {
			return err
		}
	}
	for _, id := range cmd.Delete {
		if err := ed.Delete(timeline.ClipID(id)); err != nil {
			return err
		}
	}

	if cmd.Project != "" {
		return ed.SaveProject(cmd.Project)
	}
	return nil
}

// playLoop ticks the editor at the configured rate until the timeline ends or
// ctx is cancelled.
func playLoop(ctx context.Context, ed *editor.Editor, sink ports.FrameSink, cfg config.Config, log ports.Logger) error {
	if err := ed.Play(); err != nil {
		log.Warn("Playback started without a frame: %v", err)
	}

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	presented := 0
	snapshots := 0
	for {
		select {
		case <-ctx.Done():
			ed.Pause()
			return nil
		case <-ticker.C:
		}

		res, err := ed.Tick()
		if err != nil && !errors.Is(err, scheduler.ErrDecodeStall) {
			log.Debug("Tick at %s: %v", res.Position, err)
		}

		switch res.Status {
		case scheduler.StatusEnded:
			return nil
		case scheduler.StatusPresented:
			presented++
			if !sink.Enabled() || (presented-1)%cfg.Snapshots.Every != 0 || res.Frame == nil {
				continue
			}
			label := fmt.Sprintf("%s  #%d  %s", formatTimecode(res.Position), res.Clip, formatTimecode(res.SourceTime))
			if err := sink.SaveFrame(snapshots, res.Frame, label); err != nil {
				log.Warn("Cannot save snapshot: %v", err)
				continue
			}
			snapshots++
		}
	}
}

// Run executes the snapshot command.
func (cmd *SnapshotCmd) Run() error {
	log, err := cmd.newLogger("warn")
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	ed := editor.New(backend.New(log, false), fs, nil, editor.DefaultConfig(), log)
	defer ed.Close()

	if _, err := ed.Load(cmd.File); err != nil {
		return err
	}
	res, err := ed.Scrub(cmd.At)
	if err != nil {
		return err
	}
	if res.Frame == nil {
		return fmt.Errorf("no frame at %s", cmd.At)
	}

	img := framebuffer.ToImage(res.Frame)
	if cmd.Width > 0 {
		img = framebuffer.Fit(res.Frame, cmd.Width, res.Frame.Height)
	}
	format := ports.FormatPNG
	switch strings.ToLower(filepath.Ext(cmd.Output)) {
	case ".jpg", ".jpeg":
		format = ports.FormatJPEG
	}
	data, err := ggrenderer.New().EncodeImage(img, format, cmd.Quality)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(cmd.Output, data); err != nil {
		return fmt.Errorf("write %s: %w", cmd.Output, err)
	}
	log.Info("Output saved to %s", cmd.Output)
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("splicer version %s (%s backend)", version, backend.Name()))
	return nil
}

func formatTimecode(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
