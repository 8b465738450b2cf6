package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// Translator maps an English label to the display language.
type Translator func(key string) string

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	t       Translator
	version string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the label translator.
func WithTranslator(t Translator) MarkdownOption {
	return func(f *MarkdownFormatter) { f.t = t }
}

// WithVersion adds the splicer version to the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) { f.version = v }
}

// NewMarkdownFormatter creates a formatter. Labels are English unless a translator is set.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{t: func(key string) string { return key }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder
	t := f.t

	fmt.Fprintf(&b, "# %s\n\n", t("Playback Summary"))
	fmt.Fprintf(&b, "- %s: %s\n", t("Generated"), s.GeneratedAt.Format(time.RFC3339))
	backend := s.Backend
	if backend == "" {
		backend = t("N/A")
	}
	fmt.Fprintf(&b, "- %s: %s\n\n", t("Backend"), backend)

	fmt.Fprintf(&b, "## %s\n\n", t("Sources"))
	if len(s.Sources) == 0 {
		fmt.Fprintf(&b, "%s\n\n", t("N/A"))
	} else {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", t("Path"), t("Resolution"), t("Frame Rate"), t("Duration"), t("Audio"))
		b.WriteString("|---|---|---|---|---|\n")
		for _, src := range s.Sources {
			audio := t("No")
			if src.HasAudio {
				audio = t("Yes")
			}
			fmt.Fprintf(&b, "| %s | %dx%d | %.2f fps | %s | %s |\n",
				src.Path, src.Width, src.Height, src.FPS, formatDuration(src.Duration), audio)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## %s\n\n", t("Timeline"))
	fmt.Fprintf(&b, "- %s: %d\n", t("Clips"), len(s.Timeline.Clips))
	fmt.Fprintf(&b, "- %s: %s\n\n", t("End"), formatDuration(s.Timeline.End))
	if len(s.Timeline.Clips) > 0 {
		fmt.Fprintf(&b, "| ID | %s | %s | %s | %s |\n", t("Source"), t("Start"), t("End"), t("Position"))
		b.WriteString("|---|---|---|---|---|\n")
		for _, c := range s.Timeline.Clips {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				c.ID, c.Source, formatDuration(c.Start), formatDuration(c.End), formatDuration(c.Position))
		}
		b.WriteString("\n")
	}

	p := s.Playback
	fmt.Fprintf(&b, "## %s\n\n", t("Playback"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Metric"), t("Value"))
	rows := []struct {
		label string
		value string
	}{
		{"Wall Time", formatDuration(p.WallTime)},
		{"Final Position", formatDuration(p.FinalPosition)},
		{"Ticks", fmt.Sprint(p.Ticks)},
		{"Frames Presented", fmt.Sprint(p.Presented)},
		{"Frames Held", fmt.Sprint(p.Held)},
		{"Gap Ticks", fmt.Sprint(p.Gaps)},
		{"Seeks", fmt.Sprint(p.Seeks)},
		{"Skipped Frames", fmt.Sprint(p.SkippedFrames)},
		{"Stalls", fmt.Sprint(p.Stalls)},
		{"Decode Errors", fmt.Sprint(p.DecodeErrors)},
		{"Sessions Opened", fmt.Sprint(p.SessionsOpened)},
		{"Reopens", fmt.Sprint(p.Reopens)},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", t(r.label), r.value)
	}

	b.WriteString("\n---\n")
	if f.version != "" {
		fmt.Fprintf(&b, "%s %s\n", t("Generated by splicer"), f.version)
	} else {
		fmt.Fprintf(&b, "%s\n", t("Generated by splicer"))
	}
	return b.String()
}

// formatDuration prints h:mm:ss.mmm, dropping the hour when zero.
func formatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	ms := d.Milliseconds()
	h := ms / 3600000
	m := ms / 60000 % 60
	sec := ms / 1000 % 60
	frac := ms % 1000

	var out string
	if h > 0 {
		out = fmt.Sprintf("%d:%02d:%02d.%03d", h, m, sec, frac)
	} else {
		out = fmt.Sprintf("%02d:%02d.%03d", m, sec, frac)
	}
	if neg {
		return "-" + out
	}
	return out
}
