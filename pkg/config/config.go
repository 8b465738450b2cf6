// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/scheduler"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the full configuration for splicer.
type Config struct {
	Playback  PlaybackConfig  `yaml:"playback"`
	Preview   PreviewConfig   `yaml:"preview"`
	Audio     AudioConfig     `yaml:"audio"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	LogLevel  string          `yaml:"log_level"`
}

// PlaybackConfig tunes the scheduler and the headless play loop.
type PlaybackConfig struct {
	SeekTolerance time.Duration `yaml:"seek_tolerance"`
	MaxSkipFrames int           `yaml:"max_skip_frames"`
	// TickRate is how many times per second the play loop presents.
	TickRate float64 `yaml:"tick_rate"`
}

// PreviewConfig bounds the fitted preview image.
type PreviewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// AudioConfig controls audio output.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SnapshotsConfig controls frame snapshots written during playback.
type SnapshotsConfig struct {
	Dir string `yaml:"dir"`
	// Every writes one snapshot per this many presented frames.
	Every int         `yaml:"every"`
	Theme ThemeConfig `yaml:"theme"`
}

// ThemeConfig colors the snapshot label bar.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	AccentColor     string `yaml:"accent_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	sched := scheduler.DefaultConfig()
	return Config{
		Playback: PlaybackConfig{
			SeekTolerance: sched.SeekTolerance,
			MaxSkipFrames: sched.MaxSkipFrames,
			TickRate:      60,
		},
		Preview: PreviewConfig{
			Width:  640,
			Height: 360,
		},
		Audio: AudioConfig{Enabled: true},
		Snapshots: SnapshotsConfig{
			Every: 30,
			Theme: ThemeConfig{
				BackgroundColor: "#1a1a2e",
				TextColor:       "#ffffff",
				AccentColor:     "#4ade80",
			},
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	switch {
	case c.Playback.SeekTolerance < 0:
		return fmt.Errorf("%w: playback.seek_tolerance must not be negative", ErrInvalidConfig)
	case c.Playback.MaxSkipFrames < 1:
		return fmt.Errorf("%w: playback.max_skip_frames must be at least 1", ErrInvalidConfig)
	case c.Playback.TickRate <= 0 || c.Playback.TickRate > 1000:
		return fmt.Errorf("%w: playback.tick_rate must be in (0, 1000]", ErrInvalidConfig)
	case c.Preview.Width < 1 || c.Preview.Height < 1:
		return fmt.Errorf("%w: preview size must be positive", ErrInvalidConfig)
	case c.Snapshots.Every < 1:
		return fmt.Errorf("%w: snapshots.every must be at least 1", ErrInvalidConfig)
	}
	if _, err := ports.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// TickInterval is the wall-clock period between presentations.
func (c Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Playback.TickRate)
}

// ToSchedulerConfig converts Config to scheduler.Config.
func (c Config) ToSchedulerConfig() scheduler.Config {
	return scheduler.Config{
		SeekTolerance: c.Playback.SeekTolerance,
		MaxSkipFrames: c.Playback.MaxSkipFrames,
	}
}

// ParseColor parses "#rrggbb" into an opaque color. Malformed input yields black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexValue(hex[i*2])
		lo, ok2 := hexValue(hex[i*2+1])
		if !ok1 || !ok2 {
			return color.Black
		}
		rgb[i] = hi<<4 | lo
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
