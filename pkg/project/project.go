// Package project reads and writes the edited clip list as YAML. The file is
// the hand-off to export tools: sources, trims and placements, nothing decoded.
package project

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/splicer/pkg/ports"
	"github.com/user/splicer/pkg/timeline"
)

// Version is the document format written by Encode.
const Version = 1

// ErrInvalidProject is wrapped by every decoding failure.
var ErrInvalidProject = errors.New("invalid project")

// Document is the on-disk project.
type Document struct {
	Version int     `yaml:"version"`
	Clips   []Entry `yaml:"clips"`
}

// Entry is one clip. Durations are written as Go duration strings ("1m2.5s").
type Entry struct {
	ID       uint64        `yaml:"id"`
	Source   string        `yaml:"source"`
	Start    time.Duration `yaml:"start"`
	End      time.Duration `yaml:"end"`
	Position time.Duration `yaml:"position"`
}

// FromClips converts timeline clips into a document.
func FromClips(clips []timeline.Clip) Document {
	doc := Document{Version: Version, Clips: make([]Entry, 0, len(clips))}
	for _, c := range clips {
		doc.Clips = append(doc.Clips, Entry{
			ID:       uint64(c.ID),
			Source:   c.Media.Path,
			Start:    c.Start,
			End:      c.End,
			Position: c.Position,
		})
	}
	return doc
}

// Encode serializes clips in timeline order.
func Encode(clips []timeline.Clip) ([]byte, error) {
	data, err := yaml.Marshal(FromClips(clips))
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	return data, nil
}

// Decode parses and validates a project document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks the version and every entry.
func (d Document) Validate() error {
	if d.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidProject, d.Version)
	}
	seen := make(map[uint64]bool, len(d.Clips))
	for i, e := range d.Clips {
		switch {
		case e.ID == 0:
			return fmt.Errorf("%w: clip #%d has no id", ErrInvalidProject, i)
		case seen[e.ID]:
			return fmt.Errorf("%w: duplicate clip id %d", ErrInvalidProject, e.ID)
		case e.Source == "":
			return fmt.Errorf("%w: clip %d has no source", ErrInvalidProject, e.ID)
		case e.Start < 0 || e.Start >= e.End:
			return fmt.Errorf("%w: clip %d span [%s, %s)", ErrInvalidProject, e.ID, e.Start, e.End)
		case e.Position < 0:
			return fmt.Errorf("%w: clip %d position %s", ErrInvalidProject, e.ID, e.Position)
		}
		seen[e.ID] = true
	}
	return nil
}

// Save writes clips to path.
func Save(fs ports.FileSystem, path string, clips []timeline.Clip) error {
	data, err := Encode(clips)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write project %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the project at path.
func Load(fs ports.FileSystem, path string) (Document, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read project %s: %w", path, err)
	}
	return Decode(data)
}
