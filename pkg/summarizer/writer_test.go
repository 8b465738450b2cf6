package summarizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/user/splicer/pkg/mocks"
)

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(fs, FormatFunc(func(s *Summary) string { return "backend=" + s.Backend }))

	if err := w.Write("/out/run/summary.md", &Summary{Backend: "libav"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ok := fs.GetFile("/out/run/summary.md")
	if !ok {
		t.Fatal("summary file not written")
	}
	if string(data) != "backend=libav" {
		t.Errorf("unexpected content %q", data)
	}
	if ok, _ := fs.Exists("/out/run"); !ok {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return errors.New("disk full") }
	w := NewWriter(fs, NewMarkdownFormatter())

	err := w.Write("summary.md", NewSummary())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}
