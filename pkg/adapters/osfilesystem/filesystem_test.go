package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "project.yaml")

	if err := fs.WriteFile(path, []byte("version: 1\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "version: 1\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFileSystem_WriteFileReplacesAndLeavesNoTemp(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.yaml")

	for _, content := range []string{"first", "second"} {
		if err := fs.WriteFile(path, []byte(content)); err != nil {
			t.Fatalf("WriteFile(%q) failed: %v", content, err)
		}
	}

	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("expected replaced content, got %q", data)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	exists, err := fs.Exists(filepath.Join(dir, "missing"))
	if err != nil || exists {
		t.Errorf("missing file: exists=%v err=%v", exists, err)
	}
	if err := fs.MkdirAll(filepath.Join(dir, "a", "b")); err != nil {
		t.Fatal(err)
	}
	exists, err = fs.Exists(filepath.Join(dir, "a", "b"))
	if err != nil || !exists {
		t.Errorf("created dir: exists=%v err=%v", exists, err)
	}
}

func TestFileSystem_AbsResolvesSymlinks(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	target := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "alias.mp4")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	a, err := fs.Abs(target)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fs.Abs(link)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected same identity, got %q and %q", a, b)
	}
}
