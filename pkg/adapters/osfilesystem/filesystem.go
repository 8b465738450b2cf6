// Package osfilesystem implements ports.FileSystem on the local disk.
package osfilesystem

import (
	"os"
	"path/filepath"

	"github.com/user/splicer/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes through a temporary sibling and renames it into place, so
// a project file is never left half written.
func (fs *FileSystem) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func (fs *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Abs resolves symlinks when the path exists so two spellings of one file compare equal.
func (fs *FileSystem) Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

var _ ports.FileSystem = (*FileSystem)(nil)
