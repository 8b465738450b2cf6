// Package media keeps the registry of opened sources shared by timeline clips.
package media

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/user/splicer/pkg/ports"
)

// Handle identifies one opened source. Its properties never change after probing.
type Handle struct {
	ID   uuid.UUID
	Path string
	Info ports.MediaInfo

	lib  *Library
	refs int // guarded by lib.mu
}

// Refs returns the number of clips currently referencing the handle.
func (h *Handle) Refs() int {
	if h.lib == nil {
		return h.refs
	}
	h.lib.mu.Lock()
	defer h.lib.mu.Unlock()
	return h.refs
}

// Retain records one more clip referencing the handle.
func (h *Handle) Retain() {
	if h.lib == nil {
		h.refs++
		return
	}
	h.lib.mu.Lock()
	defer h.lib.mu.Unlock()
	h.refs++
}

// Release drops one clip reference. The library forgets the handle when the
// last reference goes away; a later Open of the same path probes it again.
func (h *Handle) Release() {
	if h.lib == nil {
		if h.refs > 0 {
			h.refs--
		}
		return
	}
	h.lib.release(h)
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s (%dx%d, %.3f fps, %s)", h.Path, h.Info.Width, h.Info.Height, h.Info.FPS, h.Info.Duration)
}

// NewHandle creates a detached handle that no library tracks. Used by tests and
// by callers that probe sources themselves.
func NewHandle(path string, info ports.MediaInfo) *Handle {
	return &Handle{ID: uuid.New(), Path: path, Info: info}
}

// Library opens sources through an Opener and deduplicates them by absolute path.
type Library struct {
	opener ports.Opener
	fs     ports.FileSystem
	log    ports.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewLibrary creates a library. fs may be nil, in which case paths are used verbatim.
func NewLibrary(opener ports.Opener, fs ports.FileSystem, log ports.Logger) *Library {
	return &Library{
		opener:  opener,
		fs:      fs,
		log:     log.WithComponent("media"),
		handles: make(map[string]*Handle),
	}
}

// Open returns the handle for path, probing the source the first time it is seen.
// The probe session is closed again; playback opens its own sessions.
// The returned handle has no references until a clip retains it.
func (l *Library) Open(path string) (*Handle, error) {
	key := path
	if l.fs != nil {
		abs, err := l.fs.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ports.ErrOpenFailed, path, err)
		}
		key = abs
	}

	l.mu.Lock()
	if h, ok := l.handles[key]; ok {
		l.mu.Unlock()
		return h, nil
	}
	l.mu.Unlock()

	backend, err := l.opener.Open(key)
	if err != nil {
		return nil, err
	}
	info := backend.Info()
	if err := backend.Close(); err != nil {
		l.log.Debug("Closing probe session for %s: %v", key, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.handles[key]; ok {
		return h, nil
	}
	h := &Handle{ID: uuid.New(), Path: key, Info: info, lib: l}
	l.handles[key] = h
	l.log.Debug("Registered source %s", h)
	return h, nil
}

// Lookup returns the registered handle for an already opened path.
func (l *Library) Lookup(path string) (*Handle, bool) {
	key := path
	if l.fs != nil {
		if abs, err := l.fs.Abs(path); err == nil {
			key = abs
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[key]
	return h, ok
}

// Len returns the number of registered sources.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

func (l *Library) release(h *Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h.refs > 0 {
		h.refs--
	}
	if h.refs == 0 {
		if cur, ok := l.handles[h.Path]; ok && cur == h {
			delete(l.handles, h.Path)
			l.log.Debug("Released source %s", h.Path)
		}
	}
}
