//go:build !darwin && nolibav

package backend

import (
	"fmt"

	"github.com/user/splicer/pkg/ports"
)

// Name reports the linked backend.
func Name() string { return "none" }

// New returns an opener that always fails with ErrPlatformNotSupported
// wrapped in ports.ErrOpenFailed.
func New(log ports.Logger, audio bool) ports.Opener {
	return ports.OpenerFunc(func(path string) (ports.DecoderBackend, error) {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrOpenFailed, path, ErrPlatformNotSupported)
	})
}
