//go:build !nolibav

package backend

import (
	"github.com/user/splicer/pkg/adapters/libavdecoder"
	"github.com/user/splicer/pkg/ports"
)

// Name reports the linked backend.
func Name() string { return "libav" }

// New returns the linked backend's opener.
func New(log ports.Logger, audio bool) ports.Opener {
	return libavdecoder.New(log, libavdecoder.WithAudio(audio))
}
