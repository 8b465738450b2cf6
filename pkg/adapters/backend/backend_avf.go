//go:build darwin && nolibav

package backend

import (
	"github.com/user/splicer/pkg/adapters/avfdecoder"
	"github.com/user/splicer/pkg/ports"
)

// Name reports the linked backend.
func Name() string { return "avfoundation" }

// New returns the linked backend's opener.
func New(log ports.Logger, audio bool) ports.Opener {
	return avfdecoder.New(log, avfdecoder.WithAudio(audio))
}
