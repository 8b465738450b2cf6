// Package backend selects the decode backend linked into the binary.
//
// The default build uses libav on every platform. Building with the nolibav
// tag links AVFoundation on macOS and a stub elsewhere.
package backend

import "errors"

// ErrPlatformNotSupported is returned by Open when no backend is linked.
var ErrPlatformNotSupported = errors.New("backend: no decode backend for this platform")
