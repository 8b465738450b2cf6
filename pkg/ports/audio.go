package ports

// AudioSink is an audio output device bound to one PCM stream.
type AudioSink interface {
	// Play starts or resumes output.
	Play()
	// Pause suspends output, keeping the stream position.
	Pause()
	// Stop halts output and rewinds the stream to its beginning.
	Stop()
	// IsPlaying reports whether the device is actually producing sound.
	IsPlaying() bool
	// Close releases the device.
	Close() error
}
