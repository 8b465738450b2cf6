package ports

// FrameSink receives presented frames for offline inspection.
type FrameSink interface {
	// Enabled returns true if frames should be saved at all.
	Enabled() bool

	// SaveFrame stores one frame. The label is drawn onto the saved image.
	SaveFrame(index int, frame *Frame, label string) error
}
