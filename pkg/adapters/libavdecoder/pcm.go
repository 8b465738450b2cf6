//go:build !nolibav

package libavdecoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"

	"github.com/user/splicer/pkg/adapters/otosink"
	"github.com/user/splicer/pkg/ports"
)

// pcmReader decodes the first audio stream of a file into interleaved
// float32 stereo at the output device rate. It owns its own demuxer so the
// video session's position is never disturbed.
type pcmReader struct {
	path string
	log  ports.Logger

	fc      *astiav.FormatContext
	stream  *astiav.Stream
	cc      *astiav.CodecContext
	pkt     *astiav.Packet
	decoded *astiav.Frame
	out     *astiav.Frame
	swr     *astiav.SoftwareResampleContext

	pending  []byte
	draining bool
	done     bool
}

func openPCM(path string, log ports.Logger) (r *pcmReader, err error) {
	r = &pcmReader{path: path, log: log}
	defer func() {
		if err != nil {
			r.Close()
			r = nil
		}
	}()

	if r.fc = astiav.AllocFormatContext(); r.fc == nil {
		return nil, errors.New("cannot allocate format context")
	}
	if err := r.fc.OpenInput(path, nil, nil); err != nil {
		r.fc.Free()
		r.fc = nil
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := r.fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	var codec *astiav.Codec
	for _, st := range r.fc.Streams() {
		if st.CodecParameters().MediaType() != astiav.MediaTypeAudio {
			continue
		}
		if codec = astiav.FindDecoder(st.CodecParameters().CodecID()); codec != nil {
			r.stream = st
			break
		}
	}
	if r.stream == nil {
		return nil, errors.New("no decodable audio stream")
	}

	if r.cc = astiav.AllocCodecContext(codec); r.cc == nil {
		return nil, errors.New("cannot allocate codec context")
	}
	if err := r.stream.CodecParameters().ToCodecContext(r.cc); err != nil {
		return nil, fmt.Errorf("codec parameters: %w", err)
	}
	if err := r.cc.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("open codec: %w", err)
	}

	r.pkt = astiav.AllocPacket()
	r.decoded = astiav.AllocFrame()
	r.out = astiav.AllocFrame()
	if r.swr = astiav.AllocSoftwareResampleContext(); r.swr == nil {
		return nil, errors.New("cannot allocate resample context")
	}
	return r, nil
}

// Read fills p with PCM bytes, decoding more audio as needed.
func (r *pcmReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// fill decodes one audio frame into pending, or marks the stream done.
func (r *pcmReader) fill() error {
	for {
		err := r.cc.ReceiveFrame(r.decoded)
		switch {
		case err == nil:
			buf, cerr := r.resample(r.decoded)
			r.decoded.Unref()
			if cerr != nil {
				r.log.Debug("Dropping audio frame from %s: %v", r.path, cerr)
				continue
			}
			r.pending = buf
			return nil
		case errors.Is(err, astiav.ErrEof):
			r.finish()
			return nil
		case errors.Is(err, astiav.ErrEagain):
		default:
			r.log.Debug("Audio receive error in %s: %v", r.path, err)
		}

		if r.draining {
			r.finish()
			return nil
		}

		if err := r.fc.ReadFrame(r.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				r.draining = true
				if err := r.cc.SendPacket(nil); err != nil {
					r.log.Debug("Audio flush error in %s: %v", r.path, err)
				}
				continue
			}
			return fmt.Errorf("read audio packet: %w", err)
		}
		if r.pkt.StreamIndex() == r.stream.Index() {
			if err := r.cc.SendPacket(r.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
				r.log.Debug("Audio send error in %s: %v", r.path, err)
			}
		}
		r.pkt.Unref()
	}
}

// finish drains the samples the resampler still buffers and marks the stream done.
func (r *pcmReader) finish() {
	r.done = true
	buf, err := r.resample(nil)
	if err != nil {
		r.log.Debug("Audio resampler flush error in %s: %v", r.path, err)
		return
	}
	r.pending = append(r.pending, buf...)
}

// resample converts in to the output format. A nil in flushes the delay line.
func (r *pcmReader) resample(in *astiav.Frame) ([]byte, error) {
	r.out.Unref()
	r.out.SetChannelLayout(astiav.ChannelLayoutStereo)
	r.out.SetSampleFormat(astiav.SampleFormatFlt)
	r.out.SetSampleRate(otosink.SampleRate)
	if err := r.swr.ConvertFrame(in, r.out); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	if r.out.NbSamples() == 0 {
		return nil, nil
	}
	size, err := r.out.SamplesBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("buffer size: %w", err)
	}
	buf := make([]byte, size)
	if _, err := r.out.SamplesCopyToBuffer(buf, 1); err != nil {
		return nil, fmt.Errorf("copy samples: %w", err)
	}
	return buf, nil
}

func (r *pcmReader) Close() error {
	if r.swr != nil {
		r.swr.Free()
		r.swr = nil
	}
	if r.out != nil {
		r.out.Free()
		r.out = nil
	}
	if r.decoded != nil {
		r.decoded.Free()
		r.decoded = nil
	}
	if r.pkt != nil {
		r.pkt.Free()
		r.pkt = nil
	}
	if r.cc != nil {
		r.cc.Free()
		r.cc = nil
	}
	if r.fc != nil {
		r.fc.CloseInput()
		r.fc.Free()
		r.fc = nil
	}
	return nil
}

var _ io.ReadCloser = (*pcmReader)(nil)
