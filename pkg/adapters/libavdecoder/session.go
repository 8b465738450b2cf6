//go:build !nolibav

package libavdecoder

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/user/splicer/pkg/audio"
	"github.com/user/splicer/pkg/ports"
)

// session is one demux/decode/scale pipeline over a single file.
type session struct {
	path string
	log  ports.Logger
	info ports.MediaInfo

	fc       *astiav.FormatContext
	stream   *astiav.Stream
	codec    *astiav.Codec
	cc       *astiav.CodecContext
	pkt      *astiav.Packet
	decoded  *astiav.Frame
	rgba     *astiav.Frame
	ssc      *astiav.SoftwareScaleContext
	sscKey   scaleKey
	draining bool
	lastPTS  time.Duration

	audio *audio.Controller
}

type scaleKey struct {
	w, h int
	pf   astiav.PixelFormat
}

func openSession(path string, log ports.Logger) (s *session, err error) {
	s = &session{path: path, log: log}
	defer func() {
		if err != nil {
			s.free()
			s = nil
		}
	}()

	if s.fc = astiav.AllocFormatContext(); s.fc == nil {
		return nil, fmt.Errorf("%w: %s: cannot allocate format context", ports.ErrOpenFailed, path)
	}
	if err := s.fc.OpenInput(path, nil, nil); err != nil {
		s.fc.Free()
		s.fc = nil
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrOpenFailed, path, err)
	}
	if err := s.fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("%w: %s: find stream info: %v", ports.ErrOpenFailed, path, err)
	}

	bestArea := -1
	for _, st := range s.fc.Streams() {
		cp := st.CodecParameters()
		switch cp.MediaType() {
		case astiav.MediaTypeVideo:
			codec := astiav.FindDecoder(cp.CodecID())
			if codec == nil {
				continue
			}
			if area := cp.Width() * cp.Height(); area > bestArea {
				bestArea = area
				s.stream = st
				s.codec = codec
			}
		case astiav.MediaTypeAudio:
			if astiav.FindDecoder(cp.CodecID()) != nil {
				s.info.HasAudio = true
			}
		}
	}
	if s.stream == nil {
		return nil, fmt.Errorf("%w: %s: no decodable video stream", ports.ErrOpenFailed, path)
	}

	if err := s.openCodec(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrOpenFailed, path, err)
	}

	s.pkt = astiav.AllocPacket()
	s.decoded = astiav.AllocFrame()
	s.rgba = astiav.AllocFrame()

	cp := s.stream.CodecParameters()
	s.info.Width = cp.Width()
	s.info.Height = cp.Height()
	s.info.FPS = frameRate(s.stream.AvgFrameRate().Float64(), s.stream.RFrameRate().Float64())
	s.info.Duration = s.probeDuration()

	log.Debug("Opened %s: %dx%d %.3f fps %s audio=%v", path, s.info.Width, s.info.Height, s.info.FPS, s.info.Duration, s.info.HasAudio)
	return s, nil
}

// probeDuration prefers the stream's own duration and falls back to the container's.
func (s *session) probeDuration() time.Duration {
	if d := s.stream.Duration(); d > 0 {
		return s.toDuration(d)
	}
	if d := s.fc.Duration(); d > 0 {
		return time.Duration(d) * time.Microsecond
	}
	return 0
}

func (s *session) openCodec() error {
	cc := astiav.AllocCodecContext(s.codec)
	if cc == nil {
		return errors.New("cannot allocate codec context")
	}
	if err := s.stream.CodecParameters().ToCodecContext(cc); err != nil {
		cc.Free()
		return fmt.Errorf("codec parameters: %w", err)
	}
	if err := cc.Open(s.codec, nil); err != nil {
		cc.Free()
		return fmt.Errorf("open codec: %w", err)
	}
	s.cc = cc
	return nil
}

func (s *session) toDuration(ts int64) time.Duration {
	tb := s.stream.TimeBase()
	if tb.Den() == 0 {
		return 0
	}
	return time.Duration(ts * int64(tb.Num()) * int64(time.Second) / int64(tb.Den()))
}

// toTimestamp maps a start-relative time back to an absolute stream timestamp.
func (s *session) toTimestamp(d time.Duration) int64 {
	tb := s.stream.TimeBase()
	return streamTimestamp(d, tb.Num(), tb.Den(), s.startTime())
}

func streamTimestamp(d time.Duration, num, den int, start int64) int64 {
	if num == 0 {
		return start
	}
	return start + int64(d)*int64(den)/(int64(num)*int64(time.Second))
}

// frameRate picks the average rate, then the real base rate. Rates of 0/0
// come back as NaN and are reported as unknown.
func frameRate(avg, base float64) float64 {
	for _, r := range []float64{avg, base} {
		if r > 0 && !math.IsInf(r, 0) {
			return r
		}
	}
	return 0
}

func (s *session) Info() ports.MediaInfo {
	return s.info
}

// Seek jumps to the keyframe at or before to. The codec context is rebuilt so
// no reference frames from before the jump survive.
func (s *session) Seek(to time.Duration) error {
	if to < 0 {
		to = 0
	}
	ts := s.toTimestamp(to)
	if err := s.fc.SeekFrame(s.stream.Index(), ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("%w: %s to %s: %v", ports.ErrSeekFailed, s.path, to, err)
	}
	s.cc.Free()
	s.cc = nil
	if err := s.openCodec(); err != nil {
		return fmt.Errorf("%w: %s: %v", ports.ErrSeekFailed, s.path, err)
	}
	s.draining = false
	s.lastPTS = 0
	return nil
}

// ReadNextFrame feeds packets until the decoder yields a picture. Packet-level
// send and receive errors are skipped.
func (s *session) ReadNextFrame() (*ports.Frame, error) {
	for {
		err := s.cc.ReceiveFrame(s.decoded)
		switch {
		case err == nil:
			f, cerr := s.convert()
			s.decoded.Unref()
			if cerr != nil {
				s.log.Debug("Dropping frame from %s: %v", s.path, cerr)
				continue
			}
			return f, nil
		case errors.Is(err, astiav.ErrEof):
			return nil, io.EOF
		case errors.Is(err, astiav.ErrEagain):
		default:
			s.log.Debug("Receive error in %s: %v", s.path, err)
		}

		if s.draining {
			return nil, io.EOF
		}

		if err := s.fc.ReadFrame(s.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				s.draining = true
				if err := s.cc.SendPacket(nil); err != nil {
					s.log.Debug("Flush error in %s: %v", s.path, err)
				}
				continue
			}
			return nil, fmt.Errorf("read packet from %s: %w", s.path, err)
		}
		if s.pkt.StreamIndex() == s.stream.Index() {
			if err := s.cc.SendPacket(s.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
				s.log.Debug("Send error in %s: %v", s.path, err)
			}
		}
		s.pkt.Unref()
	}
}

// convert scales the decoded picture to packed RGBA at its own size.
func (s *session) convert() (*ports.Frame, error) {
	key := scaleKey{w: s.decoded.Width(), h: s.decoded.Height(), pf: s.decoded.PixelFormat()}
	if s.ssc == nil || key != s.sscKey {
		if s.ssc != nil {
			s.ssc.Free()
			s.ssc = nil
		}
		ssc, err := astiav.CreateSoftwareScaleContext(
			key.w, key.h, key.pf,
			key.w, key.h, astiav.PixelFormatRgba,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
		)
		if err != nil {
			return nil, fmt.Errorf("create scale context: %w", err)
		}
		s.ssc = ssc
		s.sscKey = key
		s.rgba.Unref()
		s.rgba.SetWidth(key.w)
		s.rgba.SetHeight(key.h)
		s.rgba.SetPixelFormat(astiav.PixelFormatRgba)
		if err := s.rgba.AllocBuffer(1); err != nil {
			return nil, fmt.Errorf("alloc rgba frame: %w", err)
		}
	}

	if err := s.ssc.ScaleFrame(s.decoded, s.rgba); err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	pix, err := s.rgba.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("copy pixels: %w", err)
	}

	ts := s.lastPTS
	if pts := s.decoded.Pts(); pts != astiav.NoPtsValue {
		ts = s.toDuration(pts - s.startTime())
	}
	s.lastPTS = ts

	return &ports.Frame{Pix: pix, Width: key.w, Height: key.h, Timestamp: ts}, nil
}

// startTime is the stream's first timestamp; timestamps are reported relative to it.
func (s *session) startTime() int64 {
	if st := s.stream.StartTime(); st != astiav.NoPtsValue && st > 0 {
		return st
	}
	return 0
}

func (s *session) AudioPlay()           { s.audio.Play() }
func (s *session) AudioPause()          { s.audio.Pause() }
func (s *session) AudioStop()           { s.audio.Stop() }
func (s *session) AudioIsPlaying() bool { return s.audio.IsPlaying() }

func (s *session) Close() error {
	var err error
	if s.audio != nil {
		err = s.audio.Close()
	}
	s.free()
	return err
}

func (s *session) free() {
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
	if s.rgba != nil {
		s.rgba.Free()
		s.rgba = nil
	}
	if s.decoded != nil {
		s.decoded.Free()
		s.decoded = nil
	}
	if s.pkt != nil {
		s.pkt.Free()
		s.pkt = nil
	}
	if s.cc != nil {
		s.cc.Free()
		s.cc = nil
	}
	if s.fc != nil {
		s.fc.CloseInput()
		s.fc.Free()
		s.fc = nil
	}
}

var _ ports.DecoderBackend = (*session)(nil)
