// Package mp4index reads the sample tables of MP4/MOV files to find keyframes
// and identify the video codec without decoding anything.
package mp4index

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("no video track")

// Codec identifies the sample entry type of the video track.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecProRes  Codec = "prores"
	CodecUnknown Codec = "unknown"
)

// Index describes the video track of one file.
type Index struct {
	Codec       Codec
	Width       int
	Height      int
	Timescale   uint32
	Duration    time.Duration
	SampleCount int
	Fragmented  bool
	// Keyframes holds the decode time of every sync sample, ascending.
	Keyframes []time.Duration
}

// FPS returns the average sample rate of the track.
func (ix *Index) FPS() float64 {
	if ix.Duration <= 0 {
		return 0
	}
	return float64(ix.SampleCount) / ix.Duration.Seconds()
}

// KeyframeAtOrBefore returns the last keyframe not later than t. Targets before
// the first keyframe map to it.
func (ix *Index) KeyframeAtOrBefore(t time.Duration) time.Duration {
	if len(ix.Keyframes) == 0 {
		return 0
	}
	i := sort.Search(len(ix.Keyframes), func(i int) bool {
		return ix.Keyframes[i] > t
	})
	if i == 0 {
		return ix.Keyframes[0]
	}
	return ix.Keyframes[i-1]
}

// BuildFromFile indexes the file at path.
func BuildFromFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Build(f)
}

// Build indexes an MP4/MOV stream. Progressive files are parsed without loading
// media data; fragmented files are parsed fully because their sample flags live
// next to the data.
func Build(r io.ReadSeeker) (*Index, error) {
	file, err := mp4.DecodeFile(r, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	if file.IsFragmented() {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}
		file, err = mp4.DecodeFile(r)
		if err != nil {
			return nil, fmt.Errorf("decode fragmented mp4: %w", err)
		}
		return buildFragmented(file)
	}
	return buildProgressive(file)
}

func videoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	if moov == nil {
		return nil
	}
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// describeTrack fills the fields that come from the track header boxes.
func describeTrack(trak *mp4.TrakBox) *Index {
	ix := &Index{Codec: CodecUnknown, Timescale: 1000}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		ix.Timescale = trak.Mdia.Mdhd.Timescale
		ix.Duration = ticks(trak.Mdia.Mdhd.Duration, ix.Timescale)
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return ix
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		ix.Codec = codecOf(child.Type())
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			ix.Width = int(vse.Width)
			ix.Height = int(vse.Height)
		}
		if ix.Codec != CodecUnknown {
			break
		}
	}
	return ix
}

func codecOf(boxType string) Codec {
	switch boxType {
	case "avc1", "avc3":
		return CodecH264
	case "hvc1", "hev1":
		return CodecHEVC
	case "av01":
		return CodecAV1
	case "vp09":
		return CodecVP9
	case "apch", "apcn", "apcs", "apco", "ap4h":
		return CodecProRes
	default:
		return CodecUnknown
	}
}

func buildProgressive(file *mp4.File) (*Index, error) {
	trak := videoTrack(file.Moov)
	if trak == nil {
		return nil, ErrNoVideoTrack
	}
	ix := describeTrack(trak)
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("no sample table found")
	}
	keys, count, err := keyframesFromStbl(trak.Mdia.Minf.Stbl, ix.Timescale)
	if err != nil {
		return nil, err
	}
	ix.Keyframes = keys
	ix.SampleCount = count
	return ix, nil
}

// keyframesFromStbl lists sync sample decode times. Without an stss box every
// sample is a sync sample.
func keyframesFromStbl(stbl *mp4.StblBox, timescale uint32) ([]time.Duration, int, error) {
	if stbl.Stsz == nil {
		return nil, 0, fmt.Errorf("no stsz box found")
	}
	if stbl.Stts == nil {
		return nil, 0, fmt.Errorf("no stts box found")
	}
	count := int(stbl.Stsz.SampleNumber)

	var syncSamples []uint32
	if stbl.Stss != nil {
		syncSamples = stbl.Stss.SampleNumber
	} else {
		syncSamples = make([]uint32, count)
		for i := range syncSamples {
			syncSamples[i] = uint32(i + 1)
		}
	}

	keys := make([]time.Duration, 0, len(syncSamples))
	for _, nr := range syncSamples {
		if nr < 1 || int(nr) > count {
			continue
		}
		decodeTime, _ := stbl.Stts.GetDecodeTime(nr)
		keys = append(keys, ticks(decodeTime, timescale))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, count, nil
}

func buildFragmented(file *mp4.File) (*Index, error) {
	if file.Init == nil {
		return nil, fmt.Errorf("fragmented file without init segment")
	}
	trak := videoTrack(file.Init.Moov)
	if trak == nil {
		return nil, ErrNoVideoTrack
	}
	ix := describeTrack(trak)
	ix.Fragmented = true
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if file.Init.Moov.Mvex != nil {
		for _, t := range file.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var end uint64
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				if s.DecodeTime+uint64(s.Dur) > end {
					end = s.DecodeTime + uint64(s.Dur)
				}
				ix.SampleCount++
				if s.Flags == mp4.SyncSampleFlags || ix.SampleCount == 1 {
					ix.Keyframes = append(ix.Keyframes, ticks(s.DecodeTime, ix.Timescale))
				}
			}
		}
	}
	if ix.Duration == 0 {
		ix.Duration = ticks(end, ix.Timescale)
	}
	sort.Slice(ix.Keyframes, func(i, j int) bool { return ix.Keyframes[i] < ix.Keyframes[j] })
	return ix, nil
}

func ticks(v uint64, timescale uint32) time.Duration {
	if timescale == 0 {
		return 0
	}
	sec := v / uint64(timescale)
	rem := v % uint64(timescale)
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/uint64(timescale))
}
