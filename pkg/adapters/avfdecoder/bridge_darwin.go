//go:build darwin && nolibav

package avfdecoder

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AVFoundation -framework CoreMedia -framework CoreVideo -framework Foundation

#import <AVFoundation/AVFoundation.h>
#import <CoreMedia/CoreMedia.h>
#import <CoreVideo/CoreVideo.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    AVURLAsset *asset;
    AVAssetTrack *track;
    AVAssetReader *reader;
    AVAssetReaderTrackOutput *output;

    int width;
    int height;
    double fps;
    double duration;
    int hasAudio;
} AVFReader;

typedef struct {
    unsigned char *data;
    int width;
    int height;
    int stride;
    double pts;
} AVFFrame;

static AVFReader* avfOpen(const char *path) {
    @autoreleasepool {
        NSURL *url = [NSURL fileURLWithPath:[NSString stringWithUTF8String:path]];
        AVURLAsset *asset = [[AVURLAsset alloc] initWithURL:url options:@{AVURLAssetPreferPreciseDurationAndTimingKey: @YES}];
        if (asset == nil) return NULL;

        NSArray<AVAssetTrack *> *tracks = [asset tracksWithMediaType:AVMediaTypeVideo];
        if ([tracks count] == 0) {
            [asset release];
            return NULL;
        }

        AVFReader *r = (AVFReader*)calloc(1, sizeof(AVFReader));
        r->asset = asset;
        r->track = [[tracks objectAtIndex:0] retain];

        CGSize size = [r->track naturalSize];
        r->width = (int)size.width;
        r->height = (int)size.height;
        r->fps = [r->track nominalFrameRate];
        r->duration = CMTimeGetSeconds([asset duration]);
        r->hasAudio = [[asset tracksWithMediaType:AVMediaTypeAudio] count] > 0 ? 1 : 0;
        return r;
    }
}

static void avfCancel(AVFReader *r) {
    if (r->reader) {
        [r->reader cancelReading];
        [r->reader release];
        r->reader = nil;
    }
    if (r->output) {
        [r->output release];
        r->output = nil;
    }
}

// avfStart rebuilds the reader so that decoding begins at the given time.
static int avfStart(AVFReader *r, double start) {
    @autoreleasepool {
        avfCancel(r);

        NSError *err = nil;
        AVAssetReader *reader = [[AVAssetReader alloc] initWithAsset:r->asset error:&err];
        if (reader == nil) return -1;

        NSDictionary *settings = @{
            (id)kCVPixelBufferPixelFormatTypeKey: @(kCVPixelFormatType_32BGRA)
        };
        AVAssetReaderTrackOutput *output = [[AVAssetReaderTrackOutput alloc] initWithTrack:r->track outputSettings:settings];
        output.alwaysCopiesSampleData = NO;
        if (![reader canAddOutput:output]) {
            [output release];
            [reader release];
            return -1;
        }
        [reader addOutput:output];

        CMTime from = CMTimeMakeWithSeconds(start, 600);
        reader.timeRange = CMTimeRangeMake(from, kCMTimePositiveInfinity);
        if (![reader startReading]) {
            [output release];
            [reader release];
            return -1;
        }
        r->reader = reader;
        r->output = output;
        return 0;
    }
}

// avfNext copies the next decoded picture. Returns 0 on success, 1 at end of
// stream and -1 on failure.
static int avfNext(AVFReader *r, AVFFrame *out) {
    @autoreleasepool {
        if (r->output == nil) return -1;
        for (;;) {
            CMSampleBufferRef sample = [r->output copyNextSampleBuffer];
            if (sample == NULL) {
                return [r->reader status] == AVAssetReaderStatusCompleted ? 1 : -1;
            }
            CVImageBufferRef image = CMSampleBufferGetImageBuffer(sample);
            if (image == NULL) {
                CFRelease(sample);
                continue;
            }

            CVPixelBufferLockBaseAddress(image, kCVPixelBufferLock_ReadOnly);
            size_t stride = CVPixelBufferGetBytesPerRow(image);
            size_t height = CVPixelBufferGetHeight(image);
            out->width = (int)CVPixelBufferGetWidth(image);
            out->height = (int)height;
            out->stride = (int)stride;
            out->data = (unsigned char*)malloc(stride * height);
            if (out->data != NULL) {
                memcpy(out->data, CVPixelBufferGetBaseAddress(image), stride * height);
            }
            out->pts = CMTimeGetSeconds(CMSampleBufferGetPresentationTimeStamp(sample));
            CVPixelBufferUnlockBaseAddress(image, kCVPixelBufferLock_ReadOnly);
            CFRelease(sample);
            return out->data != NULL ? 0 : -1;
        }
    }
}

static void avfClose(AVFReader *r) {
    if (!r) return;
    avfCancel(r);
    [r->track release];
    [r->asset release];
    free(r);
}

static void* avfPlayerCreate(const char *path) {
    @autoreleasepool {
        NSURL *url = [NSURL fileURLWithPath:[NSString stringWithUTF8String:path]];
        AVPlayer *player = [[AVPlayer alloc] initWithURL:url];
        return (void*)player;
    }
}

static void avfPlayerPlay(void *p)  { [(AVPlayer*)p play]; }
static void avfPlayerPause(void *p) { [(AVPlayer*)p pause]; }

static void avfPlayerStop(void *p) {
    AVPlayer *player = (AVPlayer*)p;
    [player pause];
    [player seekToTime:kCMTimeZero];
}

static int avfPlayerIsPlaying(void *p) {
    return [(AVPlayer*)p rate] != 0.0f ? 1 : 0;
}

static void avfPlayerRelease(void *p) {
    AVPlayer *player = (AVPlayer*)p;
    [player pause];
    [player release];
}
*/
import "C"

import (
	"errors"
	"time"
	"unsafe"
)

var errReader = errors.New("asset reader failed")

type reader struct {
	c *C.AVFReader
}

type readerInfo struct {
	width, height int
	fps           float64
	duration      time.Duration
	hasAudio      bool
}

func openReader(path string) (*reader, readerInfo, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	c := C.avfOpen(cpath)
	if c == nil {
		return nil, readerInfo{}, errors.New("no video track")
	}
	info := readerInfo{
		width:    int(c.width),
		height:   int(c.height),
		fps:      float64(c.fps),
		duration: seconds(float64(c.duration)),
		hasAudio: c.hasAudio != 0,
	}
	return &reader{c: c}, info, nil
}

func (r *reader) start(at time.Duration) error {
	if C.avfStart(r.c, C.double(at.Seconds())) != 0 {
		return errReader
	}
	return nil
}

// next returns the next picture as tightly packed BGRA rows with their stride.
// done reports end of stream.
func (r *reader) next() (pix []byte, w, h, stride int, pts time.Duration, done bool, err error) {
	var f C.AVFFrame
	switch C.avfNext(r.c, &f) {
	case 0:
	case 1:
		return nil, 0, 0, 0, 0, true, nil
	default:
		return nil, 0, 0, 0, 0, false, errReader
	}
	defer C.free(unsafe.Pointer(f.data))

	size := int(f.stride) * int(f.height)
	pix = C.GoBytes(unsafe.Pointer(f.data), C.int(size))
	return pix, int(f.width), int(f.height), int(f.stride), seconds(float64(f.pts)), false, nil
}

func (r *reader) close() {
	if r.c != nil {
		C.avfClose(r.c)
		r.c = nil
	}
}

type player struct {
	p unsafe.Pointer
}

func newPlayer(path string) *player {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	return &player{p: C.avfPlayerCreate(cpath)}
}

func (p *player) play()           { C.avfPlayerPlay(p.p) }
func (p *player) pause()          { C.avfPlayerPause(p.p) }
func (p *player) stop()           { C.avfPlayerStop(p.p) }
func (p *player) isPlaying() bool { return C.avfPlayerIsPlaying(p.p) != 0 }

func (p *player) release() {
	if p.p != nil {
		C.avfPlayerRelease(p.p)
		p.p = nil
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
