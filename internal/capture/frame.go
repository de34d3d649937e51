package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"
)

// Frame is one encoded still image. A Frame is never modified after it has
// been stored; callers must treat Data as read-only.
type Frame struct {
	Data      []byte // JPEG
	Timestamp int64  // milliseconds since the Unix epoch
	Width     int    // nominal width requested for the session
	Height    int    // nominal height requested for the session
}

// FramePayload is the wire form of a frame handed to callers outside the
// capture package.
type FramePayload struct {
	SourceID    string `json:"source_id"`
	FrameBase64 string `json:"frame_base64"`
	Timestamp   int64  `json:"timestamp"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Payload converts f into a FramePayload for sourceID.
func (f Frame) Payload(sourceID string) FramePayload {
	return FramePayload{
		SourceID:    sourceID,
		FrameBase64: base64.StdEncoding.EncodeToString(f.Data),
		Timestamp:   f.Timestamp,
		Width:       f.Width,
		Height:      f.Height,
	}
}

// FrameBuffer holds the most recent frame of one source. It has a single
// writer (the session loop) and any number of readers.
type FrameBuffer struct {
	mu     sync.RWMutex
	latest *Frame
	count  uint64
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Store replaces the held frame and increments the frame counter.
func (b *FrameBuffer) Store(f Frame) {
	b.mu.Lock()
	b.latest = &f
	b.count++
	b.mu.Unlock()
}

// Latest returns the most recently stored frame, or false if nothing has
// been stored yet.
func (b *FrameBuffer) Latest() (Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return Frame{}, false
	}
	return *b.latest, true
}

// Count returns the number of frames stored so far.
func (b *FrameBuffer) Count() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// encodeFrame scales img down to fit inside width x height, keeping its
// aspect ratio, and encodes the result as JPEG. Images that already fit are
// encoded as-is.
func encodeFrame(img image.Image, width, height, quality int) ([]byte, error) {
	src := img.Bounds()
	if src.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	out := img
	if w, h := fitWithin(src.Dx(), src.Dy(), width, height); w != src.Dx() || h != src.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin returns the largest size with the aspect ratio of w x h that fits
// in maxW x maxH, never larger than w x h and never smaller than 1x1.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// Compare w/maxW against h/maxH without floating point.
	if w*maxH >= h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}
