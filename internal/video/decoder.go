// Package video decodes recordings into raw frames for landmark detection.
package video

import (
	"context"
	"errors"
	"fmt"
)

// PixelFormat describes the channel ordering of Frame.Pix
type PixelFormat int

const (
	// PixelFormatBGR24 is packed 8-bit blue, green, red (OpenCV's native order)
	PixelFormatBGR24 PixelFormat = iota
	// PixelFormatRGB24 is packed 8-bit red, green, blue
	PixelFormatRGB24
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGR24:
		return "bgr24"
	case PixelFormatRGB24:
		return "rgb24"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

var (
	// ErrNotOpened is returned when a container cannot be opened for decoding
	ErrNotOpened = errors.New("video: failed to open video file")

	// ErrNoVideoStream is returned when a container has no decodable video stream
	ErrNoVideoStream = errors.New("video: no video stream")

	// ErrTruncatedFrame is returned when the decoder stops in the middle of a frame
	ErrTruncatedFrame = errors.New("video: truncated frame")

	// ErrUnsupported is returned when a decoder backend is not compiled in
	ErrUnsupported = errors.New("video: decoder not supported in this build")
)

// Frame is one decoded image, numbered from 1 in stream order
type Frame struct {
	Index  int
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte
}

// ToRGB returns the frame with RGB channel ordering, swapping in place if needed
func (f Frame) ToRGB() Frame {
	if f.Format == PixelFormatRGB24 {
		return f
	}
	for i := 0; i+2 < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+2] = f.Pix[i+2], f.Pix[i]
	}
	f.Format = PixelFormatRGB24
	return f
}

// Decoder opens recordings for sequential decoding
type Decoder interface {
	// Open prepares path for decoding. Failures here mean the video cannot be opened at all.
	Open(ctx context.Context, path string) (Stream, error)
}

// Stream yields frames in order.
// Next returns io.EOF once the stream ends normally; any other error means the decoder broke.
type Stream interface {
	Next() (Frame, error)
	Close() error
}
