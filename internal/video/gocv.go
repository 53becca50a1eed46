//go:build gocv

package video

import (
	"context"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// GoCVDecoder decodes through OpenCV's VideoCapture
type GoCVDecoder struct{}

// NewGoCVDecoder creates an OpenCV-backed decoder
func NewGoCVDecoder() (Decoder, error) {
	return &GoCVDecoder{}, nil
}

// Open opens path with OpenCV
func (d *GoCVDecoder) Open(ctx context.Context, path string) (Stream, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOpened, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, ErrNotOpened
	}
	return &gocvStream{capture: capture, mat: gocv.NewMat()}, nil
}

type gocvStream struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	index   int
}

// Next reads the next frame. VideoCapture reports a failed read and end of stream the
// same way, so both end the stream normally.
func (s *gocvStream) Next() (Frame, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return Frame{}, io.EOF
	}
	if s.mat.Type() != gocv.MatTypeCV8UC3 {
		return Frame{}, fmt.Errorf("unexpected mat type %v", s.mat.Type())
	}

	s.index++
	return Frame{
		Index:  s.index,
		Width:  s.mat.Cols(),
		Height: s.mat.Rows(),
		Format: PixelFormatBGR24,
		Pix:    s.mat.ToBytes(),
	}, nil
}

func (s *gocvStream) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
