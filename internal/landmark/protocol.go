package landmark

import (
	"encoding/binary"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"go-proctor-inspector/internal/video"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// frameHeaderSize is width and height as big-endian uint32
const frameHeaderSize = 8

// ErrNotRGB is returned when a frame has not been converted for the model
var ErrNotRGB = errors.New("landmark: frame must be rgb24")

// encodeFrame lays out a frame as [width][height][rgb24 pixels]
func encodeFrame(frame video.Frame) ([]byte, error) {
	if frame.Format != video.PixelFormatRGB24 {
		return nil, ErrNotRGB
	}
	if want := frame.Width * frame.Height * 3; len(frame.Pix) != want {
		return nil, fmt.Errorf("landmark: frame %d has %d bytes, want %d", frame.Index, len(frame.Pix), want)
	}

	buf := make([]byte, frameHeaderSize+len(frame.Pix))
	binary.BigEndian.PutUint32(buf[0:4], uint32(frame.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(frame.Height))
	copy(buf[frameHeaderSize:], frame.Pix)
	return buf, nil
}

// detectionReply is the model's answer for one frame
type detectionReply struct {
	Faces [][][]float64 `json:"faces"`
	Error string        `json:"error,omitempty"`
}

func decodeReply(data []byte) ([]FaceLandmarks, error) {
	var reply detectionReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("landmark: invalid reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("landmark: model error: %s", reply.Error)
	}

	faces := make([]FaceLandmarks, 0, len(reply.Faces))
	for i, raw := range reply.Faces {
		if len(raw) < MinPoints {
			return nil, fmt.Errorf("landmark: face %d has %d points, want at least %d", i, len(raw), MinPoints)
		}
		face := make(FaceLandmarks, len(raw))
		for j, p := range raw {
			if len(p) < 2 {
				return nil, fmt.Errorf("landmark: face %d point %d has %d coordinates", i, j, len(p))
			}
			face[j] = Point{X: p[0], Y: p[1]}
			if len(p) > 2 {
				face[j].Z = p[2]
			}
		}
		faces = append(faces, face)
	}
	return faces, nil
}
