package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/process"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// waitDelay bounds how long Wait keeps draining ffmpeg's stderr after the process is gone
const waitDelay = 2 * time.Second

// ProbeInfo is the geometry of the first video stream as ffmpeg will emit it,
// i.e. with width and height already swapped for 90 and 270 degree rotations.
type ProbeInfo struct {
	Width  int
	Height int
	// Frames is the container's frame count, 0 when unknown
	Frames int
	// Rotation is the display rotation in degrees from the container metadata
	Rotation int
}

// FFmpegDecoder decodes through ffprobe/ffmpeg child processes.
// Frames are piped as raw bgr24 so no image codec is needed on the Go side.
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
	logger      *logrus.Logger
}

// NewFFmpegDecoder creates a decoder using the given binaries
func NewFFmpegDecoder(ffmpegPath, ffprobePath string, logger *logrus.Logger) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegDecoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

// Probe reads the first video stream's geometry and frame count
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames:stream_tags=rotate:stream_side_data=rotation",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbeOutput(out)
}

type ffprobeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		NbFrames string `json:"nb_frames"`
		Tags     struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
		SideDataList []struct {
			Rotation float64 `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (ProbeInfo, error) {
	var res ffprobeOutput
	if err := json.Unmarshal(data, &res); err != nil {
		return ProbeInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(res.Streams) == 0 {
		return ProbeInfo{}, ErrNoVideoStream
	}

	stream := res.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return ProbeInfo{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrNoVideoStream, stream.Width, stream.Height)
	}

	info := ProbeInfo{Width: stream.Width, Height: stream.Height}
	// webm containers usually report N/A here
	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		info.Frames = n
	}

	// Newer ffprobe reports the display matrix as side data, older builds as a rotate tag
	for _, sd := range stream.SideDataList {
		if sd.Rotation != 0 {
			info.Rotation = int(math.Round(sd.Rotation))
			break
		}
	}
	if info.Rotation == 0 {
		if r, err := strconv.Atoi(strings.TrimSpace(stream.Tags.Rotate)); err == nil {
			info.Rotation = r
		}
	}
	// ffmpeg autorotates, so quarter turns come out transposed
	if q := ((info.Rotation % 360) + 360) % 180; q == 90 {
		info.Width, info.Height = info.Height, info.Width
	}
	return info, nil
}

// Open probes path and starts an ffmpeg process streaming raw frames
func (d *FFmpegDecoder) Open(ctx context.Context, path string) (Stream, error) {
	info, err := d.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOpened, err)
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, ffmpegArgs(path)...)
	stderr := process.NewTailBuffer(0)
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrNotOpened, err)
	}

	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"path":     path,
			"width":    info.Width,
			"height":   info.Height,
			"frames":   info.Frames,
			"rotation": info.Rotation,
		}).Debug("ffmpeg decoder started")
	}

	return &ffmpegStream{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		reader: newFrameReader(stdout, info.Width, info.Height),
	}, nil
}

// ffmpegArgs decodes the first video stream to raw bgr24 on stdout.
// passthrough emits every decoded frame exactly once; the rawvideo muxer would otherwise
// default to constant frame rate and duplicate or drop frames of variable rate recordings.
func ffmpegArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-map", "0:v:0",
		"-an",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-",
	}
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *process.TailBuffer
	reader *frameReader

	waitOnce sync.Once
	waitErr  error
}

func (s *ffmpegStream) Next() (Frame, error) {
	frame, err := s.reader.next()
	if err == nil {
		return frame, nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		// End of pipe: the process exit status decides between a clean end and a broken decoder.
		if waitErr := s.wait(); waitErr != nil {
			return Frame{}, fmt.Errorf("ffmpeg: %w: %s", waitErr, s.stderr.String())
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: frame %d has %d of %d bytes",
				ErrTruncatedFrame, s.reader.index+1, s.reader.partial, s.reader.frameSize)
		}
		return Frame{}, io.EOF
	}
	return Frame{}, fmt.Errorf("read frame: %w", err)
}

func (s *ffmpegStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close stops ffmpeg if it is still running and reaps the process
func (s *ffmpegStream) Close() error {
	s.stdout.Close()
	if s.cmd.Process != nil {
		// Kill fails harmlessly once the process has exited
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}

// frameReader cuts fixed-size bgr24 frames out of a byte stream
type frameReader struct {
	r         io.Reader
	width     int
	height    int
	frameSize int
	index     int
	// partial is the byte count of the last incomplete read
	partial int
}

func newFrameReader(r io.Reader, width, height int) *frameReader {
	return &frameReader{
		r:         r,
		width:     width,
		height:    height,
		frameSize: width * height * 3,
	}
}

// next returns io.EOF at a clean frame boundary and io.ErrUnexpectedEOF on a truncated frame
func (fr *frameReader) next() (Frame, error) {
	buf := make([]byte, fr.frameSize)
	if n, err := io.ReadFull(fr.r, buf); err != nil {
		fr.partial = n
		return Frame{}, err
	}
	fr.index++
	return Frame{
		Index:  fr.index,
		Width:  fr.width,
		Height: fr.height,
		Format: PixelFormatBGR24,
		Pix:    buf,
	}, nil
}
