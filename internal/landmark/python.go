package landmark

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/process"
	"go-proctor-inspector/internal/video"
)

// maxReplySize bounds a single reply; 4 faces of 478 points fit in well under 1MB
const maxReplySize = 8 * 1024 * 1024

const (
	shutdownGrace = 5 * time.Second
	// exitWait is how long a failed exchange waits for the worker to exit so its
	// last stderr lines make it into the error
	exitWait = time.Second
)

// PythonFactory starts one FaceMesh worker process per analysis
type PythonFactory struct {
	PythonPath string
	ScriptPath string
	Options    Options
	Logger     *logrus.Logger
}

// NewDetector spawns the worker
func (f *PythonFactory) NewDetector(ctx context.Context) (Detector, error) {
	return NewPythonDetector(f.PythonPath, f.ScriptPath, f.Options, f.Logger)
}

// PythonDetector drives a MediaPipe worker process.
//
// Protocol: frames go to the worker's stdin as [uint32 length][frame]; replies come back on a
// dedicated pipe (FD 3 in the child) as [uint32 length][json]. Using FD 3 keeps stray prints
// from the model libraries out of the data channel.
type PythonDetector struct {
	stdin  io.WriteCloser
	data   io.ReadCloser
	stderr *process.TailBuffer
	wait   func() error
	kill   func() error
	grace  time.Duration
	logger *logrus.Logger

	reapOnce sync.Once
	exited   chan struct{}
	exitErr  error
}

// NewPythonDetector starts pythonPath -u scriptPath with the model options as flags
func NewPythonDetector(pythonPath, scriptPath string, opts Options, logger *logrus.Logger) (*PythonDetector, error) {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	cmd := exec.Command(pythonPath, "-u", scriptPath,
		"--min-detection-confidence", strconv.FormatFloat(opts.MinDetectionConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(opts.MinTrackingConfidence, 'f', -1, 64),
		"--max-faces", strconv.Itoa(opts.MaxFaces),
	)
	stderr := process.NewTailBuffer(0)
	cmd.Stderr = stderr
	cmd.WaitDelay = shutdownGrace

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("landmark worker failed to start: %w", err)
	}
	// Only the child holds the write end now
	w.Close()

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"script": scriptPath,
			"pid":    cmd.Process.Pid,
		}).Debug("landmark worker started")
	}

	return &PythonDetector{
		stdin:  stdin,
		data:   r,
		stderr: stderr,
		wait:   cmd.Wait,
		kill:   cmd.Process.Kill,
		grace:  shutdownGrace,
		logger: logger,
	}, nil
}

// Detect sends one RGB frame and waits for its landmarks
func (p *PythonDetector) Detect(ctx context.Context, frame video.Frame) ([]FaceLandmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}
	resp, err := p.communicate(payload)
	if err != nil {
		return nil, p.withWorkerLogs(err)
	}
	return decodeReply(resp)
}

func (p *PythonDetector) communicate(data []byte) ([]byte, error) {
	if err := binary.Write(p.stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if _, err := p.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(p.data, header); err != nil {
		// The worker died, usually an import error or a crashed model
		return nil, fmt.Errorf("read reply header: %w", err)
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxReplySize {
		return nil, fmt.Errorf("reply of %d bytes exceeds limit", respLen)
	}
	resp := make([]byte, respLen)
	if _, err := io.ReadFull(p.data, resp); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return resp, nil
}

// reaped starts the single Wait call and returns a channel closed once it returns
func (p *PythonDetector) reaped() <-chan struct{} {
	p.reapOnce.Do(func() {
		p.exited = make(chan struct{})
		go func() {
			if p.wait != nil {
				p.exitErr = p.wait()
			}
			close(p.exited)
		}()
	})
	return p.exited
}

// withWorkerLogs attaches the worker's last stderr lines. A failed exchange almost always
// means the worker is dying, so it briefly waits for the exit; Wait returns only after
// stderr has been fully copied.
func (p *PythonDetector) withWorkerLogs(err error) error {
	if p.stderr == nil {
		return err
	}
	select {
	case <-p.reaped():
	case <-time.After(exitWait):
	}
	if p.stderr.Len() == 0 {
		return err
	}
	return fmt.Errorf("%w; worker stderr: %s", err, p.stderr.String())
}

// Close asks the worker to exit by closing stdin, killing it after a grace period
func (p *PythonDetector) Close() error {
	p.stdin.Close()
	p.data.Close()

	grace := p.grace
	if grace <= 0 {
		grace = shutdownGrace
	}

	select {
	case <-p.reaped():
		if p.exitErr != nil && p.logger != nil {
			p.logger.WithError(p.exitErr).Debug("landmark worker exited with error")
		}
		return nil
	case <-time.After(grace):
		if p.kill != nil {
			_ = p.kill()
		}
		<-p.reaped()
		return fmt.Errorf("landmark worker did not exit within %s", grace)
	}
}
