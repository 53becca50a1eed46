package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadStore materializes uploads as files a decoder can open
type UploadStore interface {
	// Save copies r into a new file ending in ext and returns its path and size
	Save(ctx context.Context, r io.Reader, ext string) (string, int64, error)
	// Remove deletes a saved file. Removing a missing file is not an error.
	Remove(path string) error
}

// TempFileStore writes uploads into a single directory under random names
type TempFileStore struct {
	dir string
}

// NewTempFileStore creates dir if needed. An empty dir means os.TempDir().
func NewTempFileStore(dir string) (*TempFileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &TempFileStore{dir: dir}, nil
}

// Dir returns the directory uploads are written to
func (s *TempFileStore) Dir() string {
	return s.dir
}

func (s *TempFileStore) Save(ctx context.Context, r io.Reader, ext string) (string, int64, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.dir, "upload-"+uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, n, nil
}

func (s *TempFileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ctxReader stops a copy once the context is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
