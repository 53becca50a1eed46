//go:build !gocv

package video

// NewGoCVDecoder reports that OpenCV support was not compiled in.
// Build with -tags gocv to enable it.
func NewGoCVDecoder() (Decoder, error) {
	return nil, ErrUnsupported
}
