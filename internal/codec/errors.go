package codec

import (
	"errors"
	"fmt"
)

var (
	ErrIO                = errors.New("bmp: i/o error")
	ErrBadHeader         = errors.New("bmp: bad file header")
	ErrUnsupportedFormat = errors.New("bmp: unsupported format")
	ErrNoMatchingFormat  = errors.New("bmp: no converter matches pixel format")
	ErrTruncated         = errors.New("bmp: truncated pixel data")
)

// ioError tags an OS level failure so that both errors.Is(err, ErrIO) and
// errors.Is(err, fs.ErrNotExist) (or whatever the cause was) hold.
func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
