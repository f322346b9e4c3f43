// Package codec decodes BMP files into canonical 32-bit ARGB frames.
//
// Supported are the BITMAPCOREHEADER with 16bpp 4.4.4.4 pixels and the
// BITMAPINFOHEADER family, uncompressed or with explicit channel masks, at
// 16, 24 and 32 bits per pixel. Everything else is rejected.
package codec

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/fbanim/bannerd/internal/logging"
)

// Info describes a bitmap without its pixels.
type Info struct {
	Width    int
	Height   int
	TopDown  bool
	Format   PixelFormat
	Core     bool
	Offset   int
	DataSize int
}

// DecodeFile reads and decodes the bitmap at path.
func DecodeFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, ioError("stat", path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, ioError("read", path, err)
	}

	frame, info, err := decode(data, st.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Debug("Parsed bitmap %s: %dx%d %s, %s of pixel data in file, %s canonical",
		path, frame.Width, frame.Height, info.Format, humanize.Bytes(uint64(info.DataSize)),
		humanize.Bytes(uint64(frame.Size())))

	return frame, nil
}

// Decode decodes a complete bitmap file held in memory.
func Decode(data []byte) (*Frame, error) {
	frame, _, err := decode(data, int64(len(data)))
	return frame, err
}

// DecodeInfo validates the headers of a bitmap file held in memory and
// returns what Decode would produce, without converting pixels.
func DecodeInfo(data []byte) (*Info, error) {
	_, info, err := parseHeaders(data, int64(len(data)))
	return info, err
}

func decode(data []byte, fileSize int64) (*Frame, *Info, error) {
	payload, info, err := parseHeaders(data, fileSize)
	if err != nil {
		return nil, nil, err
	}

	frame, err := convert(payload, info)
	if err != nil {
		return nil, nil, err
	}
	return frame, info, nil
}

// parseHeaders checks both headers against each other and against the file,
// selects the converter and returns the pixel payload.
func parseHeaders(data []byte, fileSize int64) ([]byte, *Info, error) {
	fh, err := readFileHeader(data)
	if err != nil {
		return nil, nil, err
	}

	if fh.Magic != [2]byte{'B', 'M'} ||
		int64(fh.FileSize) != fileSize ||
		fileSize <= int64(fh.Offset) ||
		int64(len(data)) != fileSize {
		return nil, nil, fmt.Errorf("%w: magic %q, size %d (actual %d), data offset %d",
			ErrBadHeader, fh.Magic[:], fh.FileSize, fileSize, fh.Offset)
	}

	dh, err := readDIBHeader(data)
	if err != nil {
		return nil, nil, err
	}

	info := &Info{Offset: int(fh.Offset)}
	available := fileSize - int64(fh.Offset)

	if dh.isCore() {
		if dh.core.BPP != 16 {
			return nil, nil, fmt.Errorf("%w: core header with %d bits per pixel", ErrUnsupportedFormat, dh.core.BPP)
		}
		info.Core = true
		info.Width = int(dh.core.Width)
		info.Height = int(dh.core.Height)
		info.Format = ARGB4444
		info.DataSize = int(available)
		if info.Width == 0 || info.Height == 0 {
			return nil, nil, fmt.Errorf("%w: empty %dx%d image", ErrUnsupportedFormat, info.Width, info.Height)
		}
		if int64(info.Format.RowBytes(info.Width))*int64(info.Height) > available {
			return nil, nil, fmt.Errorf("%w: %d bytes of pixel data for %dx%d", ErrTruncated, available, info.Width, info.Height)
		}
		return data[fh.Offset:], info, nil
	}

	ih := dh.info
	width, height := int64(ih.Width), int64(ih.Height)
	if height < 0 {
		height = -height
		info.TopDown = true
	}
	if width < 0 {
		width = -width
	}
	minSize := (width*height*int64(ih.BPP) + 7) / 8

	if ih.Planes != 1 ||
		(ih.Compression != biRGB && ih.Compression != biBitfields) ||
		ih.Colors != 0 ||
		int64(ih.ImageSize) > available ||
		int64(ih.ImageSize) < minSize {
		return nil, nil, fmt.Errorf("%w: planes %d, compression %d, %d colors, %d bytes of pixel data (%d required, %d in file)",
			ErrUnsupportedFormat, ih.Planes, ih.Compression, ih.Colors, ih.ImageSize, minSize, available)
	}
	if width == 0 || height == 0 {
		return nil, nil, fmt.Errorf("%w: empty %dx%d image", ErrUnsupportedFormat, width, height)
	}

	if dh.masks != nil {
		info.Format, err = formatForMasks(int(ih.BPP), *dh.masks)
	} else {
		info.Format, err = formatForDepth(int(ih.BPP))
	}
	if err != nil {
		return nil, nil, err
	}
	logging.Debug("Selected %s converter for %dbpp bitmap", info.Format, ih.BPP)

	info.Width = int(width)
	info.Height = int(height)
	info.DataSize = int(ih.ImageSize)
	start := int(fh.Offset)
	return data[start : start+info.DataSize], info, nil
}

// convert streams payload row by row through the selected converter into a
// new canonical frame, flipping bottom-up bitmaps on the way.
func convert(payload []byte, info *Info) (*Frame, error) {
	frame := NewFrame(info.Width, info.Height)
	src := newCursor(payload)
	rowBytes := info.Format.RowBytes(info.Width)

	for i := 0; i < info.Height; i++ {
		y := info.Height - 1 - i
		if info.TopDown {
			y = i
		}

		row, err := src.take(rowBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d needs %d bytes, %d of %d left",
				ErrTruncated, i, rowBytes, src.remaining(), len(payload))
		}
		info.Format.convertRow(frame.Row(y), row, info.Width)
	}
	return frame, nil
}
