package codec

import (
	"bytes"

	"github.com/lunixbochs/struc"
)

const (
	fileHeaderSize  = 14
	coreHeaderSize  = 12
	infoHeaderSize  = 40
	infoV3Size      = 56
	maskBlockOffset = fileHeaderSize + infoHeaderSize
)

// Compression modes accepted in an info header.
const (
	biRGB       = 0
	biBitfields = 3
)

// fileHeader is the BITMAPFILEHEADER at offset 0.
type fileHeader struct {
	Magic    [2]byte `struc:"[2]byte"`
	FileSize uint32  `struc:"uint32,little"`
	Creator1 uint16  `struc:"uint16,little"`
	Creator2 uint16  `struc:"uint16,little"`
	Offset   uint32  `struc:"uint32,little"`
}

// coreHeader is the legacy 12 byte BITMAPCOREHEADER.
type coreHeader struct {
	Size   uint32 `struc:"uint32,little"`
	Width  uint16 `struc:"uint16,little"`
	Height uint16 `struc:"uint16,little"`
	Planes uint16 `struc:"uint16,little"`
	BPP    uint16 `struc:"uint16,little"`
}

// infoHeader is the common 40 byte prefix of every BITMAPINFOHEADER variant.
type infoHeader struct {
	Size        uint32 `struc:"uint32,little"`
	Width       int32  `struc:"int32,little"`
	Height      int32  `struc:"int32,little"`
	Planes      uint16 `struc:"uint16,little"`
	BPP         uint16 `struc:"uint16,little"`
	Compression uint32 `struc:"uint32,little"`
	ImageSize   uint32 `struc:"uint32,little"`
	XRes        int32  `struc:"int32,little"`
	YRes        int32  `struc:"int32,little"`
	Colors      uint32 `struc:"uint32,little"`
	Important   uint32 `struc:"uint32,little"`
}

// maskBlock follows the 40 byte info prefix, either inside a V2+ header or
// right after a plain info header when compression is BI_BITFIELDS.
type maskBlock struct {
	Red   uint32 `struc:"uint32,little"`
	Green uint32 `struc:"uint32,little"`
	Blue  uint32 `struc:"uint32,little"`
	Alpha uint32 `struc:"uint32,little"`
}

// dibHeader is the variant of the two supported header shapes.
type dibHeader struct {
	core  *coreHeader
	info  *infoHeader
	masks *ChannelMasks
}

func (h *dibHeader) isCore() bool { return h.core != nil }

// unpack decodes a fixed layout structure from data at off.
func unpack(data []byte, off, size int, v interface{}) error {
	if off < 0 || off+size > len(data) {
		return ErrBadHeader
	}
	return struc.Unpack(bytes.NewReader(data[off:off+size]), v)
}

func readFileHeader(data []byte) (*fileHeader, error) {
	var h fileHeader
	if err := unpack(data, 0, fileHeaderSize, &h); err != nil {
		return nil, ErrBadHeader
	}
	return &h, nil
}

func readDIBHeader(data []byte) (*dibHeader, error) {
	if len(data) < fileHeaderSize+4 {
		return nil, ErrBadHeader
	}
	size := uint32(data[14]) | uint32(data[15])<<8 | uint32(data[16])<<16 | uint32(data[17])<<24

	switch {
	case size == coreHeaderSize:
		var core coreHeader
		if err := unpack(data, fileHeaderSize, coreHeaderSize, &core); err != nil {
			return nil, ErrBadHeader
		}
		return &dibHeader{core: &core}, nil

	case size < infoHeaderSize:
		return nil, ErrUnsupportedFormat
	}

	var info infoHeader
	if err := unpack(data, fileHeaderSize, infoHeaderSize, &info); err != nil {
		return nil, ErrBadHeader
	}
	h := &dibHeader{info: &info}

	if info.Compression == biBitfields {
		// Three masks for 40 and 52 byte headers, four from V3 (56 bytes) on.
		n := 12
		if size >= infoV3Size {
			n = 16
		}
		if maskBlockOffset+n > len(data) {
			return nil, ErrBadHeader
		}
		// A missing alpha word reads as zero.
		var buf [16]byte
		copy(buf[:], data[maskBlockOffset:maskBlockOffset+n])
		var mb maskBlock
		if err := unpack(buf[:], 0, len(buf), &mb); err != nil {
			return nil, ErrBadHeader
		}
		h.masks = &ChannelMasks{Red: mb.Red, Green: mb.Green, Blue: mb.Blue, Alpha: mb.Alpha}
	}
	return h, nil
}
