package codec

import (
	"fmt"
	"math/bits"
)

// PixelFormat identifies one of the source pixel encodings the decoder can
// convert to the canonical ARGB buffer.
type PixelFormat uint8

const (
	ARGB4444 PixelFormat = iota
	RGB4444
	RGB565
	ARGB1555
	XRGB1555
	RGB888
	ARGB8888
	RGBA8888
	RGBX8888

	numFormats
)

// ChannelMasks holds the bit masks of the red, green, blue and alpha channels
// inside one little-endian source pixel word.
type ChannelMasks struct {
	Red, Green, Blue, Alpha uint32
}

type formatInfo struct {
	name  string
	bpp   int
	masks ChannelMasks
	// implicit is the bpp this format is assumed for when the bitmap carries
	// no masks (BI_RGB), or 0.
	implicit int
}

var formats = [numFormats]formatInfo{
	ARGB4444: {"ARGB4444", 16, ChannelMasks{0x0F00, 0x00F0, 0x000F, 0xF000}, 0},
	RGB4444:  {"RGB4444", 16, ChannelMasks{0x0F00, 0x00F0, 0x000F, 0x0000}, 0},
	RGB565:   {"RGB565", 16, ChannelMasks{0xF800, 0x07E0, 0x001F, 0x0000}, 0},
	ARGB1555: {"ARGB1555", 16, ChannelMasks{0x7C00, 0x03E0, 0x001F, 0x8000}, 0},
	XRGB1555: {"XRGB1555", 16, ChannelMasks{0x7C00, 0x03E0, 0x001F, 0x0000}, 16},
	RGB888:   {"RGB888", 24, ChannelMasks{0xFF0000, 0x00FF00, 0x0000FF, 0x000000}, 24},
	ARGB8888: {"ARGB8888", 32, ChannelMasks{0x00FF0000, 0x0000FF00, 0x000000FF, 0xFF000000}, 32},
	RGBA8888: {"RGBA8888", 32, ChannelMasks{0xFF000000, 0x00FF0000, 0x0000FF00, 0x000000FF}, 0},
	RGBX8888: {"RGBX8888", 32, ChannelMasks{0xFF000000, 0x00FF0000, 0x0000FF00, 0x00000000}, 0},
}

// Formats lists every supported pixel format.
func Formats() []PixelFormat {
	all := make([]PixelFormat, 0, numFormats)
	for f := PixelFormat(0); f < numFormats; f++ {
		all = append(all, f)
	}
	return all
}

func (f PixelFormat) String() string {
	if f >= numFormats {
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
	return formats[f].name
}

// BitsPerPixel returns the size of one source pixel in bits.
func (f PixelFormat) BitsPerPixel() int { return formats[f].bpp }

// Masks returns the channel layout of the format.
func (f PixelFormat) Masks() ChannelMasks { return formats[f].masks }

// RowBytes returns the size of one stored row of width pixels, including the
// padding up to the next 4 byte boundary.
func (f PixelFormat) RowBytes(width int) int {
	return (width*formats[f].bpp + 31) / 32 * 4
}

// Convert translates one source pixel word into canonical 0xAARRGGBB.
func (f PixelFormat) Convert(w uint32) uint32 {
	m := formats[f].masks
	return alphaChannel(w, m.Alpha)<<24 |
		scaleChannel(w, m.Red)<<16 |
		scaleChannel(w, m.Green)<<8 |
		scaleChannel(w, m.Blue)
}

// scaleChannel extracts the channel under mask and rescales its k bit value
// to 8 bits as value*256/2^k.
func scaleChannel(w, mask uint32) uint32 {
	if mask == 0 {
		return 0
	}
	v := (w & mask) >> bits.TrailingZeros32(mask)
	k := bits.OnesCount32(mask)
	if k >= 8 {
		return v >> (k - 8)
	}
	return (v << 8) >> k
}

// alphaChannel is scaleChannel for alpha: no alpha bits means opaque, and a
// single alpha bit is either fully transparent or fully opaque.
func alphaChannel(w, mask uint32) uint32 {
	switch bits.OnesCount32(mask) {
	case 0:
		return 0xFF
	case 1:
		if w&mask != 0 {
			return 0xFF
		}
		return 0
	}
	return scaleChannel(w, mask)
}

// formatForDepth picks the converter for an uncompressed (maskless) bitmap.
func formatForDepth(bpp int) (PixelFormat, error) {
	for f, info := range formats {
		if info.implicit != 0 && info.implicit == bpp {
			return PixelFormat(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %d bits per pixel without masks", ErrNoMatchingFormat, bpp)
}

// formatForMasks picks the converter whose masks equal m exactly.
func formatForMasks(bpp int, m ChannelMasks) (PixelFormat, error) {
	for f, info := range formats {
		if info.masks == m && info.bpp == bpp {
			return PixelFormat(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %dbpp masks r=%08X g=%08X b=%08X a=%08X",
		ErrNoMatchingFormat, bpp, m.Red, m.Green, m.Blue, m.Alpha)
}

// convertRow converts one stored row into dst (width*4 bytes of canonical
// pixels). src must hold at least width*bpp/8 bytes.
func (f PixelFormat) convertRow(dst, src []byte, width int) {
	switch formats[f].bpp {
	case 16:
		for x := 0; x < width; x++ {
			w := uint32(src[2*x]) | uint32(src[2*x+1])<<8
			putARGB(dst[4*x:], f.Convert(w))
		}
	case 24:
		for x := 0; x < width; x++ {
			w := uint32(src[3*x]) | uint32(src[3*x+1])<<8 | uint32(src[3*x+2])<<16
			putARGB(dst[4*x:], f.Convert(w))
		}
	case 32:
		if f == ARGB8888 {
			copy(dst[:4*width], src[:4*width])
			return
		}
		for x := 0; x < width; x++ {
			w := uint32(src[4*x]) | uint32(src[4*x+1])<<8 | uint32(src[4*x+2])<<16 | uint32(src[4*x+3])<<24
			putARGB(dst[4*x:], f.Convert(w))
		}
	}
}

func putARGB(b []byte, c uint32) {
	b[0] = byte(c)
	b[1] = byte(c >> 8)
	b[2] = byte(c >> 16)
	b[3] = byte(c >> 24)
}
