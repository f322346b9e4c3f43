package codec

import (
	"image"
	"image/color"
)

// BytesPerPixel is the size of one canonical pixel.
const BytesPerPixel = 4

// Frame is a decoded image in canonical form: rows top to bottom, each pixel
// a little-endian 0xAARRGGBB word.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed canonical frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Stride returns the number of bytes in one row.
func (f *Frame) Stride() int { return f.Width * BytesPerPixel }

// Size returns the size of the pixel buffer in bytes.
func (f *Frame) Size() int { return len(f.Pix) }

// ARGB returns the canonical pixel at (x, y).
func (f *Frame) ARGB(x, y int) uint32 {
	i := y*f.Stride() + x*BytesPerPixel
	p := f.Pix[i : i+BytesPerPixel]
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}

// SetARGB stores a canonical pixel at (x, y).
func (f *Frame) SetARGB(x, y int, c uint32) {
	i := y*f.Stride() + x*BytesPerPixel
	putARGB(f.Pix[i:i+BytesPerPixel], c)
}

// Row returns the canonical bytes of row y.
func (f *Frame) Row(y int) []byte {
	s := f.Stride()
	return f.Pix[y*s : (y+1)*s]
}

func (f *Frame) ColorModel() color.Model { return color.NRGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return color.NRGBA{}
	}
	c := f.ARGB(x, y)
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(c >> 24)}
}
