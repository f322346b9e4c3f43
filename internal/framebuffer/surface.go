// Package framebuffer holds the display surface and the compositor that
// copies canonical frames onto it.
package framebuffer

import (
	"errors"
	"fmt"
	"image"

	"github.com/fbanim/bannerd/internal/codec"
	"github.com/fbanim/bannerd/internal/logging"
)

// ErrOffScreen is returned by Blit when the frame does not intersect the
// surface at all.
var ErrOffScreen = errors.New("framebuffer: frame entirely off screen")

// ErrClosed is returned by Blit on a closed device.
var ErrClosed = errors.New("framebuffer: device closed")

// Background is the canonical opaque black the surface is cleared to.
const Background uint32 = 0xFF000000

// Surface is a 32-bit ARGB pixel region. Rows are Stride bytes apart, which
// may be more than Width*4.
type Surface struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewMemory allocates an in-memory surface. A stride of 0 means packed rows.
func NewMemory(width, height, stride int) *Surface {
	if stride < width*codec.BytesPerPixel {
		stride = width * codec.BytesPerPixel
	}
	return &Surface{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Bounds returns the visible rectangle of the surface.
func (s *Surface) Bounds() image.Rectangle { return image.Rect(0, 0, s.Width, s.Height) }

// Center returns the middle of the surface.
func (s *Surface) Center() image.Point { return image.Pt(s.Width/2, s.Height/2) }

// Fill sets every pixel of every row, padding included, to c.
func (s *Surface) Fill(c uint32) {
	for i := 0; i+codec.BytesPerPixel <= len(s.Pix); i += codec.BytesPerPixel {
		s.Pix[i] = byte(c)
		s.Pix[i+1] = byte(c >> 8)
		s.Pix[i+2] = byte(c >> 16)
		s.Pix[i+3] = byte(c >> 24)
	}
}

// ARGB returns the pixel at (x, y).
func (s *Surface) ARGB(x, y int) uint32 {
	i := y*s.Stride + x*codec.BytesPerPixel
	p := s.Pix[i : i+codec.BytesPerPixel]
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}

// TopLeft converts a center point into the top-left placement of f.
func TopLeft(center image.Point, f *codec.Frame) image.Point {
	return image.Pt(center.X-f.Width/2, center.Y-f.Height/2)
}

// Blit copies f onto the surface with its top-left corner at (x, y),
// clipping whatever falls outside. Nothing is written when the frame misses
// the surface entirely.
func (s *Surface) Blit(x, y int, f *codec.Frame) error {
	w, h := f.Width, f.Height

	if x+w <= 0 || x >= s.Width || y+h <= 0 || y >= s.Height {
		logging.Error("Unable to write a bitmap outside the screen (%d, %d, %d, %d)", x, y, w, h)
		return fmt.Errorf("%w: %dx%d at (%d, %d) on %dx%d", ErrOffScreen, w, h, x, y, s.Width, s.Height)
	}

	srcX, srcY := 0, 0
	if x < 0 {
		srcX = -x
		w += x
		x = 0
	}
	if y < 0 {
		srcY = -y
		h += y
		y = 0
	}
	if x+w > s.Width {
		w = s.Width - x
	}
	if y+h > s.Height {
		h = s.Height - y
	}

	n := w * codec.BytesPerPixel
	src := srcY*f.Stride() + srcX*codec.BytesPerPixel
	dst := y*s.Stride + x*codec.BytesPerPixel
	for i := 0; i < h; i++ {
		copy(s.Pix[dst:dst+n], f.Pix[src:src+n])
		src += f.Stride()
		dst += s.Stride
	}
	return nil
}
