//go:build !linux

package framebuffer

import (
	"github.com/pkg/errors"

	"github.com/fbanim/bannerd/internal/codec"
)

// Device is only available on Linux.
type Device struct {
	*Surface
}

// Open always fails outside Linux.
func Open(path string) (*Device, error) {
	return nil, errors.Errorf("framebuffer %s: fbdev is only supported on linux", path)
}

// Blit always fails outside Linux.
func (d *Device) Blit(x, y int, f *codec.Frame) error { return ErrClosed }

// Close is a no-op outside Linux.
func (d *Device) Close(restore bool) error { return nil }
