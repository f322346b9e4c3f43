package framebuffer

import (
	"os"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/fbanim/bannerd/internal/codec"
	"github.com/fbanim/bannerd/internal/logging"
)

const (
	ioctlGetVScreenInfo = 0x4600
	ioctlPutVScreenInfo = 0x4601
	ioctlGetFScreenInfo = 0x4602

	activateNow = 0
)

// bitfield mirrors struct fb_bitfield.
type bitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

// varScreenInfo mirrors struct fb_var_screeninfo.
type varScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp bitfield
	NonStd                   uint32
	Activate                 uint32
	HeightMM, WidthMM        uint32
	AccelFlags               uint32
	PixClock                 uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HSyncLen, VSyncLen       uint32
	Sync                     uint32
	VMode                    uint32
	Rotate                   uint32
	Colorspace               uint32
	Reserved                 [4]uint32
}

// fixScreenInfo mirrors struct fb_fix_screeninfo.
type fixScreenInfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

// Device is an open fbdev node switched to 32-bit ARGB and mapped into
// memory. The embedded Surface writes straight to video memory.
type Device struct {
	*Surface
	file  *os.File
	saved varScreenInfo

	// mu keeps Close from unmapping under a running Blit.
	mu sync.Mutex
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) screenInfo() (*varScreenInfo, *fixScreenInfo, error) {
	var v varScreenInfo
	var f fixScreenInfo
	fd := d.file.Fd()
	if err := ioctl(fd, ioctlGetVScreenInfo, unsafe.Pointer(&v)); err != nil {
		return nil, nil, errors.Wrap(err, "FBIOGET_VSCREENINFO")
	}
	if err := ioctl(fd, ioctlGetFScreenInfo, unsafe.Pointer(&f)); err != nil {
		return nil, nil, errors.Wrap(err, "FBIOGET_FSCREENINFO")
	}
	return &v, &f, nil
}

// Open opens the framebuffer at path, remembers its current mode, switches
// it to ARGB32, maps it and clears it to opaque black.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open framebuffer %s", path)
	}
	d := &Device{file: file}

	v, f, err := d.screenInfo()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "unable to get screen information")
	}
	logging.Debug("Frame buffer screen size %dx%d, line %d bytes, %d bpp, offsets r %d g %d b %d a %d",
		v.XRes, v.YRes, f.LineLength, v.BitsPerPixel,
		v.Red.Offset, v.Green.Offset, v.Blue.Offset, v.Transp.Offset)
	d.saved = *v

	v.BitsPerPixel = 32
	v.Transp = bitfield{Offset: 24, Length: 8}
	v.Red = bitfield{Offset: 16, Length: 8}
	v.Green = bitfield{Offset: 8, Length: 8}
	v.Blue = bitfield{Offset: 0, Length: 8}
	v.Activate = activateNow
	if err := ioctl(file.Fd(), ioctlPutVScreenInfo, unsafe.Pointer(v)); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "unable to set screen information")
	}

	v, f, err = d.screenInfo()
	if err != nil {
		d.restore()
		file.Close()
		return nil, errors.Wrap(err, "unable to get screen information")
	}

	size := int(f.LineLength) * int(v.YRes)
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		d.restore()
		file.Close()
		return nil, errors.Wrap(err, "unable to map the framebuffer into memory")
	}

	d.Surface = &Surface{
		Width:  int(v.XRes),
		Height: int(v.YRes),
		Stride: int(f.LineLength),
		Pix:    mem,
	}
	d.Fill(Background)

	logging.Debug("Frame buffer open: screen size %dx%d, line %d bytes, %d bpp, %s mapped",
		d.Width, d.Height, d.Stride, v.BitsPerPixel, humanize.Bytes(uint64(size)))
	return d, nil
}

// Blit is Surface.Blit that fails with ErrClosed once the device is closed.
func (d *Device) Blit(x, y int, f *codec.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Pix == nil {
		return ErrClosed
	}
	return d.Surface.Blit(x, y, f)
}

func (d *Device) restore() error {
	return ioctl(d.file.Fd(), ioctlPutVScreenInfo, unsafe.Pointer(&d.saved))
}

// Close unmaps the framebuffer and, when restore is set, puts back the mode
// that was active before Open.
func (d *Device) Close(restore bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result error
	if d.Surface != nil && d.Pix != nil {
		if err := unix.Munmap(d.Pix); err != nil {
			result = errors.Wrap(err, "munmap framebuffer")
		}
		d.Pix = nil
	}

	if restore {
		err := d.restore()
		logging.Debug("Restore of the previous screen mode returned %v", err)
		if err != nil && result == nil {
			result = errors.Wrap(err, "unable to restore screen information")
		}
	}

	if err := d.file.Close(); err != nil && result == nil {
		result = errors.Wrap(err, "close framebuffer")
	}
	return result
}
