// Package animation plays a fixed sequence of decoded frames onto a
// compositor, either free running or under external control.
package animation

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fbanim/bannerd/internal/codec"
	"github.com/fbanim/bannerd/internal/logging"
)

// Hold is the interval of an animation that shows its frame and then waits
// for good. Single-frame animations use it.
const Hold time.Duration = -1

// DefaultInterval is the frame interval at 24 frames per second.
const DefaultInterval = 1000 / 24 * time.Millisecond

// ErrNoFrames is returned when an animation would have no frames.
var ErrNoFrames = errors.New("animation: no frames")

// Animation is a non-empty, immutable frame sequence with a playback
// position, placed around Center on the target surface.
type Animation struct {
	Frames   []*codec.Frame
	Center   image.Point
	Interval time.Duration

	index int
}

// New builds an animation positioned at its first frame.
func New(frames []*codec.Frame, center image.Point, interval time.Duration) (*Animation, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return &Animation{Frames: frames, Center: center, Interval: interval}, nil
}

// Load decodes every file in paths, in order. The first file that fails to
// decode aborts the load. A single file yields a Hold animation regardless of
// interval.
func Load(paths []string, center image.Point, interval time.Duration) (*Animation, error) {
	if len(paths) == 0 {
		return nil, ErrNoFrames
	}

	frames := make([]*codec.Frame, 0, len(paths))
	var total uint64
	for _, path := range paths {
		f, err := codec.DecodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("load frame %d of %d: %w", len(frames)+1, len(paths), err)
		}
		frames = append(frames, f)
		total += uint64(f.Size())
	}

	if len(frames) == 1 {
		interval = Hold
	}
	logging.Info("Loaded %d frames (%s) centered at %v, interval %v",
		len(frames), humanize.Bytes(total), center, interval)

	return New(frames, center, interval)
}

// FrameCount returns the number of frames in one cycle.
func (a *Animation) FrameCount() int { return len(a.Frames) }

// Index returns the frame that will be shown next.
func (a *Animation) Index() int { return a.index }

// Current returns the frame at Index.
func (a *Animation) Current() *codec.Frame { return a.Frames[a.index] }

// Advance moves the index by delta frames, wrapping in both directions.
func (a *Animation) Advance(delta int) {
	n := len(a.Frames)
	a.index = ((a.index+delta)%n + n) % n
}
