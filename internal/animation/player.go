package animation

import (
	"context"
	"time"

	"github.com/fbanim/bannerd/internal/codec"
	"github.com/fbanim/bannerd/internal/framebuffer"
	"github.com/fbanim/bannerd/internal/logging"
)

// Forever is the frame count that makes Run play until stopped.
const Forever = -1

// Compositor places a frame on a display with its top-left corner at (x, y).
type Compositor interface {
	Blit(x, y int, f *codec.Frame) error
}

// Player drives an Animation onto a Compositor.
type Player struct {
	anim  *Animation
	out   Compositor
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPlayer returns a player for a on out.
func NewPlayer(a *Animation, out Compositor) *Player {
	return &Player{anim: a, out: out, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Animation returns the animation being played.
func (p *Player) Animation() *Animation { return p.anim }

// FrameCount returns the number of frames in one cycle.
func (p *Player) FrameCount() int { return p.anim.FrameCount() }

// Index returns the frame that will be shown next.
func (p *Player) Index() int { return p.anim.Index() }

// Run shows n frames, or keeps going until ctx is done when n is negative.
// After each frame the index advances and the player waits one interval.
// The first blit error stops the run with the index left on the failed frame.
func (p *Player) Run(ctx context.Context, n int) error {
	forever := n < 0
	logging.Debug("Running %d frames from frame %d", n, p.anim.Index())

	for forever || n > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		f := p.anim.Current()
		at := framebuffer.TopLeft(p.anim.Center, f)
		if err := p.out.Blit(at.X, at.Y, f); err != nil {
			return err
		}
		p.anim.Advance(1)
		if !forever {
			n--
		}

		if err := p.wait(ctx, forever); err != nil {
			return err
		}
	}
	return nil
}

// wait sleeps for the animation interval. A held animation blocks until ctx
// is done in an endless run and does not wait at all otherwise.
func (p *Player) wait(ctx context.Context, endless bool) error {
	switch d := p.anim.Interval; {
	case d == Hold:
		if !endless {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	case d > 0:
		return p.sleep(ctx, d)
	}
	return nil
}

// Skip moves the index by delta frames without showing anything.
func (p *Player) Skip(delta int) {
	p.anim.Advance(delta)
	logging.Debug("Skipped %d frames, next frame %d", delta, p.anim.Index())
}
