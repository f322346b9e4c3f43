package animation

import (
	"context"
	"encoding/binary"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbanim/bannerd/internal/codec"
	"github.com/fbanim/bannerd/internal/framebuffer"
)

type blit struct {
	x, y  int
	frame *codec.Frame
}

type recorder struct {
	blits  []blit
	failAt int // 1-based blit number that fails, 0 never
}

var errBlit = errors.New("blit failed")

func (r *recorder) Blit(x, y int, f *codec.Frame) error {
	if r.failAt != 0 && len(r.blits)+1 == r.failAt {
		return errBlit
	}
	r.blits = append(r.blits, blit{x, y, f})
	return nil
}

func frames(n int) []*codec.Frame {
	out := make([]*codec.Frame, n)
	for i := range out {
		out[i] = codec.NewFrame(2+i, 2)
	}
	return out
}

func newTestPlayer(t *testing.T, n int, interval time.Duration) (*Player, *recorder, *[]time.Duration) {
	t.Helper()
	a, err := New(frames(n), image.Pt(10, 10), interval)
	require.NoError(t, err)

	rec := &recorder{}
	p := NewPlayer(a, rec)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return p, rec, &slept
}

func TestNew_Empty(t *testing.T) {
	_, err := New(nil, image.Point{}, DefaultInterval)
	require.ErrorIs(t, err, ErrNoFrames)
}

func TestRun_CountAndWrap(t *testing.T) {
	p, rec, slept := newTestPlayer(t, 3, 40*time.Millisecond)

	require.NoError(t, p.Run(context.Background(), 5))
	require.Len(t, rec.blits, 5)

	anim := p.Animation()
	for i, b := range rec.blits {
		assert.Same(t, anim.Frames[i%3], b.frame, "blit %d", i)
	}
	assert.Equal(t, 2, p.Index())
	assert.Len(t, *slept, 5)
	assert.Equal(t, 40*time.Millisecond, (*slept)[0])
}

func TestRun_Placement(t *testing.T) {
	p, rec, _ := newTestPlayer(t, 2, 0)

	require.NoError(t, p.Run(context.Background(), 2))
	// frames are 2x2 and 3x2 around (10, 10)
	assert.Equal(t, 9, rec.blits[0].x)
	assert.Equal(t, 9, rec.blits[0].y)
	assert.Equal(t, 9, rec.blits[1].x)
	assert.Equal(t, 9, rec.blits[1].y)
}

func TestRun_ZeroIntervalNeverSleeps(t *testing.T) {
	p, _, slept := newTestPlayer(t, 4, 0)

	require.NoError(t, p.Run(context.Background(), 7))
	assert.Empty(t, *slept)
	assert.Equal(t, 3, p.Index())
}

func TestRun_Zero(t *testing.T) {
	p, rec, _ := newTestPlayer(t, 4, 0)
	p.Skip(2)

	require.NoError(t, p.Run(context.Background(), 0))
	assert.Empty(t, rec.blits)
	assert.Equal(t, 2, p.Index())
}

func TestRun_BlitErrorKeepsIndex(t *testing.T) {
	p, rec, _ := newTestPlayer(t, 4, 0)
	rec.failAt = 3

	err := p.Run(context.Background(), 10)
	require.ErrorIs(t, err, errBlit)
	assert.Len(t, rec.blits, 2)
	assert.Equal(t, 2, p.Index())
}

func TestRun_ForeverStopsOnCancel(t *testing.T) {
	p, rec, _ := newTestPlayer(t, 3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if len(rec.blits) == 8 {
			cancel()
		}
		return ctx.Err()
	}

	err := p.Run(ctx, Forever)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.blits, 8)
	assert.Equal(t, 2, p.Index())
}

func TestRun_Hold(t *testing.T) {
	t.Run("finite run does not block", func(t *testing.T) {
		p, rec, slept := newTestPlayer(t, 1, Hold)
		require.NoError(t, p.Run(context.Background(), 3))
		assert.Len(t, rec.blits, 3)
		assert.Empty(t, *slept)
	})

	t.Run("endless run waits for cancel", func(t *testing.T) {
		p, rec, _ := newTestPlayer(t, 1, Hold)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := p.Run(ctx, Forever)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Len(t, rec.blits, 1)
	})
}

func TestSkip(t *testing.T) {
	tests := []struct {
		name  string
		start int
		delta int
		want  int
	}{
		{"forward", 0, 3, 3},
		{"wrap", 7, 6, 3},
		{"negative", 2, -3, 9},
		{"negative multiple cycles", 1, -23, 8},
		{"full cycle", 4, 10, 4},
		{"zero", 5, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec, _ := newTestPlayer(t, 10, 0)
			p.Skip(tt.start)
			p.Skip(tt.delta)
			assert.Equal(t, tt.want, p.Index())
			assert.Empty(t, rec.blits)
		})
	}
}

func TestPlayer_OnMemorySurface(t *testing.T) {
	f := codec.NewFrame(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			f.SetARGB(x, y, 0xFF00FF00)
		}
	}
	a, err := New([]*codec.Frame{f}, image.Pt(2, 2), 0)
	require.NoError(t, err)

	s := framebuffer.NewMemory(4, 4, 0)
	s.Fill(framebuffer.Background)
	require.NoError(t, NewPlayer(a, s).Run(context.Background(), 1))

	assert.Equal(t, framebuffer.Background, s.ARGB(0, 0))
	assert.Equal(t, uint32(0xFF00FF00), s.ARGB(1, 1))
	assert.Equal(t, uint32(0xFF00FF00), s.ARGB(2, 2))
	assert.Equal(t, framebuffer.Background, s.ARGB(3, 3))
}

// writeBMP stores a w x h 32bpp bitmap filled with c.
func writeBMP(t *testing.T, path string, w, h int, c uint32) {
	t.Helper()
	le := binary.LittleEndian
	size := w * h * 4
	buf := make([]byte, 54+size)
	copy(buf, "BM")
	le.PutUint32(buf[2:], uint32(len(buf)))
	le.PutUint32(buf[10:], 54)
	le.PutUint32(buf[14:], 40)
	le.PutUint32(buf[18:], uint32(w))
	le.PutUint32(buf[22:], uint32(h))
	le.PutUint16(buf[26:], 1)
	le.PutUint16(buf[28:], 32)
	le.PutUint32(buf[34:], uint32(size))
	for i := 54; i < len(buf); i += 4 {
		le.PutUint32(buf[i:], c)
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bmp")
	b := filepath.Join(dir, "b.bmp")
	writeBMP(t, a, 2, 2, 0xFF112233)
	writeBMP(t, b, 3, 1, 0x80445566)

	anim, err := Load([]string{a, b}, image.Pt(5, 5), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, anim.FrameCount())
	assert.Equal(t, 100*time.Millisecond, anim.Interval)
	assert.Equal(t, uint32(0x80445566), anim.Frames[1].ARGB(2, 0))

	single, err := Load([]string{a}, image.Pt(5, 5), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Hold, single.Interval)
}

func TestLoad_FailFast(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.bmp")
	writeBMP(t, good, 1, 1, 0xFFFFFFFF)
	bad := filepath.Join(dir, "bad.bmp")
	require.NoError(t, os.WriteFile(bad, []byte("not a bitmap at all, just text"), 0o644))

	_, err := Load([]string{good, bad, good}, image.Point{}, DefaultInterval)
	require.ErrorIs(t, err, codec.ErrBadHeader)
	assert.Contains(t, err.Error(), "frame 2 of 3")

	_, err = Load([]string{filepath.Join(dir, "missing.bmp")}, image.Point{}, DefaultInterval)
	require.ErrorIs(t, err, codec.ErrIO)

	_, err = Load(nil, image.Point{}, DefaultInterval)
	require.ErrorIs(t, err, ErrNoFrames)
}
