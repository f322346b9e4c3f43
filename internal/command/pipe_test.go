package command

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkOpener hands out one chunk per open, like a writer that writes and
// closes its end of the FIFO for every command.
type chunkOpener struct {
	chunks []string
	opens  int
	closes int
}

type trackedReader struct {
	io.Reader
	o *chunkOpener
}

func (r *trackedReader) Close() error {
	r.o.closes++
	return nil
}

func (o *chunkOpener) open(path string) (io.ReadCloser, error) {
	if o.opens >= len(o.chunks) {
		return nil, errors.New("no more writers")
	}
	r := &trackedReader{Reader: strings.NewReader(o.chunks[o.opens]), o: o}
	o.opens++
	return r, nil
}

func TestPipe_ReopensOnEOF(t *testing.T) {
	o := &chunkOpener{chunks: []string{"run 1", "", "0%;", "exit\n"}}
	p := NewPipeWithOpener("/run/bannerd.fifo", o.open)
	player, out := newPlayer(t, 10)

	require.NoError(t, NewInterpreter(p, player).Serve(context.Background()))
	assert.Equal(t, 1, out.blits, "run 10% split across writers")
	assert.Equal(t, 4, o.opens)
	assert.Equal(t, 3, o.closes)
	require.NoError(t, p.Close())
	assert.Equal(t, 4, o.closes)
}

func TestPipe_OpenFailure(t *testing.T) {
	o := &chunkOpener{}
	p := NewPipeWithOpener("/nonexistent", o.open)

	_, err := p.ReadByte()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not open command pipe /nonexistent")
}

func TestPipe_Closed(t *testing.T) {
	o := &chunkOpener{chunks: []string{"abc"}}
	p := NewPipeWithOpener("fifo", o.open)

	c, err := p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), c)

	require.NoError(t, p.Close())
	_, err = p.ReadByte()
	require.ErrorIs(t, err, ErrPipeClosed)
	require.NoError(t, p.Close())
}
