//go:build linux

package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPipe_FIFOWriterReconnects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control")
	require.NoError(t, unix.Mkfifo(path, 0o600))

	writeErr := make(chan error, 1)
	go func() {
		for _, cmd := range []string{"run 20%;", "skip 3;", "exit\n"} {
			f, err := os.OpenFile(path, os.O_WRONLY, 0)
			if err != nil {
				writeErr <- err
				return
			}
			_, err = f.WriteString(cmd)
			f.Close()
			if err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- nil
	}()

	player, out := newPlayer(t, 10)
	p := NewPipe(path)
	defer p.Close()

	done := make(chan error, 1)
	go func() { done <- NewInterpreter(p, player).Serve(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("interpreter did not see exit")
	}
	require.NoError(t, <-writeErr)
	assert.Equal(t, 2, out.blits)
	assert.Equal(t, 2, player.Index())
}
