package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fbanim/bannerd/internal/logging"
)

// ErrPipeClosed is returned by reads after Close.
var ErrPipeClosed = errors.New("command: pipe closed")

// Opener opens the control channel for reading.
type Opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Pipe reads bytes from a named pipe. When the writer closes its end the
// pipe is reopened and reading continues, so EOF is never reported.
type Pipe struct {
	path string
	open Opener

	mu     sync.Mutex
	f      io.ReadCloser
	r      *bufio.Reader
	closed bool
}

// NewPipe returns a pipe reader for path. Nothing is opened until the first
// read.
func NewPipe(path string) *Pipe {
	return NewPipeWithOpener(path, openFile)
}

// NewPipeWithOpener is NewPipe with a custom open function.
func NewPipeWithOpener(path string, open Opener) *Pipe {
	return &Pipe{path: path, open: open}
}

// ReadByte returns the next byte, blocking until a writer supplies one.
func (p *Pipe) ReadByte() (byte, error) {
	for {
		r, err := p.reader()
		if err != nil {
			return 0, err
		}

		c, err := r.ReadByte()
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, io.EOF) {
			if p.isClosed() {
				return 0, ErrPipeClosed
			}
			return 0, fmt.Errorf("read command pipe %s: %w", p.path, err)
		}

		logging.Debug("The other end closed %s, reopening", p.path)
		p.release()
	}
}

// reader returns the buffered reader of the open pipe, opening it first if
// needed. Opening a FIFO blocks until a writer appears.
func (p *Pipe) reader() (*bufio.Reader, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPipeClosed
	}
	if p.r != nil {
		r := p.r
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	f, err := p.open(p.path)
	if err != nil {
		return nil, fmt.Errorf("could not open command pipe %s: %w", p.path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		f.Close()
		return nil, ErrPipeClosed
	}
	p.f = f
	p.r = bufio.NewReader(f)
	return p.r, nil
}

func (p *Pipe) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f != nil {
		p.f.Close()
	}
	p.f, p.r = nil, nil
}

func (p *Pipe) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes the pipe. A read blocked on the open file returns
// ErrPipeClosed.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f, p.r = nil, nil
	return err
}
