package codec

// cursor is a bounds-checked read position over an owned byte slice.
// Every read that would run past the end reports ErrTruncated instead.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

// take returns the next n bytes and advances past them.
func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, ErrTruncated
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}
