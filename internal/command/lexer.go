package command

import (
	"errors"
	"io"
	"strconv"

	"github.com/fbanim/bannerd/internal/logging"
)

// maxTokenLen bounds the characters of one token.
const maxTokenLen = 254

// state is the category of the token being accumulated.
type state int

const (
	stateStart state = iota
	stateNumber
	stateFloat
	stateFrame
	statePercent
	stateWord
	stateSymbol
)

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func isDelimiter(c byte) bool { return c == ';' || c == '\r' || c == '\n' }

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// transition returns the category after appending c to a token in state s.
// Blanks and delimiters end a token and never reach it.
func transition(s state, c byte) state {
	switch s {
	case stateStart:
		switch {
		case isDigit(c):
			return stateNumber
		case c == '.':
			return stateFloat
		case isAlpha(c):
			return stateWord
		}
		return stateSymbol

	case stateNumber:
		switch {
		case isDigit(c):
			return stateNumber
		case c == 'f':
			return stateFrame
		case c == '%':
			return statePercent
		case c == '.':
			return stateFloat
		}
		return stateWord

	case stateFloat:
		if isDigit(c) {
			return stateFloat
		}
		return stateWord
	}

	// A suffix, a symbol or a word followed by anything is just a word.
	return stateWord
}

// Lexer splits a byte stream into tokens. A delimiter that ends a token is
// reported by the following call to Next.
type Lexer struct {
	r            io.ByteReader
	buf          []byte
	pendingDelim bool
}

// NewLexer returns a lexer reading from r.
func NewLexer(r io.ByteReader) *Lexer {
	return &Lexer{r: r, buf: make([]byte, 0, maxTokenLen)}
}

// Next returns the next token. End of input yields a KindEOF token, a read
// failure an error.
func (l *Lexer) Next() (Token, error) {
	if l.pendingDelim {
		l.pendingDelim = false
		return Token{Kind: KindDelimiter}, nil
	}

	l.buf = l.buf[:0]
	s := stateStart
	for {
		c, err := l.r.ReadByte()
		if errors.Is(err, io.EOF) {
			if s == stateStart {
				return Token{Kind: KindEOF}, nil
			}
			return l.finish(s), nil
		}
		if err != nil {
			return Token{}, err
		}

		switch {
		case isBlank(c):
			if s == stateStart {
				continue
			}
			return l.finish(s), nil
		case isDelimiter(c):
			if s == stateStart {
				return Token{Kind: KindDelimiter}, nil
			}
			l.pendingDelim = true
			return l.finish(s), nil
		}

		if len(l.buf) == maxTokenLen {
			logging.Warn("Command token longer than %d characters", maxTokenLen)
			return Token{Kind: KindError, Text: string(l.buf)}, nil
		}
		c = toLower(c)
		l.buf = append(l.buf, c)
		s = transition(s, c)
	}
}

func (l *Lexer) finish(s state) Token {
	tok := convert(s, l.buf)
	logging.Debug("Command token: %s", tok)
	return tok
}

// convert turns the text of a finished token into its typed value.
// The state is the category reached with the token's last character.
func convert(s state, text []byte) Token {
	tok := Token{Text: string(text)}
	var err error

	switch s {
	case stateNumber:
		tok.Kind = KindInteger
		tok.Int, err = parseInt(tok.Text)
	case statePercent:
		tok.Kind = KindPercent
		tok.Int, err = parseInt(tok.Text[:len(tok.Text)-1])
	case stateFrame:
		tok.Kind = KindFrame
		tok.Int, err = parseInt(tok.Text[:len(tok.Text)-1])
	case stateFloat:
		tok.Kind = KindFloat
		tok.Float, err = strconv.ParseFloat(tok.Text, 64)
	case stateSymbol:
		tok.Kind = KindSymbol
	default:
		tok.Kind = KindWord
		if k, ok := commands[tok.Text]; ok {
			tok.Kind = k
		}
	}

	if err != nil {
		return Token{Kind: KindError, Text: tok.Text}
	}
	return tok
}

// parseInt reads an integer the way strtoul does with base 0, so a leading
// zero selects octal.
func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 0)
	return int(n), err
}
