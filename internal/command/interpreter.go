// Package command implements the control language that steers playback:
//
//	run [amount];
//	skip [amount];
//	exit
//
// An amount is N cycles, N% of a cycle, a fractional number of cycles such
// as 2.5, or Nf meaning "up to frame N". Commands end with ';', CR or LF.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fbanim/bannerd/internal/logging"
)

// ErrSyntax is returned when the input does not follow the grammar.
var ErrSyntax = errors.New("command: syntax error")

// Player is what the interpreter controls.
type Player interface {
	Run(ctx context.Context, frames int) error
	Skip(delta int)
	FrameCount() int
	Index() int
}

// Interpreter executes commands read from a byte stream against a Player.
type Interpreter struct {
	lex    *Lexer
	player Player
}

// NewInterpreter returns an interpreter reading commands from r.
func NewInterpreter(r io.ByteReader, p Player) *Interpreter {
	return &Interpreter{lex: NewLexer(r), player: p}
}

// Serve executes commands until exit, end of input or an error. A syntax
// error ends the loop with ErrSyntax. A failed run is logged and does not.
func (in *Interpreter) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := in.lex.Next()
		if err != nil {
			return err
		}

		switch tok.Kind {
		case KindEOF:
			return nil
		case KindDelimiter:
			continue
		case KindExit:
			logging.Debug("Exit requested")
			return nil
		case KindRun, KindSkip:
			if err := in.runSkip(ctx, tok.Kind == KindSkip); err != nil {
				return err
			}
		case KindWord:
			logging.Error("Unrecognized command '%s'", tok.Text)
			return fmt.Errorf("%w: unrecognized command %q", ErrSyntax, tok.Text)
		default:
			logging.Error("Unrecognized token %s", tok)
			return fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
		}
	}
}

// amount converts an amount token into a frame count for the player's
// current state. ok is false when tok is not an amount. A count that does
// not fit in an int is a syntax error.
func (in *Interpreter) amount(tok Token) (frames int, ok bool, err error) {
	count := in.player.FrameCount()
	switch tok.Kind {
	case KindInteger:
		frames, ok = scale(count, tok.Int, 1)
	case KindPercent:
		frames, ok = scale(count, tok.Int, 100)
	case KindFloat:
		f := float64(count) * tok.Float
		frames, ok = int(f), f < math.MaxInt
	case KindFrame:
		return ((tok.Int-in.player.Index())%count + count) % count, true, nil
	default:
		return 0, false, nil
	}

	if !ok {
		logging.Error("Amount '%s' out of range", tok.Text)
		return 0, true, fmt.Errorf("%w: amount %s out of range", ErrSyntax, tok.Text)
	}
	return frames, true, nil
}

// scale returns count*n/div without intermediate overflow. ok is false when
// the result itself does not fit.
func scale(count, n, div int) (int, bool) {
	q, r := n/div, n%div
	if q > math.MaxInt/count {
		return 0, false
	}
	whole, part := count*q, count*r/div
	if whole > math.MaxInt-part {
		return 0, false
	}
	return whole + part, true
}

func (in *Interpreter) runSkip(ctx context.Context, skip bool) error {
	name := "run"
	if skip {
		name = "skip"
	}

	tok, err := in.lex.Next()
	if err != nil {
		return err
	}

	frames, hasAmount, err := in.amount(tok)
	if err != nil {
		return err
	}
	if !hasAmount && tok.Kind != KindDelimiter && tok.Kind != KindEOF {
		logging.Error("Incorrect parameter to '%s': %s", name, tok)
		return fmt.Errorf("%w: incorrect parameter to %s: %s", ErrSyntax, name, tok)
	}

	if hasAmount {
		end, err := in.lex.Next()
		if err != nil {
			return err
		}
		if end.Kind != KindDelimiter && end.Kind != KindEOF {
			logging.Error("Unexpected remainder of '%s': %s", name, end)
			return fmt.Errorf("%w: unexpected remainder of %s: %s", ErrSyntax, name, end)
		}
	}

	if skip {
		if hasAmount {
			logging.Debug("skip requested for %d frames", frames)
			in.player.Skip(frames)
		}
		return nil
	}

	if !hasAmount {
		frames = -1
	}
	logging.Debug("run requested for %d frames", frames)
	if err := in.player.Run(ctx, frames); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.Error("Run of %d frames stopped: %v", frames, err)
	}
	return nil
}
