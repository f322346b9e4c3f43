package command

import "fmt"

// Kind is the category of a token.
type Kind int

const (
	KindEOF Kind = iota
	KindError
	KindDelimiter
	KindInteger
	KindFloat
	KindPercent
	KindFrame
	KindWord
	KindSymbol

	// Words that name a command.
	KindRun
	KindSkip
	KindExit
)

var kindNames = map[Kind]string{
	KindEOF:       "end of input",
	KindError:     "malformed token",
	KindDelimiter: "command delimiter",
	KindInteger:   "number",
	KindFloat:     "number",
	KindPercent:   "number",
	KindFrame:     "number",
	KindWord:      "arbitrary character sequence",
	KindSymbol:    "character",
	KindRun:       "command",
	KindSkip:      "command",
	KindExit:      "command",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexeme with its converted value. Int is set for integers,
// percentages and frame markers, Float for floats.
type Token struct {
	Kind  Kind
	Int   int
	Float float64
	Text  string
}

func (t Token) String() string {
	switch t.Kind {
	case KindEOF, KindDelimiter:
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// commands maps command words to their kinds.
var commands = map[string]Kind{
	"run":  KindRun,
	"skip": KindSkip,
	"exit": KindExit,
}
