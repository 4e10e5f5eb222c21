// Package errs provides the structured, located error model shared by the
// bash, DSL, and Makefile parsers and by every later pipeline stage
// (lowering, emission, schema validation, linting).
package errs

import (
	"fmt"
	"strings"
)

// Kind classifies an Error without binding it to a particular Go type:
// ParseError, UnsupportedConstruct, TypeError, LoweringError,
// EmissionError, SchemaError, LintError, IoError, UnexpectedEof.
type Kind int

const (
	KindParse Kind = iota
	KindUnsupportedConstruct
	KindType
	KindLowering
	KindEmission
	KindSchema
	KindLint
	KindIO
	KindUnexpectedEOF
	KindUnexpectedToken
	KindInvalidPattern
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindUnsupportedConstruct:
		return "UnsupportedConstruct"
	case KindType:
		return "TypeError"
	case KindLowering:
		return "LoweringError"
	case KindEmission:
		return "EmissionError"
	case KindSchema:
		return "SchemaError"
	case KindLint:
		return "LintError"
	case KindIO:
		return "IoError"
	case KindUnexpectedEOF:
		return "UnexpectedEof"
	case KindUnexpectedToken:
		return "UnexpectedToken"
	case KindInvalidPattern:
		return "InvalidPattern"
	default:
		return "UnknownError"
	}
}

// SourceLocation pins an error to a place in the original source text.
// File and Column are optional; Line is always meaningful except for
// KindUnexpectedEOF, which may have no location at all.
type SourceLocation struct {
	File       string
	Line       int
	Column     int // 0 means "unknown"
	SourceLine string
}

func (l SourceLocation) String() string {
	var b strings.Builder
	if l.File != "" {
		fmt.Fprintf(&b, "%s:%d", l.File, l.Line)
	} else {
		fmt.Fprintf(&b, "line %d", l.Line)
	}
	if l.Column > 0 {
		fmt.Fprintf(&b, ":%d", l.Column)
	}
	return b.String()
}

// Error is the structured error value produced by every stage of the
// pipeline. Every Kind except KindUnexpectedEOF must carry a Location.
type Error struct {
	Kind     Kind
	Message  string
	Location *SourceLocation
	NoteText string
	HelpText string
}

func (e *Error) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s at %s: %s", e.Kind, *e.Location, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Note returns the explanatory note, falling back to a generic one derived
// from Kind when the caller did not supply one.
func (e *Error) Note() string {
	if e.NoteText != "" {
		return e.NoteText
	}
	switch e.Kind {
	case KindParse:
		return "the parser could not make sense of this input"
	case KindUnsupportedConstruct:
		return "this construct has no POSIX-safe equivalent the transpiler knows how to emit"
	case KindType:
		return "the value's type does not match what this position requires"
	case KindLowering:
		return "the restricted-DSL AST could not be lowered to shell IR"
	case KindEmission:
		return "the IR could not be emitted as POSIX text"
	case KindSchema:
		return "the emitted text failed schema validation"
	case KindLint:
		return "the linter reported a diagnostic"
	case KindIO:
		return "an I/O operation failed"
	case KindUnexpectedToken:
		return "the parser found a token that cannot appear here"
	case KindInvalidPattern:
		return "this match pattern is outside the restricted DSL's allowed pattern set"
	default:
		return "the input ended before a construct was complete"
	}
}

// Help returns the recovery hint, falling back to a generic one.
func (e *Error) Help() string {
	if e.HelpText != "" {
		return e.HelpText
	}
	switch e.Kind {
	case KindParse:
		return "check for unbalanced quotes, braces, or a misplaced keyword"
	case KindUnsupportedConstruct:
		return "rewrite the input using a construct with a POSIX analogue"
	case KindType:
		return "add an explicit cast or change the expression's type"
	case KindLowering:
		return "simplify the match/if expression so every arm lowers to a single value"
	case KindEmission:
		return "this is usually a transpiler bug; file a report with the offending IR"
	case KindSchema:
		return "see the violation's fix_pattern for the exact rewrite"
	case KindLint:
		return "see the diagnostic's rule for the suggested fix"
	case KindUnexpectedToken:
		return "check the grammar around this position for a missing or extra token"
	case KindInvalidPattern:
		return "use a wildcard, variable, literal, range, or Some/Ok/Err/None pattern"
	default:
		return "add the missing closing token"
	}
}

// ToDetailedString renders the multi-line `error: ... / note: ... / help: ...`
// form used by CLI-facing consumers.
func (e *Error) ToDetailedString() string {
	var b strings.Builder
	b.WriteString("error: ")
	b.WriteString(e.Error())
	b.WriteByte('\n')

	if e.Location != nil && e.Location.SourceLine != "" {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%d | %s\n", e.Location.Line, e.Location.SourceLine)
		if e.Location.Column > 0 {
			lineNumWidth := len(fmt.Sprintf("%d", e.Location.Line))
			col := e.Location.Column
			if col < 1 {
				col = 1
			}
			spaces := strings.Repeat(" ", lineNumWidth+3+(col-1))
			b.WriteString(spaces)
			b.WriteString("^\n")
		}
	}

	b.WriteByte('\n')
	b.WriteString("note: ")
	b.WriteString(e.Note())
	b.WriteByte('\n')

	b.WriteByte('\n')
	b.WriteString("help: ")
	b.WriteString(e.Help())
	b.WriteByte('\n')

	return b.String()
}

// QualityScore sums the present components (error text, note, help, file,
// line, column, snippet) over an 8.5-point scale, targeting >=0.8 when
// every field is populated.
func (e *Error) QualityScore() float64 {
	score := 1.0 // error text always present
	score += 2.5 // Note() always returns something
	score += 2.5 // Help() always returns something

	if e.Location != nil {
		if e.Location.File != "" {
			score++
		}
		score += 0.25 // line is always present for located errors
		if e.Location.Column > 0 {
			score += 0.25
		}
		if e.Location.SourceLine != "" {
			score++
		}
	}

	return score / 8.5
}

// New builds a located Error.
func New(kind Kind, loc SourceLocation, message string) *Error {
	return &Error{Kind: kind, Message: message, Location: &loc}
}

// NewEOF builds an unlocated KindUnexpectedEOF error.
func NewEOF(message string) *Error {
	return &Error{Kind: KindUnexpectedEOF, Message: message}
}

// WithNote attaches an explanatory note, returning the receiver for chaining.
func (e *Error) WithNote(note string) *Error {
	e.NoteText = note
	return e
}

// WithHelp attaches a recovery hint, returning the receiver for chaining.
func (e *Error) WithHelp(help string) *Error {
	e.HelpText = help
	return e
}
