package dsl

import "strings"

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokString
	tokPunct // operators and single-char punctuation, text carries the exact spelling
)

type token struct {
	kind       tokKind
	text       string
	line, col  int
}

// keywords is the fixed reserved-word set; anything else lexes as an
// identifier. Unsupported keywords (impl, trait, unsafe, dyn, async,
// move, 'static lifetimes) are deliberately absent so the parser
// rejects them as ordinary identifiers in invalid positions.
var keywords = map[string]bool{
	"fn": true, "let": true, "mut": true, "if": true, "else": true,
	"match": true, "for": true, "in": true, "while": true, "return": true,
	"true": true, "false": true, "as": true, "struct": true,
}

type lexer struct {
	src       string
	i         int
	line, col int
}

func newLexer(src string) *lexer { return &lexer{src: src, line: 1, col: 1} }

func (l *lexer) peekByte() byte {
	if l.i >= len(l.src) {
		return 0
	}
	return l.src[l.i]
}

func (l *lexer) advanceByte() byte {
	b := l.peekByte()
	l.i++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

var multiCharPuncts = []string{
	"..=", "=>", "->", "::", "==", "!=", "<=", ">=", "&&", "||", "..",
}

func (l *lexer) Next() token {
	for {
		b := l.peekByte()
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			l.advanceByte()
			continue
		}
		if b == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '/' {
			for l.peekByte() != '\n' && l.peekByte() != 0 {
				l.advanceByte()
			}
			continue
		}
		break
	}
	line, col := l.line, l.col
	b := l.peekByte()
	if b == 0 {
		return token{kind: tokEOF, line: line, col: col}
	}
	if isIdentStart(b) {
		start := l.i
		for isIdentCont(l.peekByte()) {
			l.advanceByte()
		}
		return token{kind: tokIdent, text: l.src[start:l.i], line: line, col: col}
	}
	if isDigit(b) {
		start := l.i
		for isDigit(l.peekByte()) || l.peekByte() == '_' {
			l.advanceByte()
		}
		return token{kind: tokInt, text: l.src[start:l.i], line: line, col: col}
	}
	if b == '"' {
		l.advanceByte()
		var sb strings.Builder
		for l.peekByte() != '"' && l.peekByte() != 0 {
			c := l.advanceByte()
			if c == '\\' && l.peekByte() != 0 {
				switch esc := l.advanceByte(); esc {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				default:
					sb.WriteByte(esc)
				}
				continue
			}
			sb.WriteByte(c)
		}
		l.advanceByte() // closing quote
		return token{kind: tokString, text: sb.String(), line: line, col: col}
	}
	for _, p := range multiCharPuncts {
		if strings.HasPrefix(l.src[l.i:], p) {
			for range p {
				l.advanceByte()
			}
			return token{kind: tokPunct, text: p, line: line, col: col}
		}
	}
	l.advanceByte()
	return token{kind: tokPunct, text: string(b), line: line, col: col}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }
func isDigit(b byte) bool     { return b >= '0' && b <= '9' }
