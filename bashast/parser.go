package bashast

import (
	"fmt"
	"strings"

	"github.com/bashrs-go/bashrs/errs"
)

// Parse parses a bash script into a File. Parser errors are *errs.Error
// values with Kind one of KindParse, KindUnsupportedConstruct, or
// KindUnexpectedEOF; the parser does not attempt to recover
// mid-statement.
func Parse(src string) (*File, error) {
	p := &parser{lex: newLexer(src), src: src}
	p.advance()
	stmts, err := p.parseStmtList(nil)
	if err != nil {
		return nil, err
	}
	return &File{Statements: stmts}, nil
}

type parser struct {
	lex *lexer
	cur token
	src string
}

func (p *parser) advance() { p.cur = p.lex.Next() }

func (p *parser) errAt(tok token, kind errs.Kind, msg string) error {
	loc := errs.SourceLocation{Line: tok.line, Column: tok.col, SourceLine: sourceLineAt(p.src, tok.line)}
	return errs.New(kind, loc, msg)
}

func sourceLineAt(src string, line int) string {
	lines := strings.Split(src, "\n")
	if line-1 >= 0 && line-1 < len(lines) {
		return lines[line-1]
	}
	return ""
}

// parseStmtList parses statements separated by `;`/newline until it
// reaches EOF, a `}` or `)` token, or a word token whose text is one of
// stopWords (keywords are lexed as tokWord, so only the keywords listed
// in stopWords stop it).
func (p *parser) parseStmtList(stopWords []string) ([]Stmt, error) {
	var out []Stmt
	for {
		for p.cur.kind == tokSemi || p.cur.kind == tokNewline {
			p.advance()
		}
		if p.cur.kind == tokEOF {
			break
		}
		if p.cur.kind == tokWord && containsStr(stopWords, p.cur.text) {
			break
		}
		if p.cur.kind == tokRBrace || p.cur.kind == tokRParen {
			break
		}
		s, err := p.parseAndOrList()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if p.cur.kind != tokSemi && p.cur.kind != tokNewline && p.cur.kind != tokEOF &&
			!(p.cur.kind == tokWord && containsStr(stopWords, p.cur.text)) &&
			p.cur.kind != tokRBrace && p.cur.kind != tokRParen {
			return nil, p.errAt(p.cur, errs.KindParse, fmt.Sprintf("unexpected token %q after statement", p.cur.text))
		}
	}
	return out, nil
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// parseAndOrList parses `pipeline (&& pipeline | || pipeline)*`.
func (p *parser) parseAndOrList() (Stmt, error) {
	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokAndAnd || p.cur.kind == tokOrOr {
		isAnd := p.cur.kind == tokAndAnd
		p.advance()
		for p.cur.kind == tokNewline {
			p.advance()
		}
		right, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		if isAnd {
			left = &AndList{Left: left, Right: right}
		} else {
			left = &OrList{Left: left, Right: right}
		}
	}
	return left, nil
}

// parsePipeline parses `cmd (| cmd)*`, with an optional leading `!`.
func (p *parser) parsePipeline() (Stmt, error) {
	negate := false
	if p.cur.kind == tokBang {
		negate = true
		p.advance()
	}
	first, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	cmds := []Stmt{first}
	for p.cur.kind == tokPipe {
		p.advance()
		for p.cur.kind == tokNewline {
			p.advance()
		}
		next, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, next)
	}
	var result Stmt
	if len(cmds) == 1 {
		result = cmds[0]
	} else {
		result = &Pipeline{Commands: cmds}
	}
	if negate {
		result = &Negated{Command: result}
	}
	return result, nil
}

func (p *parser) parseCompound() (Stmt, error) {
	line, col := p.cur.line, p.cur.col
	span := func() Span { return Span{StartLine: line, StartCol: col} }

	switch {
	case p.cur.kind == tokWord && p.cur.text == "if":
		return p.parseIf(span())
	case p.cur.kind == tokWord && p.cur.text == "for":
		return p.parseFor(span())
	case p.cur.kind == tokWord && p.cur.text == "while":
		return p.parseWhile(span())
	case p.cur.kind == tokWord && p.cur.text == "until":
		return p.parseUntil(span())
	case p.cur.kind == tokWord && p.cur.text == "case":
		return p.parseCase(span())
	case p.cur.kind == tokWord && p.cur.text == "select":
		return p.parseSelect(span())
	case p.cur.kind == tokWord && p.cur.text == "coproc":
		return p.parseCoproc(span())
	case p.cur.kind == tokWord && p.cur.text == "return":
		return p.parseReturn(span())
	case p.cur.kind == tokWord && p.cur.text == "function":
		return p.parseFunctionKw(span())
	case p.cur.kind == tokLBrace:
		return p.parseBraceGroup(span(), false)
	case p.cur.kind == tokLParen:
		return p.parseBraceGroup(span(), true)
	case p.cur.kind == tokDLParen:
		return p.parseArithCommand(span())
	case p.cur.kind == tokDLBrack:
		return p.parseDLBrackCommand(span())
	default:
		return p.parseSimpleCommand(span())
	}
}

func (p *parser) expectWord(text string) error {
	if p.cur.kind != tokWord || p.cur.text != text {
		return p.errAt(p.cur, errs.KindParse, fmt.Sprintf("expected %q, found %q", text, p.cur.text))
	}
	p.advance()
	return nil
}

func (p *parser) skipSeparators() {
	for p.cur.kind == tokSemi || p.cur.kind == tokNewline {
		p.advance()
	}
}

func (p *parser) parseIf(sp Span) (Stmt, error) {
	p.advance() // if
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	if err := p.expectWord("then"); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseStmtList([]string{"elif", "else", "fi"})
	if err != nil {
		return nil, err
	}
	var elifs []ElifBlock
	for p.cur.kind == tokWord && p.cur.text == "elif" {
		p.advance()
		ec, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		p.skipSeparators()
		if err := p.expectWord("then"); err != nil {
			return nil, err
		}
		eb, err := p.parseStmtList([]string{"elif", "else", "fi"})
		if err != nil {
			return nil, err
		}
		elifs = append(elifs, ElifBlock{Condition: ec, Body: eb})
	}
	var elseBlock []Stmt
	if p.cur.kind == tokWord && p.cur.text == "else" {
		p.advance()
		elseBlock, err = p.parseStmtList([]string{"fi"})
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectWord("fi"); err != nil {
		return nil, err
	}
	return &If{base: base{sp}, Condition: cond, ThenBlock: thenBlock, ElifBlocks: elifs, ElseBlock: elseBlock}, nil
}

// parseCondition parses the condition of if/while/until: a
// `[[ ... ]]`/`(( ... ))` test, a `[ ... ]` command rewritten into a
// TestExprNode, or an arbitrary command list whose exit status is the
// condition, kept as the raw Stmt inside a CommandCondition so the
// purifier and printer can recurse into it.
func (p *parser) parseCondition() (Expr, error) {
	if p.cur.kind == tokDLBrack {
		return p.parseDoubleBracketExpr()
	}
	if p.cur.kind == tokDLParen {
		return p.parseArithExpr()
	}
	// `[ ... ]` or an arbitrary command: parse a simple command and wrap.
	stmt, err := p.parseAndOrList()
	if err != nil {
		return nil, err
	}
	if cmd, ok := stmt.(*Command); ok && cmd.Name == "[" {
		return p.bracketArgsToTest(cmd.Args)
	}
	return &CommandCondition{Stmt: stmt}, nil
}

func (p *parser) parseDoubleBracketExpr() (Expr, error) {
	p.advance() // [[
	var words []string
	for p.cur.kind != tokDRBrack && p.cur.kind != tokEOF {
		words = append(words, p.cur.text)
		p.advance()
	}
	if p.cur.kind == tokDRBrack {
		p.advance()
	}
	test, err := parseTestWords(words)
	if err != nil {
		return nil, err
	}
	return &TestExprNode{Test: test}, nil
}

func (p *parser) bracketArgsToTest(args []Expr) (Expr, error) {
	var words []string
	for _, a := range args {
		words = append(words, exprToRaw(a))
	}
	// drop the trailing `]` argument, which the simple-command parser
	// captured as a literal word.
	if len(words) > 0 && words[len(words)-1] == "]" {
		words = words[:len(words)-1]
	}
	test, err := parseTestWords(words)
	if err != nil {
		return nil, err
	}
	return &TestExprNode{Test: test}, nil
}

func exprToRaw(e Expr) string {
	if l, ok := e.(*Lit); ok {
		return l.Value
	}
	if v, ok := e.(*Variable); ok {
		return "$" + v.Name
	}
	return ""
}

func (p *parser) parseArithExpr() (Expr, error) {
	p.advance() // ((
	var b strings.Builder
	for p.cur.kind != tokDRParen && p.cur.kind != tokEOF {
		b.WriteString(p.cur.text)
		b.WriteByte(' ')
		p.advance()
	}
	if p.cur.kind == tokDRParen {
		p.advance()
	}
	return &Arith{Expr: ParseArith(b.String())}, nil
}

func (p *parser) parseArithCommand(sp Span) (Stmt, error) {
	e, err := p.parseArithExpr()
	if err != nil {
		return nil, err
	}
	return &Command{base: base{sp}, Name: "((", Args: []Expr{e}}, nil
}

func (p *parser) parseDLBrackCommand(sp Span) (Stmt, error) {
	e, err := p.parseDoubleBracketExpr()
	if err != nil {
		return nil, err
	}
	return &Command{base: base{sp}, Name: "[[", Args: []Expr{e}}, nil
}

func (p *parser) parseFor(sp Span) (Stmt, error) {
	p.advance() // for
	if p.cur.kind == tokDLParen {
		p.advance()
		var initB, condB, incB strings.Builder
		target := &initB
		for {
			if p.cur.kind == tokSemi {
				if target == &initB {
					target = &condB
				} else if target == &condB {
					target = &incB
				}
				p.advance()
				continue
			}
			if p.cur.kind == tokDRParen || p.cur.kind == tokEOF {
				break
			}
			target.WriteString(p.cur.text)
			p.advance()
		}
		if p.cur.kind == tokDRParen {
			p.advance()
		}
		p.skipSeparators()
		if err := p.expectWord("do"); err != nil {
			return nil, err
		}
		body, err := p.parseStmtList([]string{"done"})
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("done"); err != nil {
			return nil, err
		}
		return &ForCStyle{base: base{sp}, Init: strings.TrimSpace(initB.String()), Condition: strings.TrimSpace(condB.String()), Increment: strings.TrimSpace(incB.String()), Body: body}, nil
	}

	if p.cur.kind != tokWord {
		return nil, p.errAt(p.cur, errs.KindParse, "expected loop variable after 'for'")
	}
	variable := p.cur.text
	p.advance()
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	var items []Expr
	for p.cur.kind == tokWord {
		items = append(items, parseWord(p.cur.text))
		p.advance()
	}
	p.skipSeparators()
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	body, err := p.parseStmtList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("done"); err != nil {
		return nil, err
	}
	return &For{base: base{sp}, Variable: variable, Items: &Concat{Parts: items}, Body: body}, nil
}

func (p *parser) parseWhile(sp Span) (Stmt, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	body, err := p.parseStmtList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("done"); err != nil {
		return nil, err
	}
	return &While{base: base{sp}, Condition: cond, Body: body}, nil
}

func (p *parser) parseUntil(sp Span) (Stmt, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	body, err := p.parseStmtList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("done"); err != nil {
		return nil, err
	}
	return &Until{base: base{sp}, Condition: cond, Body: body}, nil
}

func (p *parser) parseSelect(sp Span) (Stmt, error) {
	p.advance()
	variable := p.cur.text
	p.advance()
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	var items []Expr
	for p.cur.kind == tokWord {
		items = append(items, parseWord(p.cur.text))
		p.advance()
	}
	p.skipSeparators()
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	body, err := p.parseStmtList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("done"); err != nil {
		return nil, err
	}
	return &Select{base: base{sp}, Variable: variable, Items: &Concat{Parts: items}, Body: body}, nil
}

func (p *parser) parseCoproc(sp Span) (Stmt, error) {
	p.advance()
	var name *string
	if p.cur.kind == tokWord && p.cur.text != "{" {
		n := p.cur.text
		name = &n
		p.advance()
	}
	if p.cur.kind != tokLBrace {
		return nil, p.errAt(p.cur, errs.KindParse, "expected '{' after coproc")
	}
	p.advance()
	body, err := p.parseStmtList(nil)
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokRBrace {
		return nil, p.errAt(p.cur, errs.KindParse, "expected '}' to close coproc")
	}
	p.advance()
	return &Coproc{base: base{sp}, Name: name, Body: body}, nil
}

func (p *parser) parseReturn(sp Span) (Stmt, error) {
	p.advance()
	if p.cur.kind == tokWord {
		code := parseWord(p.cur.text)
		p.advance()
		return &Return{base: base{sp}, Code: code}, nil
	}
	return &Return{base: base{sp}}, nil
}

func (p *parser) parseFunctionKw(sp Span) (Stmt, error) {
	p.advance() // function
	name := p.cur.text
	p.advance()
	if p.cur.kind == tokLParen {
		p.advance()
		if p.cur.kind == tokRParen {
			p.advance()
		}
	}
	return p.finishFunction(sp, name)
}

func (p *parser) finishFunction(sp Span, name string) (Stmt, error) {
	p.skipSeparators()
	if p.cur.kind != tokLBrace {
		return nil, p.errAt(p.cur, errs.KindParse, "expected '{' to start function body")
	}
	p.advance()
	body, err := p.parseStmtList(nil)
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokRBrace {
		return nil, p.errAt(p.cur, errs.KindParse, "expected '}' to close function")
	}
	p.advance()
	return &Function{base: base{sp}, Name: name, Body: body}, nil
}

func (p *parser) parseBraceGroup(sp Span, subshell bool) (Stmt, error) {
	p.advance() // { or (
	body, err := p.parseStmtList(nil)
	if err != nil {
		return nil, err
	}
	want := tokRBrace
	if subshell {
		want = tokRParen
	}
	if p.cur.kind != want {
		return nil, p.errAt(p.cur, errs.KindParse, "unterminated brace group or subshell")
	}
	p.advance()
	return &BraceGroup{base: base{sp}, Body: body, Subshell: subshell}, nil
}

func (p *parser) parseCase(sp Span) (Stmt, error) {
	p.advance() // case
	word := parseWord(p.cur.text)
	p.advance()
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	p.skipSeparators()
	var arms []CaseArm
	for !(p.cur.kind == tokWord && p.cur.text == "esac") && p.cur.kind != tokEOF {
		var patterns []string
		for {
			patterns = append(patterns, p.cur.text)
			p.advance()
			if p.cur.kind == tokPipe {
				p.advance()
				continue
			}
			break
		}
		if p.cur.kind == tokRParen {
			p.advance()
		}
		body, err := p.parseStmtList(nil)
		if err != nil {
			return nil, err
		}
		if p.cur.kind == tokDSemi {
			p.advance()
		}
		p.skipSeparators()
		arms = append(arms, CaseArm{Patterns: patterns, Body: body})
	}
	if err := p.expectWord("esac"); err != nil {
		return nil, err
	}
	return &Case{base: base{sp}, Word: word, Arms: arms}, nil
}

// parseSimpleCommand parses `[export] NAME=value`, a bare comment, or
// `name args... redirects...`.
func (p *parser) parseSimpleCommand(sp Span) (Stmt, error) {
	if p.cur.kind != tokWord {
		return nil, p.errAt(p.cur, errs.KindParse, fmt.Sprintf("unexpected token %q", p.cur.text))
	}
	first := p.cur.text
	if strings.HasPrefix(first, "#") {
		text := strings.TrimPrefix(first, "#")
		p.advance()
		return &Comment{base: base{sp}, Text: strings.TrimPrefix(text, " ")}, nil
	}
	if eq := strings.IndexByte(first, '='); eq > 0 && isAssignmentName(first[:eq]) && first[:eq] != "[" {
		name := first[:eq]
		value := first[eq+1:]
		p.advance()
		return &Assignment{base: base{sp}, Name: name, Value: parseWord(value)}, nil
	}

	name := first
	p.advance()
	var args []Expr
	var redirects []Redirect
	for p.cur.kind == tokWord || p.cur.kind == tokRedirect || p.cur.kind == tokBang {
		if p.cur.kind == tokBang {
			// `!` as an argument word, e.g. the negation inside `[ ! -e x ]`.
			args = append(args, &Lit{Value: "!"})
			p.advance()
			continue
		}
		if p.cur.kind == tokRedirect {
			op := p.cur.text
			p.advance()
			if p.cur.kind != tokWord {
				return nil, p.errAt(p.cur, errs.KindParse, "expected redirect target")
			}
			redirects = append(redirects, Redirect{FD: -1, Op: op, Target: parseWord(p.cur.text)})
			p.advance()
			continue
		}
		args = append(args, parseWord(p.cur.text))
		p.advance()
	}
	if (name == "export" || name == "readonly") && len(args) == 1 {
		if lit, ok := firstLitAssignment(args[0]); ok {
			return &Assignment{base: base{sp}, Name: lit.name, Value: lit.value, Exported: name == "export", ReadOnly: name == "readonly"}, nil
		}
	}
	return &Command{base: base{sp}, Name: name, Args: args, Redirects: redirects}, nil
}

type litAssign struct {
	name  string
	value Expr
}

func firstLitAssignment(e Expr) (litAssign, bool) {
	if l, ok := e.(*Lit); ok {
		if eq := strings.IndexByte(l.Value, '='); eq > 0 {
			return litAssign{name: l.Value[:eq], value: &Lit{Value: l.Value[eq+1:]}}, true
		}
	}
	return litAssign{}, false
}

func isAssignmentName(s string) bool {
	if s == "" {
		return false
	}
	if !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameCont(s[i]) {
			return false
		}
	}
	return true
}

// CommandCondition wraps an arbitrary command/pipeline used as an `if`/
// `while`/`until` condition, whose truth value is the command's exit
// status rather than a TestExpr. It mirrors ShellValue.CommandCondition
// in package ir.
type CommandCondition struct {
	base
	Stmt Stmt
}

func (*CommandCondition) exprNode() {}
