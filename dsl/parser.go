package dsl

import (
	"fmt"

	"github.com/bashrs-go/bashrs/errs"
)

// Parse parses a restricted-DSL source file into a Program. The entry
// point is the function named "main" if present, else the first
// function declared.
func Parse(src string) (*Program, error) {
	p := &parser{lex: newLexer(src), src: src}
	p.advance()
	return p.parseProgram()
}

type parser struct {
	lex *lexer
	cur token
	src string
}

func (p *parser) advance() { p.cur = p.lex.Next() }

func (p *parser) loc() errs.SourceLocation {
	return errs.SourceLocation{Line: p.cur.line, Column: p.cur.col}
}

func (p *parser) errAt(kind errs.Kind, msg string) *errs.Error {
	return errs.New(kind, p.loc(), msg)
}

func (p *parser) isPunct(s string) bool { return p.cur.kind == tokPunct && p.cur.text == s }
func (p *parser) isKeyword(s string) bool {
	return p.cur.kind == tokIdent && p.cur.text == s && keywords[s]
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errAt(errs.KindUnexpectedToken, fmt.Sprintf("expected %q, found %q", s, p.cur.text))
	}
	p.advance()
	return nil
}

func (p *parser) expectKeyword(s string) error {
	if !p.isKeyword(s) {
		return p.errAt(errs.KindUnexpectedToken, fmt.Sprintf("expected %q, found %q", s, p.cur.text))
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.cur.kind != tokIdent {
		return "", p.errAt(errs.KindUnexpectedToken, fmt.Sprintf("expected identifier, found %q", p.cur.text))
	}
	name := p.cur.text
	p.advance()
	return name, nil
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for p.cur.kind != tokEOF {
		if err := p.rejectBannedItem(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("fn"); err != nil {
			return nil, err
		}
		fn, err := p.parseFn()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	prog.Entry = "main"
	found := false
	for _, f := range prog.Functions {
		if f.Name == "main" {
			found = true
		}
	}
	if !found && len(prog.Functions) > 0 {
		prog.Entry = prog.Functions[0].Name
	}
	return prog, nil
}

// rejectBannedItem rejects top-level items outside the restricted
// grammar: the item keywords impl, trait, unsafe, async, dyn, pub, mod
// and use are an UnsupportedConstruct. Any other non-`fn` item is not
// caught here and fails parseProgram's `fn` keyword check instead.
func (p *parser) rejectBannedItem() error {
	if p.cur.kind == tokIdent && !keywords[p.cur.text] {
		switch p.cur.text {
		case "impl", "trait", "unsafe", "async", "dyn", "pub", "mod", "use":
			return errs.New(errs.KindUnsupportedConstruct, p.loc(), fmt.Sprintf("%q is outside the restricted DSL grammar", p.cur.text)).
				WithHelp("only fn items are supported at top level")
		}
	}
	return nil
}

func (p *parser) parseFn() (*Fn, error) {
	sp := Span{StartLine: p.cur.line, StartCol: p.cur.col}
	if p.isPunct("<") {
		return nil, p.errAt(errs.KindUnsupportedConstruct, "generic type parameters are not supported").WithHelp("remove the <...> type parameter list")
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.isPunct("<") {
		return nil, p.errAt(errs.KindUnsupportedConstruct, "generic functions are not supported")
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []Param
	for !p.isPunct(")") {
		if p.isPunct("'") {
			return nil, p.errAt(errs.KindUnsupportedConstruct, "lifetime parameters are not supported")
		}
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		ty := ""
		if p.isPunct(":") {
			p.advance()
			ty, err = p.parseType()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, Param{Name: pname, Type: ty})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	retType := ""
	if p.isPunct("->") {
		p.advance()
		var err error
		retType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &Fn{Span: sp, Name: name, Params: params, RetType: retType, Body: body}, nil
}

func (p *parser) parseType() (string, error) {
	name, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	if p.isPunct("<") {
		return "", p.errAt(errs.KindUnsupportedConstruct, "generic types are not supported")
	}
	return name, nil
}

func (p *parser) parseBlock() (*Block, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	b := &Block{}
	for !p.isPunct("}") {
		if p.cur.kind == tokEOF {
			return nil, p.errAt(errs.KindUnexpectedToken, "unexpected end of input inside block")
		}
		stmt, tail, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		if tail != nil {
			b.Tail = tail
			break
		}
		b.Stmts = append(b.Stmts, stmt)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return b, nil
}

// parseBlockItem parses one statement, or — when an expression is
// immediately followed by `}` with no trailing `;` — the block's tail
// expression.
func (p *parser) parseBlockItem() (Stmt, Expr, error) {
	switch {
	case p.isKeyword("let"):
		s, err := p.parseLet()
		return s, nil, err
	case p.isKeyword("if"):
		s, err := p.parseIfStmt()
		return s, nil, err
	case p.isKeyword("match"):
		s, err := p.parseMatchStmt()
		return s, nil, err
	case p.isKeyword("for"):
		s, err := p.parseFor()
		return s, nil, err
	case p.isKeyword("while"):
		s, err := p.parseWhile()
		return s, nil, err
	case p.isKeyword("return"):
		s, err := p.parseReturn()
		return s, nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if p.isPunct(";") {
		p.advance()
		return &ExprStmt{Value: e}, nil, nil
	}
	if p.isPunct("=") {
		p.advance()
		ident, ok := e.(*Ident)
		if !ok {
			return nil, nil, p.errAt(errs.KindUnexpectedToken, "assignment target must be a plain name")
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if err := p.expectPunct(";"); err != nil {
			return nil, nil, err
		}
		return &Assignment{Target: ident.Name, Value: val}, nil, nil
	}
	if p.isPunct("}") {
		return nil, e, nil
	}
	return nil, nil, p.errAt(errs.KindUnexpectedToken, fmt.Sprintf("unexpected %q after expression statement", p.cur.text))
}

func (p *parser) parseLet() (*Let, error) {
	p.advance() // let
	mut := false
	if p.isKeyword("mut") {
		mut = true
		p.advance()
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ty := ""
	if p.isPunct(":") {
		p.advance()
		ty, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &Let{Name: name, Type: ty, Mut: mut, Value: val}, nil
}

func (p *parser) parseIfStmt() (Stmt, error) {
	p.advance() // if
	cond, err := p.parseExprNoStruct()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &If{Cond: cond, Then: then}
	if p.isKeyword("else") {
		p.advance()
		if p.isKeyword("if") {
			elseStmt, err := p.parseIfStmt()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseStmt
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = &ExprStmt{Value: &BlockExpr{Block: elseBlock}}
		}
	}
	return stmt, nil
}

func (p *parser) parseMatchStmt() (*Match, error) {
	scrutinee, arms, err := p.parseMatchCommon()
	if err != nil {
		return nil, err
	}
	return &Match{Scrutinee: scrutinee, Arms: arms}, nil
}

func (p *parser) parseMatchCommon() (Expr, []MatchArm, error) {
	p.advance() // match
	scrutinee, err := p.parseExprNoStruct()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, nil, err
	}
	var arms []MatchArm
	for !p.isPunct("}") {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, nil, err
		}
		var guard Expr
		if p.isKeyword("if") {
			p.advance()
			guard, err = p.parseExprNoStruct()
			if err != nil {
				return nil, nil, err
			}
		}
		if err := p.expectPunct("=>"); err != nil {
			return nil, nil, err
		}
		var body *Block
		if p.isPunct("{") {
			body, err = p.parseBlock()
			if err != nil {
				return nil, nil, err
			}
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			body = &Block{Tail: e}
		}
		arms = append(arms, MatchArm{Pattern: pat, Guard: guard, Body: body})
		if p.isPunct(",") {
			p.advance()
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, nil, err
	}
	return scrutinee, arms, nil
}

// parsePattern enforces the match-arm pattern allow-list: Wildcard,
// Variable, Literal, Range, TupleStruct(Some|Ok|Err|None).
func (p *parser) parsePattern() (Pattern, error) {
	if p.cur.kind == tokIdent && p.cur.text == "_" {
		p.advance()
		return &WildcardPattern{}, nil
	}
	if p.cur.kind == tokInt || p.isKeyword("true") || p.isKeyword("false") || p.cur.kind == tokString {
		lit, err := p.parseLiteralExpr()
		if err != nil {
			return nil, err
		}
		if p.isPunct("..") || p.isPunct("..=") {
			inclusive := p.cur.text == "..="
			p.advance()
			hi, err := p.parseLiteralExpr()
			if err != nil {
				return nil, err
			}
			return &RangePattern{Lo: lit, Hi: hi, Inclusive: inclusive}, nil
		}
		return &LiteralPattern{Value: lit}, nil
	}
	if p.cur.kind == tokIdent {
		name := p.cur.text
		if AllowedTupleStructs[name] {
			p.advance()
			if name == "None" {
				return &TupleStructPattern{Name: name}, nil
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			bind := "_"
			if !p.isPunct(")") {
				b, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				bind = b
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &TupleStructPattern{Name: name, Bind: bind}, nil
		}
		p.advance()
		return &VariablePattern{Name: name}, nil
	}
	return nil, p.errAt(errs.KindInvalidPattern, fmt.Sprintf("pattern %q is outside the allowed set (wildcard, variable, literal, range, Some/Ok/Err/None)", p.cur.text))
}

func (p *parser) parseLiteralExpr() (Expr, error) {
	switch {
	case p.cur.kind == tokInt:
		v := p.cur.text
		p.advance()
		return &IntLit{Value: v}, nil
	case p.isKeyword("true"), p.isKeyword("false"):
		v := p.cur.text == "true"
		p.advance()
		return &BoolLit{Value: v}, nil
	case p.cur.kind == tokString:
		v := p.cur.text
		p.advance()
		return &StrLit{Value: v}, nil
	}
	return nil, p.errAt(errs.KindUnexpectedToken, "expected a literal")
}

func (p *parser) parseFor() (*For, error) {
	p.advance() // for
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExprNoStruct()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &For{Name: name, Iter: iter, Body: body}, nil
}

func (p *parser) parseWhile() (*While, error) {
	p.advance() // while
	cond, err := p.parseExprNoStruct()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body}, nil
}

func (p *parser) parseReturn() (*Return, error) {
	p.advance() // return
	if p.isPunct(";") {
		p.advance()
		return &Return{}, nil
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &Return{Value: v}, nil
}

// noStruct suppresses struct-literal parsing ambiguity in condition
// position (`if x {` must not read `x { ... }` as a struct literal),
// mirroring how real Rust parsers handle this.
func (p *parser) parseExprNoStruct() (Expr, error) { return p.parseExprPrec(0, true) }
func (p *parser) parseExpr() (Expr, error)         { return p.parseExprPrec(0, false) }

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (p *parser) parseExprPrec(minPrec int, noStruct bool) (Expr, error) {
	left, err := p.parseUnary(noStruct)
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPunct {
		prec, ok := binaryPrecedence[p.cur.text]
		if !ok || prec < minPrec {
			break
		}
		op := p.cur.text
		p.advance()
		right, err := p.parseExprPrec(prec+1, noStruct)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	if p.isKeyword("as") {
		p.advance()
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		left = &Cast{Value: left, Type: ty}
	}
	return left, nil
}

func (p *parser) parseUnary(noStruct bool) (Expr, error) {
	if p.isPunct("!") || p.isPunct("-") {
		op := p.cur.text
		p.advance()
		operand, err := p.parseUnary(noStruct)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix(noStruct)
}

func (p *parser) parsePostfix(noStruct bool) (Expr, error) {
	e, err := p.parsePrimary(noStruct)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			p.advance()
			method, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			var args []Expr
			if p.isPunct("(") {
				args, err = p.parseArgs()
				if err != nil {
					return nil, err
				}
				e = &MethodCall{Receiver: e, Method: method, Args: args}
			} else {
				// field access on a struct value; represented as a
				// zero-arg method call so ir.Lower can special-case it.
				e = &MethodCall{Receiver: e, Method: method}
			}
		case p.isPunct("(") && isCallable(e):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			switch x := e.(type) {
			case *Ident:
				e = &Call{Name: x.Name, Args: args}
			}
		case p.isPunct(".."), p.isPunct("..="):
			inclusive := p.cur.text == "..="
			p.advance()
			hi, err := p.parseUnary(noStruct)
			if err != nil {
				return nil, err
			}
			e = &Range{Lo: e, Hi: hi, Inclusive: inclusive}
		default:
			return e, nil
		}
	}
}

func isCallable(e Expr) bool {
	_, ok := e.(*Ident)
	return ok
}

func (p *parser) parseArgs() ([]Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []Expr
	for !p.isPunct(")") {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary(noStruct bool) (Expr, error) {
	switch {
	case p.cur.kind == tokInt:
		return p.parseLiteralExpr()
	case p.isKeyword("true"), p.isKeyword("false"):
		return p.parseLiteralExpr()
	case p.cur.kind == tokString:
		return p.parseLiteralExpr()
	case p.isPunct("("):
		p.advance()
		if p.isPunct(")") {
			p.advance()
			return &Tuple{}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.isPunct(",") {
			elems := []Expr{first}
			for p.isPunct(",") {
				p.advance()
				if p.isPunct(")") {
					break
				}
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &Tuple{Elements: elems}, nil
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return first, nil
	case p.isPunct("["):
		p.advance()
		var elems []Expr
		for !p.isPunct("]") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return &ArrayLit{Elements: elems}, nil
	case p.isPunct("{"):
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &BlockExpr{Block: b}, nil
	case p.isPunct("|"):
		return p.parseClosure()
	case p.isKeyword("if"):
		return p.parseIfExpr()
	case p.isKeyword("match"):
		scrutinee, arms, err := p.parseMatchCommon()
		if err != nil {
			return nil, err
		}
		return &MatchExpr{Scrutinee: scrutinee, Arms: arms}, nil
	case p.cur.kind == tokIdent:
		name := p.cur.text
		p.advance()
		if p.isPunct("!") {
			p.advance()
			if !AllowedMacros[name] {
				return nil, p.errAt(errs.KindUnsupportedConstruct, fmt.Sprintf("macro %q! is not in the allowed set (println!, eprintln!, print!, format!, vec!)", name)).
					WithHelp("rewrite without this macro, or use one of the allowed set")
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &MacroCall{Name: name, Args: args}, nil
		}
		if p.isPunct("(") {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &Call{Name: name, Args: args}, nil
		}
		if p.isPunct("{") && !noStruct {
			return p.parseStructLit(name)
		}
		return &Ident{Name: name}, nil
	}
	return nil, p.errAt(errs.KindUnexpectedToken, fmt.Sprintf("unexpected token %q", p.cur.text))
}

func (p *parser) parseStructLit(name string) (Expr, error) {
	p.advance() // {
	fields := map[string]Expr{}
	for !p.isPunct("}") {
		fname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fields[fname] = val
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &StructLit{Name: name, Fields: fields}, nil
}

func (p *parser) parseClosure() (Expr, error) {
	p.advance() // |
	var params []string
	for !p.isPunct("|") {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		params = append(params, name)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct("|"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Closure{Params: params, Body: body}, nil
}

// parseIfExpr parses `if cond { then } else { else }` in expression
// position directly into the *IfExpr (`__if_expr`) node.
func (p *parser) parseIfExpr() (Expr, error) {
	p.advance() // if
	cond, err := p.parseExprNoStruct()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &IfExpr{Cond: cond, Then: blockToExpr(then)}
	if p.isKeyword("else") {
		p.advance()
		if p.isKeyword("if") {
			elseExpr, err := p.parseIfExpr()
			if err != nil {
				return nil, err
			}
			node.Else = elseExpr
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			node.Else = blockToExpr(elseBlock)
		}
	}
	return node, nil
}

func blockToExpr(b *Block) Expr {
	if len(b.Stmts) == 0 && b.Tail != nil {
		return b.Tail
	}
	return &BlockExpr{Block: b}
}
