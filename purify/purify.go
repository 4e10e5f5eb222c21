// Package purify implements the bash-AST -> bash-AST rewrite that
// normalizes the shebang, converts bash-only constructs ([[ ]], (( )),
// arrays, declare flags, C-style for) into POSIX equivalents, and
// enforces idempotency and quoting invariants. The rewriter is a pure
// function of its input and is a fixed point under repeated
// application.
package purify

import (
	"strings"

	"github.com/bashrs-go/bashrs/bashast"
)

// Purify returns a new File with every bash-only construct in f rewritten
// to its POSIX-safe form. Calling Purify on its own output returns an
// AST equal to the input (up to the synthetic spans introduced by the
// rewrite).
func Purify(f *bashast.File) *bashast.File {
	return &bashast.File{Statements: purifyStmts(f.Statements)}
}

// purifyStmts rewrites a statement list. Some rewrites (C-style for,
// combined declare+readonly+export) expand one input statement into
// several output statements, so this operates on, and returns, a slice.
func purifyStmts(stmts []bashast.Stmt) []bashast.Stmt {
	out := make([]bashast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, purifyStmt(s)...)
	}
	return out
}

func purifyStmt(s bashast.Stmt) []bashast.Stmt {
	switch x := s.(type) {
	case *bashast.Comment:
		if isShebangComment(x.Text) {
			return nil // shebang is regenerated unconditionally by the emitter
		}
		return []bashast.Stmt{x}

	case *bashast.Command:
		return purifyCommand(x)

	case *bashast.Assignment:
		return []bashast.Stmt{x}

	case *bashast.Function:
		return []bashast.Stmt{&bashast.Function{Name: x.Name, Body: purifyStmts(x.Body)}}

	case *bashast.If:
		elifs := make([]bashast.ElifBlock, len(x.ElifBlocks))
		for i, e := range x.ElifBlocks {
			elifs[i] = bashast.ElifBlock{Condition: purifyCondition(e.Condition), Body: purifyStmts(e.Body)}
		}
		var elseBlock []bashast.Stmt
		if x.ElseBlock != nil {
			elseBlock = purifyStmts(x.ElseBlock)
		}
		return []bashast.Stmt{&bashast.If{
			Condition:  purifyCondition(x.Condition),
			ThenBlock:  purifyStmts(x.ThenBlock),
			ElifBlocks: elifs,
			ElseBlock:  elseBlock,
		}}

	case *bashast.For:
		return []bashast.Stmt{&bashast.For{Variable: x.Variable, Items: x.Items, Body: purifyStmts(x.Body)}}

	case *bashast.ForCStyle:
		return purifyForCStyle(x)

	case *bashast.While:
		return []bashast.Stmt{&bashast.While{Condition: purifyCondition(x.Condition), Body: purifyStmts(x.Body)}}

	case *bashast.Until:
		return []bashast.Stmt{&bashast.While{Condition: negateCondition(x.Condition), Body: purifyStmts(x.Body)}}

	case *bashast.Return:
		return []bashast.Stmt{x}

	case *bashast.Case:
		arms := make([]bashast.CaseArm, len(x.Arms))
		for i, a := range x.Arms {
			arms[i] = bashast.CaseArm{Patterns: a.Patterns, Body: purifyStmts(a.Body)}
		}
		return []bashast.Stmt{&bashast.Case{Word: x.Word, Arms: arms}}

	case *bashast.Pipeline:
		cmds := make([]bashast.Stmt, len(x.Commands))
		for i, c := range x.Commands {
			cs := purifyStmt(c)
			if len(cs) > 0 {
				cmds[i] = cs[0]
			}
		}
		return []bashast.Stmt{&bashast.Pipeline{Commands: cmds}}

	case *bashast.AndList:
		return []bashast.Stmt{&bashast.AndList{Left: firstOrSelf(purifyStmt(x.Left), x.Left), Right: firstOrSelf(purifyStmt(x.Right), x.Right)}}

	case *bashast.OrList:
		return []bashast.Stmt{&bashast.OrList{Left: firstOrSelf(purifyStmt(x.Left), x.Left), Right: firstOrSelf(purifyStmt(x.Right), x.Right)}}

	case *bashast.BraceGroup:
		return []bashast.Stmt{&bashast.BraceGroup{Body: purifyStmts(x.Body), Subshell: x.Subshell}}

	case *bashast.Coproc:
		return []bashast.Stmt{&bashast.Coproc{Name: x.Name, Body: purifyStmts(x.Body)}}

	case *bashast.Select:
		return []bashast.Stmt{&bashast.Select{Variable: x.Variable, Items: x.Items, Body: purifyStmts(x.Body)}}

	case *bashast.Negated:
		return []bashast.Stmt{&bashast.Negated{Command: firstOrSelf(purifyStmt(x.Command), x.Command)}}
	}
	return []bashast.Stmt{s}
}

func firstOrSelf(rewritten []bashast.Stmt, fallback bashast.Stmt) bashast.Stmt {
	if len(rewritten) > 0 {
		return rewritten[0]
	}
	return fallback
}

func isShebangComment(text string) bool {
	t := strings.TrimPrefix(text, " ")
	return strings.HasPrefix(t, "!/bin/bash") || strings.HasPrefix(t, "!/usr/bin/env bash") || strings.HasPrefix(t, "!/bin/sh")
}

// purifyCommand handles the three command-shaped bash-only forms: the
// standalone `[[ ... ]]`/`(( ... ))` test commands produced by the
// parser, `declare`/`typeset`, and the idempotency rewrites for
// mkdir/rm/ln.
func purifyCommand(c *bashast.Command) []bashast.Stmt {
	switch c.Name {
	case "[[":
		if len(c.Args) == 1 {
			if t, ok := c.Args[0].(*bashast.TestExprNode); ok {
				return []bashast.Stmt{&bashast.Command{Name: "test", Args: testExprToArgs(t.Test)}}
			}
		}
	case "((":
		if len(c.Args) == 1 {
			if a, ok := c.Args[0].(*bashast.Arith); ok {
				if assign, ok := incDecAssignment(a.Expr); ok {
					return []bashast.Stmt{assign}
				}
				return []bashast.Stmt{&bashast.Command{Name: ":", Args: []bashast.Expr{a}}}
			}
		}
	case "declare", "typeset":
		return purifyDeclare(c)
	case "mkdir":
		return []bashast.Stmt{&bashast.Command{Name: "mkdir", Args: ensureFlag(c.Args, "-p"), Redirects: c.Redirects}}
	case "rm":
		return []bashast.Stmt{&bashast.Command{Name: "rm", Args: ensureFlag(c.Args, "-f"), Redirects: c.Redirects}}
	case "ln":
		return []bashast.Stmt{&bashast.Command{Name: "ln", Args: ensureLnForce(c.Args), Redirects: c.Redirects}}
	}
	return []bashast.Stmt{c}
}

// ensureFlag prepends flag to args if no existing arg already carries
// it; flags present in the original are never duplicated.
func ensureFlag(args []bashast.Expr, flag string) []bashast.Expr {
	for _, a := range args {
		if l, ok := a.(*bashast.Lit); ok && (l.Value == flag || strings.Contains(l.Value, strings.TrimPrefix(flag, "-"))) && strings.HasPrefix(l.Value, "-") {
			return args
		}
	}
	out := make([]bashast.Expr, 0, len(args)+1)
	out = append(out, &bashast.Lit{Value: flag})
	out = append(out, args...)
	return out
}

// ensureLnForce turns `ln -s X Y` into `ln -sf X Y` without touching a
// plain `ln X Y` (hard link) or an already-forced `ln -sf`.
func ensureLnForce(args []bashast.Expr) []bashast.Expr {
	out := make([]bashast.Expr, len(args))
	copy(out, args)
	for i, a := range out {
		if l, ok := a.(*bashast.Lit); ok && strings.HasPrefix(l.Value, "-") && strings.Contains(l.Value, "s") && !strings.Contains(l.Value, "f") {
			out[i] = &bashast.Lit{Value: l.Value + "f"}
			return out
		}
	}
	return out
}

// purifyDeclare splits declare/typeset flags apart; array/assoc-array
// flags have no POSIX equivalent and become a comment, readonly+export
// combinations become two statements, everything else becomes a plain
// Assignment.
func purifyDeclare(c *bashast.Command) []bashast.Stmt {
	var flags []string
	var assigns []bashast.Expr
	for _, a := range c.Args {
		if l, ok := a.(*bashast.Lit); ok && strings.HasPrefix(l.Value, "-") {
			flags = append(flags, l.Value)
			continue
		}
		assigns = append(assigns, a)
	}
	has := func(ch byte) bool {
		for _, f := range flags {
			if strings.IndexByte(f, ch) >= 0 {
				return true
			}
		}
		return false
	}
	if has('a') || has('A') {
		return []bashast.Stmt{&bashast.Comment{Text: strings.TrimRight("declare "+strings.Join(flags, " ")+" "+joinLits(assigns)+" (not POSIX)", " ")}}
	}

	exported, readonly := has('x'), has('r')
	var out []bashast.Stmt
	for _, a := range assigns {
		name, value := splitNameValue(a)
		if exported && readonly {
			// readonly must follow the export as its own statement so the
			// value is visible to subsequent commands before it is locked.
			out = append(out, &bashast.Assignment{Name: name, Value: value, Exported: true})
			out = append(out, &bashast.Assignment{Name: name, Value: value, ReadOnly: true})
			continue
		}
		out = append(out, &bashast.Assignment{Name: name, Value: value, Exported: exported, ReadOnly: readonly})
	}
	return out
}

func joinLits(exprs []bashast.Expr) string {
	var parts []string
	for _, e := range exprs {
		if l, ok := e.(*bashast.Lit); ok {
			parts = append(parts, l.Value)
		}
	}
	return strings.Join(parts, " ")
}

func splitNameValue(e bashast.Expr) (string, bashast.Expr) {
	if l, ok := e.(*bashast.Lit); ok {
		if eq := strings.IndexByte(l.Value, '='); eq > 0 {
			return l.Value[:eq], &bashast.Lit{Value: l.Value[eq+1:]}
		}
		return l.Value, &bashast.Lit{Value: ""}
	}
	return "", e
}

// incDecAssignment recognizes `i++`/`i--`/`++i`/`--i` as the sole content
// of a standalone `(( ... ))` statement and rewrites it to the
// corresponding arithmetic assignment.
func incDecAssignment(e bashast.ArithExpr) (*bashast.Assignment, bool) {
	u, ok := e.(*bashast.ArithUnary)
	if !ok {
		return nil, false
	}
	v, ok := u.Operand.(*bashast.ArithVar)
	if !ok {
		return nil, false
	}
	op := "+"
	if u.Op == "--" {
		op = "-"
	}
	value := &bashast.Arith{Expr: &bashast.ArithBinary{Op: op, Left: &bashast.ArithVar{Name: v.Name}, Right: &bashast.ArithNum{Value: "1"}}}
	return &bashast.Assignment{Name: v.Name, Value: value}, true
}

// purifyCondition rewrites a [[ ]]/(( ))/command condition in place;
// the shapes themselves already carry the right semantics (the
// `[[ a == b ]]` -> `[ "$a" = "$b" ]` conversion is purely an
// emission-time decision, since TestExprNode/ArithExpr already model
// the POSIX semantics), so purifyCondition only needs to recurse into
// any nested CommandCondition.
func purifyCondition(e bashast.Expr) bashast.Expr {
	if cc, ok := e.(*bashast.CommandCondition); ok {
		return &bashast.CommandCondition{Stmt: firstOrSelf(purifyStmt(cc.Stmt), cc.Stmt)}
	}
	return e
}

func negateCondition(e bashast.Expr) bashast.Expr {
	e = purifyCondition(e)
	if t, ok := e.(*bashast.TestExprNode); ok {
		return &bashast.TestExprNode{Test: &bashast.TestNot{Operand: t.Test}}
	}
	if cc, ok := e.(*bashast.CommandCondition); ok {
		return &bashast.CommandCondition{Stmt: &bashast.Negated{Command: cc.Stmt}}
	}
	return e
}

// purifyForCStyle hoists the init clause out as a standalone Assignment,
// rewrites the condition as a POSIX test, and appends the increment as
// an arithmetic assignment at the end of the body: the C-style `for`
// -> POSIX `while` conversion.
func purifyForCStyle(x *bashast.ForCStyle) []bashast.Stmt {
	var out []bashast.Stmt
	if init, ok := parseSimpleAssignText(x.Init); ok {
		out = append(out, init)
	}
	cond := convertCCondition(x.Condition)
	body := purifyStmts(x.Body)
	if incr, ok := convertCIncrement(x.Increment); ok {
		body = append(body, incr)
	}
	out = append(out, &bashast.While{Condition: cond, Body: body})
	return out
}

func parseSimpleAssignText(s string) (*bashast.Assignment, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	eq := strings.IndexByte(s, '=')
	if eq <= 0 {
		return nil, false
	}
	return &bashast.Assignment{Name: strings.TrimSpace(s[:eq]), Value: &bashast.Lit{Value: strings.TrimSpace(s[eq+1:])}}, true
}

var cCondOps = []struct{ tok, intOp string }{
	{"<=", "-le"}, {">=", "-ge"}, {"!=", "-ne"}, {"==", "-eq"}, {"<", "-lt"}, {">", "-gt"},
}

func convertCCondition(cond string) bashast.Expr {
	cond = strings.TrimSpace(cond)
	for _, o := range cCondOps {
		if idx := strings.Index(cond, o.tok); idx >= 0 {
			left := strings.TrimSpace(cond[:idx])
			right := strings.TrimSpace(cond[idx+len(o.tok):])
			v := strings.TrimPrefix(left, "$")
			var test bashast.TestExpr
			rightExpr := &bashast.Lit{Value: right}
			leftExpr := &bashast.Variable{Name: v}
			switch o.intOp {
			case "-le":
				test = &bashast.IntLe{Left: leftExpr, Right: rightExpr}
			case "-ge":
				test = &bashast.IntGe{Left: leftExpr, Right: rightExpr}
			case "-ne":
				test = &bashast.IntNe{Left: leftExpr, Right: rightExpr}
			case "-eq":
				test = &bashast.IntEq{Left: leftExpr, Right: rightExpr}
			case "-lt":
				test = &bashast.IntLt{Left: leftExpr, Right: rightExpr}
			case "-gt":
				test = &bashast.IntGt{Left: leftExpr, Right: rightExpr}
			}
			return &bashast.TestExprNode{Test: test}
		}
	}
	// Fallback for unrecognized forms: wrap the raw text in $(( ... )).
	return &bashast.Arith{Expr: bashast.ParseArith(cond)}
}

func convertCIncrement(incr string) (bashast.Stmt, bool) {
	incr = strings.TrimSpace(incr)
	if incr == "" {
		return nil, false
	}
	switch {
	case strings.HasSuffix(incr, "++"):
		v := strings.TrimSuffix(incr, "++")
		return plusAssign(v, "+", "1"), true
	case strings.HasPrefix(incr, "++"):
		v := strings.TrimPrefix(incr, "++")
		return plusAssign(v, "+", "1"), true
	case strings.HasSuffix(incr, "--"):
		v := strings.TrimSuffix(incr, "--")
		return plusAssign(v, "-", "1"), true
	case strings.HasPrefix(incr, "--"):
		v := strings.TrimPrefix(incr, "--")
		return plusAssign(v, "-", "1"), true
	}
	if idx := strings.Index(incr, "+="); idx >= 0 {
		return plusAssign(strings.TrimSpace(incr[:idx]), "+", strings.TrimSpace(incr[idx+2:])), true
	}
	if idx := strings.Index(incr, "-="); idx >= 0 {
		return plusAssign(strings.TrimSpace(incr[:idx]), "-", strings.TrimSpace(incr[idx+2:])), true
	}
	return nil, false
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

func plusAssign(v, op, amount string) *bashast.Assignment {
	var rhs bashast.ArithExpr = &bashast.ArithNum{Value: amount}
	if amount != "" && !isDigitByte(amount[0]) {
		rhs = &bashast.ArithVar{Name: amount}
	}
	return &bashast.Assignment{
		Name: v,
		Value: &bashast.Arith{Expr: &bashast.ArithBinary{
			Op:    op,
			Left:  &bashast.ArithVar{Name: v},
			Right: rhs,
		}},
	}
}

// testExprToArgs flattens a TestExpr into the flat word-argument form the
// POSIX `test` utility expects, e.g. StringEq(a,b) -> ["a", "=", "b"].
func testExprToArgs(t bashast.TestExpr) []bashast.Expr {
	switch x := t.(type) {
	case *bashast.StringEq:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "="}, x.Right}
	case *bashast.StringNe:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "!="}, x.Right}
	case *bashast.IntEq:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "-eq"}, x.Right}
	case *bashast.IntNe:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "-ne"}, x.Right}
	case *bashast.IntLt:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "-lt"}, x.Right}
	case *bashast.IntLe:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "-le"}, x.Right}
	case *bashast.IntGt:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "-gt"}, x.Right}
	case *bashast.IntGe:
		return []bashast.Expr{x.Left, &bashast.Lit{Value: "-ge"}, x.Right}
	case *bashast.FileExists:
		return []bashast.Expr{&bashast.Lit{Value: "-e"}, x.Path}
	case *bashast.FileReadable:
		return []bashast.Expr{&bashast.Lit{Value: "-r"}, x.Path}
	case *bashast.FileWritable:
		return []bashast.Expr{&bashast.Lit{Value: "-w"}, x.Path}
	case *bashast.FileExecutable:
		return []bashast.Expr{&bashast.Lit{Value: "-x"}, x.Path}
	case *bashast.FileDirectory:
		return []bashast.Expr{&bashast.Lit{Value: "-d"}, x.Path}
	case *bashast.StringEmpty:
		return []bashast.Expr{&bashast.Lit{Value: "-z"}, x.Operand}
	case *bashast.StringNonEmpty:
		return []bashast.Expr{&bashast.Lit{Value: "-n"}, x.Operand}
	case *bashast.TestAnd:
		return append(append(testExprToArgs(x.Left), &bashast.Lit{Value: "-a"}), testExprToArgs(x.Right)...)
	case *bashast.TestOr:
		return append(append(testExprToArgs(x.Left), &bashast.Lit{Value: "-o"}), testExprToArgs(x.Right)...)
	case *bashast.TestNot:
		return append([]bashast.Expr{&bashast.Lit{Value: "!"}}, testExprToArgs(x.Operand)...)
	}
	return nil
}
