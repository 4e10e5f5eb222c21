// Lowering turns a restricted-DSL Program (package dsl) into a ShellIR
// Program. The recursive tree transformation resolves shell's
// statement/expression impedance mismatch by threading a "sink" — the
// continuation that consumes a branch's final value — through Let,
// Return, match-arm, and if-expr lowering, so all four contexts share
// one implementation of "how to finish a value-producing block"
// instead of four near-duplicates.
package ir

import (
	"strings"

	"github.com/bashrs-go/bashrs/dsl"
)

// Program is the lowered form of a dsl.Program: user functions (entry
// excluded) plus the entry function's body as the script's top level,
// matching the emitter's output order of user functions first, then
// the main body.
type Program struct {
	Functions []*Function
	Main      ShellIR
}

// sink is the continuation a value-producing context (Let, Return, a
// match arm, an if-expr branch) is lowered against: it decides what
// happens to the branch's final ShellValue.
type sink func(ShellValue) ShellIR

func letSink(name string) sink {
	return func(v ShellValue) ShellIR { return &Let{Name: name, Value: v} }
}

func returnSink() sink {
	return func(v ShellValue) ShellIR { return &Return{Value: v} }
}

// Lower lowers an entire dsl.Program to an ir.Program.
func Lower(p *dsl.Program) *Program {
	out := &Program{}
	for _, fn := range p.Functions {
		if fn.Name == p.Entry {
			out.Main = lowerFnBody(fn)
			continue
		}
		out.Functions = append(out.Functions, lowerFunction(fn))
	}
	return out
}

func lowerFunction(fn *dsl.Fn) *Function {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	return &Function{Name: fn.Name, Params: params, Body: lowerFnBody(fn)}
}

func lowerFnBody(fn *dsl.Fn) ShellIR {
	if fn.RetType != "" {
		return lowerBlock(fn.Body, returnSink())
	}
	return lowerBlock(fn.Body, nil)
}

// lowerBlock lowers a block's statements, then its tail (or its
// last statement standing in as the terminal). sink == nil means a
// void (statement) context: the tail, if any, is executed and
// discarded; an empty body lowers to Noop. sink != nil means a
// value-producing context: an empty body defaults the target to the
// string "0" — a deliberate design choice, not an accidental null.
func lowerBlock(b *dsl.Block, snk sink) ShellIR {
	stmts := b.Stmts
	var carrier dsl.Stmt
	if b.Tail == nil && snk != nil && len(stmts) > 0 {
		if isValueCarrier(stmts[len(stmts)-1]) {
			carrier = stmts[len(stmts)-1]
			stmts = stmts[:len(stmts)-1]
		}
	}

	var items []ShellIR
	for _, s := range stmts {
		items = append(items, lowerStmt(s))
	}

	switch {
	case b.Tail != nil:
		items = append(items, lowerTail(snk, b.Tail))
	case carrier != nil:
		items = append(items, lowerCarrierStmt(snk, carrier))
	case snk != nil:
		items = append(items, snk(&String{Value: "0"}))
	}
	// void context with no tail: nothing more to append; an empty body
	// lowers to a bare Noop below.

	switch len(items) {
	case 0:
		return &Noop{}
	case 1:
		return items[0]
	default:
		return &Sequence{Items: items}
	}
}

// isValueCarrier reports whether a block's last statement can stand in
// for a missing tail expression in value context: Expr, Return, nested
// Match, If, or a multi-statement body ending in one of those.
func isValueCarrier(s dsl.Stmt) bool {
	switch s.(type) {
	case *dsl.If, *dsl.Match, *dsl.Return, *dsl.ExprStmt:
		return true
	}
	return false
}

// lowerCarrierStmt lowers a value-carrying last statement against the
// sink: a nested If/Match recurses with the same sink into every
// branch, a Return stays a return, and a bare expression statement is
// handed to the sink directly.
func lowerCarrierStmt(snk sink, s dsl.Stmt) ShellIR {
	switch x := s.(type) {
	case *dsl.If:
		return lowerIfStmtWithSink(snk, x)
	case *dsl.Match:
		return lowerMatchValue(snk, x.Scrutinee, x.Arms)
	case *dsl.Return:
		return lowerReturn(x)
	case *dsl.ExprStmt:
		return lowerValueish(snk, x.Value)
	}
	return lowerStmt(s)
}

// lowerIfStmtWithSink is lowerIfStmt in value context: every branch
// lowers against the same sink, and a missing else still assigns the
// "0" default so the target is bound on every path.
func lowerIfStmtWithSink(snk sink, x *dsl.If) ShellIR {
	then := lowerBlock(x.Then, snk)
	var els ShellIR
	switch {
	case x.Else == nil:
		els = snk(&String{Value: "0"})
	default:
		if inner, ok := x.Else.(*dsl.If); ok {
			els = lowerIfStmtWithSink(snk, inner)
		} else if b, ok := unwrapBlockStmt(x.Else); ok {
			els = lowerBlock(b, snk)
		} else {
			els = lowerCarrierStmt(snk, x.Else)
		}
	}
	return &If{Cond: lowerCond(x.Cond), Then: then, Else: els}
}

// lowerTail lowers a block's trailing expression (or a value-carrying
// last statement standing in for one, see lowerCarrierStmt) in either
// a value context (snk != nil) or a void context (snk == nil, the
// expression is evaluated for effect only).
func lowerTail(snk sink, e dsl.Expr) ShellIR {
	if snk == nil {
		return lowerExprStatement(e)
	}
	return lowerValueish(snk, e)
}

// lowerValueish lowers an expression that is itself a value-producing
// branch point (IfExpr, MatchExpr, a nested block) by recursing with
// the same sink into every branch, or otherwise hands the expression's
// single value to the sink.
func lowerValueish(snk sink, e dsl.Expr) ShellIR {
	switch x := e.(type) {
	case *dsl.IfExpr:
		return lowerIfExprValue(snk, x)
	case *dsl.MatchExpr:
		return lowerMatchValue(snk, x.Scrutinee, x.Arms)
	case *dsl.BlockExpr:
		return lowerBlock(x.Block, snk)
	default:
		if snk == nil {
			return lowerExprStatement(e)
		}
		return snk(lowerValue(e))
	}
}

// lowerIfExprValue lowers the `__if_expr(cond, then, else)` marker: a
// nested `then` branch becomes a nested `if` (handled naturally by the
// recursive call); a nested `else` branch becomes an `elif` chain
// because the emitter renders an *If appearing as another If's Else as
// `elif`.
func lowerIfExprValue(snk sink, x *dsl.IfExpr) ShellIR {
	then := lowerValueish(snk, x.Then)
	var els ShellIR
	if x.Else != nil {
		els = lowerValueish(snk, x.Else)
	}
	return &If{Cond: lowerCond(x.Cond), Then: then, Else: els}
}

// lowerStmt lowers one dsl statement in void (non-value) context.
func lowerStmt(s dsl.Stmt) ShellIR {
	switch x := s.(type) {
	case *dsl.Let:
		return lowerValueish(letSink(x.Name), x.Value)
	case *dsl.Assignment:
		return lowerValueish(letSink(x.Target), x.Value)
	case *dsl.If:
		return lowerIfStmt(x)
	case *dsl.Match:
		return lowerMatchValue(nil, x.Scrutinee, x.Arms)
	case *dsl.For:
		return &ForIn{Var: x.Name, Items: lowerValue(x.Iter), Body: lowerBlock(x.Body, nil)}
	case *dsl.While:
		return &While{Cond: lowerCond(x.Cond), Body: lowerBlock(x.Body, nil)}
	case *dsl.Return:
		return lowerReturn(x)
	case *dsl.ExprStmt:
		return lowerExprStatement(x.Value)
	default:
		return &Noop{}
	}
}

func lowerReturn(r *dsl.Return) ShellIR {
	if r.Value == nil {
		return &Return{}
	}
	return lowerValueish(returnSink(), r.Value)
}

// lowerIfStmt lowers a statement-position `if`. When the else branch
// is itself an *dsl.If, the lowered Else is an *If, which the emitter
// detects and renders as `elif`.
func lowerIfStmt(x *dsl.If) ShellIR {
	then := lowerBlock(x.Then, nil)
	var els ShellIR
	if x.Else != nil {
		if inner, ok := x.Else.(*dsl.If); ok {
			els = lowerIfStmt(inner)
		} else if b, ok := unwrapBlockStmt(x.Else); ok {
			els = lowerBlock(b, nil)
		} else {
			els = lowerStmt(x.Else)
		}
	}
	return &If{Cond: lowerCond(x.Cond), Then: then, Else: els}
}

func unwrapBlockStmt(s dsl.Stmt) (*dsl.Block, bool) {
	if es, ok := s.(*dsl.ExprStmt); ok {
		if be, ok := es.Value.(*dsl.BlockExpr); ok {
			return be.Block, true
		}
	}
	return nil, false
}

// lowerExprStatement lowers an expression used for its side effect: a
// print macro becomes Echo; a plain or method call becomes Exec;
// anything else (a bare value with no effect) lowers to Noop.
func lowerExprStatement(e dsl.Expr) ShellIR {
	switch x := e.(type) {
	case *dsl.MacroCall:
		switch x.Name {
		case "println":
			return &Echo{Value: lowerFormatArgs(x.Args), Newline: true}
		case "print":
			return &Echo{Value: lowerFormatArgs(x.Args), Newline: false}
		case "eprintln":
			return &Echo{Value: lowerFormatArgs(x.Args), Newline: true, Stderr: true}
		default:
			return &Noop{}
		}
	case *dsl.Call:
		return &Exec{Command: lowerCommand(x.Name, x.Args)}
	case *dsl.MethodCall:
		return &Exec{Command: lowerMethodCommand(x)}
	case *dsl.IfExpr, *dsl.MatchExpr, *dsl.BlockExpr:
		return lowerValueish(nil, e)
	default:
		return &Noop{}
	}
}

// lowerFormatArgs implements the minimal `{}`-placeholder substitution
// println!/eprintln!/print!/format! need: a literal format string with
// one `{}` per trailing argument, substituted left to right. A single
// bare argument (no format string) lowers to its value directly.
func lowerFormatArgs(args []dsl.Expr) ShellValue {
	if len(args) == 0 {
		return &String{Value: ""}
	}
	lit, ok := args[0].(*dsl.StrLit)
	if !ok || len(args) == 1 {
		return lowerValue(args[0])
	}
	var parts []ShellValue
	rest := lit.Value
	argIdx := 1
	for {
		i := strings.Index(rest, "{}")
		if i < 0 {
			if rest != "" {
				parts = append(parts, &String{Value: rest})
			}
			break
		}
		if i > 0 {
			parts = append(parts, &String{Value: rest[:i]})
		}
		if argIdx < len(args) {
			parts = append(parts, lowerValue(args[argIdx]))
			argIdx++
		}
		rest = rest[i+2:]
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return &Concat{Parts: parts}
}

func lowerCommand(name string, args []dsl.Expr) Command {
	return Command{Name: name, Args: lowerValues(args)}
}

// methodBuiltins maps a DSL method-call name to the selective-runtime
// `rash_*` helper that implements it.
var methodBuiltins = map[string]string{
	"trim":        "rash_string_trim",
	"contains":    "rash_string_contains",
	"len":         "rash_string_len",
	"replace":     "rash_string_replace",
	"to_upper":    "rash_string_to_upper",
	"to_lower":    "rash_string_to_lower",
	"split":       "rash_string_split",
	"exists":      "rash_fs_exists",
	"read_file":   "rash_fs_read_file",
	"write_file":  "rash_fs_write_file",
	"copy":        "rash_fs_copy",
	"remove":      "rash_fs_remove",
	"is_file":     "rash_fs_is_file",
	"is_dir":      "rash_fs_is_dir",
}

func lowerMethodCommand(x *dsl.MethodCall) Command {
	name := methodBuiltins[x.Method]
	if name == "" {
		name = x.Method
	}
	args := append([]ShellValue{lowerValue(x.Receiver)}, lowerValues(x.Args)...)
	return Command{Name: name, Args: args}
}

func lowerValues(exprs []dsl.Expr) []ShellValue {
	out := make([]ShellValue, len(exprs))
	for i, e := range exprs {
		out[i] = lowerValue(e)
	}
	return out
}

// lowerValue lowers an expression appearing in ordinary value position
// (a Let RHS that is not itself a branch point, a call argument, an
// array element).
func lowerValue(e dsl.Expr) ShellValue {
	switch x := e.(type) {
	case *dsl.Ident:
		return &Variable{Name: x.Name}
	case *dsl.IntLit:
		return &String{Value: x.Value}
	case *dsl.BoolLit:
		return &Bool{Value: x.Value}
	case *dsl.StrLit:
		return &String{Value: x.Value}
	case *dsl.Binary:
		return lowerBinaryValue(x)
	case *dsl.Unary:
		return lowerUnaryValue(x)
	case *dsl.Call:
		return &CommandSubst{Command: lowerCommand(x.Name, x.Args)}
	case *dsl.MethodCall:
		return &CommandSubst{Command: lowerMethodCommand(x)}
	case *dsl.MacroCall:
		switch x.Name {
		case "format":
			return lowerFormatArgs(x.Args)
		case "vec":
			return &Array{Elements: lowerValues(x.Args)}
		default:
			return &String{Value: ""}
		}
	case *dsl.ArrayLit:
		return &Array{Elements: lowerValues(x.Elements)}
	case *dsl.Tuple:
		return &Array{Elements: lowerValues(x.Elements)}
	case *dsl.Range:
		return &Range{Lo: lowerValue(x.Lo), Hi: lowerValue(x.Hi), Inclusive: x.Inclusive}
	case *dsl.Cast:
		return lowerValue(x.Value) // casts are type-erased at shell level
	case *dsl.BlockExpr:
		if x.Block.Tail != nil {
			return lowerValue(x.Block.Tail)
		}
		return &String{Value: "0"}
	default:
		return &String{Value: ""}
	}
}

var numericCompareOps = map[string]string{
	"==": "-eq", "!=": "-ne", "<": "-lt", "<=": "-le", ">": "-gt", ">=": "-ge",
}

var stringCompareOps = map[string]string{"==": "=", "!=": "!="}

func isStringish(e dsl.Expr) bool {
	_, ok := e.(*dsl.StrLit)
	return ok
}

func lowerBinaryValue(x *dsl.Binary) ShellValue {
	switch x.Op {
	case "+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>":
		return &Arithmetic{Op: x.Op, L: lowerValue(x.Left), R: lowerValue(x.Right)}
	case "==", "!=", "<", "<=", ">", ">=":
		l, r := lowerValue(x.Left), lowerValue(x.Right)
		if isStringish(x.Left) || isStringish(x.Right) {
			op, ok := stringCompareOps[x.Op]
			if !ok {
				op = x.Op
			}
			return &Comparison{Op: op, L: l, R: r}
		}
		return &Comparison{Op: numericCompareOps[x.Op], L: l, R: r}
	case "&&":
		return &LogicalAnd{L: lowerCond(x.Left), R: lowerCond(x.Right)}
	case "||":
		return &LogicalOr{L: lowerCond(x.Left), R: lowerCond(x.Right)}
	default:
		return &Concat{Parts: []ShellValue{lowerValue(x.Left), lowerValue(x.Right)}}
	}
}

func lowerUnaryValue(x *dsl.Unary) ShellValue {
	switch x.Op {
	case "!":
		return &LogicalNot{Operand: lowerCond(x.Operand)}
	case "-":
		return &Arithmetic{Op: "-", L: &String{Value: "0"}, R: lowerValue(x.Operand)}
	default:
		return lowerValue(x.Operand)
	}
}

// lowerCond lowers an expression used as a condition (an if/while
// header, a match guard): function calls in condition position test
// the command's exit status (CommandCondition) rather than capturing
// output (CommandSubst).
func lowerCond(e dsl.Expr) ShellValue {
	switch x := e.(type) {
	case *dsl.Call:
		return &CommandCondition{Command: lowerCommand(x.Name, x.Args)}
	case *dsl.MethodCall:
		return &CommandCondition{Command: lowerMethodCommand(x)}
	case *dsl.Unary:
		if x.Op == "!" {
			return &LogicalNot{Operand: lowerCond(x.Operand)}
		}
	case *dsl.Binary:
		switch x.Op {
		case "&&":
			return &LogicalAnd{L: lowerCond(x.Left), R: lowerCond(x.Right)}
		case "||":
			return &LogicalOr{L: lowerCond(x.Left), R: lowerCond(x.Right)}
		}
	}
	return lowerValue(e)
}

// lowerMatchValue lowers a match (statement or expression position,
// hence the bare scrutinee+arms signature shared by *dsl.Match and
// *dsl.MatchExpr) to either a range-pattern if-chain or a `case`
// dispatch. snk == nil means a void (statement) match; its arm bodies
// are lowered for effect only.
func lowerMatchValue(snk sink, scrutinee dsl.Expr, arms []dsl.MatchArm) ShellIR {
	scrut := lowerValue(scrutinee)

	hasRange := false
	for _, a := range arms {
		if _, ok := a.Pattern.(*dsl.RangePattern); ok {
			hasRange = true
		}
	}
	if hasRange {
		return lowerRangeCascade(snk, scrut, arms, 0)
	}

	if len(arms) == 1 {
		if _, ok := arms[0].Pattern.(*dsl.WildcardPattern); ok {
			return lowerArmBody(snk, arms[0])
		}
	}

	caseArms := make([]CaseArm, 0, len(arms))
	for _, a := range arms {
		pattern, bind := lowerPattern(a.Pattern)
		body := lowerArmBodyWithBind(snk, a, bind, scrut)
		var guard ShellValue
		if a.Guard != nil {
			guard = lowerCond(a.Guard)
		}
		caseArms = append(caseArms, CaseArm{Pattern: pattern, Guard: guard, Body: body})
	}
	return &Case{Scrutinee: scrut, Arms: caseArms}
}

func lowerArmBody(snk sink, a dsl.MatchArm) ShellIR {
	if snk == nil {
		return lowerBlock(a.Body, nil)
	}
	return lowerBlock(a.Body, snk)
}

func lowerArmBodyWithBind(snk sink, a dsl.MatchArm, bind string, scrut ShellValue) ShellIR {
	body := lowerArmBody(snk, a)
	if bind == "" {
		return body
	}
	binder := &Let{Name: bind, Value: scrut}
	return &Sequence{Items: []ShellIR{binder, body}}
}

// lowerPattern translates one match-arm pattern to a `case` label plus
// the name it binds: Wildcard and Variable both become `*`;
// TupleStruct(Some|Ok) binds its argument; None/Err are matched as an
// empty sentinel with no binding.
func lowerPattern(p dsl.Pattern) (pattern string, bind string) {
	switch x := p.(type) {
	case *dsl.WildcardPattern:
		return "*", ""
	case *dsl.VariablePattern:
		return "*", x.Name
	case *dsl.LiteralPattern:
		return literalPatternLabel(x.Value), ""
	case *dsl.TupleStructPattern:
		switch x.Name {
		case "Some", "Ok":
			return "*", x.Bind
		default: // None, Err
			return "", ""
		}
	default:
		return "*", ""
	}
}

func literalPatternLabel(e dsl.Expr) string {
	switch x := e.(type) {
	case *dsl.BoolLit:
		if x.Value {
			return "true"
		}
		return "false"
	case *dsl.IntLit:
		return x.Value
	case *dsl.StrLit:
		return escapeCaseLabel(x.Value)
	default:
		return "*"
	}
}

func escapeCaseLabel(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '|', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}

// lowerRangeCascade builds the `if [ $scrut -ge lo ] && [ $scrut -le hi
// ]; then ... elif ...` chain for any match containing a Range pattern
// (POSIX `case` labels cannot express numeric ranges). A trailing
// Wildcard arm becomes the terminal `else`.
func lowerRangeCascade(snk sink, scrut ShellValue, arms []dsl.MatchArm, idx int) ShellIR {
	if idx >= len(arms) {
		if snk == nil {
			return &Noop{}
		}
		return snk(&String{Value: "0"})
	}
	arm := arms[idx]

	if _, ok := arm.Pattern.(*dsl.WildcardPattern); ok {
		return lowerArmBody(snk, arm)
	}

	switch p := arm.Pattern.(type) {
	case *dsl.RangePattern:
		lo := lowerValue(p.Lo)
		hi := lowerValue(p.Hi)
		hiOp := "-lt"
		if p.Inclusive {
			hiOp = "-le"
		}
		cond := &LogicalAnd{
			L: &Comparison{Op: "-ge", L: scrut, R: lo},
			R: &Comparison{Op: hiOp, L: scrut, R: hi},
		}
		return &If{
			Cond: cond,
			Then: lowerArmBody(snk, arm),
			Else: lowerRangeCascade(snk, scrut, arms, idx+1),
		}
	case *dsl.VariablePattern:
		return lowerArmBodyWithBind(snk, arm, p.Name, scrut)
	case *dsl.LiteralPattern:
		op := "="
		if _, ok := p.Value.(*dsl.IntLit); ok {
			op = "-eq"
		}
		cond := &Comparison{Op: op, L: scrut, R: lowerValue(p.Value)}
		return &If{
			Cond: cond,
			Then: lowerArmBody(snk, arm),
			Else: lowerRangeCascade(snk, scrut, arms, idx+1),
		}
	default:
		return lowerRangeCascade(snk, scrut, arms, idx+1)
	}
}
