package bashast

import (
	"fmt"
	"strings"
)

// GeneratePurified renders a (presumably already-purified) bash AST back
// to POSIX-leaning bash text. The output always starts with
// "#!/bin/sh\n" regardless of what shebang the source carried.
func GeneratePurified(f *File) string {
	var out strings.Builder
	out.WriteString("#!/bin/sh\n")
	for _, s := range f.Statements {
		out.WriteString(generateStmt(s, 0))
		out.WriteByte('\n')
	}
	return out.String()
}

func pad(indent int) string { return strings.Repeat("    ", indent) }

func generateStmt(s Stmt, indent int) string {
	p := pad(indent)
	switch x := s.(type) {
	case *Command:
		return generateCommandStmt(p, x)
	case *Assignment:
		return generateAssignmentStmt(p, x)
	case *Comment:
		return generateCommentStmt(p, x.Text)
	case *Function:
		return generateFunctionStmt(p, x, indent)
	case *If:
		return generateIfStmt(p, x, indent)
	case *For:
		return generateLoopBody(fmt.Sprintf("%sfor %s in %s; do", p, x.Variable, generateExpr(x.Items)), p, x.Body, indent)
	case *ForCStyle:
		return generateForCStyle(p, pad(indent+1), x, indent)
	case *While:
		return generateLoopBody(fmt.Sprintf("%swhile %s; do", p, generateCondition(x.Condition)), p, x.Body, indent)
	case *Until:
		return generateLoopBody(fmt.Sprintf("%swhile %s; do", p, negateCondition(x.Condition)), p, x.Body, indent)
	case *Return:
		if x.Code == nil {
			return p + "return"
		}
		return fmt.Sprintf("%sreturn %s", p, generateExpr(x.Code))
	case *Case:
		return generateCaseStmt(p, x, indent)
	case *Pipeline:
		return generatePipeline(p, x.Commands)
	case *AndList:
		return fmt.Sprintf("%s%s && %s", p, generateStatementNoIndent(x.Left), generateStatementNoIndent(x.Right))
	case *OrList:
		return fmt.Sprintf("%s%s || %s", p, generateStatementNoIndent(x.Left), generateStatementNoIndent(x.Right))
	case *BraceGroup:
		return generateBraceGroup(p, x, indent)
	case *Coproc:
		return generateCoproc(p, x)
	case *Select:
		return generateLoopBody(fmt.Sprintf("%sselect %s in %s; do", p, x.Variable, generateExpr(x.Items)), p, x.Body, indent)
	case *Negated:
		return fmt.Sprintf("%s! %s", p, generateStatementNoIndent(x.Command))
	}
	return ""
}

func generateStatementNoIndent(s Stmt) string { return strings.TrimLeft(generateStmt(s, 0), " ") }

func generateCommandStmt(p string, c *Command) string {
	if c.Name == "declare" || c.Name == "typeset" {
		return p + generateDeclarePosix(c.Args, c.Redirects)
	}
	var b strings.Builder
	b.WriteString(p)
	b.WriteString(c.Name)
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(generateExpr(a))
	}
	for _, r := range c.Redirects {
		b.WriteByte(' ')
		b.WriteString(generateRedirect(r))
	}
	return b.String()
}

func generateAssignmentStmt(p string, a *Assignment) string {
	var b strings.Builder
	b.WriteString(p)
	switch {
	case a.ReadOnly:
		b.WriteString("readonly ")
	case a.Exported:
		b.WriteString("export ")
	}
	b.WriteString(a.Name)
	b.WriteByte('=')
	b.WriteString(generateExpr(a.Value))
	return b.String()
}

func generateCommentStmt(p, text string) string {
	t := strings.TrimPrefix(text, " ")
	if strings.HasPrefix(t, "!/bin/") {
		return ""
	}
	return fmt.Sprintf("%s# %s", p, text)
}

func generateFunctionStmt(p string, fn *Function, indent int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s() {\n", p, fn.Name)
	for _, s := range fn.Body {
		b.WriteString(generateStmt(s, indent+1))
		b.WriteByte('\n')
	}
	b.WriteString(p)
	b.WriteByte('}')
	return b.String()
}

func generateLoopBody(header, p string, body []Stmt, indent int) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, s := range body {
		b.WriteString(generateStmt(s, indent+1))
		b.WriteByte('\n')
	}
	b.WriteString(p)
	b.WriteString("done")
	return b.String()
}

func generatePipeline(p string, cmds []Stmt) string {
	var parts []string
	for _, c := range cmds {
		parts = append(parts, generateStatementNoIndent(c))
	}
	return p + strings.Join(parts, " | ")
}

func generateIfStmt(p string, x *If, indent int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sif %s; then\n", p, generateCondition(x.Condition))
	for _, s := range x.ThenBlock {
		b.WriteString(generateStmt(s, indent+1))
		b.WriteByte('\n')
	}
	for _, e := range x.ElifBlocks {
		fmt.Fprintf(&b, "%selif %s; then\n", p, generateCondition(e.Condition))
		for _, s := range e.Body {
			b.WriteString(generateStmt(s, indent+1))
			b.WriteByte('\n')
		}
	}
	if x.ElseBlock != nil {
		fmt.Fprintf(&b, "%selse\n", p)
		for _, s := range x.ElseBlock {
			b.WriteString(generateStmt(s, indent+1))
			b.WriteByte('\n')
		}
	}
	b.WriteString(p)
	b.WriteString("fi")
	return b.String()
}

func generateForCStyle(p, innerPad string, x *ForCStyle, indent int) string {
	var b strings.Builder
	if x.Init != "" {
		b.WriteString(p)
		b.WriteString(convertCInitToPosix(x.Init))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%swhile %s; do\n", p, convertCConditionToPosix(x.Condition))
	for _, s := range x.Body {
		b.WriteString(generateStmt(s, indent+1))
		b.WriteByte('\n')
	}
	if x.Increment != "" {
		b.WriteString(innerPad)
		b.WriteString(convertCIncrementToPosix(x.Increment))
		b.WriteByte('\n')
	}
	b.WriteString(p)
	b.WriteString("done")
	return b.String()
}

func generateCaseStmt(p string, x *Case, indent int) string {
	armPad := pad(indent + 1)
	bodyPad := pad(indent + 2)
	var b strings.Builder
	fmt.Fprintf(&b, "%scase %s in\n", p, generateExpr(x.Word))
	for _, arm := range x.Arms {
		fmt.Fprintf(&b, "%s%s)\n", armPad, strings.Join(arm.Patterns, "|"))
		for _, s := range arm.Body {
			b.WriteString(generateStmt(s, indent+2))
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s;;\n", bodyPad)
	}
	b.WriteString(p)
	b.WriteString("esac")
	return b.String()
}

func generateBraceGroup(p string, x *BraceGroup, indent int) string {
	if x.Subshell {
		var b strings.Builder
		fmt.Fprintf(&b, "%s(\n", p)
		for _, s := range x.Body {
			b.WriteString(generateStmt(s, indent+1))
			b.WriteByte('\n')
		}
		b.WriteString(p)
		b.WriteByte(')')
		return b.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s{ ", p)
	for i, s := range x.Body {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(generateStatementNoIndent(s))
	}
	b.WriteString("; }")
	return b.String()
}

func generateCoproc(p string, x *Coproc) string {
	var b strings.Builder
	b.WriteString(p)
	b.WriteString("coproc ")
	if x.Name != nil {
		b.WriteString(*x.Name)
		b.WriteByte(' ')
	}
	b.WriteString("{ ")
	for i, s := range x.Body {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(generateStatementNoIndent(s))
	}
	b.WriteString("; }")
	return b.String()
}

func negateCondition(cond Expr) string {
	if t, ok := cond.(*TestExprNode); ok {
		return fmt.Sprintf("[ ! %s ]", generateTestCondition(t.Test))
	}
	return "! " + generateCondition(cond)
}

func generateTestCondition(t TestExpr) string {
	switch x := t.(type) {
	case *StringEq:
		return fmt.Sprintf("%s = %s", generateExpr(x.Left), generateExpr(x.Right))
	case *StringNe:
		return fmt.Sprintf("%s != %s", generateExpr(x.Left), generateExpr(x.Right))
	case *IntEq:
		return fmt.Sprintf("%s -eq %s", generateExpr(x.Left), generateExpr(x.Right))
	case *IntNe:
		return fmt.Sprintf("%s -ne %s", generateExpr(x.Left), generateExpr(x.Right))
	case *IntLt:
		return fmt.Sprintf("%s -lt %s", generateExpr(x.Left), generateExpr(x.Right))
	case *IntLe:
		return fmt.Sprintf("%s -le %s", generateExpr(x.Left), generateExpr(x.Right))
	case *IntGt:
		return fmt.Sprintf("%s -gt %s", generateExpr(x.Left), generateExpr(x.Right))
	case *IntGe:
		return fmt.Sprintf("%s -ge %s", generateExpr(x.Left), generateExpr(x.Right))
	case *FileExists:
		return fmt.Sprintf("-e %s", generateExpr(x.Path))
	case *FileReadable:
		return fmt.Sprintf("-r %s", generateExpr(x.Path))
	case *FileWritable:
		return fmt.Sprintf("-w %s", generateExpr(x.Path))
	case *FileExecutable:
		return fmt.Sprintf("-x %s", generateExpr(x.Path))
	case *FileDirectory:
		return fmt.Sprintf("-d %s", generateExpr(x.Path))
	case *StringEmpty:
		return fmt.Sprintf("-z %s", generateExpr(x.Operand))
	case *StringNonEmpty:
		return fmt.Sprintf("-n %s", generateExpr(x.Operand))
	case *TestAnd:
		return fmt.Sprintf("%s && %s", generateTestCondition(x.Left), generateTestCondition(x.Right))
	case *TestOr:
		return fmt.Sprintf("%s || %s", generateTestCondition(x.Left), generateTestCondition(x.Right))
	case *TestNot:
		return fmt.Sprintf("! %s", generateTestCondition(x.Operand))
	}
	return ""
}

func generateCondition(expr Expr) string {
	if t, ok := expr.(*TestExprNode); ok {
		return fmt.Sprintf("[ %s ]", generateTestCondition(t.Test))
	}
	if cc, ok := expr.(*CommandCondition); ok {
		return generateStatementNoIndent(cc.Stmt)
	}
	return generateExpr(expr)
}

func generateExpr(e Expr) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *Lit:
		return generateLiteralExpr(x.Value)
	case *Variable:
		if x.AssignTarget {
			return x.Name
		}
		return fmt.Sprintf("\"$%s\"", x.Name)
	case *ArrayExpr:
		var parts []string
		for _, el := range x.Elements {
			parts = append(parts, generateExpr(el))
		}
		return strings.Join(parts, " ")
	case *Arith:
		return fmt.Sprintf("$((%s))", generateArithExpr(x.Expr))
	case *TestExprNode:
		return generateTestCondition(x.Test)
	case *CommandSubst:
		return fmt.Sprintf("$(%s)", generateStmtsInline(x.Body))
	case *Concat:
		var parts []string
		for _, p := range x.Parts {
			parts = append(parts, generateExpr(p))
		}
		return strings.Join(parts, "")
	case *Glob:
		return x.Pattern
	case *ParamDefault:
		return formatParamExpansion(x.Name, ":-", x.Default)
	case *ParamAssignDefault:
		return formatParamExpansion(x.Name, ":=", x.Default)
	case *ParamErrorIfUnset:
		return generateErrorIfUnset(x.Name, x.Message)
	case *ParamAlternative:
		return formatParamExpansion(x.Name, ":+", x.Value)
	case *ParamLength:
		return fmt.Sprintf("\"${#%s}\"", x.Name)
	case *ParamRemove:
		op := map[RemoveKind]string{
			RemovePrefixShortest: "#", RemovePrefixLongest: "##",
			RemoveSuffixShortest: "%", RemoveSuffixLongest: "%%",
		}[x.Kind]
		return fmt.Sprintf("\"${%s%s%s}\"", x.Name, op, x.Pattern)
	case *CommandCondition:
		return generateStatementNoIndent(x.Stmt)
	}
	return ""
}

func generateStmtsInline(stmts []Stmt) string {
	var parts []string
	for _, s := range stmts {
		parts = append(parts, generateStatementNoIndent(s))
	}
	return strings.Join(parts, "; ")
}

// QuoteWord applies the same word-quoting policy generateLiteralExpr
// uses for bash literals: bare when every rune is a "simple word"
// character and the word isn't a shell keyword, double-quoted when it
// is a keyword or contains a `$`-expansion, single-quoted (with `'`
// escaped as `'\''`) otherwise. Exported so package emit's POSIX
// emitter can reuse one quoting policy instead of duplicating it.
func QuoteWord(s string) string { return generateLiteralExpr(s) }

// GenerateTestCondition renders a TestExpr as the bare predicate text
// that belongs inside `[ ... ]`. Exported so package ir/emit can share
// the bash purifier's test-predicate model (ir.Test wraps a
// bashast.TestExpr) instead of re-deriving it.
func GenerateTestCondition(t TestExpr) string { return generateTestCondition(t) }

func generateLiteralExpr(s string) string {
	isSimpleWord := s != "" && everyRune(s, func(r rune) bool {
		return isAlnum(r) || r == '_' || r == '-' || r == '.' || r == '/' || r == '='
	})
	if isSimpleWord && !isShellKeyword(s) {
		return s
	}
	if isShellKeyword(s) {
		return fmt.Sprintf("\"%s\"", s)
	}
	if strings.Contains(s, "$(") || strings.Contains(s, "${") || strings.Contains(s, "$") {
		escaped := strings.ReplaceAll(s, "\"", "\\\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return fmt.Sprintf("'%s'", escaped)
}

func everyRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func formatParamExpansion(name, op string, operand Expr) string {
	val := generateExpr(operand)
	unquoted := stripQuotes(val)
	return fmt.Sprintf("\"${%s%s%s}\"", name, op, unquoted)
}

func generateErrorIfUnset(name string, message Expr) string {
	val := generateExpr(message)
	unquoted := val
	if strings.HasPrefix(val, "\"") && strings.HasSuffix(val, "\"") && len(val) >= 2 {
		unquoted = val[1 : len(val)-1]
	}
	return fmt.Sprintf("\"${%s:?%s}\"", name, unquoted)
}

func stripQuotes(s string) string {
	return strings.Trim(s, `"'`)
}

var shellKeywords = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"for": true, "while": true, "until": true, "do": true, "done": true,
	"case": true, "esac": true, "in": true, "function": true,
	"select": true, "coproc": true,
}

func isShellKeyword(s string) bool { return shellKeywords[s] }

func generateDeclarePosix(args []Expr, redirects []Redirect) string {
	var flags []string
	var assigns []string
	for _, a := range args {
		if l, ok := a.(*Lit); ok && strings.HasPrefix(l.Value, "-") {
			flags = append(flags, l.Value)
		} else {
			assigns = append(assigns, generateExpr(a))
		}
	}
	hasFlag := func(c byte) bool {
		for _, f := range flags {
			if strings.IndexByte(f, c) >= 0 {
				return true
			}
		}
		return false
	}
	hasReadonly, hasExport := hasFlag('r'), hasFlag('x')
	hasArray, hasAssoc := hasFlag('a'), hasFlag('A')

	if hasArray || hasAssoc {
		return strings.TrimRight(fmt.Sprintf("# declare %s %s (not POSIX)", strings.Join(flags, " "), strings.Join(assigns, " ")), " ")
	}

	var out strings.Builder
	switch {
	case hasReadonly && hasExport:
		assignStr := strings.Join(assigns, " ")
		out.WriteString("export ")
		out.WriteString(assignStr)
		for _, r := range redirects {
			out.WriteByte(' ')
			out.WriteString(generateRedirect(r))
		}
		out.WriteByte('\n')
		out.WriteString("readonly ")
		out.WriteString(assignStr)
		return out.String()
	case hasReadonly:
		out.WriteString("readonly ")
		out.WriteString(strings.Join(assigns, " "))
	case hasExport:
		out.WriteString("export ")
		out.WriteString(strings.Join(assigns, " "))
	default:
		out.WriteString(strings.Join(assigns, " "))
	}
	for _, r := range redirects {
		out.WriteByte(' ')
		out.WriteString(generateRedirect(r))
	}
	return out.String()
}

func generateArithExpr(e ArithExpr) string {
	switch x := e.(type) {
	case *ArithNum:
		return x.Value
	case *ArithVar:
		return x.Name
	case *ArithBinary:
		return fmt.Sprintf("%s %s %s", generateArithExpr(x.Left), x.Op, generateArithExpr(x.Right))
	case *ArithUnary:
		if x.Postfix {
			return fmt.Sprintf("%s%s", generateArithExpr(x.Operand), x.Op)
		}
		return fmt.Sprintf("%s%s", x.Op, generateArithExpr(x.Operand))
	}
	return ""
}

func generateRedirect(r Redirect) string {
	switch r.Op {
	case ">":
		return fmt.Sprintf("> %s", generateExpr(r.Target))
	case ">>":
		return fmt.Sprintf(">> %s", generateExpr(r.Target))
	case "<":
		return fmt.Sprintf("< %s", generateExpr(r.Target))
	case "&>":
		return fmt.Sprintf("> %s 2>&1", generateExpr(r.Target))
	case "<<<":
		return fmt.Sprintf("<<< %s", generateExpr(r.Target))
	default:
		return fmt.Sprintf("%s %s", r.Op, generateExpr(r.Target))
	}
}

func convertCInitToPosix(init string) string { return init }

func convertCConditionToPosix(condition string) string {
	condition = strings.TrimSpace(condition)
	ops := []struct {
		tok, test string
	}{
		{"<=", "-le"}, {">=", "-ge"}, {"!=", "-ne"}, {"==", "-eq"},
		{"<", "-lt"}, {">", "-gt"},
	}
	for _, o := range ops {
		if idx := strings.Index(condition, o.tok); idx >= 0 {
			left := strings.TrimSpace(condition[:idx])
			right := strings.TrimSpace(condition[idx+len(o.tok):])
			v := extractVarName(left)
			return fmt.Sprintf("[ \"$%s\" %s %s ]", v, o.test, right)
		}
	}
	return fmt.Sprintf("[ %s ]", condition)
}

func convertCIncrementToPosix(increment string) string {
	increment = strings.TrimSpace(increment)
	switch {
	case strings.HasSuffix(increment, "++"):
		v := strings.TrimSuffix(increment, "++")
		return fmt.Sprintf("%s=$((%s+1))", v, v)
	case strings.HasPrefix(increment, "++"):
		v := strings.TrimPrefix(increment, "++")
		return fmt.Sprintf("%s=$((%s+1))", v, v)
	case strings.HasSuffix(increment, "--"):
		v := strings.TrimSuffix(increment, "--")
		return fmt.Sprintf("%s=$((%s-1))", v, v)
	case strings.HasPrefix(increment, "--"):
		v := strings.TrimPrefix(increment, "--")
		return fmt.Sprintf("%s=$((%s-1))", v, v)
	}
	if idx := strings.Index(increment, "+="); idx >= 0 {
		v := strings.TrimSpace(increment[:idx])
		val := strings.TrimSpace(increment[idx+2:])
		return fmt.Sprintf("%s=$((%s+%s))", v, v, val)
	}
	if idx := strings.Index(increment, "-="); idx >= 0 {
		v := strings.TrimSpace(increment[:idx])
		val := strings.TrimSpace(increment[idx+2:])
		return fmt.Sprintf("%s=$((%s-%s))", v, v, val)
	}
	if strings.Contains(increment, "=") {
		return increment
	}
	return increment
}

func extractVarName(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "$")
}
