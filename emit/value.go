package emit

import (
	"fmt"
	"strings"

	"github.com/bashrs-go/bashrs/bashast"
	"github.com/bashrs-go/bashrs/internal/builtins"
	"github.com/bashrs-go/bashrs/ir"
)

// emitValueQuoted renders v as a double-quoted shell word suitable for
// an assignment RHS, an echo argument, or a command argument — the
// "always quote unless it's a bare literal" policy bashast's QuoteWord
// applies to String literals, extended here with ShellValue's extra
// variants.
func (e *Emitter) emitValueQuoted(v ir.ShellValue) (string, error) {
	if folded, ok := ir.FoldConstantLogic(v); ok {
		v = folded
	}
	switch x := v.(type) {
	case *ir.String:
		return bashast.QuoteWord(x.Value), nil
	case *ir.Bool:
		if x.Value {
			return "true", nil
		}
		return "false", nil
	case *ir.Variable:
		return fmt.Sprintf("\"$%s\"", x.Name), nil
	case *ir.EnvVar:
		if x.Default != nil {
			d, err := e.emitValueBare(x.Default)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("\"${%s:-%s}\"", x.Name, d), nil
		}
		return fmt.Sprintf("\"${%s}\"", x.Name), nil
	case *ir.Arg:
		if x.Pos == nil {
			return "\"$@\"", nil
		}
		return fmt.Sprintf("\"$%d\"", *x.Pos), nil
	case *ir.ArgWithDefault:
		d, err := e.emitValueBare(x.Default)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"${%d:-%s}\"", x.Pos, d), nil
	case *ir.ArgCount:
		return "\"$#\"", nil
	case *ir.ExitCode:
		return "\"$?\"", nil
	case *ir.Array:
		var parts []string
		for _, el := range x.Elements {
			s, err := e.emitValueBare(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	case *ir.Range:
		return e.emitForItems(x)
	case *ir.Arithmetic:
		s, err := e.emitArithmetic(x, 0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"$((%s))\"", s), nil
	case *ir.Test:
		return fmt.Sprintf("[ %s ]", bashast.GenerateTestCondition(x.Expr)), nil
	case *ir.Comparison, *ir.LogicalAnd, *ir.LogicalOr, *ir.LogicalNot:
		return "", emitErr("a comparison or logical expression cannot appear in value position; use it as a condition instead")
	case *ir.Concat:
		return e.emitConcat(x)
	case *ir.Glob:
		return x.Pattern, nil
	case *ir.CommandSubst:
		cmd, err := e.emitCommand(x.Command)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"$(%s)\"", cmd), nil
	case *ir.DefaultValue:
		d, err := e.emitValueBare(x.Default)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"${%s:-%s}\"", x.Name, d), nil
	case *ir.AssignDefault:
		d, err := e.emitValueBare(x.Default)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"${%s:=%s}\"", x.Name, d), nil
	case *ir.ErrorIfUnset:
		m, err := e.emitValueBare(x.Message)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"${%s:?%s}\"", x.Name, m), nil
	case *ir.AlternativeValue:
		val, err := e.emitValueBare(x.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"${%s:+%s}\"", x.Name, val), nil
	case *ir.StringLength:
		return fmt.Sprintf("\"${#%s}\"", x.Name), nil
	case *ir.RemovePrefixShortest:
		return fmt.Sprintf("\"${%s#%s}\"", x.Name, x.Pattern), nil
	case *ir.RemovePrefixLongest:
		return fmt.Sprintf("\"${%s##%s}\"", x.Name, x.Pattern), nil
	case *ir.RemoveSuffixShortest:
		return fmt.Sprintf("\"${%s%%%s}\"", x.Name, x.Pattern), nil
	case *ir.RemoveSuffixLongest:
		return fmt.Sprintf("\"${%s%%%%%s}\"", x.Name, x.Pattern), nil
	case *ir.DynamicArrayAccess:
		idx, err := e.indexExpr(x.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("\"$(eval echo \\\"\\${%s_%s}\\\")\"", x.Array, idx), nil
	case *ir.CommandCondition:
		cmd, err := e.emitCommand(x.Command)
		if err != nil {
			return "", err
		}
		return cmd, nil
	default:
		return "", emitErr(fmt.Sprintf("unsupported ShellValue %T", v))
	}
}

// emitValueBare is emitValueQuoted with the outer double quotes
// stripped when present — used where the caller is already building a
// quoted or bracketed context (e.g. an EnvVar default, a Range bound).
func (e *Emitter) emitValueBare(v ir.ShellValue) (string, error) {
	s, err := e.emitValueQuoted(v)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") && len(s) >= 2 {
		return s[1 : len(s)-1], nil
	}
	return s, nil
}

func (e *Emitter) indexExpr(v ir.ShellValue) (string, error) {
	switch x := v.(type) {
	case *ir.Variable:
		return "$" + x.Name, nil
	case *ir.Arithmetic:
		s, err := e.emitArithmetic(x, 0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("$((%s))", s), nil
	default:
		return "0", nil
	}
}

// emitConcat joins parts textually: String/Bool/EnvVar/Arg/
// ArgWithDefault/ArgCount/ExitCode/DynamicArrayAccess/nested Concat
// are all allowed; a Comparison or Logical expression inside a Concat
// is an error (those only make sense as conditions).
func (e *Emitter) emitConcat(c *ir.Concat) (string, error) {
	var b strings.Builder
	for _, part := range c.Parts {
		switch part.(type) {
		case *ir.Comparison, *ir.LogicalAnd, *ir.LogicalOr, *ir.LogicalNot:
			return "", emitErr("a comparison or logical expression cannot appear inside a string concatenation")
		}
		s, err := e.emitValueBare(part)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return fmt.Sprintf("\"%s\"", b.String()), nil
}

// emitArithmetic renders an Arithmetic value as the bare `l op r` text
// that belongs inside `$(( ... ))`, parenthesizing a nested Arithmetic
// operand whenever its operator binds looser than the parent's
// (reusing bashast.ArithPrecedence rather than a second operator
// table).
func (e *Emitter) emitArithmetic(a *ir.Arithmetic, parentPrec int) (string, error) {
	l, err := e.emitArithOperand(a.L, bashast.ArithPrecedence(a.Op))
	if err != nil {
		return "", err
	}
	r, err := e.emitArithOperand(a.R, bashast.ArithPrecedence(a.Op))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", l, a.Op, r), nil
}

func (e *Emitter) emitArithOperand(v ir.ShellValue, parentPrec int) (string, error) {
	switch x := v.(type) {
	case *ir.String:
		return x.Value, nil
	case *ir.Variable:
		return "$" + x.Name, nil
	case *ir.DynamicArrayAccess:
		idx, err := e.indexExpr(x.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("$(eval echo \\\"\\${%s_%s}\\\")", x.Array, idx), nil
	case *ir.CommandSubst:
		cmd, err := e.emitCommand(x.Command)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("$(%s)", cmd), nil
	case *ir.Arithmetic:
		inner, err := e.emitArithmetic(x, parentPrec)
		if err != nil {
			return "", err
		}
		if bashast.ArithPrecedence(x.Op) < parentPrec {
			return "(" + inner + ")", nil
		}
		return inner, nil
	default:
		return "", emitErr(fmt.Sprintf("unsupported arithmetic operand %T", v))
	}
}

// emitCondition renders v for use directly after `if`/`elif`/`while`,
// with no surrounding `[ ]` unless v itself demands it. Boolean-valued
// ShellValues (Bool, a constant-folded String, a Variable holding a
// `true`/`false` command name) are invoked directly as commands,
// representing booleans as shell command names rather than a string
// comparison.
func (e *Emitter) emitCondition(v ir.ShellValue) (string, error) {
	if folded, ok := ir.FoldConstantLogic(v); ok {
		v = folded
	}
	switch x := v.(type) {
	case *ir.Bool:
		if x.Value {
			return "true", nil
		}
		return "false", nil
	case *ir.String:
		if x.Value == "true" || x.Value == "0" {
			return "true", nil
		}
		return "false", nil
	case *ir.Variable:
		return fmt.Sprintf("\"$%s\"", x.Name), nil
	case *ir.Comparison:
		l, err := e.emitValueBare(x.L)
		if err != nil {
			return "", err
		}
		r, err := e.emitValueBare(x.R)
		if err != nil {
			return "", err
		}
		if e.cfg.Target == Bash {
			return fmt.Sprintf("[[ %s %s %s ]]", quoteOperand(l), x.Op, quoteOperand(r)), nil
		}
		return fmt.Sprintf("[ %s %s %s ]", quoteOperand(l), x.Op, quoteOperand(r)), nil
	case *ir.LogicalAnd:
		l, err := e.emitCondition(x.L)
		if err != nil {
			return "", err
		}
		r, err := e.emitCondition(x.R)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s && %s", l, r), nil
	case *ir.LogicalOr:
		l, err := e.emitCondition(x.L)
		if err != nil {
			return "", err
		}
		r, err := e.emitCondition(x.R)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s || %s", l, r), nil
	case *ir.LogicalNot:
		inner, err := e.emitCondition(x.Operand)
		if err != nil {
			return "", err
		}
		return "! " + inner, nil
	case *ir.CommandSubst:
		if builtins.IsPredicate(x.Command.Name) {
			return e.emitCommand(x.Command)
		}
		cmd, err := e.emitCommand(x.Command)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("test -n \"$(%s)\"", cmd), nil
	case *ir.CommandCondition:
		return e.emitCommand(x.Command)
	case *ir.Test:
		if e.cfg.Target == Bash {
			return "[[ " + bashast.GenerateTestCondition(x.Expr) + " ]]", nil
		}
		return "[ " + bashast.GenerateTestCondition(x.Expr) + " ]", nil
	default:
		s, err := e.emitValueQuoted(v)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("test -n %s", s), nil
	}
}

// quoteOperand re-quotes a comparison operand so word splitting and
// globbing never touch it inside `[ ... ]`. Operands that are already
// quoted, or that are bare literals with nothing to expand, pass
// through unchanged (`[ "$n" -ge 0 ]`, not `[ "$n" -ge "0" ]`).
func quoteOperand(s string) string {
	if strings.HasPrefix(s, "\"") || strings.HasPrefix(s, "'") {
		return s
	}
	if strings.ContainsAny(s, "$`") {
		return "\"" + s + "\""
	}
	return s
}
