package emit

import (
	"fmt"
	"strings"

	"github.com/bashrs-go/bashrs/errs"
	"github.com/bashrs-go/bashrs/internal/builtins"
	"github.com/bashrs-go/bashrs/ir"
)

// knownCommands is the set of external/builtin command names a
// Function emission is suppressed for when its body is empty — naming
// a user function "echo" or "grep" with nothing to add is a no-op the
// shell already provides.
var knownCommands = map[string]bool{
	"echo": true, "printf": true, "test": true, "grep": true, "sed": true,
	"awk": true, "cat": true, "cp": true, "rm": true, "mv": true, "ls": true,
	"wc": true, "tr": true, "cut": true, "sort": true, "uniq": true,
	"head": true, "tail": true, "find": true, "xargs": true, "true": true,
	"false": true, "read": true, "set": true, "shift": true, "exit": true,
	"export": true, "unset": true, "eval": true, "exec": true, "trap": true,
	"wait": true, "kill": true, "pwd": true, "cd": true, "mkdir": true,
	"rmdir": true, "chmod": true, "chown": true, "ln": true, "tar": true,
	"gzip": true, "curl": true, "wget": true, "sha256sum": true, "shasum": true,
}

// Emitter walks an ir.Program and renders it to POSIX shell text.
type Emitter struct {
	cfg  Config
	used map[string]bool // rash_* builtins referenced, for the runtime trailer
}

// New constructs an Emitter for cfg.
func New(cfg Config) *Emitter {
	return &Emitter{cfg: cfg, used: map[string]bool{}}
}

// Emit renders prog to a complete POSIX shell script: shebang, user
// functions, the selective runtime trailer for any rash_* builtin
// actually referenced, then the main body.
func Emit(prog *ir.Program, cfg Config) (string, error) {
	e := New(cfg)
	var fnBuf strings.Builder
	for _, fn := range prog.Functions {
		s, err := e.emitFunction(fn)
		if err != nil {
			return "", err
		}
		fnBuf.WriteString(s)
		fnBuf.WriteByte('\n')
	}
	mainStr, err := e.emitStmt(prog.Main, 0)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("#!/bin/sh\n")
	out.WriteString("set -eu\n")
	if fnBuf.Len() > 0 {
		out.WriteString(fnBuf.String())
	}
	if rt := e.runtimeTrailer(); rt != "" {
		out.WriteString(rt)
	}
	out.WriteString(mainStr)
	out.WriteByte('\n')
	return out.String(), nil
}

func (e *Emitter) pad(indent int) string { return strings.Repeat(strings.Repeat(" ", e.cfgIndentWidth()), indent) }

func (e *Emitter) cfgIndentWidth() int {
	if e.cfg.IndentWidth <= 0 {
		return 2
	}
	return e.cfg.IndentWidth
}

// runtimeTrailer renders the bodies of every rash_* builtin this
// program actually invoked, in the fixed table order — selective
// emission, not the whole table every time.
func (e *Emitter) runtimeTrailer() string {
	if len(e.used) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range builtinOrder {
		if !e.used[name] {
			continue
		}
		bi, ok := builtins.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s() {\n  %s\n}\n", bi.Name, bi.Body)
	}
	return b.String()
}

// builtinOrder fixes a deterministic emission order for the runtime
// trailer: two emissions of the same IR must be byte-identical, so
// map iteration order must never leak into output.
var builtinOrder = []string{
	"rash_print", "rash_println", "rash_eprintln", "rash_require",
	"rash_download_verified",
	"rash_string_trim", "rash_string_contains", "rash_string_len",
	"rash_string_replace", "rash_string_to_upper", "rash_string_to_lower",
	"rash_string_split",
	"rash_fs_exists", "rash_fs_read_file", "rash_fs_write_file",
	"rash_fs_copy", "rash_fs_remove", "rash_fs_is_file", "rash_fs_is_dir",
	"rash_array_len", "rash_array_join",
}

func (e *Emitter) noteUse(name string) {
	if _, ok := builtins.Lookup(name); ok {
		e.used[name] = true
	}
}

func (e *Emitter) emitFunction(fn *ir.Function) (string, error) {
	if knownCommands[fn.Name] && isEmptyBody(fn.Body) {
		return "", nil
	}
	body, err := e.emitStmt(fn.Body, 1)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s() {\n", fn.Name)
	for i, p := range fn.Params {
		fmt.Fprintf(&b, "  %s=\"$%d\"\n", p, i+1)
	}
	b.WriteString(body)
	b.WriteByte('\n')
	b.WriteString("}\n")
	return b.String(), nil
}

func isEmptyBody(n ir.ShellIR) bool {
	switch x := n.(type) {
	case *ir.Noop:
		return true
	case nil:
		return true
	case *ir.Sequence:
		return len(x.Items) == 0
	}
	return false
}

// emitStmt renders one ShellIR node at the given indent level, without
// a trailing newline.
func (e *Emitter) emitStmt(n ir.ShellIR, indent int) (string, error) {
	p := e.pad(indent)
	switch x := n.(type) {
	case nil:
		return p + ":", nil
	case *ir.Noop:
		return p + ":", nil
	case *ir.Sequence:
		return e.emitSequence(x, indent)
	case *ir.Let:
		return e.emitLet(x, p)
	case *ir.Exec:
		return e.emitExec(x, p)
	case *ir.If:
		return e.emitIf(x, indent)
	case *ir.While:
		return e.emitWhile(x, indent)
	case *ir.ForIn:
		return e.emitForIn(x, indent)
	case *ir.Case:
		return e.emitCase(x, indent)
	case *ir.Function:
		s, err := e.emitFunction(x)
		return strings.TrimRight(p+s, "\n"), err
	case *ir.Return:
		return e.emitReturn(x, p)
	case *ir.Echo:
		return e.emitEcho(x, p)
	case *ir.Break:
		return p + "break", nil
	default:
		return "", emitErr(fmt.Sprintf("unsupported ShellIR node %T", n))
	}
}

// emitErr builds an unlocated emission error: emit failures are
// structural (an IR shape the emitter doesn't know how to render), not
// tied to a source-text position the way parse errors are.
func emitErr(msg string) error {
	return (&errs.Error{Kind: errs.KindEmission, Message: msg}).
		WithHelp("this is usually a transpiler bug; file a report with the offending IR")
}

func (e *Emitter) emitSequence(seq *ir.Sequence, indent int) (string, error) {
	if len(seq.Items) == 0 {
		return e.pad(indent) + ":", nil
	}
	var parts []string
	for _, item := range seq.Items {
		s, err := e.emitStmt(item, indent)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n"), nil
}

func (e *Emitter) emitLet(l *ir.Let, p string) (string, error) {
	val, err := e.emitValueQuoted(l.Value)
	if err != nil {
		return "", err
	}
	switch {
	case l.Exported && l.ReadOnly:
		return fmt.Sprintf("%s%s=%s\n%sexport %s\n%sreadonly %s", p, l.Name, val, p, l.Name, p, l.Name), nil
	case l.Exported:
		return fmt.Sprintf("%sexport %s=%s", p, l.Name, val), nil
	case l.ReadOnly:
		return fmt.Sprintf("%sreadonly %s=%s", p, l.Name, val), nil
	default:
		return fmt.Sprintf("%s%s=%s", p, l.Name, val), nil
	}
}

func (e *Emitter) emitReturn(r *ir.Return, p string) (string, error) {
	if r.Value == nil {
		return p + "return", nil
	}
	val, err := e.emitValueQuoted(r.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%secho %s\n%sreturn", p, val, p), nil
}

func (e *Emitter) emitEcho(ec *ir.Echo, p string) (string, error) {
	val, err := e.emitValueQuoted(ec.Value)
	if err != nil {
		return "", err
	}
	var line string
	if ec.Newline {
		line = fmt.Sprintf("%secho %s", p, val)
	} else {
		line = fmt.Sprintf("%sprintf '%%s' %s", p, val)
	}
	if ec.Stderr {
		line += " >&2"
	}
	return line, nil
}

func (e *Emitter) emitExec(ex *ir.Exec, p string) (string, error) {
	cmd, err := e.emitCommand(ex.Command)
	if err != nil {
		return "", err
	}
	return p + cmd, nil
}

func (e *Emitter) emitCommand(c ir.Command) (string, error) {
	e.noteUse(c.Name)
	var b strings.Builder
	b.WriteString(c.Name)
	for _, a := range c.Args {
		s, err := e.emitValueQuoted(a)
		if err != nil {
			return "", err
		}
		b.WriteByte(' ')
		b.WriteString(s)
	}
	return b.String(), nil
}

// emitIf flattens an If/elif-chain/else the way bashast's printer
// does: an Else that is itself *ir.If becomes `elif`, never a nested
// `else { if }`.
func (e *Emitter) emitIf(x *ir.If, indent int) (string, error) {
	p := e.pad(indent)
	cond, err := e.emitCondition(x.Cond)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%sif %s; then\n", p, cond)
	then, err := e.emitStmt(x.Then, indent+1)
	if err != nil {
		return "", err
	}
	b.WriteString(then)
	b.WriteByte('\n')

	cur := x.Else
	for {
		inner, ok := cur.(*ir.If)
		if !ok {
			break
		}
		c2, err := e.emitCondition(inner.Cond)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%selif %s; then\n", p, c2)
		thenS, err := e.emitStmt(inner.Then, indent+1)
		if err != nil {
			return "", err
		}
		b.WriteString(thenS)
		b.WriteByte('\n')
		cur = inner.Else
	}
	if cur != nil {
		fmt.Fprintf(&b, "%selse\n", p)
		elseS, err := e.emitStmt(cur, indent+1)
		if err != nil {
			return "", err
		}
		b.WriteString(elseS)
		b.WriteByte('\n')
	}
	b.WriteString(p)
	b.WriteString("fi")
	return b.String(), nil
}

func (e *Emitter) emitWhile(x *ir.While, indent int) (string, error) {
	p := e.pad(indent)
	cond, err := e.emitCondition(x.Cond)
	if err != nil {
		return "", err
	}
	body, err := e.emitStmt(x.Body, indent+1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%swhile %s; do\n%s\n%sdone", p, cond, body, p), nil
}

func (e *Emitter) emitForIn(x *ir.ForIn, indent int) (string, error) {
	p := e.pad(indent)
	items, err := e.emitForItems(x.Items)
	if err != nil {
		return "", err
	}
	body, err := e.emitStmt(x.Body, indent+1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sfor %s in %s; do\n%s\n%sdone", p, x.Var, items, body, p), nil
}

// emitForItems renders a ForIn's source list: an Array's elements
// space-joined bare words, or a Range as `$(seq lo end)`.
func (e *Emitter) emitForItems(v ir.ShellValue) (string, error) {
	switch x := v.(type) {
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
		lo, err := e.emitValueBare(x.Lo)
		if err != nil {
			return "", err
		}
		hi, err := e.emitValueBare(x.Hi)
		if err != nil {
			return "", err
		}
		if x.Inclusive {
			return fmt.Sprintf("$(seq %s %s)", lo, hi), nil
		}
		return fmt.Sprintf("$(seq %s $((%s - 1)))", lo, hi), nil
	default:
		s, err := e.emitValueBare(v)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("$(%s)", s), nil
	}
}

func (e *Emitter) emitCase(x *ir.Case, indent int) (string, error) {
	p := e.pad(indent)
	armPad := e.pad(indent + 1)
	bodyPad := indent + 2
	scrut, err := e.emitValueQuoted(x.Scrutinee)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%scase %s in\n", p, scrut)
	for _, arm := range x.Arms {
		pattern := arm.Pattern
		if pattern == "" {
			pattern = "*"
		}
		fmt.Fprintf(&b, "%s%s)\n", armPad, pattern)
		body, err := e.emitStmt(arm.Body, bodyPad)
		if err != nil {
			return "", err
		}
		if arm.Guard != nil {
			cond, err := e.emitCondition(arm.Guard)
			if err != nil {
				return "", err
			}
			gp := e.pad(bodyPad)
			body = fmt.Sprintf("%sif %s; then\n%s\n%sfi", gp, cond, body, gp)
		}
		b.WriteString(body)
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%s;;\n", e.pad(bodyPad))
	}
	b.WriteString(p)
	b.WriteString("esac")
	return b.String(), nil
}

