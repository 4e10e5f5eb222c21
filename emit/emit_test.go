package emit

import (
	"strings"
	"testing"

	"github.com/bashrs-go/bashrs/dsl"
	"github.com/bashrs-go/bashrs/ir"
)

func lowerAndEmit(t *testing.T, src string) string {
	t.Helper()
	prog, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("dsl.Parse: %v", err)
	}
	out, err := Emit(ir.Lower(prog), NewConfig())
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	return out
}

// A range-pattern match lowers and emits to a cascading
// `if [ ... -ge ... ] && [ ... -le ... ]; then ... else ... fi`.
func TestEmitRangeMatchLowersToIfElifChain(t *testing.T) {
	out := lowerAndEmit(t, `fn main() { let x = match n { 0..=9 => "low", _ => "high" }; }`)
	for _, want := range []string{
		`if [ "$n" -ge 0 ] && [ "$n" -le 9 ]; then`,
		"x=low",
		"else",
		"x=high",
		"fi",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\ngot:\n%s", want, out)
		}
	}
}

// A nested if-expression in else position becomes an elif chain, not
// a nested else/if.
func TestEmitNestedIfExprProducesElifChain(t *testing.T) {
	out := lowerAndEmit(t, `fn main() {
		let r = if c { "a" } else if d { "b" } else { "c" };
	}`)
	if !strings.Contains(out, "elif") {
		t.Fatalf("want elif chain, got:\n%s", out)
	}
	if strings.Contains(out, "else\n  if") {
		t.Fatalf("should not render nested else/if, got:\n%s", out)
	}
	for _, want := range []string{"r=a", "r=b", "r=c"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\ngot:\n%s", want, out)
		}
	}
}

func TestEmitShebangAndStrictMode(t *testing.T) {
	out := lowerAndEmit(t, `fn main() { println!("hi"); }`)
	if !strings.HasPrefix(out, "#!/bin/sh\n") {
		t.Fatalf("want #!/bin/sh shebang, got:\n%s", out)
	}
	if !strings.Contains(out, "set -eu") {
		t.Fatalf("want strict mode, got:\n%s", out)
	}
}

func TestEmitSelectiveRuntimeOnlyWhenUsed(t *testing.T) {
	out := lowerAndEmit(t, `fn main() { let t = s.trim(); }`)
	if !strings.Contains(out, "rash_string_trim()") {
		t.Fatalf("want rash_string_trim body emitted, got:\n%s", out)
	}
	if strings.Contains(out, "rash_fs_exists()") {
		t.Fatalf("unused builtin rash_fs_exists should not be emitted, got:\n%s", out)
	}
}

func TestEmitArithmeticPrecedenceParens(t *testing.T) {
	e := New(NewConfig())
	inner := &ir.Arithmetic{Op: "+", L: &ir.String{Value: "1"}, R: &ir.String{Value: "2"}}
	outer := &ir.Arithmetic{Op: "*", L: inner, R: &ir.String{Value: "3"}}
	s, err := e.emitArithmetic(outer, 0)
	if err != nil {
		t.Fatalf("emitArithmetic: %v", err)
	}
	if !strings.Contains(s, "(1 + 2)") || !strings.Contains(s, "* 3") {
		t.Fatalf("want parenthesized nested add, got %q", s)
	}
}

func TestEmitConstantFoldingInConditions(t *testing.T) {
	e := New(NewConfig())
	cases := []struct {
		cond ir.ShellValue
		want string
	}{
		{&ir.LogicalAnd{L: &ir.Bool{Value: true}, R: &ir.Bool{Value: true}}, "true"},
		{&ir.LogicalOr{L: &ir.Bool{Value: false}, R: &ir.Bool{Value: false}}, "false"},
		{&ir.LogicalNot{Operand: &ir.Bool{Value: true}}, "false"},
		{&ir.LogicalNot{Operand: &ir.Bool{Value: false}}, "true"},
	}
	for _, c := range cases {
		got, err := e.emitCondition(c.cond)
		if err != nil {
			t.Fatalf("emitCondition(%#v): %v", c.cond, err)
		}
		if got != c.want {
			t.Errorf("emitCondition(%#v) = %q, want %q", c.cond, got, c.want)
		}
	}
}

func TestEmitConcatRejectsComparison(t *testing.T) {
	e := New(NewConfig())
	_, err := e.emitValueQuoted(&ir.Concat{Parts: []ir.ShellValue{
		&ir.Comparison{Op: "-eq", L: &ir.Variable{Name: "x"}, R: &ir.String{Value: "1"}},
	}})
	if err == nil {
		t.Fatal("want error for Comparison inside Concat")
	}
}

func TestEmitFunctionSuppressesKnownEmptyCommand(t *testing.T) {
	e := New(NewConfig())
	s, err := e.emitFunction(&ir.Function{Name: "echo", Body: &ir.Noop{}})
	if err != nil {
		t.Fatalf("emitFunction: %v", err)
	}
	if s != "" {
		t.Fatalf("want suppressed empty known-command function, got %q", s)
	}
}

func TestEmitCaseArmWithGuard(t *testing.T) {
	e := New(NewConfig())
	s, err := e.emitStmt(&ir.Case{
		Scrutinee: &ir.Variable{Name: "x"},
		Arms: []ir.CaseArm{{
			Pattern: "1",
			Guard:   &ir.Comparison{Op: "-gt", L: &ir.Variable{Name: "y"}, R: &ir.String{Value: "0"}},
			Body:    &ir.Echo{Value: &ir.String{Value: "guarded"}, Newline: true},
		}},
	}, 0)
	if err != nil {
		t.Fatalf("emitStmt: %v", err)
	}
	for _, want := range []string{"case", "if", "-gt", "guarded", "fi", "esac"} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q, got:\n%s", want, s)
		}
	}
}

func TestEmitForRangeUsesSeq(t *testing.T) {
	out := lowerAndEmit(t, `fn main() { for i in 0..3 { println!("x"); } }`)
	if !strings.Contains(out, "$(seq 0 $((3 - 1)))") {
		t.Fatalf("want exclusive range via seq, got:\n%s", out)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	prog, err := dsl.Parse(`fn main() {
		let x = match n { 0..=9 => "low", _ => "high" };
		let t = s.trim();
		for i in 0..3 { println!("{}", i); }
	}`)
	if err != nil {
		t.Fatalf("dsl.Parse: %v", err)
	}
	lowered := ir.Lower(prog)
	first, err := Emit(lowered, NewConfig())
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	second, err := Emit(lowered, NewConfig())
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if first != second {
		t.Fatalf("two emissions of the same IR differ:\n%q\n%q", first, second)
	}
}

// TestEmitBashDialectUsesDoubleBracket covers the Bash Dialect: it
// must emit a comparison's test with `[[ ]]` instead of POSIX `[ ]`,
// the distinct emission path the corpus runner's cross-shell check
// relies on actually existing.
func TestEmitBashDialectUsesDoubleBracket(t *testing.T) {
	prog, err := dsl.Parse(`fn main() { if x > 0 { println!("pos"); } }`)
	if err != nil {
		t.Fatalf("dsl.Parse: %v", err)
	}
	posixOut, err := Emit(ir.Lower(prog), NewConfig())
	if err != nil {
		t.Fatalf("Emit (posix): %v", err)
	}
	if strings.Contains(posixOut, "[[") {
		t.Fatalf("POSIX target must never emit [[, got:\n%s", posixOut)
	}

	bashOut, err := Emit(ir.Lower(prog), NewConfig(WithTarget(Bash)))
	if err != nil {
		t.Fatalf("Emit (bash): %v", err)
	}
	if !strings.Contains(bashOut, `[[ "$x" -gt 0 ]]`) {
		t.Fatalf("Bash target should emit [[ ]], got:\n%s", bashOut)
	}
}
