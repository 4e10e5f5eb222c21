package ir

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bashrs-go/bashrs/dsl"
)

func mustParseDSL(t *testing.T, src string) *dsl.Program {
	t.Helper()
	p, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("dsl.Parse(%q): %v", src, err)
	}
	return p
}

// A range-pattern match on an identifier lowers to a single cascading
// if/else, not a case statement (shell case arms cannot express
// numeric ranges).
func TestLowerRangeMatch(t *testing.T) {
	prog := mustParseDSL(t, `fn main() {
		let x = match n { 0..=9 => "low", _ => "high" };
	}`)
	out := Lower(prog)

	// lowerStmt for *dsl.Let threads the sink through lowerValueish
	// rather than wrapping its result, so the top-level node here is
	// the *If the match's range cascade produced directly; the *Let
	// this sink injects only appears at each arm's leaf value.
	ifv, ok := out.Main.(*If)
	if !ok {
		t.Fatalf("want *If value lowering, got %T", out.Main)
	}

	and, ok := ifv.Cond.(*LogicalAnd)
	if !ok {
		t.Fatalf("want *LogicalAnd cond, got %T", ifv.Cond)
	}
	lo, ok := and.L.(*Comparison)
	if !ok || lo.Op != "-ge" {
		t.Fatalf("want -ge comparison, got %+v", and.L)
	}
	hi, ok := and.R.(*Comparison)
	if !ok || hi.Op != "-le" {
		t.Fatalf("want -le comparison, got %+v", and.R)
	}
	if v, ok := lo.L.(*Variable); !ok || v.Name != "n" {
		t.Fatalf("want scrutinee variable n, got %+v", lo.L)
	}

	thenLet, ok := ifv.Then.(*Let)
	if !ok || thenLet.Name != "x" {
		t.Fatalf("want then branch to assign x, got %+v", ifv.Then)
	}
	if s, ok := thenLet.Value.(*String); !ok || s.Value != "low" {
		t.Fatalf("want then value \"low\", got %+v", thenLet.Value)
	}

	// The cascade's final arm is the catch-all wildcard, so Else is the
	// wildcard arm's own sunk leaf value directly — no further *If.
	elseLet, ok := ifv.Else.(*Let)
	if !ok || elseLet.Name != "x" {
		t.Fatalf("want wildcard arm to assign x, got %+v", ifv.Else)
	}
	if s, ok := elseLet.Value.(*String); !ok || s.Value != "high" {
		t.Fatalf("want wildcard value \"high\", got %+v", elseLet.Value)
	}
}

// A nested if-expression lowers to an *If nested inside the outer
// *If, never a wrapped block, so the emitter can flatten chains.
func TestLowerNestedIfExprElifChain(t *testing.T) {
	prog := mustParseDSL(t, `fn main() {
		let r = if c { if d { "a" } else { "b" } } else { "c" };
	}`)
	out := Lower(prog)

	// Same reasoning as TestLowerRangeMatch: the outer IfExpr lowers
	// directly to *If at the top level, with the sink only firing at
	// leaf values buried inside it.
	outer, ok := out.Main.(*If)
	if !ok {
		t.Fatalf("want outer *If, got %T", out.Main)
	}

	// x.Then is itself a nested *dsl.IfExpr, so lowerValueish recurses
	// into lowerIfExprValue again and returns that nested *If directly
	// as outer.Then. The emitter renders it as a nested if; only an *If
	// in Else position becomes an elif.
	inner, ok := outer.Then.(*If)
	if !ok {
		t.Fatalf("want nested then-branch to lower to a nested *If, got %T", outer.Then)
	}

	if s, ok := inner.Then.(*Let).Value.(*String); !ok || s.Value != "a" {
		t.Fatalf("want innermost then value \"a\"")
	}
	if s, ok := inner.Else.(*Let).Value.(*String); !ok || s.Value != "b" {
		t.Fatalf("want innermost else value \"b\"")
	}

	outerElseLet, ok := outer.Else.(*Let)
	if !ok {
		t.Fatalf("want outer else to sink into let r, got %T", outer.Else)
	}
	if s, ok := outerElseLet.Value.(*String); !ok || s.Value != "c" {
		t.Fatalf("want outer else value \"c\"")
	}
}

// TestLowerIfStatementElseIf covers statement-position else-if, which
// reuses the same nested-*If-in-Else shape as the expression form.
func TestLowerIfStatementElseIf(t *testing.T) {
	prog := mustParseDSL(t, `fn main() {
		if a {
			println!("one");
		} else if b {
			println!("two");
		} else {
			println!("three");
		}
	}`)
	out := Lower(prog)
	top, ok := out.Main.(*If)
	if !ok {
		t.Fatalf("want *If, got %T", out.Main)
	}
	mid, ok := top.Else.(*If)
	if !ok {
		t.Fatalf("want else-if to lower to nested *If, got %T", top.Else)
	}
	if _, ok := mid.Else.(*Sequence); ok {
		t.Fatalf("bare single-statement else body should not wrap in Sequence")
	}
	if _, ok := mid.Else.(*Echo); !ok {
		t.Fatalf("want final else body to be *Echo, got %T", mid.Else)
	}
}

// TestLowerForRange covers `for i in lo..hi` lowering to ForIn over a
// Range value.
func TestLowerForRange(t *testing.T) {
	prog := mustParseDSL(t, `fn main() { for i in 0..3 { println!("x"); } }`)
	out := Lower(prog)
	loop, ok := out.Main.(*ForIn)
	if !ok {
		t.Fatalf("want *ForIn, got %T", out.Main)
	}
	if loop.Var != "i" {
		t.Fatalf("want loop var i, got %q", loop.Var)
	}
	rng, ok := loop.Items.(*Range)
	if !ok {
		t.Fatalf("want *Range items, got %T", loop.Items)
	}
	if rng.Inclusive {
		t.Fatalf("0..3 should be exclusive")
	}
}

// TestLowerOptionMatch covers TupleStructPattern(Some|None) lowering to
// a Case with a bound variable on the Some arm.
func TestLowerOptionMatch(t *testing.T) {
	prog := mustParseDSL(t, `fn main() {
		match v {
			Some(x) => println!("got"),
			None => println!("none"),
		}
	}`)
	out := Lower(prog)
	c, ok := out.Main.(*Case)
	if !ok {
		t.Fatalf("want *Case, got %T", out.Main)
	}
	if len(c.Arms) != 2 {
		t.Fatalf("want 2 arms, got %d", len(c.Arms))
	}
	if c.Arms[0].Pattern != "*" {
		t.Fatalf("want Some arm pattern *, got %q", c.Arms[0].Pattern)
	}

	seq, ok := c.Arms[0].Body.(*Sequence)
	if !ok || len(seq.Items) == 0 {
		t.Fatalf("want *Sequence binder+body for Some(x) arm, got %T", c.Arms[0].Body)
	}
	binder, ok := seq.Items[0].(*Let)
	if !ok {
		t.Fatalf("want *Let binder, got %T", seq.Items[0])
	}
	if binder.Name != "x" {
		t.Fatalf("want binder name x, got %q", binder.Name)
	}
	bound, ok := binder.Value.(*Variable)
	if !ok || bound.Name != "v" {
		t.Fatalf("Some(x) must bind x to the scrutinee's own value (v), got %#v", binder.Value)
	}
}

// Lowering the same program twice must produce structurally identical
// trees, not merely trees that look alike under %#v. cmp.Diff walks
// the Program/ShellIR graphs field by field and reports a readable
// diff on the first divergence instead of a bare true/false.
func TestLowerIsDeterministicStructurally(t *testing.T) {
	src := `fn main() {
		let x = match n { 0..=9 => "low", _ => "high" };
		match v {
			Some(x) => println!("got"),
			None => println!("none"),
		}
	}`
	first := Lower(mustParseDSL(t, src))
	second := Lower(mustParseDSL(t, src))

	if diff := cmp.Diff(first, second, cmpopts.EquateEmpty(), cmp.Exporter(func(reflect.Type) bool { return true })); diff != "" {
		t.Fatalf("Lower is not deterministic (-first +second):\n%s", diff)
	}
}
