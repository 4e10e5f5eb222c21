package dsl

import "testing"

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return p
}

func TestParseSimpleFunction(t *testing.T) {
	prog := mustParse(t, `fn main() { let x = 1; }`)
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "main" {
		t.Fatalf("want single main fn, got %+v", prog.Functions)
	}
	if prog.Entry != "main" {
		t.Fatalf("want entry main, got %q", prog.Entry)
	}
	let, ok := prog.Functions[0].Body.Stmts[0].(*Let)
	if !ok {
		t.Fatalf("want *Let, got %T", prog.Functions[0].Body.Stmts[0])
	}
	if let.Name != "x" {
		t.Fatalf("want let x, got %q", let.Name)
	}
}

func TestParseIfExpression(t *testing.T) {
	prog := mustParse(t, `fn main() { let x = if true { 1 } else { 2 }; }`)
	let := prog.Functions[0].Body.Stmts[0].(*Let)
	if _, ok := let.Value.(*IfExpr); !ok {
		t.Fatalf("want *IfExpr, got %T", let.Value)
	}
}

func TestParseMatchWithAllowedPatterns(t *testing.T) {
	prog := mustParse(t, `fn main() {
		match x {
			0 => 1,
			1..=5 => 2,
			Some(v) => 3,
			None => 4,
			_ => 5,
		}
	}`)
	m, ok := prog.Functions[0].Body.Stmts[0].(*Match)
	if !ok {
		t.Fatalf("want *Match statement, got %T", prog.Functions[0].Body.Stmts[0])
	}
	if len(m.Arms) != 5 {
		t.Fatalf("want 5 arms, got %d", len(m.Arms))
	}
}

func TestParseRejectsDisallowedMacro(t *testing.T) {
	_, err := Parse(`fn main() { unsafe_macro!(1); }`)
	if err == nil {
		t.Fatal("want error for disallowed macro")
	}
}

func TestParseRejectsGenericFunction(t *testing.T) {
	_, err := Parse(`fn main<T>() { }`)
	if err == nil {
		t.Fatal("want error for generic function")
	}
}

func TestParseRejectsImplItem(t *testing.T) {
	_, err := Parse(`impl Foo { }`)
	if err == nil {
		t.Fatal("want error for impl item")
	}
}

func TestParseAllowedMacroCall(t *testing.T) {
	prog := mustParse(t, `fn main() { println!("hi"); }`)
	stmt := prog.Functions[0].Body.Stmts[0].(*ExprStmt)
	if _, ok := stmt.Value.(*MacroCall); !ok {
		t.Fatalf("want *MacroCall, got %T", stmt.Value)
	}
}

func TestParseForLoop(t *testing.T) {
	prog := mustParse(t, `fn main() { for i in 0..3 { println!("x"); } }`)
	f, ok := prog.Functions[0].Body.Stmts[0].(*For)
	if !ok {
		t.Fatalf("want *For, got %T", prog.Functions[0].Body.Stmts[0])
	}
	if _, ok := f.Iter.(*Range); !ok {
		t.Fatalf("want Range iter, got %T", f.Iter)
	}
}
