package bashast

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return f
}

func TestParseSimpleCommand(t *testing.T) {
	f := mustParse(t, "mkdir /tmp/x\n")
	if len(f.Statements) != 1 {
		t.Fatalf("want 1 statement, got %d", len(f.Statements))
	}
	c, ok := f.Statements[0].(*Command)
	if !ok {
		t.Fatalf("want *Command, got %T", f.Statements[0])
	}
	if c.Name != "mkdir" {
		t.Fatalf("want Name mkdir, got %q", c.Name)
	}
	if len(c.Args) != 1 {
		t.Fatalf("want 1 arg, got %d", len(c.Args))
	}
}

func TestParseAssignment(t *testing.T) {
	f := mustParse(t, "export FOO=bar\n")
	a, ok := f.Statements[0].(*Assignment)
	if !ok {
		t.Fatalf("want *Assignment, got %T", f.Statements[0])
	}
	if a.Name != "FOO" || !a.Exported {
		t.Fatalf("want exported FOO, got %+v", a)
	}
}

func TestParseUntil(t *testing.T) {
	f := mustParse(t, "until [ -f /tmp/ready ]; do sleep 1; done\n")
	u, ok := f.Statements[0].(*Until)
	if !ok {
		t.Fatalf("want *Until, got %T", f.Statements[0])
	}
	if _, ok := u.Condition.(*TestExprNode); !ok {
		t.Fatalf("want TestExprNode condition, got %T", u.Condition)
	}
}

func TestParseForCStyle(t *testing.T) {
	f := mustParse(t, "for (( i=0; i<3; i++ )); do echo $i; done\n")
	c, ok := f.Statements[0].(*ForCStyle)
	if !ok {
		t.Fatalf("want *ForCStyle, got %T", f.Statements[0])
	}
	if strings.TrimSpace(c.Init) != "i=0" {
		t.Fatalf("want init i=0, got %q", c.Init)
	}
	if strings.TrimSpace(c.Increment) != "i++" {
		t.Fatalf("want increment i++, got %q", c.Increment)
	}
}

func TestParseDoubleBracketRejectsRegexMatch(t *testing.T) {
	_, err := Parse("[[ $x =~ ^[0-9]+$ ]]\n")
	if err == nil {
		t.Fatal("want error for =~, got nil")
	}
}

func TestParseIfElifElse(t *testing.T) {
	f := mustParse(t, "if true; then echo a; elif false; then echo b; else echo c; fi\n")
	i, ok := f.Statements[0].(*If)
	if !ok {
		t.Fatalf("want *If, got %T", f.Statements[0])
	}
	if len(i.ElifBlocks) != 1 {
		t.Fatalf("want 1 elif, got %d", len(i.ElifBlocks))
	}
	if i.ElseBlock == nil {
		t.Fatal("want else block")
	}
}

func TestParseParamDefault(t *testing.T) {
	f := mustParse(t, "echo ${NAME:-world}\n")
	c := f.Statements[0].(*Command)
	if _, ok := c.Args[0].(*ParamDefault); !ok {
		t.Fatalf("want *ParamDefault, got %T", c.Args[0])
	}
}
