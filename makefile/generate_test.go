package makefile

import (
	"strings"
	"testing"
)

func TestGenerateNormalizesSpaceRecipe(t *testing.T) {
	ast, err := Parse("all:\n    echo hi\n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := Generate(ast)
	if !strings.Contains(out, "\techo hi\n") {
		t.Fatalf("expected tab-indented recipe, got:\n%q", out)
	}
	if strings.Contains(out, "    echo hi") {
		t.Fatalf("space-indented recipe survived generation:\n%q", out)
	}
}

func TestGenerateRoundTripsVariableAndTarget(t *testing.T) {
	ast, err := Parse("CC := gcc\n\nall: main.o\n\tgcc -o main main.o\n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := Generate(ast)
	if !strings.Contains(out, "CC := gcc") {
		t.Fatalf("missing variable assignment, got:\n%s", out)
	}
	if !strings.Contains(out, "all: main.o") || !strings.Contains(out, "\tgcc -o main main.o") {
		t.Fatalf("missing target/recipe, got:\n%s", out)
	}
}
