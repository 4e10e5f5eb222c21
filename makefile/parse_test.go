package makefile

import "testing"

func mustParse(t *testing.T, src string) *Ast {
	t.Helper()
	ast, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return ast
}

func TestParseEmptyMakefile(t *testing.T) {
	ast := mustParse(t, "")
	if len(ast.Items) != 0 {
		t.Fatalf("want 0 items, got %d", len(ast.Items))
	}
}

func TestParseTargetWithRecipe(t *testing.T) {
	ast := mustParse(t, "build:\n\tgo build ./...\n")
	if len(ast.Items) != 1 {
		t.Fatalf("want 1 item, got %d", len(ast.Items))
	}
	tgt, ok := ast.Items[0].(*Target)
	if !ok {
		t.Fatalf("want *Target, got %T", ast.Items[0])
	}
	if tgt.Name != "build" || len(tgt.Recipe) != 1 || tgt.Recipe[0] != "go build ./..." {
		t.Fatalf("want build target with one recipe line, got %+v", tgt)
	}
	if len(tgt.Prerequisites) != 0 {
		t.Fatalf("want no prerequisites, got %v", tgt.Prerequisites)
	}
}

func TestParseMultipleTargets(t *testing.T) {
	ast := mustParse(t, "build:\n\tgo build\n\ntest:\n\tgo test ./...\n")
	if len(ast.Items) != 2 {
		t.Fatalf("want 2 items, got %d", len(ast.Items))
	}
}

func TestParsePhonyMarking(t *testing.T) {
	ast := mustParse(t, ".PHONY: clean\nclean:\n\trm -rf build\nbuild:\n\ttouch build\n")
	var clean, build *Target
	for _, it := range ast.Items {
		if tgt, ok := it.(*Target); ok {
			switch tgt.Name {
			case "clean":
				clean = tgt
			case "build":
				build = tgt
			}
		}
	}
	if clean == nil || !clean.Phony {
		t.Fatalf("want clean marked phony, got %+v", clean)
	}
	if build == nil || build.Phony {
		t.Fatalf("want build not phony, got %+v", build)
	}
}

func TestParsePatternRule(t *testing.T) {
	ast := mustParse(t, "%.o: %.c\n\t$(CC) -c $< -o $@\n")
	pr, ok := ast.Items[0].(*PatternRule)
	if !ok {
		t.Fatalf("want *PatternRule, got %T", ast.Items[0])
	}
	if pr.TargetPattern != "%.o" || len(pr.PrereqPatterns) != 1 || pr.PrereqPatterns[0] != "%.c" {
		t.Fatalf("want %%.o: %%.c pattern rule, got %+v", pr)
	}
}

func TestParseVariableFlavors(t *testing.T) {
	cases := []struct {
		line   string
		flavor VarFlavor
	}{
		{"CC = gcc", Recursive},
		{"CC := gcc", Simple},
		{"CC ?= gcc", CondAssign},
		{"SRCS += extra.c", Append},
		{"VERSION != git describe", Shell},
	}
	for _, c := range cases {
		ast := mustParse(t, c.line+"\n")
		v, ok := ast.Items[0].(*Variable)
		if !ok {
			t.Fatalf("%q: want *Variable, got %T", c.line, ast.Items[0])
		}
		if v.Flavor != c.flavor {
			t.Fatalf("%q: want flavor %v, got %v", c.line, c.flavor, v.Flavor)
		}
	}
}

func TestParseVariableVsTargetDisambiguation(t *testing.T) {
	ast := mustParse(t, "target: VAR=value\n")
	tgt, ok := ast.Items[0].(*Target)
	if !ok {
		t.Fatalf("want %q to parse as a target rule, got %T", "target: VAR=value", ast.Items[0])
	}
	if len(tgt.Prerequisites) != 1 || tgt.Prerequisites[0] != "VAR=value" {
		t.Fatalf("want VAR=value as a literal prerequisite, got %v", tgt.Prerequisites)
	}
}

func TestParseIncludeForms(t *testing.T) {
	ast := mustParse(t, "include common.mk\n-include optional.mk\nsinclude quiet.mk\n")
	if len(ast.Items) != 3 {
		t.Fatalf("want 3 items, got %d", len(ast.Items))
	}
	for i, want := range []struct {
		path     string
		optional bool
	}{
		{"common.mk", false},
		{"optional.mk", true},
		{"quiet.mk", true},
	} {
		inc, ok := ast.Items[i].(*Include)
		if !ok {
			t.Fatalf("item %d: want *Include, got %T", i, ast.Items[i])
		}
		if inc.Path != want.path || inc.Optional != want.optional {
			t.Fatalf("item %d: want %+v, got %+v", i, want, inc)
		}
	}
}

func TestParseConditionalIfeqWithElse(t *testing.T) {
	ast := mustParse(t, "ifeq ($(DEBUG),1)\nCFLAGS = -g\nelse\nCFLAGS = -O2\nendif\n")
	cond, ok := ast.Items[0].(*Conditional)
	if !ok {
		t.Fatalf("want *Conditional, got %T", ast.Items[0])
	}
	if cond.Condition.Kind != IfEq || cond.Condition.Left != "$(DEBUG)" || cond.Condition.Right != "1" {
		t.Fatalf("want ifeq($(DEBUG),1), got %+v", cond.Condition)
	}
	if len(cond.Then) != 1 || len(cond.Else) != 1 {
		t.Fatalf("want one then-item and one else-item, got then=%d else=%d", len(cond.Then), len(cond.Else))
	}
}

func TestParseIfdefWithoutElse(t *testing.T) {
	ast := mustParse(t, "ifdef VERBOSE\nQUIET =\nendif\n")
	cond := ast.Items[0].(*Conditional)
	if cond.Condition.Kind != IfDef || cond.Condition.Var != "VERBOSE" {
		t.Fatalf("want ifdef VERBOSE, got %+v", cond.Condition)
	}
	if cond.Else != nil {
		t.Fatalf("want no else branch, got %+v", cond.Else)
	}
}

func TestParseDefineBlock(t *testing.T) {
	ast := mustParse(t, "define USAGE\nline one\nline two\nendef\n")
	v, ok := ast.Items[0].(*Variable)
	if !ok {
		t.Fatalf("want *Variable from define block, got %T", ast.Items[0])
	}
	if v.Name != "USAGE" || v.Value != "line one\nline two" {
		t.Fatalf("want multi-line USAGE value, got %+v", v)
	}
}

func TestParseLineContinuationInRecipe(t *testing.T) {
	ast := mustParse(t, "build:\n\tgo build \\\n\t\t./...\n")
	tgt := ast.Items[0].(*Target)
	if len(tgt.Recipe) != 1 || tgt.Recipe[0] != "go build ./..." {
		t.Fatalf("want joined recipe line, got %+v", tgt.Recipe)
	}
	if tgt.RecipeMetadata == nil || len(tgt.RecipeMetadata.LineBreaks) != 1 {
		t.Fatalf("want recipe metadata recording the continuation, got %+v", tgt.RecipeMetadata)
	}
}

func TestParseNoAssignmentOperatorError(t *testing.T) {
	// "target" alone with neither ':' nor '=' never reaches
	// parseVariable in the top-level dispatch (it is simply skipped as
	// an unrecognized line), so exercise the error path directly.
	_, err := parseVariable("justaword", 1)
	if err == nil {
		t.Fatal("want error for a line with no assignment operator")
	}
}

func TestParseCommentText(t *testing.T) {
	ast := mustParse(t, "#   indented comment  \n")
	c, ok := ast.Items[0].(*Comment)
	if !ok {
		t.Fatalf("want *Comment, got %T", ast.Items[0])
	}
	if c.Text != "indented comment" {
		t.Fatalf("want trimmed comment text, got %q", c.Text)
	}
}
