package lint

import "testing"

func TestLintShellClean(t *testing.T) {
	r := LintShell("#!/bin/sh\necho \"hello\"\n")
	if r.HasErrors() {
		t.Fatalf("expected no errors, got %+v", r.Diagnostics)
	}
}

func TestLintShellBashism(t *testing.T) {
	r := LintShell("#!/bin/sh\nif [[ -f x ]]; then echo ok; fi\n")
	if !r.HasErrors() {
		t.Fatal("expected [[ ]] to be flagged as an error")
	}
}

func TestLintShellUnquoted(t *testing.T) {
	r := LintShell("#!/bin/sh\necho $HOME\n")
	found := false
	for _, d := range r.Diagnostics {
		if d.Rule == "SC2086" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected SC2086 for unquoted $HOME")
	}
	if r.HasErrors() {
		t.Fatal("SC2086 is a warning, not an error")
	}
}

func TestLintMakefileSpaceRecipe(t *testing.T) {
	r := LintMakefile("all:\n    echo hi\n")
	if !r.HasErrors() {
		t.Fatal("expected space-indented recipe to be flagged")
	}
}

func TestLintMakefileTabRecipeClean(t *testing.T) {
	r := LintMakefile(".PHONY: all\nall:\n\techo hi\n")
	if r.HasErrors() {
		t.Fatalf("expected clean tab recipe, got %+v", r.Diagnostics)
	}
}

func TestLintDockerfileShellForm(t *testing.T) {
	r := LintDockerfile("FROM alpine:3.18\nCMD echo hi\n")
	if !r.HasErrors() {
		t.Fatal("expected shell-form CMD to be flagged")
	}
}

func TestLintDockerfileExecFormClean(t *testing.T) {
	r := LintDockerfile("FROM alpine:3.18\nUSER app\nCMD [\"echo\", \"hi\"]\n")
	if r.HasErrors() {
		t.Fatalf("expected clean exec form, got %+v", r.Diagnostics)
	}
}
