package schema

import "testing"

func TestCategoryCode(t *testing.T) {
	cases := map[Category]string{
		MissingQuoting: "GRAM-001", Bashism: "GRAM-002", TabSpaceConfusion: "GRAM-003",
		ShellFormCmd: "GRAM-004", UndefinedVariable: "GRAM-005", InvalidArithmetic: "GRAM-006",
		MissingFrom: "GRAM-007", CircularDependency: "GRAM-008",
	}
	for cat, want := range cases {
		if got := cat.Code(); got != want {
			t.Errorf("%v.Code() = %q, want %q", cat, got, want)
		}
	}
}

func TestAllCategoriesCount(t *testing.T) {
	if len(AllCategories()) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(AllCategories()))
	}
}

func TestApplicableFormat(t *testing.T) {
	if MissingQuoting.ApplicableFormat() != FormatBash {
		t.Error("MissingQuoting should apply to Bash")
	}
	if TabSpaceConfusion.ApplicableFormat() != FormatMakefile {
		t.Error("TabSpaceConfusion should apply to Makefile")
	}
	if MissingFrom.ApplicableFormat() != FormatDockerfile {
		t.Error("MissingFrom should apply to Dockerfile")
	}
}

func TestValidateBashClean(t *testing.T) {
	r := ValidateText("B-001", FormatBash, "#!/bin/sh\nset -eu\necho \"hello\"\n")
	if !r.Valid || len(r.Violations) != 0 {
		t.Fatalf("expected clean result, got %+v", r)
	}
}

func TestValidateBashBashism(t *testing.T) {
	r := ValidateText("B-002", FormatBash, "#!/bin/sh\nif [[ -f file ]]; then echo ok; fi\n")
	if r.Valid || len(r.Violations) != 1 || r.Violations[0].Category != Bashism {
		t.Fatalf("expected single Bashism violation, got %+v", r)
	}
}

func TestValidateBashUnquotedExpansion(t *testing.T) {
	r := ValidateText("B-003", FormatBash, "#!/bin/sh\necho $HOME\n")
	if r.Valid || r.Violations[0].Category != MissingQuoting {
		t.Fatalf("expected MissingQuoting violation, got %+v", r)
	}
}

func TestValidateBashQuotedExpansionOk(t *testing.T) {
	r := ValidateText("B-004", FormatBash, "#!/bin/sh\necho \"$HOME\"\n")
	if !r.Valid {
		t.Fatalf("expected valid, got %+v", r)
	}
}

func TestValidateBashAssignmentNotFlagged(t *testing.T) {
	r := ValidateText("B-005", FormatBash, "#!/bin/sh\nFOO=$HOME\n")
	if !r.Valid {
		t.Fatalf("assignment RHS should not be flagged, got %+v", r)
	}
}

func TestValidateBashInvalidArithmetic(t *testing.T) {
	r := ValidateText("B-006", FormatBash, "#!/bin/sh\n(( x = x + 1 ))\n")
	if r.Valid || r.Violations[0].Category != InvalidArithmetic {
		t.Fatalf("expected InvalidArithmetic, got %+v", r)
	}
}

func TestValidateBashPosixArithmeticOk(t *testing.T) {
	r := ValidateText("B-007", FormatBash, "#!/bin/sh\nx=$((x + 1))\n")
	if !r.Valid {
		t.Fatalf("expected valid, got %+v", r)
	}
}

func TestValidateMakefileClean(t *testing.T) {
	r := ValidateText("M-001", FormatMakefile, "CC := gcc\n\nall:\n\t$(CC) -o main main.c\n")
	if !r.Valid {
		t.Fatalf("expected valid, got %+v", r)
	}
}

func TestValidateMakefileSpaceRecipe(t *testing.T) {
	r := ValidateText("M-002", FormatMakefile, "all:\n    echo hello\n")
	if r.Valid || r.Violations[0].Category != TabSpaceConfusion {
		t.Fatalf("expected TabSpaceConfusion, got %+v", r)
	}
}

func TestValidateDockerfileClean(t *testing.T) {
	r := ValidateText("D-001", FormatDockerfile,
		"FROM alpine:3.18\nRUN apk add --no-cache curl\nCMD [\"curl\", \"https://example.com\"]\n")
	if !r.Valid {
		t.Fatalf("expected valid, got %+v", r)
	}
}

func TestValidateDockerfileMissingFrom(t *testing.T) {
	r := ValidateText("D-002", FormatDockerfile, "RUN apt-get update\n")
	if r.Valid || r.Violations[0].Category != MissingFrom {
		t.Fatalf("expected MissingFrom, got %+v", r)
	}
}

func TestValidateDockerfileShellFormCmd(t *testing.T) {
	r := ValidateText("D-003", FormatDockerfile, "FROM alpine:3.18\nCMD echo hello\n")
	if r.Valid || r.Violations[0].Category != ShellFormCmd {
		t.Fatalf("expected ShellFormCmd, got %+v", r)
	}
}

func TestValidateDockerfileMissingFromAndShellFormCmd(t *testing.T) {
	r := ValidateText("D-004", FormatDockerfile, "CMD echo hello\n")
	if r.Valid {
		t.Fatalf("expected invalid, got %+v", r)
	}
	if len(r.Violations) != 2 {
		t.Fatalf("expected exactly 2 violations (GRAM-007 + GRAM-004), got %+v", r.Violations)
	}
	var sawMissingFrom, sawShellForm bool
	for _, v := range r.Violations {
		if v.Line != 1 {
			t.Fatalf("expected line 1, got %+v", v)
		}
		switch v.Category {
		case MissingFrom:
			sawMissingFrom = true
		case ShellFormCmd:
			sawShellForm = true
		}
	}
	if !sawMissingFrom || !sawShellForm {
		t.Fatalf("expected both MissingFrom and ShellFormCmd, got %+v", r.Violations)
	}
}

func TestValidateDockerfileArgBeforeFrom(t *testing.T) {
	r := ValidateText("D-005", FormatDockerfile, "ARG VERSION=3.18\nFROM alpine:${VERSION}\nRUN echo ok\n")
	if !r.Valid {
		t.Fatalf("expected valid, got %+v", r)
	}
}

func TestAggregateAndReport(t *testing.T) {
	results := []Result{
		ValidateText("B-001", FormatBash, "#!/bin/sh\necho \"ok\"\n"),
		ValidateText("B-002", FormatBash, "#!/bin/sh\nif [[ 1 ]]; then echo ok; fi\n"),
		ValidateText("M-001", FormatMakefile, "all:\n\techo ok\n"),
		ValidateText("D-001", FormatDockerfile, "FROM alpine:3.18\nRUN echo ok\n"),
	}
	report := Aggregate(results)
	if report.TotalEntries != 4 || report.ValidEntries != 3 || report.TotalViolations != 1 {
		t.Fatalf("unexpected aggregate: %+v", report)
	}

	table := FormatReport(report)
	if !contains(table, "Bash") || !contains(table, "Makefile") || !contains(table, "Total") {
		t.Fatalf("report missing expected sections:\n%s", table)
	}

	errTable := FormatViolations(report)
	if !contains(errTable, "GRAM-001") || !contains(errTable, "GRAM-002") || !contains(errTable, "B-002") {
		t.Fatalf("violations table missing expected entries:\n%s", errTable)
	}
}

func TestFormatGrammarSpecs(t *testing.T) {
	if s := FormatGrammarSpec(FormatBash); !contains(s, "POSIX Shell Grammar") || !contains(s, "complete_command") {
		t.Fatalf("bad bash grammar spec: %s", s)
	}
	if s := FormatGrammarSpec(FormatMakefile); !contains(s, "GNU Make Grammar") || !contains(s, "recipe") {
		t.Fatalf("bad makefile grammar spec: %s", s)
	}
	if s := FormatGrammarSpec(FormatDockerfile); !contains(s, "Dockerfile Grammar") || !contains(s, "exec_form") {
		t.Fatalf("bad dockerfile grammar spec: %s", s)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
