package corpus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTranspile(input string) (string, error) {
	if strings.Contains(input, "BAD") {
		return "", errors.New("unexpected token")
	}
	return "#!/bin/sh\necho \"" + strings.TrimSpace(input) + "\"\n", nil
}

func TestRunnerRunAllGateway(t *testing.T) {
	reg := &Registry{Entries: []Entry{
		{ID: "B-001", Format: FormatBash, Input: "hello", ExpectedOutput: "hello"},
		{ID: "B-002", Format: FormatBash, Input: "BAD input"},
	}}
	rn := NewRunner(map[Format]TranspileFunc{FormatBash: echoTranspile})

	score, err := rn.RunAll(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 2, score.Total)
	assert.Equal(t, 1, score.Passed)
	assert.Falsef(t, score.GatewayMet(), "50%% passed should not meet the 60%% gateway: %+v", score)
}

func TestRunnerScoreDimensions(t *testing.T) {
	reg := &Registry{Entries: []Entry{
		{ID: "B-003", Format: FormatBash, Input: "ok", ExpectedOutput: "ok", Deterministic: true},
	}}
	rn := NewRunner(map[Format]TranspileFunc{FormatBash: echoTranspile})

	score, err := rn.RunAll(context.Background(), reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(score.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(score.Results))
	}
	r := score.Results[0]
	if !r.Transpiled || !r.OutputContains {
		t.Fatalf("expected transpiled+contains, got %+v", r)
	}
	if r.Score() <= 0 {
		t.Fatalf("expected positive score, got %v", r.Score())
	}
}

func TestResultScoreRubric(t *testing.T) {
	allTrue := Result{
		Transpiled: true, SchemaValid: true, OutputContains: true, OutputExact: true,
		OutputBehavioral: true, HasTest: true, LintClean: true, Deterministic: true,
		MetamorphicConsistent: true, CrossShellAgree: true,
	}
	assert.Equal(t, 100.0, allTrue.Score(), "all dimensions true")

	lintDirty := allTrue
	lintDirty.LintClean = false
	assert.Equal(t, 90.0, lintDirty.Score(), "lint_clean false only")

	noContains := allTrue
	noContains.OutputContains = false
	assert.Equal(t, 75.0, noContains.Score(), "output_contains false (L2/L3 gated to 0)")

	notTranspiled := allTrue
	notTranspiled.Transpiled = false
	assert.Zero(t, notTranspiled.Score(), "transpile failure must gate score to 0")

	noSchema := allTrue
	noSchema.SchemaValid = false
	assert.Zero(t, noSchema.Score(), "schema_valid false must gate score to 0")
}

func TestCheckExactMatch(t *testing.T) {
	if !checkExactMatch("a\nb\nc\n", "") {
		t.Fatal("empty expected should vacuously match")
	}
	if !checkExactMatch("a\n  b  \nc\n", "b") {
		t.Fatal("single-line expected should match any trimmed actual line")
	}
	if !checkExactMatch("x\na\nb\ny\n", "a\nb") {
		t.Fatal("multi-line expected should match a consecutive run")
	}
	if checkExactMatch("a\nc\nb\n", "a\nb") {
		t.Fatal("non-consecutive lines must not count as an exact match")
	}
}

func TestGradeFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{100, GradeAPlus}, {92, GradeA}, {85, GradeB}, {75, GradeC}, {65, GradeD}, {10, GradeF},
	}
	for _, c := range cases {
		if got := GradeFromScore(c.score); got != c.want {
			t.Errorf("GradeFromScore(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestIsConverged(t *testing.T) {
	history := []ConvergenceEntry{
		{Iteration: 0, Rate: 1.0, Delta: 0},
		{Iteration: 1, Rate: 0.995, Delta: -0.001},
		{Iteration: 2, Rate: 0.999, Delta: 0.001},
	}
	if !IsConverged(history) {
		t.Fatalf("expected convergence, got %+v", history)
	}

	unstable := []ConvergenceEntry{
		{Iteration: 0, Rate: 0.8, Delta: 0},
		{Iteration: 1, Rate: 0.9, Delta: 0.1},
		{Iteration: 2, Rate: 0.95, Delta: 0.05},
	}
	if IsConverged(unstable) {
		t.Fatalf("expected no convergence, got %+v", unstable)
	}

	if IsConverged(history[:2]) {
		t.Fatal("fewer than 3 entries can never converge")
	}
}

func TestRunConverging(t *testing.T) {
	reg := &Registry{Entries: []Entry{
		{ID: "B-010", Format: FormatBash, Input: "x", ExpectedOutput: "x"},
		{ID: "B-011", Format: FormatBash, Input: "y", ExpectedOutput: "y"},
	}}
	rn := NewRunner(map[Format]TranspileFunc{FormatBash: echoTranspile})

	history, score, err := rn.RunConverging(context.Background(), reg, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("expected at least one convergence entry")
	}
	if score.Rate != 1.0 {
		t.Fatalf("expected rate 1.0, got %v", score.Rate)
	}
}

func TestCheckMR2NoOp(t *testing.T) {
	e := Entry{Format: FormatBash, Input: "hello", ExpectedOutput: "hello"}
	if !checkMR2NoOp(echoTranspile, e) {
		t.Fatal("prepending a no-op comment should preserve containment of the expected fragment")
	}

	unstable := func(input string) (string, error) {
		if strings.Contains(input, "MR-2") {
			return "", errors.New("comment unsupported")
		}
		return "#!/bin/sh\necho \"" + input + "\"\n", nil
	}
	if checkMR2NoOp(unstable, e) {
		t.Fatal("expected disagreement between original and commented transpile to be detected")
	}
}
