package report

import (
	"testing"

	"github.com/bashrs-go/bashrs/corpus"
	"github.com/bashrs-go/bashrs/schema"
)

func TestPrinterScore(t *testing.T) {
	p := NewPrinter(WithColor(false))
	s := corpus.Score{Total: 10, Passed: 9, Rate: 0.9, TotalScore: 88, Grade: corpus.GradeB}
	out := p.Score(s)
	if !contains(out, "88.0/100") || !contains(out, "B") {
		t.Fatalf("unexpected score output: %s", out)
	}
}

func TestPrinterScoreGatewayMissed(t *testing.T) {
	p := NewPrinter(WithColor(false))
	s := corpus.Score{Total: 10, Passed: 3, Rate: 0.3, TotalScore: 9, Grade: corpus.GradeF}
	out := p.Score(s)
	if !contains(out, "BELOW 60% GATEWAY") {
		t.Fatalf("expected gateway warning, got: %s", out)
	}
}

func TestPrinterSchemaReport(t *testing.T) {
	p := NewPrinter(WithColor(false))
	report := schema.Aggregate([]schema.Result{
		schema.ValidateText("B-001", schema.FormatBash, "#!/bin/sh\necho ok\n"),
	})
	out := p.SchemaReport(report)
	if !contains(out, "Format") {
		t.Fatalf("expected schema table, got: %s", out)
	}
}

func TestPrinterCategoryReport(t *testing.T) {
	p := NewPrinter(WithColor(false))
	reg := &corpus.Registry{Entries: []corpus.Entry{{ID: "B-371", Format: corpus.FormatBash}}}
	stats := corpus.CategorizeCorpus(reg, nil)
	out := p.CategoryReport(stats)
	if !contains(out, "Shell Config") {
		t.Fatalf("expected category report, got: %s", out)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
