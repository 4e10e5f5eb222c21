// Package report adds colorized terminal rendering on top of the
// plain-text tables schema and corpus already produce. Nothing here
// computes a report; it only colors one that
// schema.FormatReport/corpus.FormatCategoryReport already rendered.
package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/bashrs-go/bashrs/corpus"
	"github.com/bashrs-go/bashrs/schema"
)

// Option configures a Printer, mirroring emit.Option/clog's own
// functional-option config pattern.
type Option func(*Printer)

// WithColor forces color on/off regardless of terminal detection —
// fatih/color already auto-disables on a non-tty, this is for tests
// and piped output that want it forced either way.
func WithColor(enabled bool) Option {
	return func(p *Printer) { p.colorEnabled = &enabled }
}

// Printer renders corpus and schema reports with colorized summaries.
type Printer struct {
	colorEnabled *bool
}

// NewPrinter builds a Printer with the given options applied.
func NewPrinter(opts ...Option) *Printer {
	p := &Printer{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) colorize(c *color.Color, s string) string {
	if p.colorEnabled != nil && !*p.colorEnabled {
		return s
	}
	if p.colorEnabled != nil && *p.colorEnabled {
		c.EnableColor()
	}
	return c.Sprint(s)
}

// Score renders a corpus.Score summary line, coloring the grade green
// at B or better, yellow at C/D, red at F, and flagging a missed
// gateway in red regardless of grade.
func (p *Printer) Score(s corpus.Score) string {
	var b strings.Builder
	gradeColor := color.New(color.FgGreen)
	switch s.Grade {
	case corpus.GradeC, corpus.GradeD:
		gradeColor = color.New(color.FgYellow)
	case corpus.GradeF:
		gradeColor = color.New(color.FgRed)
	}
	fmt.Fprintf(&b, "Score: %.1f/100 (%s)\n", s.TotalScore, p.colorize(gradeColor, s.Grade.String()))

	gatewayLine := fmt.Sprintf("Gateway: %d/%d transpiled (%.1f%%)", s.Passed, s.Total, s.Rate*100)
	if !s.GatewayMet() {
		gatewayLine = p.colorize(color.New(color.FgRed, color.Bold), gatewayLine+" — BELOW 60% GATEWAY")
	}
	b.WriteString(gatewayLine)
	b.WriteString("\n")
	return b.String()
}

// SchemaReport colorizes schema.FormatReport's output by tinting the
// pass-rate column: green at 100%, yellow otherwise.
func (p *Printer) SchemaReport(r schema.Report) string {
	base := schema.FormatReport(r)
	if r.PassRate() >= 99.999 {
		return p.colorize(color.New(color.FgGreen), base)
	}
	return p.colorize(color.New(color.FgYellow), base)
}

// CategoryReport colorizes corpus.FormatCategoryReport line by line:
// a line containing "100.0%" is tinted green, a Total line at 0.0% is
// tinted red, and every other line is left uncolored.
func (p *Printer) CategoryReport(stats []corpus.CategoryStats) string {
	base := corpus.FormatCategoryReport(stats)
	var b strings.Builder
	for _, line := range strings.Split(base, "\n") {
		b.WriteString(p.colorizeStatusLine(line))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (p *Printer) colorizeStatusLine(line string) string {
	switch {
	case strings.Contains(line, "100.0%"):
		return p.colorize(color.New(color.FgGreen), line)
	case strings.Contains(line, "0.0%") && strings.Contains(line, "Total"):
		return p.colorize(color.New(color.FgRed), line)
	default:
		return line
	}
}
