package corpus

import (
	"fmt"
	"strconv"
	"strings"
)

// DomainCategory classifies a Bash-format entry by its numeric ID
// range into one of eight named domains, plus General for everything
// else.
type DomainCategory int

const (
	ShellConfig DomainCategory = iota
	OneLiners
	Provability
	UnixTools
	LangIntegration
	SystemTooling
	Coreutils
	RegexPatterns
	General
)

// Label returns the category's short report label.
func (c DomainCategory) Label() string {
	switch c {
	case ShellConfig:
		return "A: Shell Config"
	case OneLiners:
		return "B: One-Liners"
	case Provability:
		return "C: Provability"
	case UnixTools:
		return "D: Unix Tools"
	case LangIntegration:
		return "E: Lang Integration"
	case SystemTooling:
		return "F: System Tooling"
	case Coreutils:
		return "G: Coreutils"
	case RegexPatterns:
		return "H: Regex Patterns"
	default:
		return "General"
	}
}

func (c DomainCategory) matrixLabel() string {
	switch c {
	case ShellConfig:
		return "Config"
	case OneLiners:
		return "1-Liner"
	case Provability:
		return "Prove"
	case UnixTools:
		return "Unix"
	case LangIntegration:
		return "Lang"
	case SystemTooling:
		return "System"
	case Coreutils:
		return "Core"
	case RegexPatterns:
		return "Regex"
	default:
		return "Gen"
	}
}

// Range reports the inclusive entry-ID numeric bounds for the
// category, and ok=false for General (which has none).
func (c DomainCategory) Range() (lo, hi int, ok bool) {
	switch c {
	case ShellConfig:
		return 371, 380, true
	case OneLiners:
		return 381, 390, true
	case Provability:
		return 391, 400, true
	case UnixTools:
		return 401, 410, true
	case LangIntegration:
		return 411, 420, true
	case SystemTooling:
		return 421, 430, true
	case Coreutils:
		return 431, 460, true
	case RegexPatterns:
		return 461, 490, true
	default:
		return 0, 0, false
	}
}

// Capacity is the maximum entry count the category is sized for.
func (c DomainCategory) Capacity() int {
	switch c {
	case Coreutils, RegexPatterns:
		return 30
	case General:
		return 0
	default:
		return 10
	}
}

// AllSpecific lists the eight domain-specific categories in order,
// excluding General.
func AllSpecific() []DomainCategory {
	return []DomainCategory{
		ShellConfig, OneLiners, Provability, UnixTools,
		LangIntegration, SystemTooling, Coreutils, RegexPatterns,
	}
}

// parseBashIDNum extracts the numeric suffix of an entry ID formatted
// "B-371" -> 371.
func parseBashIDNum(id string) (int, bool) {
	rest := strings.TrimPrefix(id, "B-")
	if rest == id {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ClassifyEntry assigns a domain category to one entry by its ID
// range.
func ClassifyEntry(e Entry) DomainCategory {
	if e.Format != FormatBash {
		return General
	}
	num, ok := parseBashIDNum(e.ID)
	if !ok {
		return General
	}
	for _, cat := range AllSpecific() {
		if lo, hi, ok := cat.Range(); ok && num >= lo && num <= hi {
			return cat
		}
	}
	return General
}

// CategoryStats is the per-category rollup used for coverage and
// quality reports.
type CategoryStats struct {
	Category DomainCategory
	Total    int
	Capacity int
	Passed   int
	Failed   int
	FillPct  float64
	PassRate float64
}

// CategorizeCorpus buckets a registry's entries by domain category and
// joins in pass/fail counts from a runner's results.
func CategorizeCorpus(reg *Registry, results []Result) []CategoryStats {
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.EntryID] = r
	}

	type counts struct{ total, passed, failed int }
	tally := map[DomainCategory]*counts{}

	for _, e := range reg.Entries {
		cat := ClassifyEntry(e)
		c, ok := tally[cat]
		if !ok {
			c = &counts{}
			tally[cat] = c
		}
		c.total++
		if r, ok := byID[e.ID]; ok {
			if r.Transpiled {
				c.passed++
			} else {
				c.failed++
			}
		}
	}

	var stats []CategoryStats
	for _, cat := range AllSpecific() {
		c := tally[cat]
		if c == nil {
			c = &counts{}
		}
		capacity := cat.Capacity()
		fillPct := 0.0
		if capacity > 0 {
			fillPct = float64(c.total) / float64(capacity) * 100.0
		}
		passRate := 0.0
		if c.total > 0 {
			passRate = float64(c.passed) / float64(c.total) * 100.0
		}
		stats = append(stats, CategoryStats{
			Category: cat, Total: c.total, Capacity: capacity,
			Passed: c.passed, Failed: c.failed, FillPct: fillPct, PassRate: passRate,
		})
	}

	if c := tally[General]; c != nil {
		passRate := 0.0
		if c.total > 0 {
			passRate = float64(c.passed) / float64(c.total) * 100.0
		}
		stats = append(stats, CategoryStats{
			Category: General, Total: c.total, Passed: c.passed, Failed: c.failed, PassRate: passRate,
		})
	}

	return stats
}

// coverageStatus classifies a category's fill/pass state.
func coverageStatus(s CategoryStats) string {
	switch {
	case s.Total == 0:
		return "EMPTY"
	case s.Total >= s.Capacity && s.Failed == 0:
		return "COMPLETE"
	case s.Total >= s.Capacity:
		return "FULL (has failures)"
	case s.FillPct >= 50.0:
		return "PARTIAL"
	default:
		return "SPARSE"
	}
}

// FormatCategoryReport renders the per-category fill/pass-rate table.
func FormatCategoryReport(stats []CategoryStats) string {
	var b strings.Builder
	rule := strings.Repeat("─", 70)

	b.WriteString("Domain-Specific Corpus Categories\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-22s %8s %8s %8s %8s %10s\n", "Category", "Entries", "Capacity", "Fill %", "Passed", "Pass Rate")
	b.WriteString(rule + "\n")

	var domainTotal, domainPassed, domainCapacity int
	for _, s := range stats {
		if s.Category == General {
			continue
		}
		fillStr := "-"
		if s.Capacity > 0 {
			fillStr = fmt.Sprintf("%.0f%%", s.FillPct)
		}
		rateStr := "-"
		if s.Total > 0 {
			rateStr = fmt.Sprintf("%.1f%%", s.PassRate)
		}
		fmt.Fprintf(&b, "%-22s %8d %8d %8s %8d %10s\n", s.Category.Label(), s.Total, s.Capacity, fillStr, s.Passed, rateStr)
		domainTotal += s.Total
		domainPassed += s.Passed
		domainCapacity += s.Capacity
	}

	var genTotal, genPassed int
	for _, s := range stats {
		if s.Category != General {
			continue
		}
		genTotal, genPassed = s.Total, s.Passed
		rateStr := "-"
		if s.Total > 0 {
			rateStr = fmt.Sprintf("%.1f%%", s.PassRate)
		}
		b.WriteString(rule + "\n")
		fmt.Fprintf(&b, "%-22s %8d %8s %8s %8d %10s\n", "General", s.Total, "-", "-", s.Passed, rateStr)
	}

	totalEntries := domainTotal + genTotal
	totalPassed := domainPassed + genPassed
	fillPct := 0.0
	if domainCapacity > 0 {
		fillPct = float64(domainTotal) / float64(domainCapacity) * 100.0
	}
	fmt.Fprintf(&b, "\nTotal: %d entries (%d domain-specific, %.0f%% of capacity %d)\n", totalEntries, domainTotal, fillPct, domainCapacity)
	rate := 0.0
	if totalEntries > 0 {
		rate = float64(totalPassed) / float64(totalEntries) * 100.0
	}
	fmt.Fprintf(&b, "Pass rate: %d/%d (%.1f%%)\n", totalPassed, totalEntries, rate)

	return b.String()
}

// FormatDomainCoverage renders the coverage/gap-analysis report.
func FormatDomainCoverage(stats []CategoryStats, score Score) string {
	var b strings.Builder
	rule := strings.Repeat("─", 70)

	b.WriteString("Domain Coverage Analysis\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Corpus Score: %.1f/100 (%s)\n\n", score.TotalScore, score.Grade)
	fmt.Fprintf(&b, "%-22s %6s/%-6s %7s  %s\n", "Category", "Have", "Need", "Fill", "Status")
	b.WriteString(rule + "\n")

	type gap struct {
		cat DomainCategory
		n   int
	}
	var gaps []gap

	for _, s := range stats {
		if s.Category == General {
			continue
		}
		fillStr := fmt.Sprintf("%.0f%%", s.FillPct)
		status := coverageStatus(s)
		fmt.Fprintf(&b, "%-22s %6d/%-6d %7s  %s\n", s.Category.Label(), s.Total, s.Capacity, fillStr, status)
		if s.Total < s.Capacity {
			gaps = append(gaps, gap{s.Category, s.Capacity - s.Total})
		}
	}

	if len(gaps) == 0 {
		b.WriteString("\nAll domain categories fully populated.\n")
	} else {
		total := 0
		for _, g := range gaps {
			total += g.n
		}
		fmt.Fprintf(&b, "\nCoverage Gaps: %d entries needed across %d categories\n", total, len(gaps))
		for _, g := range gaps {
			lo, hi, _ := g.cat.Range()
			fmt.Fprintf(&b, "  %s : %d entries needed (B-%d..B-%d)\n", g.cat.Label(), g.n, lo, hi)
		}
	}

	return b.String()
}

// QualityReq is one cell of the cross-category quality matrix.
type QualityReq int

const (
	Required QualityReq = iota
	NotApplicable
)

func (q QualityReq) String() string {
	if q == Required {
		return "Y"
	}
	return "-"
}

// qualityMatrixRow ties a property name to its per-category
// requirement, in the fixed order A..H that AllSpecific() returns.
type qualityMatrixRow struct {
	property string
	reqs     [8]QualityReq
}

// qualityProperties is the fixed 10-property x 8-category
// requirements table. The values are static and locked in by tests.
var qualityProperties = []qualityMatrixRow{
	{"Idempotent", [8]QualityReq{Required, NotApplicable, Required, NotApplicable, NotApplicable, Required, Required, Required}},
	{"POSIX", [8]QualityReq{Required, Required, Required, Required, Required, Required, Required, Required}},
	{"Deterministic", [8]QualityReq{Required, Required, Required, Required, Required, Required, Required, Required}},
	{"Miri-verifiable", [8]QualityReq{NotApplicable, NotApplicable, Required, NotApplicable, NotApplicable, NotApplicable, Required, NotApplicable}},
	{"Cross-shell", [8]QualityReq{Required, Required, Required, Required, Required, Required, Required, Required}},
	{"Shellcheck-clean", [8]QualityReq{Required, Required, Required, Required, Required, Required, Required, Required}},
	{"Pipeline-safe", [8]QualityReq{NotApplicable, Required, NotApplicable, Required, Required, NotApplicable, Required, Required}},
	{"1:1 parity", [8]QualityReq{NotApplicable, NotApplicable, NotApplicable, NotApplicable, NotApplicable, NotApplicable, Required, NotApplicable}},
	{"Signal-aware", [8]QualityReq{NotApplicable, NotApplicable, NotApplicable, NotApplicable, NotApplicable, Required, NotApplicable, NotApplicable}},
	{"Terminates", [8]QualityReq{NotApplicable, NotApplicable, Required, NotApplicable, NotApplicable, NotApplicable, NotApplicable, Required}},
}

// FormatQualityMatrix renders the fixed cross-category quality
// requirements table.
func FormatQualityMatrix() string {
	var b strings.Builder
	cats := AllSpecific()

	b.WriteString("Cross-Category Quality Matrix\n")
	b.WriteString(strings.Repeat("─", 90) + "\n")

	fmt.Fprintf(&b, "%-18s", "Property")
	for _, c := range cats {
		fmt.Fprintf(&b, " %-7s", c.matrixLabel())
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 90) + "\n")

	for _, row := range qualityProperties {
		fmt.Fprintf(&b, "%-18s", row.property)
		for _, r := range row.reqs {
			fmt.Fprintf(&b, " %-7s", r)
		}
		b.WriteString("\n")
	}

	return b.String()
}
