package corpus

import "testing"

func TestClassifyEntry(t *testing.T) {
	cases := []struct {
		id   string
		want DomainCategory
	}{
		{"B-371", ShellConfig}, {"B-380", ShellConfig},
		{"B-381", OneLiners}, {"B-395", Provability},
		{"B-405", UnixTools}, {"B-415", LangIntegration},
		{"B-425", SystemTooling}, {"B-445", Coreutils},
		{"B-470", RegexPatterns}, {"B-500", General}, {"M-001", General},
	}
	for _, c := range cases {
		e := Entry{ID: c.id, Format: FormatBash}
		if c.id == "M-001" {
			e.Format = FormatMakefile
		}
		if got := ClassifyEntry(e); got != c.want {
			t.Errorf("ClassifyEntry(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestCategorizeCorpusAndReport(t *testing.T) {
	reg := &Registry{Entries: []Entry{
		{ID: "B-371", Format: FormatBash},
		{ID: "B-372", Format: FormatBash},
		{ID: "B-999", Format: FormatBash},
	}}
	results := []Result{
		{EntryID: "B-371", Transpiled: true},
		{EntryID: "B-372", Transpiled: false},
	}
	stats := CategorizeCorpus(reg, results)

	var shellConfig CategoryStats
	for _, s := range stats {
		if s.Category == ShellConfig {
			shellConfig = s
		}
	}
	if shellConfig.Total != 2 || shellConfig.Passed != 1 || shellConfig.Failed != 1 {
		t.Fatalf("unexpected ShellConfig stats: %+v", shellConfig)
	}

	report := FormatCategoryReport(stats)
	if !strContains(report, "Shell Config") || !strContains(report, "Total:") {
		t.Fatalf("report missing expected content:\n%s", report)
	}
}

func TestCategorizeCorpusSpecScenario(t *testing.T) {
	reg := &Registry{Entries: []Entry{
		{ID: "B-001", Format: FormatBash},
		{ID: "B-375", Format: FormatBash},
		{ID: "B-450", Format: FormatBash},
		{ID: "M-001", Format: FormatMakefile},
	}}
	results := []Result{
		{EntryID: "B-001", Transpiled: true},
		{EntryID: "B-375", Transpiled: true},
		{EntryID: "B-450", Transpiled: false},
		{EntryID: "M-001", Transpiled: true},
	}
	stats := CategorizeCorpus(reg, results)

	byCategory := map[DomainCategory]CategoryStats{}
	for _, s := range stats {
		byCategory[s.Category] = s
	}

	if s := byCategory[ShellConfig]; s.Total != 1 || s.Passed != 1 {
		t.Fatalf("ShellConfig: want total=1 passed=1, got %+v", s)
	}
	if s := byCategory[Coreutils]; s.Total != 1 || s.Failed != 1 {
		t.Fatalf("Coreutils: want total=1 failed=1, got %+v", s)
	}
	if s := byCategory[General]; s.Total != 2 || s.Passed != 2 {
		t.Fatalf("General: want total=2 passed=2 (B-001 + M-001), got %+v", s)
	}
}

func TestCoverageStatus(t *testing.T) {
	cases := []struct {
		s    CategoryStats
		want string
	}{
		{CategoryStats{Total: 0, Capacity: 10}, "EMPTY"},
		{CategoryStats{Total: 10, Capacity: 10, Failed: 0}, "COMPLETE"},
		{CategoryStats{Total: 10, Capacity: 10, Failed: 1}, "FULL (has failures)"},
		{CategoryStats{Total: 6, Capacity: 10, FillPct: 60}, "PARTIAL"},
		{CategoryStats{Total: 2, Capacity: 10, FillPct: 20}, "SPARSE"},
	}
	for _, c := range cases {
		if got := coverageStatus(c.s); got != c.want {
			t.Errorf("coverageStatus(%+v) = %q, want %q", c.s, got, c.want)
		}
	}
}

func TestFormatQualityMatrix(t *testing.T) {
	m := FormatQualityMatrix()
	if !strContains(m, "Idempotent") || !strContains(m, "Terminates") || !strContains(m, "Config") {
		t.Fatalf("matrix missing expected rows/columns:\n%s", m)
	}
}

func strContains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
