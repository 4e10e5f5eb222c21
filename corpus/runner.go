package corpus

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/errgroup"

	"github.com/bashrs-go/bashrs/errs"
	"github.com/bashrs-go/bashrs/lint"
	"github.com/bashrs-go/bashrs/schema"
)

// TranspileFunc transpiles one entry's input text to output text for a
// single format. The Runner is wired with one per Format from outside
// this package (the root bashrs package supplies the concrete
// pipelines) so corpus never imports the packages that implement
// them.
type TranspileFunc func(input string) (string, error)

// Runner runs corpus entries through a wired set of transpile
// pipelines and scores the result.
type Runner struct {
	Transpile map[Format]TranspileFunc
	// CrossShell, when wired for a format, is a second pipeline
	// targeting the Bash dialect (emit.WithTarget(emit.Bash)); its
	// presence is what makes dimension G (cross_shell_agree) a real
	// comparison rather than a vacuous pass. Formats with no entry
	// here have no second dialect to target.
	CrossShell map[Format]TranspileFunc
	// Parallelism bounds concurrent entry evaluation; zero means
	// unbounded (errgroup.Group with no SetLimit call).
	Parallelism int
}

// NewRunner builds a Runner with the given per-format transpile
// pipelines.
func NewRunner(transpile map[Format]TranspileFunc) *Runner {
	return &Runner{Transpile: transpile}
}

// Result is the nine-dimension outcome for one entry.
type Result struct {
	EntryID               string
	Format                Format
	Transpiled            bool
	OutputContains        bool
	OutputExact           bool
	OutputBehavioral      bool
	SchemaValid           bool
	HasTest               bool
	LintClean             bool
	Deterministic         bool
	MetamorphicConsistent bool
	CrossShellAgree       bool
	ActualOutput          string
	Error                 string
	ErrorCategory         string
	ErrorConfidence       float64
}

// Score computes the 100-point per-entry score: a hard gate on
// dimension A (transpile success) and on schema validity, and a
// secondary gate where L1 (contains) false forces L2 (exact) and L3
// (behavioral) to contribute zero even if those dimensions
// independently hold.
func (r Result) Score() float64 {
	if !r.Transpiled {
		return 0.0
	}
	if !r.SchemaValid {
		return 0.0
	}
	score := 30.0 // A: transpiled

	if r.OutputContains {
		score += 10.0 // B_L1: contains
		if r.OutputExact {
			score += 8.0 // B_L2: exact
		}
		if r.OutputBehavioral {
			score += 7.0 // B_L3: behavioral
		}
	}

	if r.HasTest {
		score += 15.0 // C
	}
	if r.LintClean {
		score += 10.0 // D
	}
	if r.Deterministic {
		score += 10.0 // E
	}
	if r.MetamorphicConsistent {
		score += 5.0 // F
	}
	if r.CrossShellAgree {
		score += 5.0 // G
	}
	return score
}

// Grade is the letter grade a score bins into.
type Grade int

const (
	GradeF Grade = iota
	GradeD
	GradeC
	GradeB
	GradeA
	GradeAPlus
)

func (g Grade) String() string {
	switch g {
	case GradeAPlus:
		return "A+"
	case GradeA:
		return "A"
	case GradeB:
		return "B"
	case GradeC:
		return "C"
	case GradeD:
		return "D"
	default:
		return "F"
	}
}

// GradeFromScore bins a 0-100 score into a letter grade. The bands
// are conventional academic-style cutoffs; see DESIGN.md for how they
// line up with the rubric's point weights.
func GradeFromScore(score float64) Grade {
	switch {
	case score >= 97:
		return GradeAPlus
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// FormatScore is the score rollup for a single format.
type FormatScore struct {
	Format Format
	Total  int
	Passed int
	Rate   float64
	Score  float64
}

// Score is the aggregate outcome of a full corpus run.
type Score struct {
	Total        int
	Passed       int
	Rate         float64
	TotalScore   float64
	Grade        Grade
	FormatScores []FormatScore
	Results      []Result
}

// GatewayMet reports whether the run cleared the 60% transpile-success
// gateway gate.
func (s Score) GatewayMet() bool { return s.Rate >= 0.60 }

// RunAll transpiles and scores every entry in the registry, fanned
// out with errgroup and bounded by Parallelism. Each entry's pipeline
// owns its AST/IR exclusively; aggregation happens after all entries
// complete, and the summary statistics are counts and means, so
// completion order cannot influence the outcome.
func (rn *Runner) RunAll(ctx context.Context, reg *Registry) (Score, error) {
	results := make([]Result, len(reg.Entries))

	g, ctx := errgroup.WithContext(ctx)
	if rn.Parallelism > 0 {
		g.SetLimit(rn.Parallelism)
	}

	for i, e := range reg.Entries {
		i, e := i, e
		g.Go(func() error {
			results[i] = rn.runEntry(ctx, e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Score{}, err
	}

	return rn.computeScore(results), nil
}

// runEntry evaluates the nine dimensions for a single entry.
func (rn *Runner) runEntry(ctx context.Context, e Entry) Result {
	res := Result{EntryID: e.ID, Format: e.Format}

	transpile, ok := rn.Transpile[e.Format]
	if !ok {
		res.Error = "no transpile pipeline wired for format"
		res.ErrorCategory = errs.CategoryUnknown.String()
		return res
	}

	output, err := transpile(e.Input)
	if err != nil {
		res.Error = err.Error()
		cls := errs.ClassifyError(err.Error())
		res.ErrorCategory = cls.Category.String()
		res.ErrorConfidence = cls.Confidence
		return res
	}

	res.Transpiled = true
	res.ActualOutput = output
	res.OutputContains = e.ExpectedOutput == "" || strings.Contains(output, e.ExpectedOutput)
	res.OutputExact = checkExactMatch(output, e.ExpectedOutput)
	res.HasTest = e.ID != ""

	sr := schema.ValidateText(e.ID, toSchemaFormat(e.Format), output)
	res.SchemaValid = sr.Valid

	res.LintClean = !lintHasErrors(e.Format, output)

	if e.Deterministic {
		res.Deterministic = checkDeterminism(transpile, e.Input)
	} else {
		res.Deterministic = true
	}

	res.MetamorphicConsistent = rn.checkMetamorphic(transpile, e)
	res.CrossShellAgree = rn.checkCrossShell(e, output)
	res.OutputBehavioral = rn.checkBehavioral(ctx, e.Format, output)

	return res
}

// checkCrossShell implements the cross_shell_agree dimension: both the
// POSIX and Bash dialect targets must succeed and contain the expected
// fragment.
// Only formats with a wired Bash-dialect pipeline (CrossShell) can be
// genuinely compared; formats with none (no second dialect to target,
// e.g. Makefile/Dockerfile) vacuously agree, the same convention every
// other per-format dimension in this runner follows.
func (rn *Runner) checkCrossShell(e Entry, posixOutput string) bool {
	bashTranspile, ok := rn.CrossShell[e.Format]
	if !ok {
		return true
	}
	bashOutput, err := bashTranspile(e.Input)
	if err != nil {
		return false
	}
	if e.ExpectedOutput == "" {
		return true
	}
	return strings.Contains(posixOutput, e.ExpectedOutput) && strings.Contains(bashOutput, e.ExpectedOutput)
}

func toSchemaFormat(f Format) schema.Format {
	switch f {
	case FormatMakefile:
		return schema.FormatMakefile
	case FormatDockerfile:
		return schema.FormatDockerfile
	default:
		return schema.FormatBash
	}
}

// lintHasErrors reports whether the linter found any error-severity
// finding, the inverse of dimension D's lint_clean.
func lintHasErrors(f Format, output string) bool {
	var r lint.Result
	switch f {
	case FormatMakefile:
		r = lint.LintMakefile(output)
	case FormatDockerfile:
		r = lint.LintDockerfile(output)
	default:
		r = lint.LintShell(output)
	}
	return r.HasErrors()
}

// checkExactMatch requires the expected fragment to appear as an
// exact run of consecutive trimmed lines within the actual output's
// trimmed lines.
func checkExactMatch(output, expected string) bool {
	expectedTrimmed := strings.TrimSpace(expected)
	if expectedTrimmed == "" {
		return true
	}

	expectedLines := trimmedLines(expectedTrimmed)
	actualLines := trimmedLines(output)

	if len(expectedLines) == 1 {
		for _, line := range actualLines {
			if line == expectedLines[0] {
				return true
			}
		}
		return false
	}

	if len(expectedLines) > len(actualLines) {
		return false
	}
	for start := 0; start+len(expectedLines) <= len(actualLines); start++ {
		if slicesEqual(actualLines[start:start+len(expectedLines)], expectedLines) {
			return true
		}
	}
	return false
}

func trimmedLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkDeterminism re-runs the same pipeline twice and compares
// output byte for byte.
func checkDeterminism(transpile TranspileFunc, input string) bool {
	a, errA := transpile(input)
	b, errB := transpile(input)
	if errA != nil || errB != nil {
		return errA != nil && errB != nil
	}
	return a == b
}

// checkBehavioral runs the transpiled shell output under a timeout and
// checks it doesn't hang (exit 124 is the only failure). Makefile and
// Dockerfile outputs are vacuously behavioral-ok since no sandboxed
// make/docker runtime is available here.
func (rn *Runner) checkBehavioral(ctx context.Context, f Format, output string) bool {
	if f != FormatBash {
		return true
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, "timeout", "2", "sh", "-c", output)
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode() != 124
	}
	return true
}

// computeScore applies the gateway barrier: below the 60%
// transpile-success gateway the score is simply rate*30 (the A
// dimension alone, scaled); at or above gateway the score is the mean
// of all per-entry scores.
func (rn *Runner) computeScore(results []Result) Score {
	total := len(results)
	passed := 0
	for _, r := range results {
		if r.Transpiled {
			passed++
		}
	}
	rate := 0.0
	if total > 0 {
		rate = float64(passed) / float64(total)
	}

	var totalScore float64
	if rate < 0.60 {
		totalScore = rate * 30.0
	} else if total > 0 {
		sum := 0.0
		for _, r := range results {
			sum += r.Score()
		}
		totalScore = sum / float64(total)
	}

	return Score{
		Total:        total,
		Passed:       passed,
		Rate:         rate,
		TotalScore:   totalScore,
		Grade:        GradeFromScore(totalScore),
		FormatScores: computeFormatScores(results),
		Results:      results,
	}
}

func computeFormatScores(results []Result) []FormatScore {
	byFormat := map[Format][]Result{}
	for _, r := range results {
		byFormat[r.Format] = append(byFormat[r.Format], r)
	}

	var out []FormatScore
	for _, f := range []Format{FormatBash, FormatMakefile, FormatDockerfile} {
		rs, ok := byFormat[f]
		if !ok {
			continue
		}
		passed := 0
		sum := 0.0
		for _, r := range rs {
			if r.Transpiled {
				passed++
			}
			sum += r.Score()
		}
		out = append(out, FormatScore{
			Format: f,
			Total:  len(rs),
			Passed: passed,
			Rate:   float64(passed) / float64(len(rs)),
			Score:  sum / float64(len(rs)),
		})
	}
	return out
}

// ConvergenceEntry records one iteration's pass rate during a
// repeated-convergence run.
type ConvergenceEntry struct {
	Iteration int
	Rate      float64
	Delta     float64
}

// IsConverged reports whether the corpus has stabilized: the last
// three iterations all have rate >= 0.99 and |delta| < 0.005.
func IsConverged(history []ConvergenceEntry) bool {
	if len(history) < 3 {
		return false
	}
	last3 := history[len(history)-3:]
	for _, e := range last3 {
		if e.Rate < 0.99 || e.Delta < -0.005 || e.Delta > 0.005 {
			return false
		}
	}
	return true
}

// RunConverging repeats RunAll up to maxIterations times, appending a
// ConvergenceEntry each round, and stops early once IsConverged. It
// fans each iteration's entries out through conc/pool — an alternate
// worker-pool idiom for the same bounded concurrency.
func (rn *Runner) RunConverging(ctx context.Context, reg *Registry, maxIterations int) ([]ConvergenceEntry, Score, error) {
	var history []ConvergenceEntry
	var last Score

	for iter := 0; iter < maxIterations; iter++ {
		p := pool.NewWithResults[Result]().WithContext(ctx)
		if rn.Parallelism > 0 {
			p = p.WithMaxGoroutines(rn.Parallelism)
		}
		for _, e := range reg.Entries {
			e := e
			p.Go(func(ctx context.Context) (Result, error) {
				return rn.runEntry(ctx, e), nil
			})
		}
		results, err := p.Wait()
		if err != nil {
			return history, last, err
		}

		score := rn.computeScore(results)
		delta := score.Rate - last.Rate
		if iter == 0 {
			delta = 0
		}
		history = append(history, ConvergenceEntry{Iteration: iter, Rate: score.Rate, Delta: delta})
		last = score

		if IsConverged(history) {
			break
		}
	}

	return history, last, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
