// Package schema implements the formal schema/grammar validator: four
// validation layers (L1 Lexical, L2 Syntactic, L3 Semantic, L4
// Behavioral) per output format, and the fixed GRAM-001..GRAM-008
// violation taxonomy with its (code, layer, applicable_format,
// fix_pattern) table. The per-format heuristics are line-oriented
// string scans: bashism detection, unquoted-expansion scanning,
// tab/space recipe detection, and Dockerfile FROM/exec-form checks.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Format is the corpus entry format a SchemaResult was validated
// against (mirrors corpus.Format; duplicated here so schema has no
// dependency on corpus, keeping the dependency edge the direction
// corpus -> schema).
type Format int

const (
	FormatBash Format = iota
	FormatMakefile
	FormatDockerfile
)

func (f Format) String() string {
	switch f {
	case FormatMakefile:
		return "Makefile"
	case FormatDockerfile:
		return "Dockerfile"
	default:
		return "Bash"
	}
}

// Category is a GRAM-NNN grammar violation category.
type Category int

const (
	MissingQuoting Category = iota
	Bashism
	TabSpaceConfusion
	ShellFormCmd
	UndefinedVariable
	InvalidArithmetic
	MissingFrom
	CircularDependency
)

// AllCategories lists all eight in code order.
func AllCategories() []Category {
	return []Category{
		MissingQuoting, Bashism, TabSpaceConfusion, ShellFormCmd,
		UndefinedVariable, InvalidArithmetic, MissingFrom, CircularDependency,
	}
}

// Code returns the fixed GRAM-NNN code.
func (c Category) Code() string {
	switch c {
	case MissingQuoting:
		return "GRAM-001"
	case Bashism:
		return "GRAM-002"
	case TabSpaceConfusion:
		return "GRAM-003"
	case ShellFormCmd:
		return "GRAM-004"
	case UndefinedVariable:
		return "GRAM-005"
	case InvalidArithmetic:
		return "GRAM-006"
	case MissingFrom:
		return "GRAM-007"
	default:
		return "GRAM-008"
	}
}

func (c Category) String() string { return c.Code() }

// Description is the human-readable name of the category.
func (c Category) Description() string {
	switch c {
	case MissingQuoting:
		return "Missing quoting in expansion"
	case Bashism:
		return "Bashism in POSIX output"
	case TabSpaceConfusion:
		return "Tab/space confusion in Makefile recipe"
	case ShellFormCmd:
		return "Shell form in Dockerfile CMD/ENTRYPOINT"
	case UndefinedVariable:
		return "Undefined variable reference"
	case InvalidArithmetic:
		return "Invalid POSIX arithmetic"
	case MissingFrom:
		return "Missing FROM in Dockerfile"
	default:
		return "Circular Make dependency"
	}
}

// FixPattern is the canonical suggested fix for the category.
func (c Category) FixPattern() string {
	switch c {
	case MissingQuoting:
		return "Add double quotes around ${}"
	case Bashism:
		return "Replace [[ ]] with [ ]"
	case TabSpaceConfusion:
		return "Ensure recipe lines use \\t"
	case ShellFormCmd:
		return "Convert to exec form [\"cmd\", \"arg\"]"
	case UndefinedVariable:
		return "Add := assignment before use"
	case InvalidArithmetic:
		return "Replace (( )) with $(( ))"
	case MissingFrom:
		return "Add FROM as first instruction"
	default:
		return "Reorder targets to break cycle"
	}
}

// ApplicableFormat names which output format this category applies to.
func (c Category) ApplicableFormat() Format {
	switch c {
	case MissingQuoting, Bashism, InvalidArithmetic:
		return FormatBash
	case TabSpaceConfusion, UndefinedVariable, CircularDependency:
		return FormatMakefile
	default:
		return FormatDockerfile
	}
}

// Layer is a validation layer (L1-L4).
type Layer int

const (
	Lexical Layer = iota
	Syntactic
	Semantic
	Behavioral
)

func (l Layer) String() string {
	switch l {
	case Lexical:
		return "L1:Lexical"
	case Syntactic:
		return "L2:Syntactic"
	case Semantic:
		return "L3:Semantic"
	default:
		return "L4:Behavioral"
	}
}

// Violation is a single grammar violation found during validation.
type Violation struct {
	Category Category
	Layer    Layer
	EntryID  string
	Line     int
	Message  string
}

// Result is the outcome of validating one entry's output text.
type Result struct {
	EntryID      string
	Format       Format
	Valid        bool
	Violations   []Violation
	LayersPassed []Layer
}

// Report aggregates Results across an entire corpus run.
type Report struct {
	Results             []Result
	TotalEntries        int
	ValidEntries        int
	TotalViolations     int
	ViolationsByCategory []CategoryCount
}

// CategoryCount is one row of Report.ViolationsByCategory, sorted
// descending by Count.
type CategoryCount struct {
	Category Category
	Count    int
}

// PassRate returns the percentage of entries that validated clean.
func (r Report) PassRate() float64 {
	if r.TotalEntries == 0 {
		return 0.0
	}
	return float64(r.ValidEntries) / float64(r.TotalEntries) * 100.0
}

func passedLayer(violations []Violation, layer Layer) bool {
	for _, v := range violations {
		if v.Layer == layer {
			return false
		}
	}
	return true
}

// ValidateText validates one entry's output text against its format's
// grammar, returning a Result. entryID is attached to every violation
// for later reporting.
func ValidateText(entryID string, format Format, output string) Result {
	var violations []Violation
	var layersPassed []Layer

	switch format {
	case FormatBash:
		violations, layersPassed = validateBash(entryID, output)
	case FormatMakefile:
		violations, layersPassed = validateMakefile(entryID, output)
	case FormatDockerfile:
		violations, layersPassed = validateDockerfile(entryID, output)
	}

	return Result{
		EntryID:      entryID,
		Format:       format,
		Valid:        len(violations) == 0,
		Violations:   violations,
		LayersPassed: layersPassed,
	}
}

func validateBash(entryID, output string) ([]Violation, []Layer) {
	var violations []Violation
	var layers []Layer

	if output != "" {
		layers = append(layers, Lexical)
	}

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "[[") && strings.Contains(trimmed, "]]") {
			violations = append(violations, Violation{
				Category: Bashism, Layer: Syntactic, EntryID: entryID, Line: i + 1,
				Message: "Double bracket [[ ]] is a bashism; use [ ] for POSIX",
			})
		}
		if strings.Contains(trimmed, "(( ") && !strings.Contains(trimmed, "$((") {
			violations = append(violations, Violation{
				Category: InvalidArithmetic, Layer: Syntactic, EntryID: entryID, Line: i + 1,
				Message: "(( )) is bash-specific; use $(( )) for POSIX arithmetic",
			})
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if checkUnquotedExpansion(trimmed) {
			violations = append(violations, Violation{
				Category: MissingQuoting, Layer: Semantic, EntryID: entryID, Line: i + 1,
				Message: "Unquoted variable expansion; wrap in double quotes",
			})
		}
	}

	if passedLayer(violations, Syntactic) {
		layers = append(layers, Syntactic)
	}
	if passedLayer(violations, Semantic) {
		layers = append(layers, Semantic)
	}
	return violations, layers
}

// checkUnquotedExpansion skips assignment lines, then scans
// byte-by-byte tracking quote state, flagging a bare $ whose next byte
// starts a variable name (but not `$(` subshells/arithmetic).
func checkUnquotedExpansion(line string) bool {
	if isShellAssignment(line) {
		return false
	}
	b := []byte(line)
	inSingle, inDouble := false, false
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '$':
			if !inSingle && !inDouble && isUnquotedVarAt(b, i) {
				return true
			}
		case '\\':
			if !inSingle {
				i++
			}
		}
	}
	return false
}

func isShellAssignment(line string) bool {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return false
	}
	for _, c := range line[:eq] {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func isUnquotedVarAt(b []byte, i int) bool {
	if i+1 >= len(b) {
		return false
	}
	next := b[i+1]
	if next == '(' {
		return false
	}
	return next == '{' || next == '_' || (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z')
}

func validateMakefile(entryID, output string) ([]Violation, []Layer) {
	var violations []Violation
	var layers []Layer

	if output != "" {
		layers = append(layers, Lexical)
	}

	inRecipe := false
	for i, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			inRecipe = false
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "\t") && strings.Contains(line, ":") && !strings.Contains(line, ":=") {
			inRecipe = true
			continue
		}
		if isSpaceIndentedRecipe(line, inRecipe) {
			violations = append(violations, Violation{
				Category: TabSpaceConfusion, Layer: Syntactic, EntryID: entryID, Line: i + 1,
				Message: "Recipe line uses spaces instead of tab",
			})
		}
	}

	if passedLayer(violations, Syntactic) {
		layers = append(layers, Syntactic)
	}
	if passedLayer(violations, Semantic) {
		layers = append(layers, Semantic)
	}
	return violations, layers
}

func isSpaceIndentedRecipe(line string, inRecipe bool) bool {
	return inRecipe &&
		!strings.HasPrefix(line, "\t") &&
		strings.TrimSpace(line) != "" &&
		(strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "  "))
}

func validateDockerfile(entryID, output string) ([]Violation, []Layer) {
	var violations []Violation
	var layers []Layer

	if output != "" {
		layers = append(layers, Lexical)
	}

	var instructions []string
	for _, l := range strings.Split(output, "\n") {
		t := strings.TrimSpace(l)
		if t != "" && !strings.HasPrefix(t, "#") {
			instructions = append(instructions, l)
		}
	}

	if len(instructions) > 0 {
		upper := strings.ToUpper(strings.TrimSpace(instructions[0]))
		if !strings.HasPrefix(upper, "FROM") && !strings.HasPrefix(upper, "ARG") {
			violations = append(violations, Violation{
				Category: MissingFrom, Layer: Syntactic, EntryID: entryID, Line: 1,
				Message: "Dockerfile must start with FROM (or ARG before FROM)",
			})
		}
	}

	for i, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		if (strings.HasPrefix(upper, "CMD ") || strings.HasPrefix(upper, "ENTRYPOINT ")) && !strings.Contains(trimmed, "[") {
			violations = append(violations, Violation{
				Category: ShellFormCmd, Layer: Semantic, EntryID: entryID, Line: i + 1,
				Message: "Use exec form [\"cmd\", \"arg\"] instead of shell form",
			})
		}
	}

	if passedLayer(violations, Syntactic) {
		layers = append(layers, Syntactic)
	}
	if passedLayer(violations, Semantic) {
		layers = append(layers, Semantic)
	}
	return violations, layers
}

// Aggregate builds a Report from a slice of per-entry Results (the
// corpus runner calls ValidateText per entry, then Aggregate once).
func Aggregate(results []Result) Report {
	total := len(results)
	valid := 0
	totalViolations := 0
	counts := map[Category]int{}

	for _, r := range results {
		if r.Valid {
			valid++
		}
		totalViolations += len(r.Violations)
		for _, v := range r.Violations {
			counts[v.Category]++
		}
	}

	var byCategory []CategoryCount
	for c, n := range counts {
		byCategory = append(byCategory, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(byCategory, func(i, j int) bool {
		if byCategory[i].Count != byCategory[j].Count {
			return byCategory[i].Count > byCategory[j].Count
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	return Report{
		Results:              results,
		TotalEntries:         total,
		ValidEntries:         valid,
		TotalViolations:      totalViolations,
		ViolationsByCategory: byCategory,
	}
}

// FormatReport renders a per-format pass-rate summary table.
func FormatReport(r Report) string {
	var b strings.Builder
	line := strings.Repeat("─", 72)

	fmt.Fprintf(&b, "%s\n%-12s %-14s %-10s %-10s %s\n%s\n", line, "Format", "Entries", "Valid", "Violations", "Pass Rate", line)

	for _, format := range []Format{FormatBash, FormatMakefile, FormatDockerfile} {
		total, valid, violations := 0, 0, 0
		for _, res := range r.Results {
			if res.Format != format {
				continue
			}
			total++
			if res.Valid {
				valid++
			}
			violations += len(res.Violations)
		}
		rate := 0.0
		if total > 0 {
			rate = float64(valid) / float64(total) * 100.0
		}
		fmt.Fprintf(&b, "%-12s %-14d %-10d %-10d %.1f%%\n", format, total, valid, violations, rate)
	}

	b.WriteString(line)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-12s %-14d %-10d %-10d %.1f%%\n", "Total", r.TotalEntries, r.ValidEntries, r.TotalViolations, r.PassRate())

	return b.String()
}

// FormatViolations renders the category breakdown and per-entry
// violation detail, the Go equivalent of format_grammar_errors.
func FormatViolations(r Report) string {
	var b strings.Builder
	line := strings.Repeat("─", 72)

	fmt.Fprintf(&b, "%s\n%-12s %-36s %-8s %s\n%s\n", line, "Code", "Description", "Count", "Format", line)

	for _, cat := range AllCategories() {
		count := 0
		for _, cc := range r.ViolationsByCategory {
			if cc.Category == cat {
				count = cc.Count
				break
			}
		}
		fmt.Fprintf(&b, "%-12s %-36s %-8d %s\n", cat.Code(), cat.Description(), count, cat.ApplicableFormat())
	}

	b.WriteString(line)
	b.WriteString("\n")

	var withViolations []Result
	for _, res := range r.Results {
		if !res.Valid {
			withViolations = append(withViolations, res)
		}
	}

	if len(withViolations) == 0 {
		b.WriteString("No grammar violations found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nEntries with violations (%d):\n", len(withViolations))
	shown := withViolations
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for _, res := range shown {
		fmt.Fprintf(&b, "  %s (%s): %d violation(s)\n", res.EntryID, res.Format, len(res.Violations))
		for _, v := range res.Violations {
			fmt.Fprintf(&b, "    L%d: %s (%s)\n", v.Line, v.Message, v.Category)
		}
	}
	if len(withViolations) > 20 {
		fmt.Fprintf(&b, "  ... and %d more entries\n", len(withViolations)-20)
	}

	return b.String()
}

// FormatGrammarSpec returns the human-readable grammar reference for a
// format, used by the validator's diagnostics.
func FormatGrammarSpec(format Format) string {
	switch format {
	case FormatMakefile:
		return makefileGrammarSpec()
	case FormatDockerfile:
		return dockerfileGrammarSpec()
	default:
		return posixGrammarSpec()
	}
}

func posixGrammarSpec() string {
	var b strings.Builder
	b.WriteString("POSIX Shell Grammar (IEEE Std 1003.1-2017, Section 2)\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(`complete_command : list separator_op
               | list
               ;
list            : list separator_op and_or
               | and_or
               ;
and_or          : pipeline
               | and_or AND_IF linebreak pipeline
               | and_or OR_IF linebreak pipeline
               ;
pipeline        : pipe_sequence
               | Bang pipe_sequence
               ;
pipe_sequence   : command
               | pipe_sequence '|' linebreak command
               ;
command         : simple_command
               | compound_command
               | compound_command redirect_list
               | function_definition
               ;
simple_command  : cmd_prefix cmd_word cmd_suffix
               | cmd_prefix cmd_word
               | cmd_prefix
               | cmd_name cmd_suffix
               | cmd_name
               ;
compound_command: brace_group
               | subshell
               | for_clause
               | case_clause
               | if_clause
               | while_clause
               | until_clause
               ;

Validation Layers:
  L1: Lexical  - bash/DSL parser, token stream valid
  L2: Syntactic - shellcheck -s sh, POSIX grammar compliance
  L3: Semantic  - linter (quoting/determinism/idempotency rules)
  L4: Behavioral - cross-shell execution (dash, bash, ash)
`)
	return b.String()
}

func makefileGrammarSpec() string {
	var b strings.Builder
	b.WriteString("GNU Make Grammar (GNU Make Manual 4.4, Section 3.7)\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(`makefile     : (rule | assignment | directive | comment | empty_line)*
rule         : targets ':' prerequisites '\n' recipe
targets      : target (' ' target)*
prerequisites: prerequisite (' ' prerequisite)*
recipe       : ('\t' command '\n')+
assignment   : variable assignment_op value
assignment_op: ':=' | '?=' | '+=' | '='
directive    : 'include' | 'ifeq' | 'ifdef' | 'define' | '.PHONY' | ...

Validation Layers:
  L1: Lexical  - tab-vs-space detection
  L2: Syntactic - make -n --warn-undefined-variables
  L3: Semantic  - Makefile linter (MAKE001-MAKE020)
  L4: Behavioral - make -n dry-run comparison
`)
	return b.String()
}

func dockerfileGrammarSpec() string {
	var b strings.Builder
	b.WriteString("Dockerfile Grammar (Docker Engine v25+)\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(`dockerfile   : (instruction | comment | empty_line)*
instruction  : FROM from_args
             | RUN run_args
             | COPY copy_args
             | WORKDIR path
             | ENV env_args
             | EXPOSE port_spec
             | USER user_spec
             | CMD exec_or_shell
             | ENTRYPOINT exec_or_shell
             | ARG arg_spec
             | LABEL label_args
             | HEALTHCHECK healthcheck_args
             | ...
from_args    : ['--platform=' platform] image [':' tag | '@' digest] ['AS' name]
exec_or_shell: exec_form | shell_form
exec_form    : '[' string (',' string)* ']'
shell_form   : string

Validation Layers:
  L1: Lexical  - instruction keyword recognition
  L2: Syntactic - Dockerfile parser
  L3: Semantic  - Dockerfile linter (DOCKER001-012) + Hadolint
  L4: Behavioral - docker build --no-cache
`)
	return b.String()
}
