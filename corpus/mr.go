package corpus

import "strings"

// checkMetamorphic runs the format-appropriate metamorphic relations
// MR-2 through MR-7 (MR-1 is the determinism check already covered by
// checkDeterminism) against a single entry and reports whether the
// transpiler behaved consistently under each applicable perturbation.
func (rn *Runner) checkMetamorphic(transpile TranspileFunc, e Entry) bool {
	return checkMR2NoOp(transpile, e) &&
		checkMR3Whitespace(transpile, e) &&
		checkMR4LeadingBlanks(transpile, e) &&
		checkMR5Subsumption(transpile, e) &&
		checkMR6Composition(transpile, e) &&
		checkMR7Negation(transpile, e)
}

// checkMREquivalence transpiles both the original and modified input
// and requires that the expected fragment's containment result agree
// between the two: both erroring is degenerate agreement; exactly one
// erroring is a failed relation.
func checkMREquivalence(transpile TranspileFunc, e Entry, modifiedInput string) bool {
	orig, origErr := transpile(e.Input)
	modif, modifErr := transpile(modifiedInput)
	if origErr != nil && modifErr != nil {
		return true
	}
	if origErr != nil || modifErr != nil {
		return false
	}
	origHas := e.ExpectedOutput == "" || strings.Contains(orig, e.ExpectedOutput)
	modifHas := e.ExpectedOutput == "" || strings.Contains(modif, e.ExpectedOutput)
	return origHas == modifHas
}

// checkMR2NoOp (MR-2, no-op comment): prepending a DSL comment to the
// input must not change whether the expected fragment is contained in
// the output.
func checkMR2NoOp(transpile TranspileFunc, e Entry) bool {
	return checkMREquivalence(transpile, e, "// MR-2 no-op\n"+e.Input)
}

// checkMR3Whitespace (MR-3, trailing whitespace invariance).
func checkMR3Whitespace(transpile TranspileFunc, e Entry) bool {
	return checkMREquivalence(transpile, e, e.Input+"\n\n  \n")
}

// checkMR4LeadingBlanks (MR-4, leading blank line invariance).
func checkMR4LeadingBlanks(transpile TranspileFunc, e Entry) bool {
	return checkMREquivalence(transpile, e, "\n\n"+e.Input)
}

// checkMR5Subsumption (MR-5, subsumption): removing the last
// top-level statement from `fn main`'s body (Bash format only) must
// still transpile successfully, provided at least one top-level
// statement remains. Vacuously satisfied when the heuristic brace-depth
// scan finds nothing to strip, or for non-Bash formats.
func checkMR5Subsumption(transpile TranspileFunc, e Entry) bool {
	if e.Format != FormatBash {
		return true
	}
	simplified, ok := stripLastStatement(e.Input)
	if !ok {
		return true
	}
	_, err := transpile(simplified)
	return err == nil
}

// stripLastStatement locates `fn main() { ... }`'s body by a
// brace-depth scan, removes the last top-level (depth-0) `;`-terminated
// statement, and reports false when there is no `fn main`, no closing
// brace, or fewer than two top-level statements to begin with (so
// nothing remains after stripping).
func stripLastStatement(input string) (string, bool) {
	mainIdx := strings.Index(input, "fn main()")
	if mainIdx < 0 {
		return "", false
	}
	bodyStart := strings.IndexByte(input[mainIdx:], '{')
	if bodyStart < 0 {
		return "", false
	}
	bodyStart += mainIdx + 1

	bodyEnd := strings.LastIndexByte(input, '}')
	if bodyEnd <= bodyStart {
		return "", false
	}
	body := strings.TrimSpace(input[bodyStart:bodyEnd])

	depth := 0
	lastTopSemi, prevTopSemi := -1, -1
	for i, ch := range body {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
		case ';':
			if depth == 0 {
				prevTopSemi, lastTopSemi = lastTopSemi, i
			}
		}
	}
	cut := lastTopSemi
	if strings.HasSuffix(body, ";") {
		cut = prevTopSemi
	}
	if cut < 0 {
		return "", false
	}
	simplifiedBody := body[:cut]

	var b strings.Builder
	b.WriteString(input[:bodyStart])
	b.WriteString(simplifiedBody)
	b.WriteString("; }")
	return b.String(), true
}

// checkMR6Composition (MR-6, composition): for Bash inputs with two or
// more top-level `let`/`let mut` statements, each `let` must transpile
// successfully in isolation inside a one-statement `main`.
func checkMR6Composition(transpile TranspileFunc, e Entry) bool {
	if e.Format != FormatBash {
		return true
	}
	var lets []string
	for _, s := range strings.Split(e.Input, ";") {
		t := strings.TrimSpace(s)
		if strings.HasPrefix(t, "let ") || strings.HasPrefix(t, "let mut ") {
			lets = append(lets, t)
		}
	}
	if len(lets) < 2 {
		return true
	}
	for _, letStmt := range lets {
		single := "fn main() { " + letStmt + "; }"
		if _, err := transpile(single); err != nil {
			return false
		}
	}
	return true
}

// checkMR7Negation (MR-7, negation): for Bash inputs containing `if `,
// wrapping the condition in `!( … )` must still transpile. The `if `
// substring search is a known heuristic: it may misfire on inputs with
// `if ` inside a string literal.
func checkMR7Negation(transpile TranspileFunc, e Entry) bool {
	if e.Format != FormatBash {
		return true
	}
	input := e.Input
	if !strings.Contains(input, "if ") {
		return true
	}
	ifPos := strings.Index(input, "if ")
	afterIf := input[ifPos+len("if "):]
	bracePos := strings.IndexByte(afterIf, '{')
	if bracePos < 0 {
		return true
	}
	condition := strings.TrimSpace(afterIf[:bracePos])
	if condition == "" {
		return true
	}
	negated := input[:ifPos] + "if !(" + condition + ") " + afterIf[bracePos:]
	_, err := transpile(negated)
	return err == nil
}
