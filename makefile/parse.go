package makefile

import (
	"strconv"
	"strings"

	"github.com/bashrs-go/bashrs/errs"
)

// parser holds the line buffer and line-continuation metadata shared
// across the recursive descent into conditional/define blocks: one
// mutable cursor threaded through a family of small per-construct
// functions rather than a single monolithic state machine.
type parser struct {
	lines    []string
	metadata map[int][]LineBreak
}

// Parse preprocesses line continuations, parses every item in one
// pass, then marks .PHONY targets in a second pass over the result.
func Parse(input string) (*Ast, error) {
	text, metadata := preprocessContinuations(input)
	lines := strings.Split(text, "\n")
	p := &parser{lines: lines, metadata: metadata}

	items, err := p.parseItems(0, len(lines))
	if err != nil {
		return nil, err
	}
	items = markPhony(items)

	return &Ast{
		Items:    items,
		Metadata: Metadata{LineCount: len(lines)},
	}, nil
}

// preprocessContinuations joins lines ending in `\` with the next
// line, recording each absorbed break's position and the continued
// fragment's original indentation so a recipe can later be re-emitted
// faithfully. The returned map is keyed by the zero-based index of the
// joined line in the returned text.
func preprocessContinuations(input string) (string, map[int][]LineBreak) {
	srcLines := strings.Split(input, "\n")
	metadata := make(map[int][]LineBreak)

	var out []string
	i := 0
	for i < len(srcLines) {
		line := srcLines[i]
		var breaks []LineBreak

		for strings.HasSuffix(strings.TrimRight(line, " \t"), "\\") && i+1 < len(srcLines) {
			trimmed := strings.TrimRight(line, " \t")
			breakPos := len(strings.TrimRight(trimmed[:len(trimmed)-1], " \t"))
			line = strings.TrimRight(trimmed[:len(trimmed)-1], " \t")

			i++
			next := srcLines[i]
			indent := next[:len(next)-len(strings.TrimLeft(next, " \t"))]
			nextTrimmed := strings.TrimLeft(next, " \t")

			breaks = append(breaks, LineBreak{Pos: breakPos, Indent: indent})
			line += " " + nextTrimmed
		}

		if len(breaks) > 0 {
			metadata[len(out)] = breaks
		}
		out = append(out, line)
		i++
	}

	return strings.Join(out, "\n"), metadata
}

func isEmptyLine(line string) bool   { return strings.TrimSpace(line) == "" }
func isCommentLine(line string) bool { return strings.HasPrefix(strings.TrimSpace(line), "#") }

func isIncludeDirective(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "include ") || strings.HasPrefix(t, "-include ") || strings.HasPrefix(t, "sinclude ")
}

func isConditionalDirective(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "ifeq ") || strings.HasPrefix(t, "ifneq ") ||
		strings.HasPrefix(t, "ifdef ") || strings.HasPrefix(t, "ifndef ")
}

func isDefineDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "define ")
}

// isTargetRule reports whether line opens a rule: it contains ':' and
// is not itself a tab-indented recipe continuation.
func isTargetRule(line string) bool {
	return strings.Contains(line, ":") && !strings.HasPrefix(line, "\t")
}

// isVariableAssignment disambiguates `VAR = value` from `target: deps`:
// an explicit assignment operator always wins; otherwise '=' must
// appear, and if ':' is also present it must come after '=' (so
// "target: VAR=value" parses as a rule, not an assignment).
func isVariableAssignment(line string) bool {
	t := strings.TrimSpace(line)
	if strings.Contains(t, ":=") || strings.Contains(t, "?=") ||
		strings.Contains(t, "+=") || strings.Contains(t, "!=") {
		return true
	}
	if !strings.Contains(t, "=") {
		return false
	}
	if colon := strings.Index(t, ":"); colon >= 0 {
		if eq := strings.Index(t, "="); eq >= 0 && colon < eq {
			return false
		}
	}
	return true
}

// parseItems parses every item in lines[start:end], recursing into
// parseConditional/parseDefineBlock/parseTargetRule as needed; each of
// those advances past the lines it consumed.
func (p *parser) parseItems(start, end int) ([]Item, error) {
	var items []Item
	i := start
	for i < end {
		line := p.lines[i]
		lineNum := i + 1

		switch {
		case isEmptyLine(line):
			i++
		case isCommentLine(line):
			items = append(items, parseCommentLine(line, lineNum))
			i++
		case isIncludeDirective(line):
			item, err := parseInclude(line, lineNum)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			i++
		case isConditionalDirective(line):
			item, next, err := p.parseConditional(i, end)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			i = next
		case isDefineDirective(line):
			item, next, err := p.parseDefineBlock(i, end)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			i = next
		case isVariableAssignment(line):
			item, err := parseVariable(line, lineNum)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			i++
		case isTargetRule(line):
			item, next := p.parseTargetRule(i, end)
			items = append(items, item)
			i = next
		default:
			i++
		}
	}
	return items, nil
}

func parseCommentLine(line string, lineNum int) *Comment {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	return &Comment{ibase: ibase{Span{StartLine: lineNum, EndLine: lineNum}}, Text: text}
}

// parseInclude parses one of the three include forms.
func parseInclude(line string, lineNum int) (*Include, error) {
	t := strings.TrimSpace(line)
	optional := strings.HasPrefix(t, "-include ") || strings.HasPrefix(t, "sinclude ")

	var path string
	switch {
	case strings.HasPrefix(t, "-include "):
		path = strings.TrimSpace(strings.TrimPrefix(t, "-include "))
	case strings.HasPrefix(t, "sinclude "):
		path = strings.TrimSpace(strings.TrimPrefix(t, "sinclude "))
	case strings.HasPrefix(t, "include "):
		path = strings.TrimSpace(strings.TrimPrefix(t, "include "))
	default:
		return nil, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"invalid include syntax").
			WithNote("include directives must be: 'include file', '-include file', or 'sinclude file'").
			WithHelp("use: include filename.mk")
	}

	return &Include{
		ibase:    ibase{Span{StartLine: lineNum, EndLine: lineNum}},
		Path:     path,
		Optional: optional,
	}, nil
}

// parseVariable parses one assignment line, determining its flavor
// from the first assignment operator encountered.
func parseVariable(line string, lineNum int) (*Variable, error) {
	t := strings.TrimSpace(line)

	namePart, valuePart, flavor, ok := splitAssignment(t)
	if !ok {
		return nil, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"no assignment operator found").
			WithNote("variable assignments require an assignment operator (=, :=, ?=, +=, or !=)").
			WithHelp("use one of: =, :=, ?=, +=, !=")
	}

	name := strings.TrimSpace(namePart)
	if name == "" {
		return nil, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"empty variable name").
			WithNote("variable names cannot be empty").
			WithHelp("provide a variable name before the assignment operator")
	}

	return &Variable{
		ibase:  ibase{Span{StartLine: lineNum, EndLine: lineNum}},
		Name:   name,
		Value:  strings.TrimSpace(valuePart),
		Flavor: flavor,
	}, nil
}

// splitAssignment finds the first (in specificity order :=, ?=, +=,
// !=, then bare =) assignment operator in t and returns the text on
// either side plus the flavor it implies.
func splitAssignment(t string) (name, value string, flavor VarFlavor, ok bool) {
	type op struct {
		tok    string
		flavor VarFlavor
	}
	for _, o := range []op{{":=", Simple}, {"?=", CondAssign}, {"+=", Append}, {"!=", Shell}} {
		if idx := strings.Index(t, o.tok); idx >= 0 {
			return t[:idx], t[idx+len(o.tok):], o.flavor, true
		}
	}
	if idx := strings.Index(t, "="); idx >= 0 {
		return t[:idx], t[idx+1:], Recursive, true
	}
	return "", "", 0, false
}

// parseConditional parses an ifeq/ifneq/ifdef/ifndef block starting at
// lines[i] and returns the item plus the index just past its matching
// endif.
func (p *parser) parseConditional(i, end int) (*Conditional, int, error) {
	startLine := p.lines[i]
	startNum := i + 1
	cond, err := parseConditionHeader(startLine, startNum)
	if err != nil {
		return nil, i, err
	}
	i++

	thenItems, elseItems, next, err := p.parseConditionalBranches(i, end)
	if err != nil {
		return nil, i, err
	}

	return &Conditional{
		ibase:     ibase{Span{StartLine: startNum, EndLine: next}},
		Condition: cond,
		Then:      thenItems,
		Else:      elseItems,
	}, next, nil
}

func parseConditionHeader(line string, lineNum int) (Condition, error) {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, "ifeq "):
		return parseTwoArgCondition(strings.TrimSpace(strings.TrimPrefix(t, "ifeq ")), "ifeq", lineNum, line, true)
	case strings.HasPrefix(t, "ifneq "):
		return parseTwoArgCondition(strings.TrimSpace(strings.TrimPrefix(t, "ifneq ")), "ifneq", lineNum, line, false)
	case strings.HasPrefix(t, "ifdef "):
		return parseSingleVarCondition(strings.TrimSpace(strings.TrimPrefix(t, "ifdef ")), "ifdef", lineNum, line, true)
	case strings.HasPrefix(t, "ifndef "):
		return parseSingleVarCondition(strings.TrimSpace(strings.TrimPrefix(t, "ifndef ")), "ifndef", lineNum, line, false)
	default:
		return Condition{}, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"unknown conditional directive").
			WithNote("supported conditional directives are: ifeq, ifneq, ifdef, ifndef").
			WithHelp("did you mean one of: ifeq, ifneq, ifdef, ifndef?")
	}
}

func parseTwoArgCondition(rest, directive string, lineNum int, line string, isEq bool) (Condition, error) {
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return Condition{}, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"invalid conditional syntax").
			WithNote(directive+" requires arguments in parentheses with a comma separator").
			WithHelp("use: " + directive + " ($(VAR),value)")
	}
	inner := rest[1 : len(rest)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return Condition{}, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"conditional requires arguments").
			WithNote(directive + " requires 2 argument(s), but found " + strconv.Itoa(len(parts))).
			WithHelp("use: " + directive + " (arg1,arg2)")
	}
	kind := IfEq
	if !isEq {
		kind = IfNeq
	}
	return Condition{Kind: kind, Left: parts[0], Right: parts[1]}, nil
}

func parseSingleVarCondition(varName, directive string, lineNum int, line string, isDef bool) (Condition, error) {
	if varName == "" {
		return Condition{}, errs.New(errs.KindParse, errs.SourceLocation{Line: lineNum, SourceLine: line},
			"missing variable name in "+directive).
			WithNote(directive + " requires a variable name to test").
			WithHelp("provide a variable name after " + directive)
	}
	kind := IfDef
	if !isDef {
		kind = IfNdef
	}
	return Condition{Kind: kind, Var: varName}, nil
}

func isConditionalStart(t string) bool {
	return strings.HasPrefix(t, "ifeq ") || strings.HasPrefix(t, "ifneq ") ||
		strings.HasPrefix(t, "ifdef ") || strings.HasPrefix(t, "ifndef ")
}

// parseConditionalBranches walks from i (just past the opening
// directive) to the matching endif, tracking nesting depth and
// splitting off an `else` branch when one appears at depth 1.
func (p *parser) parseConditionalBranches(i, end int) (then, els []Item, next int, err error) {
	depth := 1
	for i < end {
		t := strings.TrimSpace(p.lines[i])

		if isConditionalStart(t) {
			depth++
		}
		if t == "endif" {
			depth--
			if depth == 0 {
				return then, els, i + 1, nil
			}
		}
		if t == "else" && depth == 1 {
			i++
			elseItems, n, err := p.parseElseBranch(i, end)
			if err != nil {
				return nil, nil, i, err
			}
			return then, elseItems, n, nil
		}

		item, consumed, advance, err := p.parseConditionalItem(i, end)
		if err != nil {
			return nil, nil, i, err
		}
		if item != nil {
			then = append(then, item)
		}
		if consumed {
			i = advance
		} else {
			i++
		}
	}
	return then, els, i, nil
}

func (p *parser) parseElseBranch(i, end int) ([]Item, int, error) {
	var items []Item
	depth := 1
	for i < end {
		t := strings.TrimSpace(p.lines[i])

		if isConditionalStart(t) {
			depth++
		}
		if t == "endif" {
			depth--
			if depth == 0 {
				return items, i + 1, nil
			}
		}

		item, consumed, advance, err := p.parseConditionalItem(i, end)
		if err != nil {
			return nil, i, err
		}
		if item != nil {
			items = append(items, item)
		}
		if consumed {
			i = advance
		} else {
			i++
		}
	}
	return items, i, nil
}

// parseConditionalItem parses one line inside a conditional body.
// consumed reports whether advance already points past everything this
// item consumed (true for target rules, which may absorb recipe
// lines); when false the caller advances by one itself.
func (p *parser) parseConditionalItem(i, end int) (item Item, consumed bool, advance int, err error) {
	line := p.lines[i]
	lineNum := i + 1
	t := strings.TrimSpace(line)

	if t == "" {
		return nil, false, i, nil
	}
	if t == "else" || t == "endif" || isConditionalStart(t) {
		return nil, false, i, nil
	}
	if isVariableAssignment(line) {
		v, err := parseVariable(line, lineNum)
		if err != nil {
			return nil, false, i, err
		}
		return v, false, i, nil
	}
	if isTargetRule(line) {
		target, next := p.parseTargetRule(i, end)
		return target, true, next, nil
	}
	if isCommentLine(line) {
		return parseCommentLine(line, lineNum), false, i, nil
	}
	return nil, false, i, nil
}

// parseDefineBlock parses a `define NAME [flavor]` ... `endef` block
// into a single multi-line Variable item.
func (p *parser) parseDefineBlock(i, end int) (*Variable, int, error) {
	startLine := p.lines[i]
	startNum := i + 1
	t := strings.TrimSpace(startLine)
	afterDefine := strings.TrimSpace(strings.TrimPrefix(t, "define "))

	name, flavor := parseDefineHeader(afterDefine)
	if name == "" {
		return nil, i, errs.New(errs.KindParse, errs.SourceLocation{Line: startNum, SourceLine: startLine},
			"missing variable name in define").
			WithNote("define requires a variable name to test").
			WithHelp("provide a variable name after define")
	}

	i++
	var valueLines []string
	for i < end {
		if strings.TrimSpace(p.lines[i]) == "endef" {
			return &Variable{
				ibase:  ibase{Span{StartLine: startNum, EndLine: i + 1}},
				Name:   name,
				Value:  strings.Join(valueLines, "\n"),
				Flavor: flavor,
			}, i + 1, nil
		}
		valueLines = append(valueLines, p.lines[i])
		i++
	}

	return nil, i, errs.New(errs.KindParse, errs.SourceLocation{Line: startNum, SourceLine: startLine},
		"unterminated define block for variable '"+name+"'").
		WithNote("define blocks must be terminated with 'endef'").
		WithHelp("ensure all define blocks are closed with 'endef'")
}

func parseDefineHeader(afterDefine string) (name string, flavor VarFlavor) {
	switch {
	case strings.HasSuffix(afterDefine, " ="):
		return strings.TrimSpace(strings.TrimSuffix(afterDefine, " =")), Recursive
	case strings.HasSuffix(afterDefine, " :="):
		return strings.TrimSpace(strings.TrimSuffix(afterDefine, " :=")), Simple
	case strings.HasSuffix(afterDefine, " ?="):
		return strings.TrimSpace(strings.TrimSuffix(afterDefine, " ?=")), CondAssign
	case strings.HasSuffix(afterDefine, " +="):
		return strings.TrimSpace(strings.TrimSuffix(afterDefine, " +=")), Append
	case strings.HasSuffix(afterDefine, " !="):
		return strings.TrimSpace(strings.TrimSuffix(afterDefine, " !=")), Shell
	default:
		return afterDefine, Recursive
	}
}

// parseTargetRule parses a `name: prereqs` header at lines[i] plus
// every tab-indented recipe line that follows, returning the index
// just past the recipe.
func (p *parser) parseTargetRule(i, end int) (Item, int) {
	line := p.lines[i]
	lineNum := i + 1

	parts := strings.SplitN(line, ":", 2)
	name := strings.TrimSpace(parts[0])
	var prereqsField string
	if len(parts) == 2 {
		prereqsField = parts[1]
	}
	prereqs := strings.Fields(prereqsField)

	i++
	recipeStart := i
	recipe, i := p.scanRecipe(i, end)

	var meta *RecipeMetadata
	if len(recipe) > 0 {
		if breaks, ok := p.metadata[recipeStart]; ok {
			meta = &RecipeMetadata{LineBreaks: breaks}
		}
	}

	sp := ibase{Span{StartLine: lineNum, EndLine: i}}
	if strings.Contains(name, "%") {
		return &PatternRule{
			ibase:          sp,
			TargetPattern:  name,
			PrereqPatterns: prereqs,
			Recipe:         recipe,
			RecipeMetadata: meta,
		}, i
	}
	return &Target{
		ibase:          sp,
		Name:           name,
		Prerequisites:  prereqs,
		Recipe:         recipe,
		RecipeMetadata: meta,
	}, i
}

// scanRecipe consumes every indented line (and the blank lines between
// them) starting at i, returning the de-indented recipe text and the
// index of the first line past it. Space-indented lines count too:
// accepting them here and re-emitting with a tab is what fixes a
// GRAM-003 tab/space violation instead of dropping the recipe.
func (p *parser) scanRecipe(i, end int) ([]string, int) {
	var recipe []string
	for i < end {
		rl := p.lines[i]
		if strings.HasPrefix(rl, "\t") || (strings.HasPrefix(rl, " ") && strings.TrimSpace(rl) != "") {
			recipe = append(recipe, strings.TrimSpace(rl))
			i++
			continue
		}
		if strings.TrimSpace(rl) == "" {
			i++
			if i < end && strings.HasPrefix(p.lines[i], "\t") {
				continue
			}
			return recipe, i
		}
		return recipe, i
	}
	return recipe, i
}

// markPhony is the second pass: collect every prerequisite of a
// `.PHONY` target, then stamp Target.Phony wherever a name matches.
func markPhony(items []Item) []Item {
	phony := make(map[string]bool)
	for _, it := range items {
		if tgt, ok := it.(*Target); ok && tgt.Name == ".PHONY" {
			for _, p := range tgt.Prerequisites {
				phony[p] = true
			}
		}
	}
	for _, it := range items {
		if tgt, ok := it.(*Target); ok {
			tgt.Phony = phony[tgt.Name]
		}
	}
	return items
}
