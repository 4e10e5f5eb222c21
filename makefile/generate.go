package makefile

import "strings"

// Generate re-serializes an Ast back to Makefile text. It is the
// Makefile analogue of bashast.GeneratePurified: every recipe line is
// emitted with a single leading tab regardless of how Parse recorded
// it, which is the purification this format needs (GRAM-003,
// tab/space confusion in a recipe) — re-emitting through this function
// is what turns a space-indented recipe into a schema-valid one.
func Generate(ast *Ast) string {
	var b strings.Builder
	writeItems(&b, ast.Items)
	return b.String()
}

func writeItems(b *strings.Builder, items []Item) {
	for _, it := range items {
		writeItem(b, it)
	}
}

func writeItem(b *strings.Builder, it Item) {
	switch v := it.(type) {
	case *Comment:
		b.WriteString("# ")
		b.WriteString(v.Text)
		b.WriteString("\n")
	case *Include:
		if v.Optional {
			b.WriteString("-include ")
		} else {
			b.WriteString("include ")
		}
		b.WriteString(v.Path)
		b.WriteString("\n")
	case *Variable:
		b.WriteString(v.Name)
		b.WriteString(" ")
		b.WriteString(v.Flavor.String())
		b.WriteString(" ")
		b.WriteString(v.Value)
		b.WriteString("\n")
	case *Target:
		writeTarget(b, v)
	case *PatternRule:
		writePatternRule(b, v)
	case *Conditional:
		writeConditional(b, v)
	}
}

func writeTarget(b *strings.Builder, t *Target) {
	b.WriteString(t.Name)
	b.WriteString(":")
	for _, p := range t.Prerequisites {
		b.WriteString(" ")
		b.WriteString(p)
	}
	b.WriteString("\n")
	writeRecipe(b, t.Recipe)
}

func writePatternRule(b *strings.Builder, p *PatternRule) {
	b.WriteString(p.TargetPattern)
	b.WriteString(":")
	for _, pr := range p.PrereqPatterns {
		b.WriteString(" ")
		b.WriteString(pr)
	}
	b.WriteString("\n")
	writeRecipe(b, p.Recipe)
}

// writeRecipe emits each recipe command with exactly one leading tab.
// Parse already strips whatever indentation (tab or space) the source
// used, so recipe lines here carry bare command text; this is the
// single place that decides the canonical recipe indentation.
func writeRecipe(b *strings.Builder, recipe []string) {
	for _, line := range recipe {
		b.WriteString("\t")
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeConditional(b *strings.Builder, c *Conditional) {
	switch c.Condition.Kind {
	case IfEq:
		b.WriteString("ifeq (")
		b.WriteString(c.Condition.Left)
		b.WriteString(",")
		b.WriteString(c.Condition.Right)
		b.WriteString(")\n")
	case IfNeq:
		b.WriteString("ifneq (")
		b.WriteString(c.Condition.Left)
		b.WriteString(",")
		b.WriteString(c.Condition.Right)
		b.WriteString(")\n")
	case IfDef:
		b.WriteString("ifdef ")
		b.WriteString(c.Condition.Var)
		b.WriteString("\n")
	case IfNdef:
		b.WriteString("ifndef ")
		b.WriteString(c.Condition.Var)
		b.WriteString("\n")
	}
	writeItems(b, c.Then)
	if len(c.Else) > 0 {
		b.WriteString("else\n")
		writeItems(b, c.Else)
	}
	b.WriteString("endif\n")
}
