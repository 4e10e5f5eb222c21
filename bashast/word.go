package bashast

import "strings"

// parseWord turns the raw text captured by lexWord into an Expr tree:
// a Concat of Lit/Variable/ParamXxx/CommandSubst/Arith/Glob parts. A
// single-part word collapses to that part directly (so `$x` parses to a
// bare *Variable, not a one-element Concat).
func parseWord(raw string) Expr {
	parts := splitWordParts(raw)
	if len(parts) == 1 {
		return parts[0]
	}
	return &Concat{Parts: parts}
}

func splitWordParts(raw string) []Expr {
	var parts []Expr
	var lit strings.Builder
	litQuote := QuoteNone

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, &Lit{Value: lit.String(), Quote: litQuote})
			lit.Reset()
			litQuote = QuoteNone
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '\'':
			// single-quoted run: copy through matching quote, literal
			flush()
			j := i + 1
			for j < len(raw) && raw[j] != '\'' {
				j++
			}
			parts = append(parts, &Lit{Value: raw[i+1 : min(j, len(raw))], Quote: QuoteSingle})
			i = j + 1
		case c == '"':
			flush()
			j := i + 1
			depth := 0
			for j < len(raw) {
				if raw[j] == '\\' && j+1 < len(raw) {
					j += 2
					continue
				}
				if raw[j] == '"' && depth == 0 {
					break
				}
				j++
			}
			inner := raw[i+1 : min(j, len(raw))]
			innerParts := splitWordParts(inner)
			if len(innerParts) == 0 {
				parts = append(parts, &Lit{Value: "", Quote: QuoteDouble})
			} else {
				for _, p := range innerParts {
					if l, ok := p.(*Lit); ok {
						l.Quote = QuoteDouble
					}
					parts = append(parts, p)
				}
			}
			i = j + 1
		case c == '\\' && i+1 < len(raw):
			lit.WriteByte(raw[i+1])
			i += 2
		case c == '$' && i+1 < len(raw) && raw[i+1] == '(' && i+2 < len(raw) && raw[i+2] == '(':
			flush()
			end := matchParen(raw, i+1, '(', ')')
			inner := raw[i+3 : max(end-1, i+3)]
			parts = append(parts, &Arith{Expr: ParseArith(inner)})
			i = end + 1
		case c == '$' && i+1 < len(raw) && raw[i+1] == '(':
			flush()
			end := matchParen(raw, i+1, '(', ')')
			inner := raw[i+2 : max(end, i+2)]
			parts = append(parts, &CommandSubst{Body: mustParseBody(inner)})
			i = end + 1
		case c == '`':
			flush()
			j := i + 1
			for j < len(raw) && raw[j] != '`' {
				j++
			}
			parts = append(parts, &CommandSubst{Body: mustParseBody(raw[i+1 : min(j, len(raw))]), Backquote: true})
			i = j + 1
		case c == '$' && i+1 < len(raw) && raw[i+1] == '{':
			flush()
			end := matchParen(raw, i+1, '{', '}')
			inner := raw[i+2 : max(end, i+2)]
			parts = append(parts, parseParamExpansion(inner))
			i = end + 1
		case c == '$' && i+1 < len(raw) && isNameStart(raw[i+1]):
			flush()
			j := i + 1
			for j < len(raw) && isNameCont(raw[j]) {
				j++
			}
			parts = append(parts, &Variable{Name: raw[i+1 : j]})
			i = j
		case c == '$' && i+1 < len(raw) && (raw[i+1] == '@' || raw[i+1] == '#' || raw[i+1] == '?' || raw[i+1] == '$' || raw[i+1] == '_' || isDigit(raw[i+1])):
			flush()
			parts = append(parts, &Variable{Name: string(raw[i+1])})
			i += 2
		case c == '*' || c == '?':
			lit.WriteByte(c)
			litQuote = QuoteNone
			i++
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	if containsGlobMeta(raw) && len(parts) == 1 {
		if l, ok := parts[0].(*Lit); ok && l.Quote == QuoteNone && (strings.ContainsAny(l.Value, "*?") || strings.Contains(l.Value, "[")) {
			return []Expr{&Glob{Pattern: l.Value}}
		}
	}
	return parts
}

func containsGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isNameCont(b byte) bool {
	return isNameStart(b) || isDigit(b)
}
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// matchParen finds the index of the closing rune matching the opener at
// raw[open], returning the index of the final closing rune (so the caller
// slices up to, but not including, it).
func matchParen(raw string, open int, o, c byte) int {
	depth := 0
	for i := open; i < len(raw); i++ {
		switch raw[i] {
		case o:
			depth++
		case c:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(raw)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// mustParseBody parses a command-substitution body into statements. Parse
// failures degrade to a single literal Command so purification of the
// outer word can still proceed (command substitution bodies are rarely
// the target of purification itself).
func mustParseBody(src string) []Stmt {
	f, err := Parse(src)
	if err != nil {
		return []Stmt{&Command{Name: strings.TrimSpace(src)}}
	}
	return f.Statements
}

// parseParamExpansion parses the inside of `${...}` into one of the
// Param* nodes or a plain Variable when no operator is present.
func parseParamExpansion(inner string) Expr {
	if inner == "" {
		return &Variable{Name: ""}
	}
	if inner[0] == '#' && len(inner) > 1 && isNameStart(inner[1]) {
		return &ParamLength{Name: inner[1:]}
	}
	name, op, rest, ok := splitParamOp(inner)
	if !ok {
		return &Variable{Name: inner}
	}
	switch op {
	case ":-":
		return &ParamDefault{Name: name, Default: parseWord(rest)}
	case ":=":
		return &ParamAssignDefault{Name: name, Default: parseWord(rest)}
	case ":?":
		return &ParamErrorIfUnset{Name: name, Message: parseWord(rest)}
	case ":+":
		return &ParamAlternative{Name: name, Value: parseWord(rest)}
	case "##":
		return &ParamRemove{Name: name, Pattern: rest, Kind: RemovePrefixLongest}
	case "#":
		return &ParamRemove{Name: name, Pattern: rest, Kind: RemovePrefixShortest}
	case "%%":
		return &ParamRemove{Name: name, Pattern: rest, Kind: RemoveSuffixLongest}
	case "%":
		return &ParamRemove{Name: name, Pattern: rest, Kind: RemoveSuffixShortest}
	}
	return &Variable{Name: inner}
}

// splitParamOp finds the variable name prefix of a `${...}` body and the
// longest matching operator, trying the two-character operators before
// the one-character ones.
func splitParamOp(inner string) (name, op, rest string, ok bool) {
	i := 0
	for i < len(inner) && isNameCont(inner[i]) {
		i++
	}
	name = inner[:i]
	if name == "" {
		return "", "", "", false
	}
	remainder := inner[i:]
	twoCharOps := []string{":-", ":=", ":?", ":+", "##", "%%"}
	for _, o := range twoCharOps {
		if strings.HasPrefix(remainder, o) {
			return name, o, remainder[len(o):], true
		}
	}
	oneCharOps := []string{"#", "%"}
	for _, o := range oneCharOps {
		if strings.HasPrefix(remainder, o) {
			return name, o, remainder[len(o):], true
		}
	}
	if remainder == "" {
		return name, "", "", false
	}
	return "", "", "", false
}
