package bashast

import "github.com/bashrs-go/bashrs/errs"

// parseTestWords builds a TestExpr from the flat word list captured
// between `[[`/`]]` or `[`/`]`: the fixed predicate set composed with
// `&&`/`-a` as And, `||`/`-o` as Or, and `!` as Not. `=~` is rejected
// outright, since POSIX test(1) has no regex operator.
func parseTestWords(words []string) (TestExpr, error) {
	p := &testWordParser{words: words}
	t, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return t, nil
}

type testWordParser struct {
	words []string
	pos   int
}

func (p *testWordParser) peek() string {
	if p.pos >= len(p.words) {
		return ""
	}
	return p.words[p.pos]
}

func (p *testWordParser) next() string {
	w := p.peek()
	p.pos++
	return w
}

func (p *testWordParser) parseOr() (TestExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "||" || p.peek() == "-o" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &TestOr{Left: left, Right: right}
	}
	return left, nil
}

func (p *testWordParser) parseAnd() (TestExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&&" || p.peek() == "-a" {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &TestAnd{Left: left, Right: right}
	}
	return left, nil
}

func (p *testWordParser) parseUnary() (TestExpr, error) {
	if p.peek() == "!" {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &TestNot{Operand: inner}, nil
	}
	if p.peek() == "(" {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() == ")" {
			p.next()
		}
		return inner, nil
	}

	switch p.peek() {
	case "-e", "-f":
		p.next()
		return &FileExists{Path: parseWord(p.next())}, nil
	case "-r":
		p.next()
		return &FileReadable{Path: parseWord(p.next())}, nil
	case "-w":
		p.next()
		return &FileWritable{Path: parseWord(p.next())}, nil
	case "-x":
		p.next()
		return &FileExecutable{Path: parseWord(p.next())}, nil
	case "-d":
		p.next()
		return &FileDirectory{Path: parseWord(p.next())}, nil
	case "-z":
		p.next()
		return &StringEmpty{Operand: parseWord(p.next())}, nil
	case "-n":
		p.next()
		return &StringNonEmpty{Operand: parseWord(p.next())}, nil
	}

	left := p.next()
	op := p.peek()
	switch op {
	case "==", "=":
		p.next()
		return &StringEq{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "!=":
		p.next()
		return &StringNe{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "=~":
		return nil, errs.New(errs.KindUnsupportedConstruct, errs.SourceLocation{Line: 1}, "'=~' regex match has no POSIX equivalent").
			WithNote("POSIX test(1) has no regex match operator").
			WithHelp("rewrite using case/glob matching or an external tool like grep")
	case "-eq":
		p.next()
		return &IntEq{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "-ne":
		p.next()
		return &IntNe{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "-lt":
		p.next()
		return &IntLt{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "-le":
		p.next()
		return &IntLe{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "-gt":
		p.next()
		return &IntGt{Left: parseWord(left), Right: parseWord(p.next())}, nil
	case "-ge":
		p.next()
		return &IntGe{Left: parseWord(left), Right: parseWord(p.next())}, nil
	}
	// bare word: true iff non-empty, i.e. StringNonEmpty
	return &StringNonEmpty{Operand: parseWord(left)}, nil
}
