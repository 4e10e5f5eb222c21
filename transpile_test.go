package bashrs

import (
	"context"
	"strings"
	"testing"

	"github.com/bashrs-go/bashrs/corpus"
)

func TestTranspileSimpleFn(t *testing.T) {
	src := `fn main() {
    let x = 1;
    println!("{}", x);
}`
	out, err := Transpile(src, NewConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "#!/bin/sh") {
		t.Fatalf("expected POSIX shebang, got:\n%s", out)
	}
}

func TestTranspileBashScriptPurifiesBashism(t *testing.T) {
	out, err := TranspileBashScript("#!/bin/bash\nif [[ -f x ]]; then\n  echo ok\nfi\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "[[") {
		t.Fatalf("expected [[ ]] purified away, got:\n%s", out)
	}
}

func TestTranspileMakefileNormalizesRecipe(t *testing.T) {
	out, err := TranspileMakefile("all:\n    echo hi\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "\techo hi") {
		t.Fatalf("expected tab-indented recipe, got:\n%s", out)
	}
}

func TestNewCorpusRunnerCrossShellAgree(t *testing.T) {
	reg := &corpus.Registry{Entries: []corpus.Entry{
		{
			ID:             "B-100",
			Format:         corpus.FormatBash,
			Input:          `fn main() { if x > 0 { println!("pos"); } }`,
			ExpectedOutput: "pos",
		},
	}}
	rn := NewCorpusRunner()
	score, err := rn.RunAll(context.Background(), reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := score.Results[0]
	if !r.Transpiled {
		t.Fatalf("expected transpile success, got %+v", r)
	}
	if !r.CrossShellAgree {
		t.Fatalf("expected POSIX and Bash dialect emissions to agree on the expected fragment, got %+v", r)
	}
}

func TestTranspileDockerfileIdentity(t *testing.T) {
	src := "FROM alpine:3.18\nRUN echo hi\n"
	out, err := TranspileDockerfile(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != src {
		t.Fatalf("expected identity pass-through, got:\n%s", out)
	}
}
