// Package bashrs is the top-level entry point: it wires the DSL
// parser, IR lowering, and POSIX emitter into a single Transpile call
// for the restricted-DSL-to-shell pipeline, the bash parser/purifier
// into TranspileBashScript, and the Makefile parser/generator into
// TranspileMakefile. NewCorpusRunner configures the corpus package's
// Runner with Transpile, TranspileMakefile and TranspileDockerfile.
// Callers get one public surface
// over the sub-packages rather than wiring the pipeline themselves.
package bashrs

import (
	"fmt"

	"github.com/bashrs-go/bashrs/bashast"
	"github.com/bashrs-go/bashrs/corpus"
	"github.com/bashrs-go/bashrs/dsl"
	"github.com/bashrs-go/bashrs/emit"
	"github.com/bashrs-go/bashrs/ir"
	"github.com/bashrs-go/bashrs/makefile"
	"github.com/bashrs-go/bashrs/purify"
)

// Config controls every pipeline in this package. It composes
// emit.Config directly rather than re-declaring Target/Verify/
// IndentWidth/EmitComments, since the POSIX emitter is the only stage
// with tunable output behavior; the bash purifier and Makefile
// generator are parameterless by contract (idempotent, deterministic
// rewrites).
type Config struct {
	Emit emit.Config
}

// Option mutates a Config, following emit.Config's own With* shape.
type Option func(*Config)

// WithEmit sets the emitter configuration used by Transpile.
func WithEmit(cfg emit.Config) Option { return func(c *Config) { c.Emit = cfg } }

// NewConfig builds a Config with emit's own strict-POSIX default.
func NewConfig(opts ...Option) Config {
	c := Config{Emit: emit.NewConfig()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Transpile compiles restricted-DSL source to POSIX shell text: parse
// to a dsl.Program, lower to ir.Program, emit to text. This is the
// pipeline corpus.Format Bash entries are routed through; fixtures
// under that format carry DSL source exercising the transpiler, not
// raw bash scripts to purify.
func Transpile(src string, cfg Config) (string, error) {
	prog, err := dsl.Parse(src)
	if err != nil {
		return "", fmt.Errorf("bashrs: parse: %w", err)
	}
	lowered := ir.Lower(prog)
	out, err := emit.Emit(lowered, cfg.Emit)
	if err != nil {
		return "", fmt.Errorf("bashrs: emit: %w", err)
	}
	return out, nil
}

// TranspileBashScript purifies an existing bash script into POSIX-
// clean bash text: parse to a bashast.File, rewrite with purify.Purify,
// regenerate with bashast.GeneratePurified.
func TranspileBashScript(src string) (string, error) {
	f, err := bashast.Parse(src)
	if err != nil {
		return "", fmt.Errorf("bashrs: parse bash: %w", err)
	}
	purified := purify.Purify(f)
	return bashast.GeneratePurified(purified), nil
}

// TranspileMakefile purifies a Makefile: parse to a makefile.Ast,
// regenerate with makefile.Generate, which normalizes every recipe
// line to a single leading tab regardless of the source's indentation
// (the GRAM-003 repair).
func TranspileMakefile(src string) (string, error) {
	ast, err := makefile.Parse(src)
	if err != nil {
		return "", fmt.Errorf("bashrs: parse makefile: %w", err)
	}
	return makefile.Generate(ast), nil
}

// TranspileDockerfile is the identity pipeline for Dockerfiles: no
// component in this module builds a structural Dockerfile AST
// (schema.ValidateText and lint.LintDockerfile operate on Dockerfile
// text directly via line-oriented heuristics). Routing Dockerfile
// entries through this function still lets the corpus runner's
// schema/lint/determinism dimensions exercise them; only dimension A
// (transpiled) is trivially satisfied.
func TranspileDockerfile(src string) (string, error) {
	return src, nil
}

// NewCorpusRunner wires a corpus.Runner with this package's three
// concrete pipelines. The restricted-DSL pipeline is wired twice: once
// at the default strict-POSIX target for corpus.Runner.Transpile, and
// once more at emit.Bash for corpus.Runner.CrossShell, so the
// cross_shell_agree dimension compares two genuinely different
// emissions of the same program instead of trivially restating the
// transpiled dimension. Makefile and Dockerfile have no second dialect
// to target, so CrossShell has no entry for them and they vacuously
// agree, the same convention every other per-format dimension
// follows.
func NewCorpusRunner() *corpus.Runner {
	rn := corpus.NewRunner(map[corpus.Format]corpus.TranspileFunc{
		corpus.FormatBash:       func(src string) (string, error) { return Transpile(src, NewConfig()) },
		corpus.FormatMakefile:   TranspileMakefile,
		corpus.FormatDockerfile: TranspileDockerfile,
	})
	bashDialect := NewConfig(WithEmit(emit.NewConfig(emit.WithTarget(emit.Bash))))
	rn.CrossShell = map[corpus.Format]corpus.TranspileFunc{
		corpus.FormatBash: func(src string) (string, error) { return Transpile(src, bashDialect) },
	}
	return rn
}
