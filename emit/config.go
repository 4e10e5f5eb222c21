// Package emit turns an ir.Program into POSIX shell text. The
// functional-options Config shape follows mvdan.cc/sh's
// syntax.Parser/printer.Printer construction style (a zero-value-safe
// struct built up by With* options) rather than a constructor with a
// long positional parameter list.
package emit

// Dialect selects the target shell dialect.
type Dialect int

const (
	// Posix targets strict POSIX sh (dash-compatible): no arrays, no
	// [[ ]], no bashisms anywhere in emitted output.
	Posix Dialect = iota
	// Bash allows a small set of bash-only conveniences: comparisons
	// and test expressions are emitted with `[[ ]]` instead of `[ ]`.
	// Used by the corpus runner's cross-shell-agreement check to
	// exercise a genuinely different emission path from the POSIX
	// target.
	Bash
)

// Verify is a verification level carried on Config and set by
// WithVerify. Emit does not read it: every level produces the same
// output and no extra checks run at emission time.
type Verify int

const (
	VerifyNone Verify = iota
	VerifyBasic
	VerifyStrict
)

// Config controls emission. The zero value targets strict POSIX with
// VerifyNone.
type Config struct {
	Target       Dialect
	Verify       Verify
	IndentWidth  int
	EmitComments bool
}

// Option mutates a Config; constructed via the With* functions below.
type Option func(*Config)

// WithTarget sets the target dialect.
func WithTarget(d Dialect) Option { return func(c *Config) { c.Target = d } }

// WithVerify sets the verification level.
func WithVerify(v Verify) Option { return func(c *Config) { c.Verify = v } }

// WithComments toggles whether source-derived comments are preserved
// in emitted output.
func WithComments(on bool) Option { return func(c *Config) { c.EmitComments = on } }

// NewConfig builds a Config from options, defaulting IndentWidth to 2
// (POSIX shell convention, distinct from bashast's 4-space bash style).
func NewConfig(opts ...Option) Config {
	c := Config{IndentWidth: 2}
	for _, o := range opts {
		o(&c)
	}
	return c
}
