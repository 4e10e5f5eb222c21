// Package corpus implements the corpus quality engine: an entry
// registry, a per-entry runner that transpiles and scores against the
// nine-dimension rubric with its gateway/secondary gates, the seven
// metamorphic relations MR-1..MR-7, convergence tracking, and the A-H
// domain categoriser with its coverage and quality-matrix reports.
// Fixtures load from txtar archives (rogpeppe/go-internal/txtar) or
// YAML documents (gopkg.in/yaml.v3).
package corpus

import (
	"fmt"

	"github.com/rogpeppe/go-internal/txtar"
	"gopkg.in/yaml.v3"
)

// Format is the corpus entry's source format.
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

// MarshalYAML/UnmarshalYAML let Format round-trip as its string name
// in fixture files instead of a bare integer.
func (f Format) MarshalYAML() (interface{}, error) { return f.String(), nil }

func (f *Format) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "Makefile":
		*f = FormatMakefile
	case "Dockerfile":
		*f = FormatDockerfile
	default:
		*f = FormatBash
	}
	return nil
}

// Tier is the difficulty/maturity tier a corpus entry is filed under.
type Tier int

const (
	TierTrivial Tier = iota
	TierBasic
	TierIntermediate
	TierAdvanced
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierIntermediate:
		return "intermediate"
	case TierAdvanced:
		return "advanced"
	default:
		return "trivial"
	}
}

func (t Tier) MarshalYAML() (interface{}, error) { return t.String(), nil }

func (t *Tier) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "basic":
		*t = TierBasic
	case "intermediate":
		*t = TierIntermediate
	case "advanced":
		*t = TierAdvanced
	default:
		*t = TierTrivial
	}
	return nil
}

// Entry is one corpus entry: a transpile input, an expected-output
// fragment to check for, and the quality flags that gate which checks
// apply (checkDeterminism only runs for entries flagged
// Deterministic).
type Entry struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Format         Format `yaml:"format"`
	Tier           Tier   `yaml:"tier"`
	Input          string `yaml:"input"`
	ExpectedOutput string `yaml:"expected_output"`
	Shellcheck     bool   `yaml:"shellcheck"`
	Deterministic  bool   `yaml:"deterministic"`
	Idempotent     bool   `yaml:"idempotent"`
}

// Registry is an ordered collection of corpus entries.
type Registry struct {
	Entries []Entry
}

// ByFormat filters entries to a single format, preserving order.
func (r *Registry) ByFormat(format Format) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Format == format {
			out = append(out, e)
		}
	}
	return out
}

// LoadEntriesYAML parses a Registry from a YAML document containing a
// top-level list of entries — the external corpus-entry file schema.
func LoadEntriesYAML(data []byte) (*Registry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corpus: parse yaml entries: %w", err)
	}
	return &Registry{Entries: entries}, nil
}

// LoadEntriesTxtar parses a Registry from a txtar archive: the archive
// comment holds a YAML list of entry metadata (everything but Input/
// ExpectedOutput), and each entry's Input/ExpectedOutput are read from
// files named "<id>.input" and "<id>.expected" — txtar's own
// file-per-section model is the natural fit for {input, expected}
// pairs, per DESIGN.md.
func LoadEntriesTxtar(data []byte) (*Registry, error) {
	arc := txtar.Parse(data)

	var meta []Entry
	if err := yaml.Unmarshal(arc.Comment, &meta); err != nil {
		return nil, fmt.Errorf("corpus: parse txtar comment metadata: %w", err)
	}

	files := make(map[string][]byte, len(arc.Files))
	for _, f := range arc.Files {
		files[f.Name] = f.Data
	}

	entries := make([]Entry, 0, len(meta))
	for _, e := range meta {
		if data, ok := files[e.ID+".input"]; ok {
			e.Input = string(data)
		}
		if data, ok := files[e.ID+".expected"]; ok {
			e.ExpectedOutput = string(data)
		}
		entries = append(entries, e)
	}
	return &Registry{Entries: entries}, nil
}
