package corpus

import "testing"

func TestLoadEntriesYAML(t *testing.T) {
	data := []byte(`
- id: B-371
  name: bashrc guard
  format: Bash
  tier: basic
  input: "fn main() { println!(\"hi\"); }"
  expected_output: "hi"
  deterministic: true
- id: M-001
  format: Makefile
  tier: trivial
  input: "all:\n\techo hi\n"
`)
	reg, err := LoadEntriesYAML(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reg.Entries))
	}
	if reg.Entries[0].Format != FormatBash || reg.Entries[0].Tier != TierBasic {
		t.Fatalf("unexpected first entry: %+v", reg.Entries[0])
	}
	if reg.Entries[1].Format != FormatMakefile {
		t.Fatalf("unexpected second entry: %+v", reg.Entries[1])
	}

	bash := reg.ByFormat(FormatBash)
	if len(bash) != 1 || bash[0].ID != "B-371" {
		t.Fatalf("unexpected ByFormat result: %+v", bash)
	}
}

func TestLoadEntriesTxtar(t *testing.T) {
	data := []byte(`- id: B-381
  format: Bash
  tier: basic
-- B-381.input --
fn main() { println!("hi"); }
-- B-381.expected --
hi
`)
	reg, err := LoadEntriesTxtar(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(reg.Entries))
	}
	e := reg.Entries[0]
	if e.Input == "" || e.ExpectedOutput == "" {
		t.Fatalf("expected input/expected to be populated from txtar files, got %+v", e)
	}
}
