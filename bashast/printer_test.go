package bashast

import (
	"strings"
	"testing"
)

// Any input shebang is normalized to #!/bin/sh.
func TestGeneratePurifiedShebang(t *testing.T) {
	f := mustParse(t, "#!/bin/bash\nmkdir /tmp/x\n")
	out := GeneratePurified(f)
	if !strings.HasPrefix(out, "#!/bin/sh\n") {
		t.Fatalf("want #!/bin/sh shebang, got %q", out)
	}
	if strings.Contains(out, "#!/bin/bash") {
		t.Fatalf("bash shebang leaked into output: %q", out)
	}
}

// Until loops become while loops with a negated condition.
func TestGenerateUntilNegation(t *testing.T) {
	f := mustParse(t, "until [ -f /tmp/ready ]; do sleep 1; done\n")
	out := GeneratePurified(f)
	if !strings.Contains(out, "while [ ! -e /tmp/ready ]; do") {
		t.Fatalf("want negated while loop, got %q", out)
	}
	if strings.Contains(out, "until") {
		t.Fatalf("until leaked into purified output: %q", out)
	}
}

// C-style for loops lower to a POSIX while loop with an explicit
// increment statement at the end of the body.
func TestGenerateForCStyle(t *testing.T) {
	f := mustParse(t, "for (( i=0; i<3; i++ )); do echo $i; done\n")
	out := GeneratePurified(f)
	if !strings.Contains(out, "i=0") {
		t.Fatalf("want hoisted init i=0, got %q", out)
	}
	if !strings.Contains(out, `"$i" -lt 3`) {
		t.Fatalf("want POSIX -lt comparison, got %q", out)
	}
	if !strings.Contains(out, "i=$((i+1))") && !strings.Contains(out, "i=$((i + 1))") {
		t.Fatalf("want POSIX increment, got %q", out)
	}
	if strings.Contains(out, "for ((") {
		t.Fatalf("C-style for leaked into purified output: %q", out)
	}
}

func TestGenerateDeclareArrayBecomesComment(t *testing.T) {
	f := mustParse(t, "declare -a FILES\n")
	out := GeneratePurified(f)
	if !strings.Contains(out, "not POSIX") {
		t.Fatalf("want '(not POSIX)' comment for array declare, got %q", out)
	}
}

