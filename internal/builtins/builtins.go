// Package builtins holds the fixed "selective runtime" table the POSIX
// emitter (package emit) draws on: a closed set of `rash_*` shell
// functions implementing the DSL's string/filesystem/array standard
// library, emitted only when a lowered program actually calls one.
package builtins

// Builtin describes one rash_* helper: its POSIX shell body (without
// the surrounding `name() { ... }` wrapper, which the emitter adds so
// it can also suppress emission for names that collide with a real
// command) and whether calling it in test/condition position tests its
// exit status directly rather than needing `test -n "$(...)"`.
type Builtin struct {
	Name      string
	Body      string
	Predicate bool
}

// Table is keyed by the rash_* function name, grouped as IO, control,
// networking, string, filesystem, array.
var Table = map[string]Builtin{
	"rash_print":    {Name: "rash_print", Body: `printf '%s' "$1"`},
	"rash_println":  {Name: "rash_println", Body: `printf '%s\n' "$1"`},
	"rash_eprintln": {Name: "rash_eprintln", Body: `printf '%s\n' "$1" >&2`},

	"rash_require": {
		Name: "rash_require",
		Body: `if ! command -v "$1" >/dev/null 2>&1; then
    rash_eprintln "required command not found: $1"
    exit 1
  fi`,
	},

	"rash_download_verified": {
		Name: "rash_download_verified",
		Body: `url="$1"
  dest="$2"
  sha256="$3"
  if command -v curl >/dev/null 2>&1; then
    curl -fsSL -o "$dest" "$url"
  else
    wget -q -O "$dest" "$url"
  fi
  if command -v sha256sum >/dev/null 2>&1; then
    actual=$(sha256sum "$dest" | cut -d ' ' -f1)
  else
    actual=$(shasum -a 256 "$dest" | cut -d ' ' -f1)
  fi
  if [ "$actual" != "$sha256" ]; then
    rash_eprintln "checksum mismatch for $url"
    rm -f "$dest"
    exit 1
  fi`,
	},

	"rash_string_trim": {
		Name: "rash_string_trim",
		Body: `s="$1"
  s="${s#"${s%%[![:space:]]*}"}"
  s="${s%"${s##*[![:space:]]}"}"
  printf '%s' "$s"`,
	},
	"rash_string_contains": {
		Name: "rash_string_contains", Predicate: true,
		Body: `case "$1" in
    *"$2"*) return 0 ;;
    *) return 1 ;;
  esac`,
	},
	"rash_string_len": {
		Name: "rash_string_len",
		Body: `printf '%s' "${#1}"`,
	},
	"rash_string_replace": {
		Name: "rash_string_replace",
		Body: `printf '%s' "$1" | sed "s/$(printf '%s' "$2" | sed 's/[\/&]/\\\\&/g')/$(printf '%s' "$3" | sed 's/[\/&]/\\\\&/g')/g"`,
	},
	"rash_string_to_upper": {
		Name: "rash_string_to_upper",
		Body: `printf '%s' "$1" | tr '[:lower:]' '[:upper:]'`,
	},
	"rash_string_to_lower": {
		Name: "rash_string_to_lower",
		Body: `printf '%s' "$1" | tr '[:upper:]' '[:lower:]'`,
	},
	"rash_string_split": {
		Name: "rash_string_split",
		Body: `old_ifs=$IFS
  IFS="$2"
  set -- $1
  IFS=$old_ifs
  printf '%s\n' "$@"`,
	},

	"rash_fs_exists": {
		Name: "rash_fs_exists", Predicate: true,
		Body: `[ -e "$1" ]`,
	},
	"rash_fs_read_file": {
		Name: "rash_fs_read_file",
		Body: `cat "$1"`,
	},
	"rash_fs_write_file": {
		Name: "rash_fs_write_file",
		Body: `printf '%s' "$2" > "$1"`,
	},
	"rash_fs_copy": {
		Name: "rash_fs_copy",
		Body: `cp "$1" "$2"`,
	},
	"rash_fs_remove": {
		Name: "rash_fs_remove",
		Body: `rm -f "$1"`,
	},
	"rash_fs_is_file": {
		Name: "rash_fs_is_file", Predicate: true,
		Body: `[ -f "$1" ]`,
	},
	"rash_fs_is_dir": {
		Name: "rash_fs_is_dir", Predicate: true,
		Body: `[ -d "$1" ]`,
	},

	"rash_array_len": {
		Name: "rash_array_len",
		Body: `printf '%s' "$#"`,
	},
	"rash_array_join": {
		Name: "rash_array_join",
		Body: `sep="$1"
  shift
  out=""
  first=1
  for item in "$@"; do
    if [ "$first" -eq 1 ]; then
      out="$item"
      first=0
    else
      out="$out$sep$item"
    fi
  done
  printf '%s' "$out"`,
	},
}

// Lookup returns the builtin registered under name, if any.
func Lookup(name string) (Builtin, bool) {
	b, ok := Table[name]
	return b, ok
}

// IsPredicate reports whether name is a builtin whose exit status is
// the thing being tested, so the emitter can call it directly as a
// condition rather than wrapping it in `test -n "$(...)"`.
func IsPredicate(name string) bool {
	b, ok := Table[name]
	return ok && b.Predicate
}
