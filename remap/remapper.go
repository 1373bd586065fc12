// Package remap rewrites dependency import paths in contract sources before compilation.
//
// A remapping table is a flat list of from=to prefix substitutions. The transform is line based:
// every line that looks like an import gets at most one substitution, the first table entry found
// in the line. All other lines pass through untouched. The transform is pure so compiler caches
// keyed on its output stay valid.
package remap

import (
	"bytes"
	"strings"
)

const importToken = "import"

// IsImport reports whether line is treated as an import statement. Any case-insensitive
// occurrence of the import token qualifies, including inside comments or string literals.
func IsImport(line string) bool {
	return strings.Contains(strings.ToLower(line), importToken)
}

// Transform applies the first entry of table whose From occurs in line, replacing only that first
// occurrence. Lines that are not imports, or that match no entry, are returned unchanged.
func Transform(line string, table Table) string {
	if !IsImport(line) {
		return line
	}

	for _, e := range table {
		if strings.Contains(line, e.From) {
			return strings.Replace(line, e.From, e.To, 1)
		}
	}

	return line
}

// TransformSource applies Transform to each line of src. Line terminators, including "\r\n", are
// preserved.
func TransformSource(src []byte, table Table) []byte {
	if len(table) == 0 {
		return src
	}

	var out bytes.Buffer
	out.Grow(len(src))

	for len(src) > 0 {
		line := src
		var eol []byte
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, eol = src[:i], src[i:i+1]
			src = src[i+1:]
		} else {
			src = nil
		}
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line, eol = line[:n-1], append([]byte{'\r'}, eol...)
		}

		out.WriteString(Transform(string(line), table))
		out.Write(eol)
	}

	return out.Bytes()
}

// Remapper is a line transformer bound to a project directory. Each call to Table re-reads the
// table from disk; callers load it once per compilation pass.
type Remapper struct {
	dir string
}

// NewRemapper returns a Remapper reading its table from dir.
func NewRemapper(dir string) *Remapper {
	return &Remapper{dir: dir}
}

// Table loads the current table.
func (r *Remapper) Table() Table {
	return Resolve(r.dir)
}

// TransformLine loads the table and transforms a single line.
func (r *Remapper) TransformLine(line string) string {
	return Transform(line, r.Table())
}
