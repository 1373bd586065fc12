// Package text normalizes the help text of the deployer's commands.
package text

import (
	"strings"
)

// Indentation prefixes every example line.
const Indentation = `  `

// LongDesc trims the surrounding whitespace of a long description and removes the common
// indentation of its lines, so descriptions can be written as indented raw strings.
func LongDesc(s string) string {
	if s == "" {
		return s
	}

	return dedent(strings.TrimSpace(s))
}

// Examples trims s and indents each of its lines by Indentation.
func Examples(s string) string {
	if s == "" {
		return s
	}

	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = Indentation + strings.TrimSpace(line)
	}

	return strings.Join(lines, "\n")
}

// dedent strips the leading whitespace of every line. Blank lines are kept to separate
// paragraphs.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t")
	}

	return strings.Join(lines, "\n")
}
