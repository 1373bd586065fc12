package remap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// TableFile is the flat remapping table, one from=to pair per line.
	TableFile = "remappings.txt"
	// FoundryFile is consulted when TableFile is absent.
	FoundryFile = "foundry.toml"
)

// Entry substitutes the import path prefix From with To.
type Entry struct {
	From string
	To   string
}

// String returns the entry in its table form.
func (e Entry) String() string {
	return e.From + "=" + e.To
}

// Table is an ordered list of entries. Order matters: the first matching entry wins.
type Table []Entry

// ParseTable reads a flat table from r. Lines are trimmed and empty lines dropped. Lines without
// a "=" separator or with an empty prefix are skipped. When a line has more than one "=", only
// the first two fields are used. A read error, such as a line longer than the scanner buffer,
// discards the whole table.
func ParseTable(r io.Reader) (Table, error) {
	table := Table{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, "=")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}

		table = append(table, Entry{From: fields[0], To: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return Table{}, fmt.Errorf("failed to read remapping table: %w", err)
	}

	return table, nil
}

// LoadTable reads the table at path. A missing or unreadable file yields an empty table: no
// remapping is applied rather than failing the build.
func LoadTable(path string) Table {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}
	}

	table, err := ParseTable(bytes.NewReader(data))
	if err != nil {
		return Table{}
	}

	return table
}

type foundryConfig struct {
	Profile map[string]struct {
		Remappings []string `toml:"remappings"`
	} `toml:"profile"`
}

// LoadFoundryTable reads the remappings of the default profile of a foundry.toml file. Missing or
// malformed files yield an empty table.
func LoadFoundryTable(path string) Table {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}
	}

	var cfg foundryConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Table{}
	}

	profile, ok := cfg.Profile["default"]
	if !ok {
		return Table{}
	}

	table, err := ParseTable(strings.NewReader(strings.Join(profile.Remappings, "\n")))
	if err != nil {
		return Table{}
	}

	return table
}

// Resolve loads the table for a project rooted at dir. remappings.txt is used when it exists,
// otherwise foundry.toml. Only one source is ever used. The table is read fresh on every call.
func Resolve(dir string) Table {
	tablePath := filepath.Join(dir, TableFile)
	if _, err := os.Stat(tablePath); !errors.Is(err, fs.ErrNotExist) {
		return LoadTable(tablePath)
	}

	return LoadFoundryTable(filepath.Join(dir, FoundryFile))
}
