package remap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Transform(t *testing.T) {
	t.Parallel()

	table := Table{
		{From: "@foo/", To: "lib/foo/"},
		{From: "@openzeppelin/", To: "lib/openzeppelin-contracts/"},
		{From: "lib/", To: "vendor/"},
	}

	tests := []struct {
		name  string
		give  string
		table Table
		want  string
	}{
		{
			name:  "single entry",
			give:  `import "@foo/Token.sol";`,
			table: Table{{From: "@foo/", To: "lib/foo/"}},
			want:  `import "lib/foo/Token.sol";`,
		},
		{
			name:  "first matching entry wins and stops",
			give:  `import "@foo/Token.sol";`,
			table: table,
			want:  `import "lib/foo/Token.sol";`,
		},
		{
			name:  "later entry used when earlier ones do not match",
			give:  `import {ERC20} from "@openzeppelin/token/ERC20.sol";`,
			table: table,
			want:  `import {ERC20} from "lib/openzeppelin-contracts/token/ERC20.sol";`,
		},
		{
			name:  "only the first occurrence is replaced",
			give:  `import "@foo/@foo/A.sol";`,
			table: table,
			want:  `import "lib/foo/@foo/A.sol";`,
		},
		{
			name:  "leading whitespace and case",
			give:  "\t  IMPORT \"@foo/A.sol\";",
			table: table,
			want:  "\t  IMPORT \"lib/foo/A.sol\";",
		},
		{
			name:  "non import line untouched",
			give:  `string constant path = "@foo/A.sol";`,
			table: table,
			want:  `string constant path = "@foo/A.sol";`,
		},
		{
			name:  "import token inside a comment still matches",
			give:  `// see the importer at @foo/Importer.sol`,
			table: table,
			want:  `// see the importer at lib/foo/Importer.sol`,
		},
		{
			name:  "no entry matches",
			give:  `import "./Local.sol";`,
			table: table,
			want:  `import "./Local.sol";`,
		},
		{
			name:  "empty table",
			give:  `import "@foo/A.sol";`,
			table: Table{},
			want:  `import "@foo/A.sol";`,
		},
		{
			name:  "empty replacement strips the prefix",
			give:  `import "@foo/A.sol";`,
			table: Table{{From: "@foo/", To: ""}},
			want:  `import "A.sol";`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Transform(tt.give, tt.table)
			assert.Equal(t, tt.want, got)
			// Pure: a second call with the same inputs gives the same output.
			assert.Equal(t, got, Transform(tt.give, tt.table))
		})
	}
}

func Test_IsImport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give string
		want bool
	}{
		{name: "import statement", give: `import "@foo/A.sol";`, want: true},
		{name: "indented upper case", give: "    Import {A} from \"@foo/A.sol\";", want: true},
		{name: "commented out import", give: `// import "@foo/A.sol";`, want: true},
		{name: "identifier containing the token", give: `function importData() external {}`, want: true},
		{name: "string literal", give: `string constant note = "reimported from @foo/";`, want: true},
		{name: "pragma", give: "pragma solidity 0.8.16;", want: false},
		{name: "prose in a comment", give: "// imports are remapped", want: true},
		{name: "empty", give: "", want: false},
		{name: "split token", give: "im port", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsImport(tt.give))
		})
	}
}

func Test_Transform_ImportTokenAnywhere(t *testing.T) {
	t.Parallel()

	table := Table{{From: "@foo/", To: "lib/foo/"}}

	assert.Equal(t, `// import "lib/foo/A.sol";`, Transform(`// import "@foo/A.sol";`, table))
	assert.Equal(t, `string s = "importing lib/foo/A.sol";`, Transform(`string s = "importing @foo/A.sol";`, table))
	assert.Equal(t, `function importData(string calldata p) {} // lib/foo/`,
		Transform(`function importData(string calldata p) {} // @foo/`, table))
}

func Test_Transform_NonImportLinesPassThrough(t *testing.T) {
	t.Parallel()

	table := Table{{From: "a", To: "b"}, {From: "contract", To: "library"}, {From: " ", To: ""}}
	lines := []string{
		"",
		"pragma solidity 0.8.16;",
		"contract Bar is Foo {",
		"    uint256 public a;",
		"}",
		"// SPDX-License-Identifier: MIT",
	}

	for _, line := range lines {
		assert.Equal(t, line, Transform(line, table), "line %q", line)
	}
}

func Test_TransformSource(t *testing.T) {
	t.Parallel()

	table := Table{{From: "@foo/", To: "lib/foo/"}}

	tests := []struct {
		name string
		give string
		want string
	}{
		{
			name: "lf",
			give: "pragma solidity 0.8.16;\nimport \"@foo/A.sol\";\ncontract Bar {}\n",
			want: "pragma solidity 0.8.16;\nimport \"lib/foo/A.sol\";\ncontract Bar {}\n",
		},
		{
			name: "crlf and no trailing newline",
			give: "import \"@foo/A.sol\";\r\nimport \"@foo/B.sol\";",
			want: "import \"lib/foo/A.sol\";\r\nimport \"lib/foo/B.sol\";",
		},
		{
			name: "empty",
			give: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, string(TransformSource([]byte(tt.give), table)))
		})
	}
}

func Test_Remapper_ReadsTableFreshEachCall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fp := filepath.Join(dir, TableFile)
	r := NewRemapper(dir)

	line := `import "@foo/A.sol";`
	assert.Equal(t, line, r.TransformLine(line))

	require.NoError(t, os.WriteFile(fp, []byte("@foo/=lib/foo/\n"), 0o600))
	assert.Equal(t, `import "lib/foo/A.sol";`, r.TransformLine(line))

	require.NoError(t, os.WriteFile(fp, []byte("@foo/=node_modules/@foo/\n"), 0o600))
	assert.Equal(t, `import "node_modules/@foo/A.sol";`, r.TransformLine(line))
}
