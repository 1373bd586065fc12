package compile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractkit/deployer/config/project"
	"github.com/contractkit/deployer/pkg/logger"
)

const barSource = `// SPDX-License-Identifier: MIT
pragma solidity 0.8.16;

import "@foo/Foo.sol";

contract Bar {}
`

type fakeCompiler struct {
	calls int
	input Input
	out   Output
	err   error
}

func (f *fakeCompiler) Compile(_ context.Context, in Input) (Output, error) {
	f.calls++
	f.input = in

	return f.out, f.err
}

func barOutput() Output {
	var c OutputContract
	c.ABI = json.RawMessage(`[]`)
	c.EVM.Bytecode.Object = "600a600c600039600a6000f3602a60005260206000f3"
	c.EVM.DeployedBytecode.Object = "602a60005260206000f3"

	return Output{
		Errors: []OutputError{{Severity: "warning", FormattedMessage: "Warning: unused variable\n"}},
		Contracts: map[string]map[string]OutputContract{
			"src/Bar.sol": {"Bar": c},
		},
	}
}

func setupProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Bar.sol"), []byte(barSource), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "nested", "README.md"), []byte("import me"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "remappings.txt"), []byte("@foo/=lib/foo/\n"), 0o600))

	return root
}

func Test_Pass_Sources(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	p := NewPass(root, project.Default(), &fakeCompiler{}, logger.Test(t))

	sources, err := p.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Contains(t, sources["src/Bar.sol"].Content, `import "lib/foo/Foo.sol";`)
	assert.Contains(t, sources["src/Bar.sol"].Content, "contract Bar {}")
}

func Test_Pass_Sources_MissingDir(t *testing.T) {
	t.Parallel()

	p := NewPass(t.TempDir(), project.Default(), &fakeCompiler{}, nil)

	sources, err := p.Sources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func Test_Pass_Input(t *testing.T) {
	t.Parallel()

	p := NewPass(t.TempDir(), project.Default(), &fakeCompiler{}, nil)
	in := p.Input(map[string]Source{"src/Bar.sol": {Content: "contract Bar {}"}})

	assert.Equal(t, "Solidity", in.Language)
	assert.True(t, in.Settings.Optimizer.Enabled)
	assert.Equal(t, 800, in.Settings.Optimizer.Runs)
	assert.Equal(t, "none", in.Settings.Metadata.BytecodeHash)
	assert.Contains(t, in.Settings.OutputSelection["*"]["*"], "abi")
}

func Test_Pass_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := setupProject(t)
	compiler := &fakeCompiler{out: barOutput()}
	p := NewPass(root, project.Default(), compiler, logger.Test(t))

	got, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bar"}, got.Contracts)
	assert.Equal(t, 1, got.Sources)
	assert.False(t, got.Cached)
	assert.Equal(t, 1, compiler.calls)

	a, err := p.Artifacts().Load("Bar")
	require.NoError(t, err)
	assert.Equal(t, "src/Bar.sol", a.SourceName)
	assert.Equal(t, common.FromHex("0x600a600c600039600a6000f3602a60005260206000f3"), []byte(a.Bytecode))
	assert.JSONEq(t, `[]`, string(a.ABI))

	again, err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, compiler.calls, "unchanged input must not be recompiled")

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Bar.sol"), []byte(barSource+"\n// changed\n"), 0o600))
	_, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.calls)
}

func Test_Pass_Run_RecompilesWhenArtifactMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := setupProject(t)
	compiler := &fakeCompiler{out: barOutput()}
	p := NewPass(root, project.Default(), compiler, nil)

	_, err := p.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(p.Artifacts().Dir(), "Bar.json")))

	_, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.calls)
}

func Test_Pass_Run_Errors(t *testing.T) {
	t.Parallel()

	errExec := errors.New("solc: not found")

	tests := []struct {
		name     string
		compiler *fakeCompiler
		wantErr  string
	}{
		{
			name:     "compiler failure",
			compiler: &fakeCompiler{err: errExec},
			wantErr:  "solc: not found",
		},
		{
			name: "diagnostics",
			compiler: &fakeCompiler{out: Output{Errors: []OutputError{
				{Severity: "error", FormattedMessage: "ParserError: Expected ';'\n"},
				{Severity: "warning", FormattedMessage: "ignored"},
			}}},
			wantErr: "compilation failed: ParserError: Expected ';'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPass(setupProject(t), project.Default(), tt.compiler, nil)
			_, err := p.Run(context.Background())
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func Test_Pass_Run_NoSources(t *testing.T) {
	t.Parallel()

	compiler := &fakeCompiler{}
	p := NewPass(t.TempDir(), project.Default(), compiler, nil)

	got, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Contracts)
	assert.Equal(t, 0, compiler.calls)
}

func Test_ArtifactStore(t *testing.T) {
	t.Parallel()

	s := NewArtifactStore(filepath.Join(t.TempDir(), "artifacts"))

	_, err := s.Load("Bar")
	require.ErrorIs(t, err, ErrArtifactNotFound)

	require.EqualError(t, s.Save(Artifact{}), "artifact contract name is required")

	require.NoError(t, s.Save(Artifact{ContractName: "Empty", ABI: json.RawMessage(`[]`)}))
	_, err = s.Load("Empty")
	require.EqualError(t, err, "artifact Empty has no bytecode")
}

// writeSolc writes a solc stand-in that reports version and answers every standard-JSON request
// with the Bar contract.
func writeSolc(t *testing.T, version string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("solc stand-in is a shell script")
	}

	out, err := json.Marshal(barOutput())
	require.NoError(t, err)

	script := fmt.Sprintf(`#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "solc, the solidity compiler commandline interface"
  echo "Version: %s+commit.07a7930e.Linux.g++"
  exit 0
fi
cat > /dev/null
cat <<'JSON'
%s
JSON
`, version, out)

	fp := filepath.Join(t.TempDir(), "solc")
	require.NoError(t, os.WriteFile(fp, []byte(script), 0o755)) //nolint:gosec // test executable

	return fp
}

func Test_SolcCompiler_Version(t *testing.T) {
	t.Parallel()

	c := &SolcCompiler{Binary: writeSolc(t, "0.8.26"), Dir: t.TempDir()}

	got, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.8.26", got.String())
}

func Test_Pass_Run_SolcVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		giveInstalled string
		wantErr       error
	}{
		{
			name:          "pinned version installed",
			giveInstalled: "0.8.16",
		},
		{
			name:          "newer version installed",
			giveInstalled: "0.8.26",
			wantErr:       ErrVersionMismatch,
		},
		{
			name:          "older version installed",
			giveInstalled: "0.8.9",
			wantErr:       ErrVersionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := setupProject(t)
			c := &SolcCompiler{Binary: writeSolc(t, tt.giveInstalled), Dir: root}
			p := NewPass(root, project.Default(), c, logger.Test(t))

			got, err := p.Run(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorContains(t, err, "project pins solc 0.8.16, installed solc is "+tt.giveInstalled)

				_, err = p.Artifacts().Load("Bar")
				require.ErrorIs(t, err, ErrArtifactNotFound)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, []string{"Bar"}, got.Contracts)

			a, err := p.Artifacts().Load("Bar")
			require.NoError(t, err)
			assert.Equal(t, "src/Bar.sol", a.SourceName)
		})
	}
}
