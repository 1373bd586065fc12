// Package compile runs the compile pass: sources are read, their import lines remapped, and the
// result handed to a Compiler. Outputs are written as artifacts for the deploy pass to load.
package compile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/contractkit/deployer/config/project"
	"github.com/contractkit/deployer/pkg/logger"
	"github.com/contractkit/deployer/remap"
)

const cacheFile = "compile-cache.json"

type cacheEntry struct {
	InputHash string   `json:"inputHash"`
	Contracts []string `json:"contracts"`
}

// Summary describes a finished compile pass.
type Summary struct {
	Sources   int
	Contracts []string
	// Cached is set when the input was unchanged and the compiler was not invoked.
	Cached bool
}

// Pass compiles the sources of one project.
type Pass struct {
	root      string
	cfg       *project.Config
	compiler  Compiler
	artifacts *ArtifactStore
	lggr      logger.Logger
}

// NewPass returns a compile pass for the project rooted at root.
func NewPass(root string, cfg *project.Config, compiler Compiler, lggr logger.Logger) *Pass {
	if lggr == nil {
		lggr = logger.Nop()
	}

	return &Pass{
		root:      root,
		cfg:       cfg,
		compiler:  compiler,
		artifacts: NewArtifactStore(resolvePath(root, cfg.Paths.Artifacts)),
		lggr:      lggr.Named("compile"),
	}
}

// Artifacts returns the store the pass writes to.
func (p *Pass) Artifacts() *ArtifactStore {
	return p.artifacts
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(root, p)
}

// Sources reads every .sol file below the sources directory and remaps its import lines. The
// remapping table is loaded once for the call. Keys are slash separated paths relative to the
// project root.
func (p *Pass) Sources() (map[string]Source, error) {
	table := remap.Resolve(p.root)
	srcDir := resolvePath(p.root, p.cfg.Paths.Sources)
	sources := make(map[string]Source)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sol" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		name, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		sources[filepath.ToSlash(name)] = Source{Content: string(remap.TransformSource(data, table))}

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read sources from %s: %w", srcDir, err)
	}

	return sources, nil
}

// Input builds the compiler input for sources from the project's compiler settings.
func (p *Pass) Input(sources map[string]Source) Input {
	return Input{
		Language: "Solidity",
		Sources:  sources,
		Settings: Settings{
			Optimizer: OptimizerSettings{
				Enabled: p.cfg.Solidity.Optimizer.Enabled,
				Runs:    p.cfg.Solidity.Optimizer.Runs,
			},
			Metadata: MetadataSettings{BytecodeHash: p.cfg.Solidity.BytecodeHash},
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"abi", "evm.bytecode.object", "evm.deployedBytecode.object"}},
			},
		},
	}
}

// Run compiles the project. It does nothing when the compiler input is identical to the one of
// the last successful run and its artifacts still exist. Otherwise a compiler that reports its
// version must match the pinned solidity version.
func (p *Pass) Run(ctx context.Context) (Summary, error) {
	sources, err := p.Sources()
	if err != nil {
		return Summary{}, err
	}
	if len(sources) == 0 {
		p.lggr.Warnw("No sources found", "dir", p.cfg.Paths.Sources)
		return Summary{}, nil
	}

	in := p.Input(sources)
	hash, err := inputHash(p.cfg.Solidity.Version, in)
	if err != nil {
		return Summary{}, err
	}

	cachePath := filepath.Join(resolvePath(p.root, p.cfg.Paths.Cache), cacheFile)
	if prev, ok := readCache(cachePath); ok && prev.InputHash == hash && p.artifactsExist(prev.Contracts) {
		p.lggr.Infow("Nothing to compile", "sources", len(sources))
		return Summary{Sources: len(sources), Contracts: prev.Contracts, Cached: true}, nil
	}

	if err = p.checkVersion(ctx); err != nil {
		return Summary{}, err
	}

	p.lggr.Infow("Compiling", "sources", len(sources), "solc", p.cfg.Solidity.Version)
	out, err := p.compiler.Compile(ctx, in)
	if err != nil {
		return Summary{}, err
	}
	if err = out.Err(); err != nil {
		return Summary{}, fmt.Errorf("compilation failed: %w", err)
	}
	for _, e := range out.Errors {
		if e.Severity == "warning" {
			p.lggr.Warn(strings.TrimSpace(e.FormattedMessage))
		}
	}

	names, err := p.writeArtifacts(out)
	if err != nil {
		return Summary{}, err
	}

	if err = writeCache(cachePath, cacheEntry{InputHash: hash, Contracts: names}); err != nil {
		return Summary{}, err
	}
	p.lggr.Infow("Compiled", "contracts", names)

	return Summary{Sources: len(sources), Contracts: names}, nil
}

func (p *Pass) checkVersion(ctx context.Context) error {
	vc, ok := p.compiler.(VersionedCompiler)
	if !ok {
		return nil
	}

	want, err := p.cfg.Solidity.SemVer()
	if err != nil {
		return err
	}
	got, err := vc.Version(ctx)
	if err != nil {
		return err
	}
	if !got.Equal(want) {
		return fmt.Errorf("%w: project pins solc %s, installed solc is %s", ErrVersionMismatch, want, got)
	}

	return nil
}

func (p *Pass) writeArtifacts(out Output) ([]string, error) {
	seen := make(map[string]string)
	names := make([]string, 0)

	sourceNames := make([]string, 0, len(out.Contracts))
	for s := range out.Contracts {
		sourceNames = append(sourceNames, s)
	}
	sort.Strings(sourceNames)

	for _, sourceName := range sourceNames {
		for name, c := range out.Contracts[sourceName] {
			if other, ok := seen[name]; ok {
				return nil, fmt.Errorf("contract %s is defined in both %s and %s", name, other, sourceName)
			}
			seen[name] = sourceName

			a := Artifact{
				ContractName:     name,
				SourceName:       sourceName,
				ABI:              c.ABI,
				Bytecode:         common.FromHex(c.EVM.Bytecode.Object),
				DeployedBytecode: common.FromHex(c.EVM.DeployedBytecode.Object),
			}
			if err := p.artifacts.Save(a); err != nil {
				return nil, err
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

func (p *Pass) artifactsExist(names []string) bool {
	for _, n := range names {
		if _, err := os.Stat(p.artifacts.path(n)); err != nil {
			return false
		}
	}

	return true
}

func inputHash(version string, in Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal compiler input: %w", err)
	}

	sum := sha256.Sum256(append([]byte(version+"\n"), data...))

	return hex.EncodeToString(sum[:]), nil
}

func readCache(path string) (cacheEntry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheEntry{}, false
	}

	var e cacheEntry
	if err = json.Unmarshal(data, &e); err != nil {
		return cacheEntry{}, false
	}

	return e, true
}

func writeCache(path string, e cacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write compile cache: %w", err)
	}

	return nil
}
