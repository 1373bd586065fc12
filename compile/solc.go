package compile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Input is a solc standard-JSON input.
type Input struct {
	Language string            `json:"language"`
	Sources  map[string]Source `json:"sources"`
	Settings Settings          `json:"settings"`
}

// Source is one entry of Input.Sources.
type Source struct {
	Content string `json:"content"`
}

// Settings is the settings block of Input.
type Settings struct {
	Optimizer       OptimizerSettings              `json:"optimizer"`
	Metadata        MetadataSettings               `json:"metadata"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

type OptimizerSettings struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

type MetadataSettings struct {
	BytecodeHash string `json:"bytecodeHash"`
}

// Output is the subset of the solc standard-JSON output the compile pass reads.
type Output struct {
	Errors    []OutputError                        `json:"errors,omitempty"`
	Contracts map[string]map[string]OutputContract `json:"contracts,omitempty"`
}

type OutputError struct {
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

type OutputContract struct {
	ABI json.RawMessage `json:"abi"`
	EVM struct {
		Bytecode         OutputBytecode `json:"bytecode"`
		DeployedBytecode OutputBytecode `json:"deployedBytecode"`
	} `json:"evm"`
}

type OutputBytecode struct {
	Object string `json:"object"`
}

// Err joins the error-severity diagnostics of o, or returns nil when there are none.
func (o Output) Err() error {
	var errs []error
	for _, e := range o.Errors {
		if e.Severity != "error" {
			continue
		}
		msg := e.FormattedMessage
		if msg == "" {
			msg = e.Message
		}
		errs = append(errs, errors.New(strings.TrimSpace(msg)))
	}

	return errors.Join(errs...)
}

// Compiler compiles a standard-JSON input.
type Compiler interface {
	Compile(ctx context.Context, in Input) (Output, error)
}

// VersionedCompiler is a Compiler that can report its own version. The compile pass refuses to
// run one whose version differs from the project's.
type VersionedCompiler interface {
	Compiler
	Version(ctx context.Context) (*semver.Version, error)
}

// ErrVersionMismatch is returned when the compiler is not the version the project pins.
var ErrVersionMismatch = errors.New("compiler version mismatch")

var _ VersionedCompiler = (*SolcCompiler)(nil)

var solcVersionRe = regexp.MustCompile(`Version: (\d+\.\d+\.\d+)`)

// SolcCompiler runs a solc binary in standard-JSON mode. Imports missing from the input are
// resolved from the filesystem relative to Dir.
type SolcCompiler struct {
	Binary string
	Dir    string
}

// NewSolcCompiler returns a compiler running the solc binary found on PATH from dir.
func NewSolcCompiler(dir string) *SolcCompiler {
	return &SolcCompiler{Binary: "solc", Dir: dir}
}

// Version reports the version of the solc binary.
func (c *SolcCompiler) Version(ctx context.Context) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, c.Binary, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run %s --version: %w", c.Binary, err)
	}

	m := solcVersionRe.FindSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("unrecognized %s version output: %q", c.Binary, out)
	}

	return semver.StrictNewVersion(string(m[1]))
}

// Compile implements Compiler.
func (c *SolcCompiler) Compile(ctx context.Context, in Input) (Output, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return Output{}, fmt.Errorf("failed to marshal compiler input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, "--standard-json", "--base-path", ".", "--allow-paths", ".")
	cmd.Dir = c.Dir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		return Output{}, fmt.Errorf("%s failed: %w: %s", c.Binary, err, strings.TrimSpace(stderr.String()))
	}

	var out Output
	if err = json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Output{}, fmt.Errorf("failed to unmarshal compiler output: %w", err)
	}

	return out, nil
}
