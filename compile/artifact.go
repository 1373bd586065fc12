package compile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrArtifactNotFound is returned when no artifact exists for a contract name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is the compiled form of one contract.
type Artifact struct {
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         hexutil.Bytes   `json:"bytecode"`
	DeployedBytecode hexutil.Bytes   `json:"deployedBytecode"`
}

// ArtifactStore reads and writes artifacts as <dir>/<ContractName>.json.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore returns a store rooted at dir. The directory is created on first save.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the artifacts directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

func (s *ArtifactStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save writes a, replacing any artifact with the same contract name.
func (s *ArtifactStore) Save(a Artifact) error {
	if a.ContractName == "" {
		return errors.New("artifact contract name is required")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", a.ContractName, err)
	}

	if err = os.WriteFile(s.path(a.ContractName), data, 0o644); err != nil { //nolint:gosec // artifacts are public
		return fmt.Errorf("failed to write artifact %s: %w", a.ContractName, err)
	}

	return nil
}

// Load reads the artifact of the named contract.
func (s *ArtifactStore) Load(name string) (Artifact, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%w: %s (run compile first)", ErrArtifactNotFound, name)
		}

		return Artifact{}, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}

	var a Artifact
	if err = json.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("failed to unmarshal artifact %s: %w", name, err)
	}
	if len(a.Bytecode) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no bytecode", name)
	}

	return a, nil
}
