package deployments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// chainIDFile marks which chain a network directory belongs to.
const chainIDFile = ".chainId"

var (
	_ Store = &FileStore{}

	// validID restricts ids to names that are safe as file names.
	validID = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// FileStore keeps one JSON file per record under <root>/<network>/. The directory also holds a
// .chainId marker; opening it for a different chain fails so records never cross networks.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore opens (creating if needed) the record directory of a network.
func NewFileStore(root, networkName string, chainID uint64) (*FileStore, error) {
	dir := filepath.Join(root, networkName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create deployments directory: %w", err)
	}

	marker := filepath.Join(dir, chainIDFile)
	data, err := os.ReadFile(marker)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err = os.WriteFile(marker, []byte(strconv.FormatUint(chainID, 10)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write chain id marker: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read chain id marker: %w", err)
	default:
		got, perr := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("invalid chain id marker %s: %w", marker, perr)
		}
		if got != chainID {
			return nil, fmt.Errorf("deployments directory %s belongs to chain %d, not %d", dir, got, chainID)
		}
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the records.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid deployment id %q", id)
	}

	return filepath.Join(s.dir, id+".json"), nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(id)
}

func (s *FileStore) read(id string) (Record, error) {
	fp, err := s.path(id)
	if err != nil {
		return Record{}, err
	}

	data, err := os.ReadFile(fp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, notFound(id)
		}

		return Record{}, fmt.Errorf("failed to read record %q: %w", id, err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record %q: %w", id, err)
	}

	return r, nil
}

// Save implements Store. The record is written to a temporary file and renamed into place so a
// crash never leaves a partial record.
func (s *FileStore) Save(_ context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fp, err := s.path(r.ID)
	if err != nil {
		return err
	}
	if _, err = os.Stat(fp); err == nil {
		return exists(r.ID)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %q: %w", r.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+r.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write record %q: %w", r.ID, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record %q: %w", r.ID, err)
	}

	return os.Rename(tmp.Name(), fp)
}

// List implements Store.
func (s *FileStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(ids)

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		r, err := s.read(id)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, nil
}

// Reset implements Store.
func (s *FileStore) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp, err := s.path(id)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to reset record %q: %w", id, err)
	}

	return nil
}
