package deployments

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewFileStore_ChainIDMarker(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	s, err := NewFileStore(root, "goerli", 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "goerli"), s.Dir())

	data, err := os.ReadFile(filepath.Join(root, "goerli", ".chainId"))
	require.NoError(t, err)
	assert.Equal(t, "5", string(data))

	_, err = NewFileStore(root, "goerli", 5)
	require.NoError(t, err)

	_, err = NewFileStore(root, "goerli", 1)
	require.ErrorContains(t, err, "belongs to chain 5, not 1")
}

func Test_FileStore_Layout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), "hardhat", 31337)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, newTestRecord("BarDeployment")))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "BarDeployment.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Bar", raw["contractName"])
	assert.Equal(t, []any{"Deployment"}, raw["tags"])
	assert.Equal(t, newTestRecord("").Address, common.HexToAddress(raw["address"].(string)))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary files must not survive a save")
	}
}

func Test_FileStore_RejectsUnsafeIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), "hardhat", 31337)
	require.NoError(t, err)

	_, err = s.Get(ctx, "../escape")
	require.ErrorContains(t, err, `invalid deployment id "../escape"`)

	require.ErrorContains(t, s.Save(ctx, newTestRecord("a/b")), `invalid deployment id "a/b"`)
}
