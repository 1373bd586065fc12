package deployments

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/proullon/ramsql/driver"
)

func newTestRecord(id string) Record {
	return Record{
		ID:           id,
		ContractName: "Bar",
		Address:      common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		Deployer:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		TxHash:       common.HexToHash("0x01"),
		BlockNumber:  7,
		Tags:         NewLabelSet("Deployment"),
		Network:      "hardhat",
		ChainID:      31337,
		DeployedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestSQLStore(t *testing.T, networkName string) *SQLStore {
	t.Helper()

	db, err := sql.Open("ramsql", t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLStore(t.Context(), db, networkName)
	require.NoError(t, err)

	return s
}

func Test_Stores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T) Store
	}{
		{
			name:  "memory",
			setup: func(t *testing.T) Store { return NewMemoryStore() },
		},
		{
			name: "file",
			setup: func(t *testing.T) Store {
				t.Helper()
				s, err := NewFileStore(t.TempDir(), "hardhat", 31337)
				require.NoError(t, err)

				return s
			},
		},
		{
			name:  "sql",
			setup: func(t *testing.T) Store { return newTestSQLStore(t, "hardhat") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := tt.setup(t)

			_, err := store.Get(ctx, "BarDeployment")
			require.ErrorIs(t, err, ErrRecordNotFound)

			rec := newTestRecord("BarDeployment")
			require.NoError(t, store.Save(ctx, rec))

			got, err := store.Get(ctx, "BarDeployment")
			require.NoError(t, err)
			assert.Equal(t, rec.ID, got.ID)
			assert.Equal(t, rec.ContractName, got.ContractName)
			assert.Equal(t, rec.Address, got.Address)
			assert.Equal(t, rec.Deployer, got.Deployer)
			assert.Equal(t, rec.TxHash, got.TxHash)
			assert.Equal(t, rec.BlockNumber, got.BlockNumber)
			assert.Equal(t, rec.ChainID, got.ChainID)
			assert.True(t, rec.Tags.Equal(got.Tags))
			assert.True(t, rec.DeployedAt.Equal(got.DeployedAt))

			err = store.Save(ctx, rec)
			require.ErrorIs(t, err, ErrRecordExists)

			require.NoError(t, store.Save(ctx, newTestRecord("AnotherDeployment")))

			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "AnotherDeployment", list[0].ID)
			assert.Equal(t, "BarDeployment", list[1].ID)

			require.NoError(t, store.Reset(ctx, "BarDeployment"))
			_, err = store.Get(ctx, "BarDeployment")
			require.ErrorIs(t, err, ErrRecordNotFound)

			require.NoError(t, store.Reset(ctx, "NeverDeployed"))
		})
	}
}

func Test_Stores_RejectInvalidRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		giveFunc func(*Record)
		wantErr  string
	}{
		{name: "missing id", giveFunc: func(r *Record) { r.ID = "" }, wantErr: "id is required"},
		{name: "missing name", giveFunc: func(r *Record) { r.ContractName = "" }, wantErr: "contract name is required"},
		{name: "missing address", giveFunc: func(r *Record) { r.Address = common.Address{} }, wantErr: "address is required"},
		{name: "missing chain", giveFunc: func(r *Record) { r.ChainID = 0 }, wantErr: "chain id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := newTestRecord("BarDeployment")
			tt.giveFunc(&rec)

			require.EqualError(t, NewMemoryStore().Save(context.Background(), rec), tt.wantErr)
		})
	}
}

func Test_SQLStore_PartitionsByNetwork(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("ramsql", t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	goerli, err := NewSQLStore(ctx, db, "goerli")
	require.NoError(t, err)
	mainnet, err := NewSQLStore(ctx, db, "mainnet")
	require.NoError(t, err)

	require.NoError(t, goerli.Save(ctx, newTestRecord("BarDeployment")))

	_, err = mainnet.Get(ctx, "BarDeployment")
	require.ErrorIs(t, err, ErrRecordNotFound)

	got, err := goerli.Get(ctx, "BarDeployment")
	require.NoError(t, err)
	assert.Equal(t, "goerli", got.Network)
}
