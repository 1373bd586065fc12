package deployments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"
)

const schemaDeploymentRecords = `
	CREATE TABLE IF NOT EXISTS deployment_records (
		network        TEXT NOT NULL,
		id             TEXT NOT NULL,
		contract_name  TEXT NOT NULL,
		address        TEXT NOT NULL,
		deployer       TEXT NOT NULL,
		tx_hash        TEXT NOT NULL,
		block_number   BIGINT NOT NULL,
		tags           TEXT NOT NULL,
		chain_id       BIGINT NOT NULL,
		deployed_at    TEXT NOT NULL
	);`

const recordColumns = `id, contract_name, address, deployer, tx_hash, block_number, tags, chain_id, deployed_at`

var _ Store = &SQLStore{}

// SQLStore keeps records in a SQL database, shared by every network and partitioned by network
// name.
type SQLStore struct {
	db      *sql.DB
	network string
}

// OpenSQLStore connects to the Postgres database at dsn and prepares the schema.
func OpenSQLStore(ctx context.Context, dsn, networkName string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := NewSQLStore(ctx, db, networkName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewSQLStore wraps an open database and prepares the schema.
func NewSQLStore(ctx context.Context, db *sql.DB, networkName string) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schemaDeploymentRecords); err != nil {
		return nil, fmt.Errorf("failed to create deployment records schema: %w", err)
	}

	return &SQLStore{db: db, network: networkName}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, networkName string) (Record, error) {
	var (
		r                         Record
		address, deployer, txHash string
		tags, deployedAt          string
		blockNumber, chainID      int64
	)
	if err := row.Scan(&r.ID, &r.ContractName, &address, &deployer, &txHash, &blockNumber, &tags, &chainID, &deployedAt); err != nil {
		return Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, deployedAt)
	if err != nil {
		return Record{}, fmt.Errorf("invalid deployed_at %q for record %q: %w", deployedAt, r.ID, err)
	}

	r.Address = common.HexToAddress(address)
	r.Deployer = common.HexToAddress(deployer)
	r.TxHash = common.HexToHash(txHash)
	r.BlockNumber = uint64(blockNumber)
	r.Tags = ParseLabelSet(tags)
	r.Network = networkName
	r.ChainID = uint64(chainID)
	r.DeployedAt = ts

	return r, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM deployment_records WHERE network = $1 AND id = $2`,
		s.network, id,
	)

	r, err := scanRecord(row, s.network)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, notFound(id)
		}

		return Record{}, fmt.Errorf("failed to get record %q: %w", id, err)
	}

	return r, nil
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, r Record) (err error) {
	if err = r.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	var count int64
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deployment_records WHERE network = $1 AND id = $2`, s.network, r.ID,
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to check record %q: %w", r.ID, err)
	}
	if count > 0 {
		return exists(r.ID)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO deployment_records (network, `+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.network,
		r.ID,
		r.ContractName,
		r.Address.Hex(),
		r.Deployer.Hex(),
		r.TxHash.Hex(),
		int64(r.BlockNumber),
		r.Tags.String(),
		int64(r.ChainID),
		r.DeployedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to insert record %q: %w", r.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record %q: %w", r.ID, err)
	}

	return nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM deployment_records WHERE network = $1 ORDER BY id`, s.network,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows, s.network)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Reset implements Store.
func (s *SQLStore) Reset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM deployment_records WHERE network = $1 AND id = $2`, s.network, id,
	); err != nil {
		return fmt.Errorf("failed to reset record %q: %w", id, err)
	}

	return nil
}
