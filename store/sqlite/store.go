// Package sqlite provides a durable SQLite-backed Store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xraph/streampay"
	"github.com/xraph/streampay/protocol"
	ledgerstore "github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite with WAL mode.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas automatically; call Migrate before first use.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("streampay/sqlite: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("streampay/sqlite: connect: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("streampay/sqlite: apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("streampay/sqlite: apply schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("streampay/sqlite: record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("streampay/sqlite: read schema version: %w", err)
	case version > currentSchemaVersion:
		return fmt.Errorf("streampay/sqlite: database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB { return s.db }

// GetConfig returns the protocol config singleton.
func (s *Store) GetConfig(ctx context.Context) (*protocol.Config, error) {
	var cfg protocol.Config
	err := s.db.QueryRowContext(ctx, `
		SELECT admin, treasury, fee_rate_bps, created_at, updated_at
		FROM protocol_config WHERE singleton = 1`,
	).Scan(&cfg.Admin, &cfg.Treasury, &cfg.FeeRateBps, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, streampay.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("streampay/sqlite: get config: %w", err)
	}
	return &cfg, nil
}

// PutConfig stores the protocol config singleton.
func (s *Store) PutConfig(ctx context.Context, cfg *protocol.Config) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO protocol_config (singleton, admin, treasury, fee_rate_bps, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton) DO UPDATE SET
			admin = excluded.admin,
			treasury = excluded.treasury,
			fee_rate_bps = excluded.fee_rate_bps,
			updated_at = excluded.updated_at`,
		cfg.Admin.String(), cfg.Treasury.String(), cfg.FeeRateBps,
		cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("streampay/sqlite: put config: %w", err)
	}
	return nil
}

// GetStream returns the stream record for streamID.
func (s *Store) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	var (
		rec                          stream.Stream
		sender, recipient, tokenAddr string
		rate, deposited, withdrawn   int64
		startTime, lastUpdate        int64
		isActive                     bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT sender, recipient, token_address, rate_per_second,
		       deposited_amount, withdrawn_amount, start_time,
		       last_update_time, is_active, created_at, updated_at
		FROM streams WHERE id = ?`, int64(streamID),
	).Scan(&sender, &recipient, &tokenAddr, &rate, &deposited, &withdrawn,
		&startTime, &lastUpdate, &isActive, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, streampay.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("streampay/sqlite: get stream %d: %w", streamID, err)
	}

	rec.Sender = types.Identity(sender)
	rec.Recipient = types.Identity(recipient)
	rec.Token = types.TokenAddress(tokenAddr)
	rec.RatePerSecond = types.Amount(rate)
	rec.Deposited = types.Amount(deposited)
	rec.Withdrawn = types.Amount(withdrawn)
	rec.StartTime = uint64(startTime)
	rec.LastUpdate = uint64(lastUpdate)
	rec.Active = isActive
	return &rec, nil
}

// PutStream stores the stream record under streamID.
func (s *Store) PutStream(ctx context.Context, streamID uint64, rec *stream.Stream) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streams (id, sender, recipient, token_address, rate_per_second,
		                     deposited_amount, withdrawn_amount, start_time,
		                     last_update_time, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			deposited_amount = excluded.deposited_amount,
			withdrawn_amount = excluded.withdrawn_amount,
			last_update_time = excluded.last_update_time,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		int64(streamID), rec.Sender.String(), rec.Recipient.String(), rec.Token.String(),
		rec.RatePerSecond.Int64(), rec.Deposited.Int64(), rec.Withdrawn.Int64(),
		int64(rec.StartTime), int64(rec.LastUpdate), rec.Active,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("streampay/sqlite: put stream %d: %w", streamID, err)
	}
	return nil
}

// NextStreamID allocates the next stream identifier, starting at 1.
func (s *Store) NextStreamID(ctx context.Context) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("streampay/sqlite: begin id allocation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var lastID int64
	if err := tx.QueryRowContext(ctx,
		"SELECT last_id FROM stream_sequence WHERE singleton = 1").Scan(&lastID); err != nil {
		return 0, fmt.Errorf("streampay/sqlite: read id sequence: %w", err)
	}

	next := lastID + 1
	if _, err := tx.ExecContext(ctx,
		"UPDATE stream_sequence SET last_id = ? WHERE singleton = 1", next); err != nil {
		return 0, fmt.Errorf("streampay/sqlite: advance id sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("streampay/sqlite: commit id allocation: %w", err)
	}
	return uint64(next), nil
}
