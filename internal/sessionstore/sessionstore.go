// Package sessionstore is an optional durable ledger of shard resume state.
// The cluster writes records to it but never calls Load, so a restarted
// cluster identifies every shard afresh. Grounded on the teacher's
// internal/database.NewDatabase/Close/Ping/schema pattern (lib/pq, a
// schema constant executed with CREATE TABLE IF NOT EXISTS, and a prepared
// ping statement kept warm for low-latency health checks).
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"shardcore/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS shard_sessions (
    shard_id    INTEGER PRIMARY KEY,
    session_id  TEXT NOT NULL,
    sequence    BIGINT NOT NULL,
    updated_at  BIGINT NOT NULL
);
`

// Store is a durable record of each shard's last known session id and
// sequence number, keyed by shard index.
type Store struct {
	log        *zap.Logger
	db         *sql.DB
	pingStmt   *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
}

// Record is one shard's resume state.
type Record struct {
	ShardID   int
	SessionID string
	Sequence  int64
	UpdatedAt time.Time
}

// Open dials postgres, applies the schema, and prepares the statements this
// store uses on the hot path, mirroring the teacher's pre-warmed
// PreparedPingStmt.
func Open(log *zap.Logger, cfg config.PostgresConfig) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sessionstore: init schema: %w", err)
	}

	pingStmt, err := db.Prepare("SELECT 1")
	if err != nil {
		return nil, fmt.Errorf("sessionstore: prepare ping: %w", err)
	}
	upsertStmt, err := db.Prepare(`
		INSERT INTO shard_sessions (shard_id, session_id, sequence, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shard_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    sequence = EXCLUDED.sequence,
		    updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: prepare upsert: %w", err)
	}
	deleteStmt, err := db.Prepare(`DELETE FROM shard_sessions WHERE shard_id = $1`)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: prepare delete: %w", err)
	}

	log.Info("sessionstore connected", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))

	return &Store{
		log:        log,
		db:         db,
		pingStmt:   pingStmt,
		upsertStmt: upsertStmt,
		deleteStmt: deleteStmt,
	}, nil
}

// Close releases the prepared statements and the underlying pool.
func (s *Store) Close() error {
	if s.pingStmt != nil {
		_ = s.pingStmt.Close()
	}
	if s.upsertStmt != nil {
		_ = s.upsertStmt.Close()
	}
	if s.deleteStmt != nil {
		_ = s.deleteStmt.Close()
	}
	return s.db.Close()
}

// Ping checks connectivity via the prepared statement, the same low-latency
// health check the teacher's Database.Ping performs.
func (s *Store) Ping() error {
	var result int
	return s.pingStmt.QueryRow().Scan(&result)
}

// Save upserts a shard's current resume state. The cluster calls it every
// 30 seconds while a shard reports ready.
func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.upsertStmt.ExecContext(ctx, rec.ShardID, rec.SessionID, rec.Sequence, rec.UpdatedAt.Unix())
	return err
}

// Load fetches a shard's last saved resume state, if any. A nil Record with
// a nil error means no prior session was recorded for this shard id.
func (s *Store) Load(ctx context.Context, shardID int) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT shard_id, session_id, sequence, updated_at FROM shard_sessions WHERE shard_id = $1`, shardID)

	var rec Record
	var updatedAt int64
	if err := row.Scan(&rec.ShardID, &rec.SessionID, &rec.Sequence, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// Forget deletes a shard's saved session. Nothing in this module calls it.
func (s *Store) Forget(ctx context.Context, shardID int) error {
	_, err := s.deleteStmt.ExecContext(ctx, shardID)
	return err
}
