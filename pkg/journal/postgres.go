package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSink writes entries into a PostgreSQL table.
type PostgresSink struct {
	db    *sql.DB
	table string
}

// OpenPostgres connects with the lib/pq driver and prepares the journal table.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenPostgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenPostgres: ping: %w", err)
	}

	sink := NewPostgresSink(db, table)
	if err := sink.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewPostgresSink wraps an existing connection pool.
func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	if table == "" {
		table = "dex_journal"
	}
	return &PostgresSink{db: db, table: table}
}

// Migrate creates the journal table if it does not exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          UUID PRIMARY KEY,
	height      BIGINT NOT NULL,
	block_time  TIMESTAMPTZ NOT NULL,
	operation   TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	attributes  JSONB NOT NULL
)`, pq.QuoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}

// Record implements Sink. All entries of one call land in one transaction.
func (s *PostgresSink) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Record: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := fmt.Sprintf(
		`INSERT INTO %s (id, height, block_time, operation, event_type, attributes) VALUES ($1, $2, $3, $4, $5, $6)`,
		pq.QuoteIdentifier(s.table),
	)
	for _, e := range entries {
		attrs, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("Record: encode attributes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, e.ID, e.Height, e.Time, e.Operation, e.EventType, attrs); err != nil {
			return fmt.Errorf("Record: insert %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Record: commit: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
