package audit

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresRecorder stores the journal in the admin_audit table.
type PostgresRecorder struct {
	db     *sql.DB
	logger *logrus.Logger
}

// OpenPostgres connects, waits for the database to accept connections and
// creates the journal table when missing.
func OpenPostgres(ctx context.Context, dsn string, logger *logrus.Logger) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.WithError(err).Info("Waiting for database...")
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &PostgresRecorder{db: db, logger: logger}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS admin_audit (
			id VARCHAR(64) PRIMARY KEY,
			mutation_id VARCHAR(64) NOT NULL UNIQUE,
			action VARCHAR(64) NOT NULL,
			resource_id VARCHAR(255),
			families TEXT[] NOT NULL,
			actor VARCHAR(255),
			source VARCHAR(255) NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_audit_occurred_at ON admin_audit(occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_audit_resource_id ON admin_audit(resource_id)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts e. Replays of an already recorded mutation are ignored.
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	const query = `
		INSERT INTO admin_audit (id, mutation_id, action, resource_id, families, actor, source, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (mutation_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.MutationID, e.Action, e.ResourceID, pq.Array(e.Families),
		e.Actor, e.Source, e.OccurredAt, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"mutation_id": e.MutationID,
		"action":      e.Action,
	}).Debug("Audit entry stored")
	return nil
}

// Recent returns the newest entries first.
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT id, mutation_id, action, COALESCE(resource_id, ''), families, COALESCE(actor, ''), source, occurred_at, recorded_at
		FROM admin_audit
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.MutationID, &e.Action, &e.ResourceID, pq.Array(&e.Families),
			&e.Actor, &e.Source, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}

// IsRetryable reports whether a recording failure may succeed later.
// Connection and resource errors are retryable; data errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57", "58":
			return true
		}
		return false
	}
	return false
}
