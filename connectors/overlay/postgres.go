package overlay

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"rebar-stats/domain/shipment"
)

const schema = `
CREATE TABLE IF NOT EXISTS shipment_status (
	fingerprint TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

type statusRow struct {
	Fingerprint string    `db:"fingerprint"`
	Status      string    `db:"status"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PostgresStore keeps the overlay in the shipment_status table.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgres connects to dsn and makes sure the status table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to status database: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create shipment_status: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context) (shipment.Overlay, error) {
	var rows []statusRow
	err := s.db.SelectContext(ctx, &rows, `SELECT fingerprint, status, updated_at FROM shipment_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	ov := shipment.Overlay{}
	for _, r := range rows {
		st, err := shipment.ParseStatus(r.Status)
		if err != nil || st == shipment.StatusUnset {
			continue
		}
		ov[r.Fingerprint] = shipment.Entry{Status: st, UpdatedAt: r.UpdatedAt}
	}
	return ov, nil
}

// Save replaces the table contents with ov in one transaction.
func (s *PostgresStore) Save(ctx context.Context, ov shipment.Overlay) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shipment_status`); err != nil {
		return fmt.Errorf("failed to clear statuses: %w", err)
	}
	for fp, e := range ov {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO shipment_status (fingerprint, status, updated_at)
			VALUES (:fingerprint, :status, :updated_at)
			ON CONFLICT (fingerprint) DO UPDATE SET
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at`,
			statusRow{Fingerprint: fp, Status: e.Status.String(), UpdatedAt: e.UpdatedAt})
		if err != nil {
			return fmt.Errorf("failed to save status %s: %w", fp, err)
		}
	}
	return tx.Commit()
}
