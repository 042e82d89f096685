package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Tilak559/gutter-estimate/internal/db"
	"github.com/Tilak559/gutter-estimate/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS estimates (
	id              TEXT PRIMARY KEY,
	address         TEXT NOT NULL,
	roof_type       TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	total_gutter_ft DOUBLE PRECISION NOT NULL,
	report          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_estimates_address ON estimates(address);
CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveEstimate(ctx context.Context, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO estimates (id, address, roof_type, confidence, total_gutter_ft, report, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ID,
		report.Address,
		string(report.GutterEstimate.RoofType),
		report.GutterEstimate.Confidence,
		report.GutterEstimate.TotalGutterFt,
		reportJSON,
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert estimate %s", report.ID)
}

func (s *PostgresStore) GetEstimate(ctx context.Context, id string) (*model.Report, error) {
	var reportJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM estimates WHERE id = $1`, id,
	).Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get estimate %s", id)
	}

	var report model.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal estimate %s", id)
	}
	return &report, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]EstimateRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, address, roof_type, confidence, total_gutter_ft, created_at
		 FROM estimates ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list estimates")
	}
	defer rows.Close()

	var out []EstimateRecord
	for rows.Next() {
		var rec EstimateRecord
		if err := rows.Scan(&rec.ID, &rec.Address, &rec.RoofType, &rec.Confidence, &rec.TotalGutterFt, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan estimate row")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate estimates")
}
