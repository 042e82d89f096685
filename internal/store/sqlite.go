package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Tilak559/gutter-estimate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS estimates (
	id              TEXT PRIMARY KEY,
	address         TEXT NOT NULL,
	roof_type       TEXT NOT NULL,
	confidence      REAL NOT NULL,
	total_gutter_ft REAL NOT NULL,
	report          TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_estimates_address ON estimates(address);
CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEstimate(ctx context.Context, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO estimates (id, address, roof_type, confidence, total_gutter_ft, report, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.Address,
		string(report.GutterEstimate.RoofType),
		report.GutterEstimate.Confidence,
		report.GutterEstimate.TotalGutterFt,
		string(reportJSON),
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert estimate %s", report.ID)
}

func (s *SQLiteStore) GetEstimate(ctx context.Context, id string) (*model.Report, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM estimates WHERE id = ?`, id,
	).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get estimate %s", id)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal estimate %s", id)
	}
	return &report, nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]EstimateRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address, roof_type, confidence, total_gutter_ft, created_at
		 FROM estimates ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list estimates")
	}
	defer rows.Close() //nolint:errcheck

	var out []EstimateRecord
	for rows.Next() {
		var rec EstimateRecord
		if err := rows.Scan(&rec.ID, &rec.Address, &rec.RoofType, &rec.Confidence, &rec.TotalGutterFt, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan estimate row")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate estimates")
}
