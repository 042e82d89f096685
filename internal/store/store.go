// Package store persists completed gutter estimates for history queries
// and report retrieval. SQLite is the default for single-machine use;
// Postgres serves shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
)

// EstimateRecord is a history row: the report headline without imagery.
type EstimateRecord struct {
	ID            string    `json:"id"`
	Address       string    `json:"address"`
	RoofType      string    `json:"roof_type"`
	Confidence    float64   `json:"confidence"`
	TotalGutterFt float64   `json:"total_gutter_ft"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store defines the persistence interface for estimate reports.
type Store interface {
	SaveEstimate(ctx context.Context, report *model.Report) error
	GetEstimate(ctx context.Context, id string) (*model.Report, error)
	ListRecent(ctx context.Context, limit int) ([]EstimateRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver and applies migrations.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
