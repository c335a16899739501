// Package store persists fetched datasets and scenario runs, on SQLite by
// default and PostgreSQL when a connection string is configured.
package store

import (
	"context"
	"time"

	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/internal/scenario"
)

// DatasetKind distinguishes the two table snapshots a dataset can hold.
type DatasetKind string

const (
	DatasetParcels DatasetKind = "parcels"
	DatasetTracts  DatasetKind = "tracts"
)

// DatasetInfo describes one stored dataset snapshot.
type DatasetInfo struct {
	Name       string      `json:"name"`
	Kind       DatasetKind `json:"kind"`
	CountyFIPS string      `json:"county_fips"`
	Rows       int         `json:"rows"`
	CreatedAt  time.Time   `json:"created_at"`
}

// RunRecord is the stored header of one scenario run.
type RunRecord struct {
	ID        string           `json:"id"`
	Dataset   string           `json:"dataset"`
	Config    scenario.Config  `json:"config"`
	Summary   scenario.Summary `json:"summary"`
	CreatedAt time.Time        `json:"created_at"`
}

// RunFilter specifies criteria for listing scenario runs.
type RunFilter struct {
	Dataset string `json:"dataset,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the LVT toolkit.
type Store interface {
	// Dataset snapshots. Saving under an existing name replaces the snapshot.
	SaveParcels(ctx context.Context, name, countyFIPS string, parcels []model.ParcelRecord) error
	LoadParcels(ctx context.Context, name string) ([]model.ParcelRecord, error)
	SaveTracts(ctx context.Context, name, countyFIPS string, tracts []model.CensusTract) error
	LoadTracts(ctx context.Context, name string) ([]model.CensusTract, error)
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)

	// Scenario runs.
	SaveRun(ctx context.Context, dataset string, result *scenario.Result) (*RunRecord, error)
	GetRun(ctx context.Context, runID string) (*RunRecord, *scenario.Result, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
