package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/internal/scenario"
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
CREATE TABLE IF NOT EXISTS datasets (
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (name, kind)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	config     TEXT NOT NULL,
	summary    TEXT NOT NULL,
	rows       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_datasets_county ON datasets(county_fips);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) saveDataset(ctx context.Context, name string, kind DatasetKind, countyFIPS string, rows int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal %s dataset", kind)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (name, kind, county_fips, row_count, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name, kind) DO UPDATE SET
			county_fips = excluded.county_fips,
			row_count   = excluded.row_count,
			data        = excluded.data,
			created_at  = excluded.created_at`,
		name, string(kind), countyFIPS, rows, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save %s dataset %s", kind, name)
}

func (s *SQLiteStore) loadDataset(ctx context.Context, name string, kind DatasetKind, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM datasets WHERE name = ? AND kind = ?`,
		name, string(kind),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return eris.Errorf("store: %s dataset not found: %s", kind, name)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: load %s dataset %s", kind, name)
	}
	return eris.Wrapf(json.Unmarshal([]byte(data), out), "sqlite: unmarshal %s dataset %s", kind, name)
}

func (s *SQLiteStore) SaveParcels(ctx context.Context, name, countyFIPS string, parcels []model.ParcelRecord) error {
	return s.saveDataset(ctx, name, DatasetParcels, countyFIPS, len(parcels), parcels)
}

func (s *SQLiteStore) LoadParcels(ctx context.Context, name string) ([]model.ParcelRecord, error) {
	var parcels []model.ParcelRecord
	if err := s.loadDataset(ctx, name, DatasetParcels, &parcels); err != nil {
		return nil, err
	}
	return parcels, nil
}

func (s *SQLiteStore) SaveTracts(ctx context.Context, name, countyFIPS string, tracts []model.CensusTract) error {
	return s.saveDataset(ctx, name, DatasetTracts, countyFIPS, len(tracts), tracts)
}

func (s *SQLiteStore) LoadTracts(ctx context.Context, name string) ([]model.CensusTract, error) {
	var tracts []model.CensusTract
	if err := s.loadDataset(ctx, name, DatasetTracts, &tracts); err != nil {
		return nil, err
	}
	return tracts, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, county_fips, row_count, created_at FROM datasets ORDER BY name, kind`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Name, &info.Kind, &info.CountyFIPS, &info.Rows, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, dataset string, result *scenario.Result) (*RunRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	configJSON, err := json.Marshal(result.Config)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run config")
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run summary")
	}
	rowsJSON, err := json.Marshal(result.Rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run rows")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, config, summary, rows, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, dataset, string(configJSON), string(summaryJSON), string(rowsJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &RunRecord{
		ID:        id,
		Dataset:   dataset,
		Config:    result.Config,
		Summary:   result.Summary,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, *scenario.Result, error) {
	var rec RunRecord
	var configJSON, summaryJSON, rowsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, config, summary, rows, created_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&rec.ID, &rec.Dataset, &configJSON, &summaryJSON, &rowsJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, eris.Errorf("store: run not found: %s", runID)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	var result scenario.Result
	if err := json.Unmarshal([]byte(configJSON), &result.Config); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal run config")
	}
	if err := json.Unmarshal([]byte(summaryJSON), &result.Summary); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal run summary")
	}
	if err := json.Unmarshal([]byte(rowsJSON), &result.Rows); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal run rows")
	}

	rec.Config = result.Config
	rec.Summary = result.Summary
	return &rec, &result, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, dataset, config, summary, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var configJSON, summaryJSON string
		if err := rows.Scan(&rec.ID, &rec.Dataset, &configJSON, &summaryJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(configJSON), &rec.Config); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run config")
		}
		if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
		}
		runs = append(runs, rec)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
