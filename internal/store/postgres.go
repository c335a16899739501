package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/parcelworks/lvt-cli/internal/db"
	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/internal/scenario"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name, kind)
);

CREATE TABLE IF NOT EXISTS parcel_rows (
	dataset           TEXT NOT NULL,
	parcel_id         TEXT NOT NULL,
	geo_id            TEXT NOT NULL DEFAULT '',
	land_value        DOUBLE PRECISION NOT NULL,
	improvement_value DOUBLE PRECISION NOT NULL,
	current_tax       DOUBLE PRECISION NOT NULL,
	millage_rate      DOUBLE PRECISION NOT NULL DEFAULT 0,
	exemption         DOUBLE PRECISION NOT NULL DEFAULT 0,
	exempt            BOOLEAN NOT NULL DEFAULT false,
	percentage_cap    DOUBLE PRECISION NOT NULL DEFAULT 0,
	address           TEXT NOT NULL DEFAULT '',
	longitude         DOUBLE PRECISION NOT NULL DEFAULT 0,
	latitude          DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (dataset, parcel_id)
);

CREATE TABLE IF NOT EXISTS tract_rows (
	dataset    TEXT NOT NULL,
	geo_id     TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	covariates JSONB NOT NULL,
	labels     JSONB NOT NULL,
	PRIMARY KEY (dataset, geo_id)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset    TEXT NOT NULL,
	config     JSONB NOT NULL,
	summary    JSONB NOT NULL,
	rows       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_parcel_rows_geo_id ON parcel_rows(dataset, geo_id);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

var parcelColumns = []string{
	"dataset", "parcel_id", "geo_id", "land_value", "improvement_value",
	"current_tax", "millage_rate", "exemption", "exempt", "percentage_cap",
	"address", "longitude", "latitude",
}

func (s *PostgresStore) SaveParcels(ctx context.Context, name, countyFIPS string, parcels []model.ParcelRecord) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM parcel_rows WHERE dataset = $1`, name); err != nil {
		return eris.Wrapf(err, "postgres: clear parcel dataset %s", name)
	}

	rows := make([][]any, 0, len(parcels))
	for _, p := range parcels {
		rows = append(rows, []any{
			name, p.ParcelID, p.GeoID, p.LandValue, p.ImprovementValue,
			p.CurrentTax, p.MillageRate, p.Exemption, p.Exempt, p.PercentageCap,
			p.Address, p.Longitude, p.Latitude,
		})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "parcel_rows", parcelColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy parcel dataset %s", name)
	}

	return s.upsertDatasetInfo(ctx, name, DatasetParcels, countyFIPS, len(parcels))
}

func (s *PostgresStore) LoadParcels(ctx context.Context, name string) ([]model.ParcelRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT parcel_id, geo_id, land_value, improvement_value, current_tax,
			millage_rate, exemption, exempt, percentage_cap, address, longitude, latitude
		 FROM parcel_rows WHERE dataset = $1 ORDER BY parcel_id`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load parcel dataset %s", name)
	}
	defer rows.Close()

	var parcels []model.ParcelRecord
	for rows.Next() {
		var p model.ParcelRecord
		err := rows.Scan(&p.ParcelID, &p.GeoID, &p.LandValue, &p.ImprovementValue, &p.CurrentTax,
			&p.MillageRate, &p.Exemption, &p.Exempt, &p.PercentageCap, &p.Address, &p.Longitude, &p.Latitude)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan parcel")
		}
		parcels = append(parcels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: load parcel dataset %s iterate", name)
	}
	if len(parcels) == 0 {
		return nil, eris.Errorf("store: parcels dataset not found: %s", name)
	}
	return parcels, nil
}

func (s *PostgresStore) SaveTracts(ctx context.Context, name, countyFIPS string, tracts []model.CensusTract) error {
	rows := make([][]any, 0, len(tracts))
	for _, t := range tracts {
		covJSON, err := json.Marshal(t.Covariates)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal covariates")
		}
		labelJSON, err := json.Marshal(t.Labels)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal labels")
		}
		rows = append(rows, []any{name, t.GeoID, t.Name, covJSON, labelJSON})
	}

	cfg := db.UpsertConfig{
		Table:        "tract_rows",
		Columns:      []string{"dataset", "geo_id", "name", "covariates", "labels"},
		ConflictKeys: []string{"dataset", "geo_id"},
	}
	if _, err := db.BulkUpsert(ctx, s.pool, cfg, rows); err != nil {
		return eris.Wrapf(err, "postgres: upsert tract dataset %s", name)
	}

	return s.upsertDatasetInfo(ctx, name, DatasetTracts, countyFIPS, len(tracts))
}

func (s *PostgresStore) LoadTracts(ctx context.Context, name string) ([]model.CensusTract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geo_id, name, covariates, labels FROM tract_rows WHERE dataset = $1 ORDER BY geo_id`,
		name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load tract dataset %s", name)
	}
	defer rows.Close()

	var tracts []model.CensusTract
	for rows.Next() {
		var t model.CensusTract
		var covJSON, labelJSON []byte
		if err := rows.Scan(&t.GeoID, &t.Name, &covJSON, &labelJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tract")
		}
		if err := json.Unmarshal(covJSON, &t.Covariates); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal covariates")
		}
		if err := json.Unmarshal(labelJSON, &t.Labels); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal labels")
		}
		tracts = append(tracts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: load tract dataset %s iterate", name)
	}
	if len(tracts) == 0 {
		return nil, eris.Errorf("store: tracts dataset not found: %s", name)
	}
	return tracts, nil
}

func (s *PostgresStore) upsertDatasetInfo(ctx context.Context, name string, kind DatasetKind, countyFIPS string, rowCount int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (name, kind, county_fips, row_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name, kind) DO UPDATE SET
			county_fips = EXCLUDED.county_fips,
			row_count   = EXCLUDED.row_count,
			created_at  = EXCLUDED.created_at`,
		name, string(kind), countyFIPS, rowCount, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert dataset info %s/%s", name, kind)
}

func (s *PostgresStore) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, kind, county_fips, row_count, created_at FROM datasets ORDER BY name, kind`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Name, &info.Kind, &info.CountyFIPS, &info.Rows, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) SaveRun(ctx context.Context, dataset string, result *scenario.Result) (*RunRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	configJSON, err := json.Marshal(result.Config)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run config")
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run summary")
	}
	rowsJSON, err := json.Marshal(result.Rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run rows")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, dataset, config, summary, rows, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, dataset, configJSON, summaryJSON, rowsJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &RunRecord{
		ID:        id,
		Dataset:   dataset,
		Config:    result.Config,
		Summary:   result.Summary,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunRecord, *scenario.Result, error) {
	var rec RunRecord
	var configJSON, summaryJSON, rowsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, dataset, config, summary, rows, created_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&rec.ID, &rec.Dataset, &configJSON, &summaryJSON, &rowsJSON, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil, eris.Errorf("store: run not found: %s", runID)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	var result scenario.Result
	if err := json.Unmarshal(configJSON, &result.Config); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal run config")
	}
	if err := json.Unmarshal(summaryJSON, &result.Summary); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal run summary")
	}
	if err := json.Unmarshal(rowsJSON, &result.Rows); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal run rows")
	}

	rec.Config = result.Config
	rec.Summary = result.Summary
	return &rec, &result, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, dataset, config, summary, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Dataset != "" {
		args = append(args, filter.Dataset)
		query += ` AND dataset = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var configJSON, summaryJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Dataset, &configJSON, &summaryJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run config")
		}
		if err := json.Unmarshal(summaryJSON, &rec.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run summary")
		}
		runs = append(runs, rec)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
