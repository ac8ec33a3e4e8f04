package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jackc/pgx/v5"

	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/pipeline"
	"github.com/lessardlab/nowclean/internal/spatial"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store against a shared lab database.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a PostgresStore to the given database URL.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	counts     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS occurrences (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	locality_id   BIGINT NOT NULL,
	locality_name TEXT,
	tax_order     TEXT,
	family        TEXT,
	genus         TEXT,
	species       TEXT,
	min_age       DOUBLE PRECISION,
	max_age       DOUBLE PRECISION,
	mid_age       DOUBLE PRECISION,
	stage         TEXT,
	lat           DOUBLE PRECISION,
	lon           DOUBLE PRECISION,
	paleo_lat     DOUBLE PRECISION,
	paleo_lon     DOUBLE PRECISION,
	region        TEXT,
	map_id        BIGINT,
	grid_cell     BIGINT
);

CREATE TABLE IF NOT EXISTS grid_cells (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	cell_index BIGINT NOT NULL,
	min_lon    DOUBLE PRECISION NOT NULL,
	min_lat    DOUBLE PRECISION NOT NULL,
	max_lon    DOUBLE PRECISION NOT NULL,
	max_lat    DOUBLE PRECISION NOT NULL,
	geom       BYTEA,
	PRIMARY KEY (run_id, cell_index)
);

CREATE TABLE IF NOT EXISTS run_summary (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	region      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	species     INTEGER NOT NULL,
	occurrences INTEGER NOT NULL,
	PRIMARY KEY (run_id, region, stage)
);

CREATE INDEX IF NOT EXISTS idx_occurrences_run_id ON occurrences(run_id);
CREATE INDEX IF NOT EXISTS idx_occurrences_region_stage ON occurrences(region, stage);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, source, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:        id,
		Source:    source,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, counts RunCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counts")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET counts = $1, status = $2, updated_at = $3 WHERE id = $4`,
		countsJSON, string(RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, counts, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		var counts []byte
		if err := rows.Scan(&r.ID, &r.Source, &status, &counts, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		if len(counts) > 0 {
			var c RunCounts
			if err := json.Unmarshal(counts, &c); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal counts")
			}
			r.Counts = &c
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) SaveOccurrences(ctx context.Context, runID string, occs []model.Occurrence) (int64, error) {
	var n int64
	for i := range occs {
		o := &occs[i]
		_, err := s.pool.Exec(ctx, `
			INSERT INTO occurrences (
				run_id, locality_id, locality_name, tax_order, family, genus, species,
				min_age, max_age, mid_age, stage, lat, lon, paleo_lat, paleo_lon,
				region, map_id, grid_cell
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			runID, o.LocalityID, o.LocalityName, o.TaxonOrder, o.Family, o.Genus, o.Species,
			o.MinAge, o.MaxAge, o.MidAge, nullString(o.Stage), o.Lat, o.Lon, o.PaleoLat, o.PaleoLon,
			nullString(o.Region), o.MapID, o.GridCell,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert occurrence %d", o.LocalityID)
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) GetOccurrences(ctx context.Context, runID string) ([]model.Occurrence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT locality_id, locality_name, tax_order, family, genus, species,
		       min_age, max_age, mid_age, stage, lat, lon, paleo_lat, paleo_lon,
		       region, map_id, grid_cell
		FROM occurrences WHERE run_id = $1`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query occurrences")
	}
	defer rows.Close()

	var occs []model.Occurrence
	for rows.Next() {
		var o model.Occurrence
		var stage, region *string
		if err := rows.Scan(
			&o.LocalityID, &o.LocalityName, &o.TaxonOrder, &o.Family, &o.Genus, &o.Species,
			&o.MinAge, &o.MaxAge, &o.MidAge, &stage, &o.Lat, &o.Lon, &o.PaleoLat, &o.PaleoLon,
			&region, &o.MapID, &o.GridCell,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan occurrence")
		}
		if stage != nil {
			o.Stage = *stage
		}
		if region != nil {
			o.Region = *region
		}
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

func (s *PostgresStore) SaveSummary(ctx context.Context, runID string, rows []pipeline.SummaryRow) error {
	for _, r := range rows {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO run_summary (run_id, region, stage, species, occurrences)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id, region, stage) DO UPDATE
			SET species = EXCLUDED.species, occurrences = EXCLUDED.occurrences`,
			runID, r.Region, r.Stage, r.Species, r.Occurrences,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert summary %s/%s", r.Region, r.Stage)
		}
	}
	return nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, runID string) ([]pipeline.SummaryRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region, stage, species, occurrences
		FROM run_summary WHERE run_id = $1 ORDER BY region, stage`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query summary")
	}
	defer rows.Close()

	var out []pipeline.SummaryRow
	for rows.Next() {
		var r pipeline.SummaryRow
		if err := rows.Scan(&r.Region, &r.Stage, &r.Species, &r.Occurrences); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveGridCells(ctx context.Context, runID string, cells []spatial.Cell) (int64, error) {
	var n int64
	for _, c := range cells {
		wkb, err := spatial.EncodeEWKB(c.Polygon())
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode cell %d", c.Index)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO grid_cells (run_id, cell_index, min_lon, min_lat, max_lon, max_lat, geom)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id, cell_index) DO NOTHING`,
			runID, c.Index, c.MinLon, c.MinLat, c.MaxLon, c.MaxLat, wkb,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert cell %d", c.Index)
		}
		n++
	}
	return n, nil
}
