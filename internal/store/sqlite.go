package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lessardlab/nowclean/internal/model"
	"github.com/lessardlab/nowclean/internal/pipeline"
	"github.com/lessardlab/nowclean/internal/spatial"
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
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	counts     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS occurrences (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	locality_id   INTEGER NOT NULL,
	locality_name TEXT,
	tax_order     TEXT,
	family        TEXT,
	genus         TEXT,
	species       TEXT,
	min_age       REAL,
	max_age       REAL,
	mid_age       REAL,
	stage         TEXT,
	lat           REAL,
	lon           REAL,
	paleo_lat     REAL,
	paleo_lon     REAL,
	region        TEXT,
	map_id        INTEGER,
	grid_cell     INTEGER
);

CREATE TABLE IF NOT EXISTS grid_cells (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	cell_index INTEGER NOT NULL,
	min_lon    REAL NOT NULL,
	min_lat    REAL NOT NULL,
	max_lon    REAL NOT NULL,
	max_lat    REAL NOT NULL,
	geom       BLOB,
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

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_occurrences_run_id ON occurrences(run_id);
CREATE INDEX IF NOT EXISTS idx_occurrences_region_stage ON occurrences(region, stage);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, source, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Source:    source,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, counts RunCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counts")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET counts = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(countsJSON), string(RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, counts, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		var counts sql.NullString
		if err := rows.Scan(&r.ID, &r.Source, &status, &counts, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = RunStatus(status)
		if counts.Valid {
			var c RunCounts
			if err := json.Unmarshal([]byte(counts.String), &c); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal counts")
			}
			r.Counts = &c
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SaveOccurrences(ctx context.Context, runID string, occs []model.Occurrence) (int64, error) {
	if len(occs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO occurrences (
			run_id, locality_id, locality_name, tax_order, family, genus, species,
			min_age, max_age, mid_age, stage, lat, lon, paleo_lat, paleo_lon,
			region, map_id, grid_cell
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare occurrence insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for i := range occs {
		o := &occs[i]
		_, err := stmt.ExecContext(ctx,
			runID, o.LocalityID, o.LocalityName, o.TaxonOrder, o.Family, o.Genus, o.Species,
			o.MinAge, o.MaxAge, o.MidAge, nullString(o.Stage), o.Lat, o.Lon, o.PaleoLat, o.PaleoLon,
			nullString(o.Region), o.MapID, o.GridCell,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert occurrence %d", o.LocalityID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit occurrences")
	}
	return n, nil
}

func (s *SQLiteStore) GetOccurrences(ctx context.Context, runID string) ([]model.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT locality_id, locality_name, tax_order, family, genus, species,
		       min_age, max_age, mid_age, stage, lat, lon, paleo_lat, paleo_lon,
		       region, map_id, grid_cell
		FROM occurrences WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query occurrences")
	}
	defer rows.Close()

	var occs []model.Occurrence
	for rows.Next() {
		var o model.Occurrence
		var minAge, maxAge, midAge, lat, lon, pLat, pLon sql.NullFloat64
		var stage, region sql.NullString
		var mapID, gridCell sql.NullInt64
		if err := rows.Scan(
			&o.LocalityID, &o.LocalityName, &o.TaxonOrder, &o.Family, &o.Genus, &o.Species,
			&minAge, &maxAge, &midAge, &stage, &lat, &lon, &pLat, &pLon,
			&region, &mapID, &gridCell,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan occurrence")
		}
		o.MinAge = fromNullFloat(minAge)
		o.MaxAge = fromNullFloat(maxAge)
		o.MidAge = fromNullFloat(midAge)
		o.Lat = fromNullFloat(lat)
		o.Lon = fromNullFloat(lon)
		o.PaleoLat = fromNullFloat(pLat)
		o.PaleoLon = fromNullFloat(pLon)
		o.Stage = stage.String
		o.Region = region.String
		o.MapID = fromNullInt(mapID)
		o.GridCell = fromNullInt(gridCell)
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

func (s *SQLiteStore) SaveGridCells(ctx context.Context, runID string, cells []spatial.Cell) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO grid_cells (run_id, cell_index, min_lon, min_lat, max_lon, max_lat, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare grid insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, c := range cells {
		wkb, err := spatial.EncodeEWKB(c.Polygon())
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: encode cell %d", c.Index)
		}
		if _, err := stmt.ExecContext(ctx, runID, c.Index, c.MinLon, c.MinLat, c.MaxLon, c.MaxLat, wkb); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert cell %d", c.Index)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit grid cells")
	}
	return n, nil
}

func (s *SQLiteStore) SaveSummary(ctx context.Context, runID string, rows []pipeline.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO run_summary (run_id, region, stage, species, occurrences)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare summary insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, runID, r.Region, r.Stage, r.Species, r.Occurrences); err != nil {
			return eris.Wrapf(err, "sqlite: insert summary %s/%s", r.Region, r.Stage)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit summary")
}

func (s *SQLiteStore) GetSummary(ctx context.Context, runID string) ([]pipeline.SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region, stage, species, occurrences
		FROM run_summary WHERE run_id = ? ORDER BY region, stage`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query summary")
	}
	defer rows.Close()

	var out []pipeline.SummaryRow
	for rows.Next() {
		var r pipeline.SummaryRow
		if err := rows.Scan(&r.Region, &r.Stage, &r.Species, &r.Occurrences); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
