package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: open: %v", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(model.ErrPersistence, "sqlite: exec %s: %v", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS incidents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	ts         DATETIME NOT NULL,
	crime_type TEXT NOT NULL,
	severity   INTEGER NOT NULL,
	city       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cluster_runs (
	id         TEXT PRIMARY KEY,
	algorithm  TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS cluster_labels (
	run_id      TEXT NOT NULL REFERENCES cluster_runs(id),
	incident_id INTEGER NOT NULL REFERENCES incidents(id),
	label       INTEGER NOT NULL,
	PRIMARY KEY (run_id, incident_id)
);

CREATE INDEX IF NOT EXISTS idx_incidents_city ON incidents(city);
CREATE INDEX IF NOT EXISTS idx_incidents_ts ON incidents(ts);
CREATE INDEX IF NOT EXISTS idx_cluster_labels_run_id ON cluster_labels(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrapf(model.ErrPersistence, "sqlite: migrate: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveIncidents(ctx context.Context, incidents []model.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	for _, in := range incidents {
		if err := in.Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "sqlite: begin: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO incidents (latitude, longitude, ts, crime_type, severity, city) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "sqlite: prepare insert: %v", err)
	}
	defer stmt.Close()

	for _, in := range incidents {
		if _, err := stmt.ExecContext(ctx,
			in.Latitude, in.Longitude, in.Timestamp.UTC(), in.CrimeType, in.Severity, in.City,
		); err != nil {
			return 0, eris.Wrapf(model.ErrPersistence, "sqlite: insert incident: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "sqlite: commit: %v", err)
	}
	return len(incidents), nil
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error) {
	query := `SELECT id, latitude, longitude, ts, crime_type, severity, city FROM incidents WHERE 1=1`
	var args []any

	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	if !filter.Since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		query += ` AND ts < ?`
		args = append(args, filter.Until.UTC())
	}
	query += ` ORDER BY ts`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: list incidents: %v", err)
	}
	defer rows.Close()

	var out []model.Incident
	for rows.Next() {
		var in model.Incident
		if err := rows.Scan(&in.ID, &in.Latitude, &in.Longitude, &in.Timestamp, &in.CrimeType, &in.Severity, &in.City); err != nil {
			return nil, eris.Wrapf(model.ErrPersistence, "sqlite: scan incident: %v", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: list incidents iterate: %v", err)
	}
	return out, nil
}

func (s *SQLiteStore) CountIncidents(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "sqlite: count incidents: %v", err)
	}
	return n, nil
}

func (s *SQLiteStore) SaveAssignments(ctx context.Context, algorithm string, assignments []model.ClusterAssignment) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "sqlite: begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cluster_runs (id, algorithm, created_at) VALUES (?, ?, ?)`,
		id, algorithm, now,
	); err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "sqlite: insert cluster run: %v", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cluster_labels (run_id, incident_id, label) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "sqlite: prepare labels: %v", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, id, a.IncidentID, a.Label); err != nil {
			return "", eris.Wrapf(model.ErrPersistence, "sqlite: insert label: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "sqlite: commit: %v", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, runID string) ([]model.ClusterAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT incident_id, label FROM cluster_labels WHERE run_id = ? ORDER BY incident_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: list assignments: %v", err)
	}
	defer rows.Close()

	// Unknown run ids return an empty slice, not an error.
	out := []model.ClusterAssignment{}
	for rows.Next() {
		var a model.ClusterAssignment
		if err := rows.Scan(&a.IncidentID, &a.Label); err != nil {
			return nil, eris.Wrapf(model.ErrPersistence, "sqlite: scan assignment: %v", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: list assignments iterate: %v", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]ClusterRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, algorithm, created_at FROM cluster_runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: list runs: %v", err)
	}
	defer rows.Close()

	var out []ClusterRun
	for rows.Next() {
		var r ClusterRun
		if err := rows.Scan(&r.ID, &r.Algorithm, &r.CreatedAt); err != nil {
			return nil, eris.Wrapf(model.ErrPersistence, "sqlite: scan run: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "sqlite: list runs iterate: %v", err)
	}
	return out, nil
}
