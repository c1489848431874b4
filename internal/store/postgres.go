package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/geocrime/geocrime-cli/internal/db"
	"github.com/geocrime/geocrime-cli/internal/model"
)

// PostgresStore implements Store on a pgx pool. Bulk incident writes go
// through the COPY protocol.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to Postgres using the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: ping: %v", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests to inject a mock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS incidents (
	id         BIGSERIAL PRIMARY KEY,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	ts         TIMESTAMPTZ NOT NULL,
	crime_type TEXT NOT NULL,
	severity   INTEGER NOT NULL,
	city       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cluster_runs (
	id         UUID PRIMARY KEY,
	algorithm  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cluster_labels (
	run_id      UUID NOT NULL REFERENCES cluster_runs(id),
	incident_id BIGINT NOT NULL REFERENCES incidents(id),
	label       INTEGER NOT NULL,
	PRIMARY KEY (run_id, incident_id)
);

CREATE INDEX IF NOT EXISTS idx_incidents_city ON incidents(city);
CREATE INDEX IF NOT EXISTS idx_incidents_ts ON incidents(ts);
CREATE INDEX IF NOT EXISTS idx_cluster_labels_run_id ON cluster_labels(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrapf(model.ErrPersistence, "postgres: migrate: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveIncidents(ctx context.Context, incidents []model.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(incidents))
	for i, in := range incidents {
		if err := in.Validate(); err != nil {
			return 0, err
		}
		rows[i] = []any{in.Latitude, in.Longitude, in.Timestamp.UTC(), in.CrimeType, in.Severity, in.City}
	}

	n, err := db.CopyFrom(ctx, s.pool, "incidents",
		[]string{"latitude", "longitude", "ts", "crime_type", "severity", "city"}, rows)
	if err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "postgres: copy incidents: %v", err)
	}
	return int(n), nil
}

func (s *PostgresStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error) {
	query := `SELECT id, latitude, longitude, ts, crime_type, severity, city FROM incidents WHERE 1=1`
	var args []any

	if filter.City != "" {
		args = append(args, filter.City)
		query += ` AND city = $` + strconv.Itoa(len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		query += ` AND ts >= $` + strconv.Itoa(len(args))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until.UTC())
		query += ` AND ts < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY ts`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: list incidents: %v", err)
	}
	defer rows.Close()

	var out []model.Incident
	for rows.Next() {
		var in model.Incident
		if err := rows.Scan(&in.ID, &in.Latitude, &in.Longitude, &in.Timestamp, &in.CrimeType, &in.Severity, &in.City); err != nil {
			return nil, eris.Wrapf(model.ErrPersistence, "postgres: scan incident: %v", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: list incidents iterate: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) CountIncidents(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(model.ErrPersistence, "postgres: count incidents: %v", err)
	}
	return n, nil
}

func (s *PostgresStore) SaveAssignments(ctx context.Context, algorithm string, assignments []model.ClusterAssignment) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "postgres: begin: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO cluster_runs (id, algorithm, created_at) VALUES ($1, $2, $3)`,
		id, algorithm, now,
	); err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "postgres: insert cluster run: %v", err)
	}

	for _, a := range assignments {
		if _, err := tx.Exec(ctx,
			`INSERT INTO cluster_labels (run_id, incident_id, label) VALUES ($1, $2, $3)`,
			id, a.IncidentID, a.Label,
		); err != nil {
			return "", eris.Wrapf(model.ErrPersistence, "postgres: insert label: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "postgres: commit: %v", err)
	}
	return id, nil
}

func (s *PostgresStore) ListAssignments(ctx context.Context, runID string) ([]model.ClusterAssignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT incident_id, label FROM cluster_labels WHERE run_id = $1 ORDER BY incident_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: list assignments: %v", err)
	}
	defer rows.Close()

	out := []model.ClusterAssignment{}
	for rows.Next() {
		var a model.ClusterAssignment
		if err := rows.Scan(&a.IncidentID, &a.Label); err != nil {
			return nil, eris.Wrapf(model.ErrPersistence, "postgres: scan assignment: %v", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: list assignments iterate: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]ClusterRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, algorithm, created_at FROM cluster_runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: list runs: %v", err)
	}
	defer rows.Close()

	var out []ClusterRun
	for rows.Next() {
		var r ClusterRun
		if err := rows.Scan(&r.ID, &r.Algorithm, &r.CreatedAt); err != nil {
			return nil, eris.Wrapf(model.ErrPersistence, "postgres: scan run: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "postgres: list runs iterate: %v", err)
	}
	return out, nil
}
