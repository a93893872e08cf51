package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"uavpath/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seq        BIGSERIAL UNIQUE,
	id         UUID PRIMARY KEY,
	label      TEXT,
	waypoints  INT NOT NULL,
	speed      DOUBLE PRECISION NOT NULL,
	wait_time  DOUBLE PRECISION NOT NULL,
	min_time   DOUBLE PRECISION NOT NULL,
	path       JSONB NOT NULL,
	visited    JSONB NOT NULL,
	skipped    JSONB NOT NULL,
	breakdown  JSONB NOT NULL,
	bound      JSONB NOT NULL,
	elapsed_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);
`

const runColumns = `id::text, label, waypoints, speed, wait_time, min_time, path, visited, skipped, breakdown, bound, elapsed_ms, created_at`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the runs table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("store: run id: %w", err)
	}
	enc, err := encodeRun(run)
	if err != nil {
		return err
	}
	created, err := parseCreatedAt(run.CreatedAt)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, label, waypoints, speed, wait_time, min_time, path, visited, skipped, breakdown, bound, elapsed_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb,$9::jsonb,$10::jsonb,$11::jsonb,$12,$13)
		ON CONFLICT (id) DO UPDATE SET label=EXCLUDED.label, min_time=EXCLUDED.min_time, path=EXCLUDED.path,
			visited=EXCLUDED.visited, skipped=EXCLUDED.skipped, breakdown=EXCLUDED.breakdown, bound=EXCLUDED.bound, elapsed_ms=EXCLUDED.elapsed_ms`,
		id, nullIfEmpty(run.Label), run.Waypoints, run.Speed, run.WaitTime, run.MinTime,
		enc.path, enc.visited, enc.skipped, enc.breakdown, enc.bound, run.ElapsedMs, created)
	return err
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Run{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		if _, perr := uuid.Parse(cursor); perr != nil {
			return []model.Run{}, "", nil
		}
		rows, err = p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE seq < (SELECT seq FROM runs WHERE id=$1) ORDER BY seq DESC LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type encodedRun struct {
	path, visited, skipped, breakdown, bound string
}

func encodeRun(r model.Run) (encodedRun, error) {
	var e encodedRun
	fields := []struct {
		dst *string
		v   any
	}{
		{&e.path, nonNil(r.Path)},
		{&e.visited, nonNil(r.Visited)},
		{&e.skipped, nonNil(r.Skipped)},
		{&e.breakdown, r.Breakdown},
		{&e.bound, r.Bound},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return encodedRun{}, err
		}
		*f.dst = string(b)
	}
	return e, nil
}

func scanRun(row rowScanner) (model.Run, error) {
	var r model.Run
	var label sql.NullString
	var path, visited, skipped, breakdown, bound []byte
	var created time.Time
	if err := row.Scan(&r.ID, &label, &r.Waypoints, &r.Speed, &r.WaitTime, &r.MinTime,
		&path, &visited, &skipped, &breakdown, &bound, &r.ElapsedMs, &created); err != nil {
		return model.Run{}, err
	}
	r.Label = label.String
	r.CreatedAt = created.UTC().Format(time.RFC3339Nano)
	if err := decodeJSONB(&r, path, visited, skipped, breakdown, bound); err != nil {
		return model.Run{}, err
	}
	return r, nil
}

func decodeJSONB(r *model.Run, path, visited, skipped, breakdown, bound []byte) error {
	targets := []struct {
		src []byte
		dst any
	}{
		{path, &r.Path}, {visited, &r.Visited}, {skipped, &r.Skipped}, {breakdown, &r.Breakdown}, {bound, &r.Bound},
	}
	for _, t := range targets {
		if len(t.src) == 0 {
			continue
		}
		if err := json.Unmarshal(t.src, t.dst); err != nil {
			return fmt.Errorf("store: decode run: %w", err)
		}
	}
	return nil
}

func parseCreatedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: createdAt %q: %w", s, err)
	}
	return t, nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
