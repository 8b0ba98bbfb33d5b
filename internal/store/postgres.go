package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/relionflow/api/internal/model"
)

const schema = `
create table if not exists "job" (
	"id" text primary key,
	"project_id" text not null,
	"job_name" text not null,
	"status" text not null,
	"record" jsonb not null,
	"created_at" timestamptz not null,
	unique ("project_id", "job_name")
);
create index if not exists "job_status_idx" on "job" ("status");
create table if not exists "job_counter" (
	"project_id" text primary key,
	"last" integer not null
);
`

// Postgres stores records as jsonb rows. Updates lock the row with
// select ... for update inside a transaction.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the tables when missing.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Create(ctx context.Context, job *model.JobRecord) error {
	data, err := encode(job)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`insert into "job" ("id", "project_id", "job_name", "status", "record", "created_at")
		values ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.ProjectID, job.JobName, string(job.Status), data, job.CreatedAt,
	)
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", model.ErrDuplicateJob, job.ID)
	}
	return err
}

func (p *Postgres) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `select "record" from "job" where "id" = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (p *Postgres) Update(ctx context.Context, id string, fn func(*model.JobRecord) error) (*model.JobRecord, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var data []byte
	err = tx.QueryRow(ctx, `select "record" from "job" where "id" = $1 for update`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	job, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	if data, err = encode(job); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`update "job" set "status" = $2, "record" = $3 where "id" = $1`,
		id, string(job.Status), data,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (p *Postgres) ListByProject(ctx context.Context, projectID string) ([]*model.JobRecord, error) {
	return p.query(ctx,
		`select "record" from "job" where "project_id" = $1 order by "job_name"`, projectID)
}

func (p *Postgres) ListActive(ctx context.Context) ([]*model.JobRecord, error) {
	return p.query(ctx,
		`select "record" from "job" where "status" in ($1, $2) order by "project_id", "job_name"`,
		string(model.JobStatusPending), string(model.JobStatusRunning))
}

func (p *Postgres) query(ctx context.Context, sql string, args ...any) ([]*model.JobRecord, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.JobRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		job, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (p *Postgres) NextJobNumber(ctx context.Context, projectID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`insert into "job_counter" ("project_id", "last") values ($1, 1)
		on conflict ("project_id") do update set "last" = "job_counter"."last" + 1
		returning "last"`,
		projectID,
	).Scan(&n)
	return n, err
}
