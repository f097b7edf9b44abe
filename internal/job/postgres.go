package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository implements Repository using PostgreSQL via pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a Postgres-backed job repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const jobColumns = `id, user_id, video_id, provider, provider_task_id, status,
input_params, result_data, error_message, progress, attempts, max_attempts,
created_at, updated_at, started_at, completed_at`

// Create persists a new job and assigns the database-generated ID.
func (r *PostgresRepository) Create(ctx context.Context, j *Job) error {
	row := r.pool.QueryRow(ctx, `
INSERT INTO generation_jobs
  (user_id, video_id, provider, provider_task_id, status, input_params,
   result_data, error_message, progress, attempts, max_attempts,
   created_at, updated_at, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id;
`,
		j.UserID, j.VideoID, j.Provider, j.ProviderTaskID, string(j.Status),
		j.InputParams, j.ResultData, j.ErrorMessage, j.Progress, j.Attempts,
		j.MaxAttempts, j.CreatedAt, j.UpdatedAt, j.StartedAt, j.CompletedAt,
	)
	if err := row.Scan(&j.ID); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// FindByID retrieves a job by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Job, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE id = $1;
`, id)

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	return j, nil
}

// ListDue returns up to limit eligible jobs ordered oldest-created-first.
func (r *PostgresRepository) ListDue(ctx context.Context, limit int) ([]*Job, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE (status = 'queued' AND attempts < max_attempts)
   OR status = 'processing'
ORDER BY created_at ASC, id ASC
LIMIT $1;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Update persists the current state of an existing job.
func (r *PostgresRepository) Update(ctx context.Context, j *Job) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET provider_task_id = $2,
    status = $3,
    result_data = $4,
    error_message = $5,
    progress = $6,
    attempts = $7,
    updated_at = $8,
    started_at = $9,
    completed_at = $10
WHERE id = $1;
`,
		j.ID, j.ProviderTaskID, string(j.Status), j.ResultData, j.ErrorMessage,
		j.Progress, j.Attempts, j.UpdatedAt, j.StartedAt, j.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListByUser returns all jobs owned by a user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*Job, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE user_id = $1
ORDER BY created_at DESC, id DESC;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// scanJob reads one job row.
func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var status string
	if err := row.Scan(
		&j.ID, &j.UserID, &j.VideoID, &j.Provider, &j.ProviderTaskID, &status,
		&j.InputParams, &j.ResultData, &j.ErrorMessage, &j.Progress,
		&j.Attempts, &j.MaxAttempts,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
	); err != nil {
		return nil, err
	}
	j.Status = Status(status)
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
