package video

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

// NewPostgresRepository constructs a Postgres-backed video repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists a new video and assigns the database-generated ID.
func (r *PostgresRepository) Create(ctx context.Context, v *Video) error {
	row := r.pool.QueryRow(ctx, `
INSERT INTO videos
  (user_id, title, status, source_image_url, result_video_url, thumbnail_url,
   duration, width, height, share_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
RETURNING id, created_at, updated_at;
`,
		v.UserID, v.Title, string(v.Status), v.SourceImageURL, v.ResultVideoURL,
		v.ThumbnailURL, v.Duration, v.Width, v.Height, v.ShareToken,
	)
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByID retrieves a video by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Video, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, title, status, source_image_url, result_video_url,
       thumbnail_url, duration, width, height, share_token, created_at, updated_at
FROM videos
WHERE id = $1;
`, id)

	var v Video
	var status string
	if err := row.Scan(
		&v.ID, &v.UserID, &v.Title, &status, &v.SourceImageURL,
		&v.ResultVideoURL, &v.ThumbnailURL, &v.Duration, &v.Width, &v.Height,
		&v.ShareToken, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("find video: %w", err)
	}
	v.Status = Status(status)
	return &v, nil
}

// Update persists the current state of an existing video.
func (r *PostgresRepository) Update(ctx context.Context, v *Video) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE videos
SET title = $2,
    status = $3,
    result_video_url = $4,
    thumbnail_url = $5,
    duration = $6,
    width = $7,
    height = $8,
    updated_at = now()
WHERE id = $1;
`,
		v.ID, v.Title, string(v.Status), v.ResultVideoURL, v.ThumbnailURL,
		v.Duration, v.Width, v.Height,
	)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// SetStatus updates only the status of a video.
func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE videos SET status = $2, updated_at = now() WHERE id = $1;
`, id, string(status))
	if err != nil {
		return fmt.Errorf("set video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}
