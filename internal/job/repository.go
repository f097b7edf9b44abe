package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Repository defines the interface for job persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Create persists a new job and assigns its ID.
	Create(ctx context.Context, job *Job) error

	// FindByID retrieves a job by its identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id int64) (*Job, error)

	// ListDue returns up to limit jobs eligible for a worker pass, oldest
	// first: queued jobs with attempt budget remaining, plus processing
	// jobs awaiting a poll.
	ListDue(ctx context.Context, limit int) ([]*Job, error)

	// Update persists the current state of an existing job.
	// Returns ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, job *Job) error

	// ListByUser returns all jobs owned by a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*Job, error)
}
