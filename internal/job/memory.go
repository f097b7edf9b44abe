package job

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; swap for Postgres in production.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	jobs   map[int64]*Job
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		jobs:   make(map[int64]*Job),
	}
}

// Create persists a new job and assigns the next sequential ID.
func (r *MemoryRepository) Create(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.ID = r.nextID
	r.nextID++
	r.jobs[job.ID] = job.Clone()
	return nil
}

// FindByID retrieves a job by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListDue returns up to limit eligible jobs ordered oldest-created-first.
// A queued job is due while it has attempt budget left; a processing job is
// due unconditionally since its last attempt may still complete upstream.
func (r *MemoryRepository) ListDue(_ context.Context, limit int) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]*Job, 0, limit)
	for _, j := range r.jobs {
		switch j.Status {
		case StatusQueued:
			if j.Attempts < j.MaxAttempts {
				due = append(due, j.Clone())
			}
		case StatusProcessing:
			due = append(due, j.Clone())
		}
	}

	sort.Slice(due, func(i, k int) bool {
		if due[i].CreatedAt.Equal(due[k].CreatedAt) {
			return due[i].ID < due[k].ID
		}
		return due[i].CreatedAt.Before(due[k].CreatedAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Update persists the current state of an existing job.
func (r *MemoryRepository) Update(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// ListByUser returns all jobs owned by a user, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Job
	for _, j := range r.jobs {
		if j.UserID == userID {
			result = append(result, j.Clone())
		}
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].ID > result[k].ID
		}
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})

	return result, nil
}
