// Package video provides the Video record produced by generation jobs and
// its repository interface. The worker mirrors job outcomes onto these
// records; user-facing listing and deletion live outside the pipeline.
package video

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status mirrors the outcome of the owning generation job.
type Status string

const (
	// StatusPending indicates the generation job has not started yet.
	StatusPending Status = "pending"
	// StatusProcessing indicates the provider is generating the video.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates the result video is available.
	StatusCompleted Status = "completed"
	// StatusFailed indicates generation failed permanently.
	StatusFailed Status = "failed"
)

// ErrVideoNotFound is returned when a video cannot be found by ID.
var ErrVideoNotFound = errors.New("video not found")

// Video is the user-visible record of one animated photo.
type Video struct {
	ID             int64
	UserID         int64
	Title          string
	Status         Status
	SourceImageURL string
	ResultVideoURL string
	ThumbnailURL   string
	Duration       float64
	Width          int
	Height         int
	ShareToken     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Result holds the fields copied onto a video when its job succeeds.
type Result struct {
	VideoURL     string
	ThumbnailURL string
	Duration     float64
	Width        int
	Height       int
}

// ApplyResult copies a successful generation result onto the video.
func (v *Video) ApplyResult(res Result) {
	v.Status = StatusCompleted
	v.ResultVideoURL = res.VideoURL
	if res.ThumbnailURL != "" {
		v.ThumbnailURL = res.ThumbnailURL
	}
	v.Duration = res.Duration
	if res.Width > 0 {
		v.Width = res.Width
	}
	if res.Height > 0 {
		v.Height = res.Height
	}
	v.UpdatedAt = time.Now()
}

// Repository defines the interface for video persistence.
type Repository interface {
	// Create persists a new video and assigns its ID.
	Create(ctx context.Context, video *Video) error

	// FindByID retrieves a video by its identifier.
	// Returns ErrVideoNotFound if the video does not exist.
	FindByID(ctx context.Context, id int64) (*Video, error)

	// Update persists the current state of an existing video.
	// Returns ErrVideoNotFound if the video does not exist.
	Update(ctx context.Context, video *Video) error

	// SetStatus updates only the status of a video.
	SetStatus(ctx context.Context, id int64, status Status) error
}

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	videos map[int64]Video
}

// NewMemoryRepository creates a new in-memory video repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		videos: make(map[int64]Video),
	}
}

// Create persists a new video and assigns the next sequential ID.
func (r *MemoryRepository) Create(_ context.Context, v *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = r.nextID
	r.nextID++
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.UpdatedAt = v.CreatedAt
	r.videos[v.ID] = *v
	return nil
}

// FindByID retrieves a video by its ID.
func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, ErrVideoNotFound
	}
	copy := v
	return &copy, nil
}

// Update persists the current state of an existing video.
func (r *MemoryRepository) Update(_ context.Context, v *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.ID]; !ok {
		return ErrVideoNotFound
	}
	v.UpdatedAt = time.Now()
	r.videos[v.ID] = *v
	return nil
}

// SetStatus updates only the status of a video.
func (r *MemoryRepository) SetStatus(_ context.Context, id int64, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return ErrVideoNotFound
	}
	v.Status = status
	v.UpdatedAt = time.Now()
	r.videos[id] = v
	return nil
}
