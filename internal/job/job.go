// Package job provides the GenerationJob aggregate for the video generation
// pipeline. It includes the job entity with state machine transitions driven
// by the polling worker, as well as the repository interface for persistence.
package job

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Status represents the current state of a generation job.
type Status string

const (
	// StatusQueued indicates the job is waiting for a start attempt.
	StatusQueued Status = "queued"
	// StatusProcessing indicates the provider accepted the job and it is being polled.
	StatusProcessing Status = "processing"
	// StatusSucceeded indicates the job finished and the result was fetched.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the job exhausted its attempt budget.
	StatusFailed Status = "failed"
)

// Static errors for job state management.
var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("job: invalid state transition")
	// ErrAttemptsExhausted is returned when a start attempt is requested past the budget.
	ErrAttemptsExhausted = errors.New("job: attempts exhausted")
)

// validTransitions defines which state transitions are allowed.
// failed→queued exists so an exhausted job can be manually requeued by an
// operator; the worker itself resets processing→queued on a retryable failure.
var validTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusSucceeded, StatusFailed, StatusQueued},
	StatusSucceeded:  {},
	StatusFailed:     {StatusQueued},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one attempt-tracked unit of work converting a source image
// into a video via a named provider. It is created by the request path in
// queued status and mutated exclusively by the worker afterwards.
type Job struct {
	mu sync.RWMutex

	// ID is the store-assigned identifier, zero until persisted.
	ID int64
	// UserID is the owning user.
	UserID int64
	// VideoID is the video record being produced.
	VideoID int64
	// Provider is the adapter that owns this job, fixed at creation.
	Provider string
	// ProviderTaskID is the external task handle, set once the provider
	// accepts the job.
	ProviderTaskID string
	// Status is the current job state.
	Status Status
	// InputParams is the adapter-specific payload, fixed at creation.
	InputParams json.RawMessage
	// ResultData is the last raw provider response, overwritten on each poll.
	ResultData json.RawMessage
	// ErrorMessage is set only when the job reaches terminal failed.
	ErrorMessage string
	// Progress is the last reported completion percentage (0-100), display only.
	Progress int
	// Attempts counts generation attempts started.
	Attempts int
	// MaxAttempts bounds Attempts; once reached, a failure is terminal.
	MaxAttempts int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// New creates a queued Job for the given owner, video, and provider.
func New(userID, videoID int64, provider string, params json.RawMessage, maxAttempts int) *Job {
	now := time.Now()
	return &Job{
		UserID:      userID,
		VideoID:     videoID,
		Provider:    provider,
		Status:      StatusQueued,
		InputParams: params,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// transitionTo changes the job status, assuming the caller holds the lock.
func (j *Job) transitionTo(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusProcessing:
		ts := j.UpdatedAt
		j.StartedAt = &ts
	case StatusSucceeded, StatusFailed:
		ts := j.UpdatedAt
		j.CompletedAt = &ts
	}

	return nil
}

// Start records a successful provider submission: it consumes one attempt,
// stores the provider task handle, and moves the job to processing.
func (j *Job) Start(providerTaskID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Attempts >= j.MaxAttempts {
		return ErrAttemptsExhausted
	}
	if err := j.transitionTo(StatusProcessing); err != nil {
		return err
	}
	j.Attempts++
	j.ProviderTaskID = providerTaskID
	return nil
}

// RecordFailure handles a failed attempt from either the create or the poll
// branch. A failure from queued consumes the attempt that never started.
// When the budget is exhausted the job becomes terminally failed and
// RecordFailure reports terminal=true; otherwise the job is reset to queued
// with the error cleared so a future pass retries it.
func (j *Job) RecordFailure(errMsg string) (terminal bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.Status {
	case StatusQueued:
		j.Attempts++
	case StatusProcessing:
		// Attempt was already counted by Start.
	default:
		return false, ErrInvalidTransition
	}

	if j.Attempts >= j.MaxAttempts {
		if err := j.transitionTo(StatusFailed); err != nil {
			return false, err
		}
		j.ErrorMessage = errMsg
		return true, nil
	}

	if j.Status == StatusProcessing {
		if err := j.transitionTo(StatusQueued); err != nil {
			return false, err
		}
	}
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now()
	return false, nil
}

// Abandon terminally fails a queued job that never got a start attempt. The
// request path uses it to unwind a job it could not secure payment for, so
// the worker never runs unpaid work.
func (j *Job) Abandon(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionTo(StatusFailed); err != nil {
		return err
	}
	j.ErrorMessage = errMsg
	return nil
}

// Succeed moves the job from processing to succeeded.
func (j *Job) Succeed() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionTo(StatusSucceeded)
}

// SetResultData stores the raw provider payload for observability.
func (j *Job) SetResultData(raw json.RawMessage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ResultData = raw
	j.UpdatedAt = time.Now()
}

// SetProgress records the last reported completion percentage (0-100).
func (j *Job) SetProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
// A failed job is terminal by construction: the worker only marks failed
// once the attempt budget is exhausted.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// RetryBudget returns the number of start attempts remaining.
func (j *Job) RetryBudget() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	n := j.MaxAttempts - j.Attempts
	if n < 0 {
		return 0
	}
	return n
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	clone := &Job{
		ID:             j.ID,
		UserID:         j.UserID,
		VideoID:        j.VideoID,
		Provider:       j.Provider,
		ProviderTaskID: j.ProviderTaskID,
		Status:         j.Status,
		ErrorMessage:   j.ErrorMessage,
		Progress:       j.Progress,
		Attempts:       j.Attempts,
		MaxAttempts:    j.MaxAttempts,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
	if j.InputParams != nil {
		clone.InputParams = append(json.RawMessage(nil), j.InputParams...)
	}
	if j.ResultData != nil {
		clone.ResultData = append(json.RawMessage(nil), j.ResultData...)
	}
	if j.StartedAt != nil {
		ts := *j.StartedAt
		clone.StartedAt = &ts
	}
	if j.CompletedAt != nil {
		ts := *j.CompletedAt
		clone.CompletedAt = &ts
	}
	return clone
}
