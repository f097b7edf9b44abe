// Package provider defines the common capability interface for video
// generation backends. Each adapter normalizes its upstream's native status
// vocabulary into the five-value vocabulary the worker reasons over.
package provider

import (
	"context"
	"errors"
	"strings"
)

// Status is the normalized status vocabulary shared by all adapters.
type Status string

const (
	// StatusPending indicates the task is accepted but not yet running.
	StatusPending Status = "pending"
	// StatusProcessing indicates the task is being generated upstream.
	StatusProcessing Status = "processing"
	// StatusSucceeded indicates the task finished and a result is available.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the task failed upstream.
	StatusFailed Status = "failed"
	// StatusUnknown covers any unrecognized upstream status string.
	StatusUnknown Status = "unknown"
)

// IsTerminal returns true if the status represents a final upstream state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Format is one of the three fixed aspect-ratio tags.
type Format string

const (
	FormatLandscape Format = "16:9"
	FormatPortrait  Format = "9:16"
	FormatSquare    Format = "1:1"
)

// IsValid returns true if the format is one of the fixed enums.
func (f Format) IsValid() bool {
	return f == FormatLandscape || f == FormatPortrait || f == FormatSquare
}

// Static errors for adapter operations.
var (
	// ErrAdapterDisabled is returned when an adapter is called without
	// credentials or with its enable flag off.
	ErrAdapterDisabled = errors.New("provider: adapter is disabled")
	// ErrUnknownProvider is returned when a named adapter is not registered.
	ErrUnknownProvider = errors.New("provider: unknown provider")
	// ErrNoProviders is returned when no adapter at all is registered.
	ErrNoProviders = errors.New("provider: no providers registered")
)

// TaskPayload contains the adapter-specific parameters for a generation task.
type TaskPayload struct {
	// ImageURL references the source photo.
	ImageURL string `json:"image_url"`
	// Prompt guides the animation.
	Prompt string `json:"prompt,omitempty"`
	// Duration is the target clip length in seconds.
	Duration int `json:"duration,omitempty"`
	// Format is the aspect-ratio tag.
	Format Format `json:"format"`
	// Preset is the named motion preset.
	Preset string `json:"preset"`
	// CFGScale tunes prompt adherence for providers that support it.
	CFGScale float64 `json:"cfg_scale,omitempty"`
}

// CreateResult is the outcome of a successful task submission.
type CreateResult struct {
	// TaskID is the prefixed provider task handle.
	TaskID string
	// Status is the adapter's notion of "just submitted", normalized.
	Status Status
}

// StatusResult is the outcome of polling a task.
type StatusResult struct {
	Status Status
	// Progress is a completion percentage (0-100) when reported.
	Progress int
	// Raw is the upstream payload as received, persisted for observability.
	Raw []byte
	// Error carries the upstream failure message when Status is failed.
	Error string
}

// FetchResult is the outcome of fetching a completed task's output.
// A premature fetch yields Success=false with a message, never an error.
type FetchResult struct {
	Success      bool
	Message      string
	VideoURL     string
	ThumbnailURL string
	Duration     float64
	Width        int
	Height       int
}

// Adapter is the uniform interface to a video generation backend.
type Adapter interface {
	// Name is the stable identifier carried on job records.
	Name() string

	// DisplayName is the human-readable provider name.
	DisplayName() string

	// Enabled reports whether the adapter is usable. It is a pure function
	// of configuration and is re-evaluated on every call.
	Enabled() bool

	// CreateTask submits a new generation request.
	// Fails when the adapter is disabled, the call fails, or the upstream
	// rejects the request.
	CreateTask(ctx context.Context, payload TaskPayload) (CreateResult, error)

	// PollStatus returns the normalized status of a task. Read-only upstream.
	PollStatus(ctx context.Context, taskID string) (StatusResult, error)

	// FetchResult returns the output of a task. Valid only after PollStatus
	// reports succeeded; calling earlier yields Success=false, not an error.
	FetchResult(ctx context.Context, taskID string) (FetchResult, error)

	// CancelTask attempts to cancel a task, best-effort. Adapters that
	// cannot cancel return false without contacting any backend.
	CancelTask(ctx context.Context, taskID string) bool

	// SupportedFormats lists the aspect-ratio tags the adapter accepts.
	SupportedFormats() []Format

	// SupportedPresets lists the named motion presets the adapter accepts.
	SupportedPresets() []string
}

// MakeTaskID prefixes an upstream task handle with the adapter name, so the
// owning adapter can be inferred from the id alone when resuming orphaned work.
func MakeTaskID(providerName, upstreamID string) string {
	return providerName + "-" + upstreamID
}

// SplitTaskID separates a prefixed task id into provider name and upstream
// handle. The second value is empty when the id carries no recognizable prefix.
func SplitTaskID(taskID string) (providerName, upstreamID string) {
	name, rest, ok := strings.Cut(taskID, "-")
	if !ok {
		return "", ""
	}
	return name, rest
}
