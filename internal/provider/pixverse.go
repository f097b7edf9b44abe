package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/photomotion/photomotion-api/internal/pixverse"
)

// PixVerseName is the stable identifier of the PixVerse adapter.
const PixVerseName = "pixverse"

// pixverseStatusMap normalizes PixVerse's native status vocabulary.
// The table is total: anything it does not list maps to StatusUnknown.
var pixverseStatusMap = map[string]Status{
	"pending":    StatusPending,
	"queued":     StatusPending,
	"processing": StatusProcessing,
	"running":    StatusProcessing,
	"completed":  StatusSucceeded,
	"succeeded":  StatusSucceeded,
	"failed":     StatusFailed,
	"error":      StatusFailed,
	"canceled":   StatusFailed,
}

// mapPixVerseStatus converts an upstream status string to the normalized vocabulary.
func mapPixVerseStatus(s string) Status {
	if mapped, ok := pixverseStatusMap[s]; ok {
		return mapped
	}
	return StatusUnknown
}

// PixVerseAdapter adapts the PixVerse client to the Adapter interface.
type PixVerseAdapter struct {
	client  pixverse.Client
	enabled func() bool
	presets []string
}

// NewPixVerseAdapter creates a new PixVerse adapter. The enabled function is
// consulted on every call so configuration changes take effect between polls.
func NewPixVerseAdapter(client pixverse.Client, enabled func() bool) *PixVerseAdapter {
	if enabled == nil {
		enabled = func() bool { return false }
	}
	return &PixVerseAdapter{
		client:  client,
		enabled: enabled,
		presets: []string{"gentle_sway", "slow_zoom", "parallax", "dynamic"},
	}
}

// Name returns the stable adapter identifier.
func (a *PixVerseAdapter) Name() string { return PixVerseName }

// DisplayName returns the human-readable provider name.
func (a *PixVerseAdapter) DisplayName() string { return "PixVerse" }

// Enabled reports whether credentials are configured and the adapter is on.
func (a *PixVerseAdapter) Enabled() bool { return a.enabled() }

// CreateTask submits a generation request to PixVerse.
func (a *PixVerseAdapter) CreateTask(ctx context.Context, payload TaskPayload) (CreateResult, error) {
	if !a.Enabled() {
		return CreateResult{}, ErrAdapterDisabled
	}

	resp, err := a.client.CreateTask(ctx, pixverse.CreateTaskRequest{
		Image:       payload.ImageURL,
		Prompt:      payload.Prompt,
		Duration:    payload.Duration,
		AspectRatio: string(payload.Format),
		CFGScale:    payload.CFGScale,
		MotionMode:  payload.Preset,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("pixverse adapter create: %w", err)
	}

	status := mapPixVerseStatus(resp.Status)
	if status == StatusUnknown {
		// A freshly accepted task counts as submitted even when the
		// upstream omits or renames the initial status.
		status = StatusPending
	}

	return CreateResult{
		TaskID: MakeTaskID(PixVerseName, resp.TaskID),
		Status: status,
	}, nil
}

// PollStatus returns the normalized status of a PixVerse task.
func (a *PixVerseAdapter) PollStatus(ctx context.Context, taskID string) (StatusResult, error) {
	if !a.Enabled() {
		return StatusResult{}, ErrAdapterDisabled
	}

	_, upstreamID := SplitTaskID(taskID)
	resp, err := a.client.TaskStatus(ctx, upstreamID)
	if err != nil {
		return StatusResult{}, fmt.Errorf("pixverse adapter poll: %w", err)
	}

	raw, _ := json.Marshal(resp)
	return StatusResult{
		Status:   mapPixVerseStatus(resp.Status),
		Progress: resp.Progress,
		Raw:      raw,
		Error:    resp.Error,
	}, nil
}

// FetchResult returns the output of a completed PixVerse task. An upstream
// rejection (result not ready, task unknown) yields Success=false rather
// than an error; transport failures still surface as errors.
func (a *PixVerseAdapter) FetchResult(ctx context.Context, taskID string) (FetchResult, error) {
	if !a.Enabled() {
		return FetchResult{}, ErrAdapterDisabled
	}

	_, upstreamID := SplitTaskID(taskID)
	resp, err := a.client.TaskResult(ctx, upstreamID)
	if err != nil {
		if pixverse.IsUpstream(err) {
			return FetchResult{Success: false, Message: err.Error()}, nil
		}
		return FetchResult{}, fmt.Errorf("pixverse adapter fetch: %w", err)
	}

	if resp.Error != "" {
		return FetchResult{Success: false, Message: resp.Error}, nil
	}
	if resp.VideoURL == "" {
		return FetchResult{Success: false, Message: "result not available yet"}, nil
	}

	return FetchResult{
		Success:      true,
		VideoURL:     resp.VideoURL,
		ThumbnailURL: resp.ThumbnailURL,
		Duration:     resp.Duration,
		Width:        resp.Width,
		Height:       resp.Height,
	}, nil
}

// CancelTask asks PixVerse to cancel a task, best-effort.
func (a *PixVerseAdapter) CancelTask(ctx context.Context, taskID string) bool {
	if !a.Enabled() {
		return false
	}

	_, upstreamID := SplitTaskID(taskID)
	ok, err := a.client.CancelTask(ctx, upstreamID)
	if err != nil {
		return false
	}
	return ok
}

// SupportedFormats lists the aspect-ratio tags PixVerse accepts.
func (a *PixVerseAdapter) SupportedFormats() []Format {
	return []Format{FormatLandscape, FormatPortrait, FormatSquare}
}

// SupportedPresets lists the named motion presets PixVerse accepts.
func (a *PixVerseAdapter) SupportedPresets() []string {
	return a.presets
}

// Compile-time check that PixVerseAdapter implements Adapter.
var _ Adapter = (*PixVerseAdapter)(nil)
