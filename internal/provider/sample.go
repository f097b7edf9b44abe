package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/photomotion/photomotion-api/internal/storage"
)

// SampleName is the stable identifier of the fallback adapter.
const SampleName = "sample"

// SampleAdapter is a deterministic adapter used for development and as the
// last-resort fallback when no network provider is available. Tasks complete
// instantly: CreateTask accepts, PollStatus reports succeeded, and
// FetchResult serves a preconfigured sample asset.
type SampleAdapter struct {
	store     storage.Storage
	assetPath string
	thumbPath string
}

// NewSampleAdapter creates the fallback adapter. assetPath may be empty, in
// which case FetchResult reports a descriptive failure instead of a video.
func NewSampleAdapter(store storage.Storage, assetPath, thumbPath string) *SampleAdapter {
	return &SampleAdapter{
		store:     store,
		assetPath: assetPath,
		thumbPath: thumbPath,
	}
}

// Name returns the stable adapter identifier.
func (a *SampleAdapter) Name() string { return SampleName }

// DisplayName returns the human-readable provider name.
func (a *SampleAdapter) DisplayName() string { return "Sample (offline)" }

// Enabled always reports true; the fallback needs no credentials.
func (a *SampleAdapter) Enabled() bool { return true }

// CreateTask accepts any payload and returns a fresh task id immediately.
func (a *SampleAdapter) CreateTask(_ context.Context, _ TaskPayload) (CreateResult, error) {
	return CreateResult{
		TaskID: MakeTaskID(SampleName, uuid.NewString()),
		Status: StatusPending,
	}, nil
}

// PollStatus reports every sample task as already succeeded.
func (a *SampleAdapter) PollStatus(_ context.Context, taskID string) (StatusResult, error) {
	raw := []byte(fmt.Sprintf(`{"task_id":%q,"status":"succeeded","progress":100}`, taskID))
	return StatusResult{
		Status:   StatusSucceeded,
		Progress: 100,
		Raw:      raw,
	}, nil
}

// FetchResult copies the configured sample asset into storage and returns
// its location. Without a configured asset it reports a descriptive failure.
func (a *SampleAdapter) FetchResult(ctx context.Context, taskID string) (FetchResult, error) {
	if a.assetPath == "" {
		return FetchResult{Success: false, Message: "no sample asset configured"}, nil
	}

	videoURL, err := a.copyAsset(ctx, a.assetPath, taskID+filepath.Ext(a.assetPath))
	if err != nil {
		return FetchResult{Success: false, Message: fmt.Sprintf("copy sample asset: %v", err)}, nil
	}

	var thumbURL string
	if a.thumbPath != "" {
		// Thumbnail is best-effort; a missing thumb never fails the fetch.
		if url, err := a.copyAsset(ctx, a.thumbPath, taskID+filepath.Ext(a.thumbPath)); err == nil {
			thumbURL = url
		}
	}

	return FetchResult{
		Success:      true,
		VideoURL:     videoURL,
		ThumbnailURL: thumbURL,
		Duration:     5.0,
		Width:        720,
		Height:       1280,
	}, nil
}

// copyAsset copies a local asset through storage, preferring S3 when
// configured and falling back to a local temp copy.
func (a *SampleAdapter) copyAsset(ctx context.Context, srcPath, key string) (string, error) {
	f, err := os.Open(srcPath) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	url, err := a.store.Upload(ctx, key, f)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, storage.ErrS3NotConfigured) {
		return "", err
	}

	// Rewind and keep a local copy instead.
	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}
	path, err := a.store.SaveTemp(ctx, key, f)
	if err != nil {
		return "", err
	}
	return "file://" + path, nil
}

// CancelTask always returns false: sample tasks complete instantly, so there
// is nothing to cancel and no backend to contact.
func (a *SampleAdapter) CancelTask(_ context.Context, _ string) bool {
	return false
}

// SupportedFormats lists the aspect-ratio tags the fallback accepts.
func (a *SampleAdapter) SupportedFormats() []Format {
	return []Format{FormatLandscape, FormatPortrait, FormatSquare}
}

// SupportedPresets lists the named motion presets the fallback accepts.
func (a *SampleAdapter) SupportedPresets() []string {
	return []string{"gentle_sway", "slow_zoom"}
}

// Compile-time check that SampleAdapter implements Adapter.
var _ Adapter = (*SampleAdapter)(nil)
