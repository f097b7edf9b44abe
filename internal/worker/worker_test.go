package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomotion/photomotion-api/internal/job"
	"github.com/photomotion/photomotion-api/internal/metrics"
	"github.com/photomotion/photomotion-api/internal/notify"
	"github.com/photomotion/photomotion-api/internal/provider"
	"github.com/photomotion/photomotion-api/internal/video"
)

// fakeAdapter is a configurable adapter for worker tests.
type fakeAdapter struct {
	name    string
	create  func() (provider.CreateResult, error)
	poll    func() (provider.StatusResult, error)
	fetch   func() (provider.FetchResult, error)
	creates int
	polls   int
}

func (f *fakeAdapter) Name() string        { return f.name }
func (f *fakeAdapter) DisplayName() string { return f.name }
func (f *fakeAdapter) Enabled() bool       { return true }

func (f *fakeAdapter) CreateTask(context.Context, provider.TaskPayload) (provider.CreateResult, error) {
	f.creates++
	if f.create != nil {
		return f.create()
	}
	return provider.CreateResult{
		TaskID: provider.MakeTaskID(f.name, "task-1"),
		Status: provider.StatusPending,
	}, nil
}

func (f *fakeAdapter) PollStatus(context.Context, string) (provider.StatusResult, error) {
	f.polls++
	if f.poll != nil {
		return f.poll()
	}
	return provider.StatusResult{Status: provider.StatusProcessing, Progress: 50}, nil
}

func (f *fakeAdapter) FetchResult(context.Context, string) (provider.FetchResult, error) {
	if f.fetch != nil {
		return f.fetch()
	}
	return provider.FetchResult{
		Success:  true,
		VideoURL: "https://cdn.example.com/out.mp4",
		Duration: 5.0,
		Width:    720,
		Height:   1280,
	}, nil
}

func (f *fakeAdapter) CancelTask(context.Context, string) bool { return false }
func (f *fakeAdapter) SupportedFormats() []provider.Format     { return nil }
func (f *fakeAdapter) SupportedPresets() []string              { return nil }

// recordingNotifier captures delivered outcomes.
type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []notify.Outcome
	result   bool
}

func (n *recordingNotifier) Notify(_ context.Context, _ string, outcome notify.Outcome) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
	return n.result
}

func (n *recordingNotifier) delivered() []notify.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Outcome(nil), n.outcomes...)
}

type fixture struct {
	jobs     *job.MemoryRepository
	videos   *video.MemoryRepository
	registry *provider.Registry
	notifier *recordingNotifier
	worker   *Worker
}

func newFixture(t *testing.T, adapters ...provider.Adapter) *fixture {
	t.Helper()

	f := &fixture{
		jobs:     job.NewMemoryRepository(),
		videos:   video.NewMemoryRepository(),
		registry: provider.NewRegistry("pixverse", "sample"),
		notifier: &recordingNotifier{result: true},
	}
	for _, a := range adapters {
		f.registry.Register(a)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.worker = New(f.jobs, f.videos, f.registry, f.notifier, metrics.New(), logger, Config{
		Interval:      time.Millisecond,
		BatchSize:     5,
		PublicBaseURL: "https://photomotion.example.com",
	})
	return f
}

// seedJob creates a video and a queued job bound to it.
func (f *fixture) seedJob(t *testing.T, providerName string, maxAttempts int) *job.Job {
	t.Helper()
	ctx := context.Background()

	v := &video.Video{UserID: 42, Title: "Holiday photo", Status: video.StatusPending, ShareToken: "tok123"}
	require.NoError(t, f.videos.Create(ctx, v))

	params, _ := json.Marshal(provider.TaskPayload{
		ImageURL: "https://example.com/photo.jpg",
		Format:   provider.FormatPortrait,
		Preset:   "gentle_sway",
	})
	j := job.New(42, v.ID, providerName, params, maxAttempts)
	require.NoError(t, f.jobs.Create(ctx, j))
	return j
}

func (f *fixture) reload(t *testing.T, id int64) *job.Job {
	t.Helper()
	j, err := f.jobs.FindByID(context.Background(), id)
	require.NoError(t, err)
	return j
}

func (f *fixture) reloadVideo(t *testing.T, id int64) *video.Video {
	t.Helper()
	v, err := f.videos.FindByID(context.Background(), id)
	require.NoError(t, err)
	return v
}

func TestWorker_SubmitsQueuedJob(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "pixverse-task-1", got.ProviderTaskID)
	assert.NotNil(t, got.StartedAt)

	v := f.reloadVideo(t, j.VideoID)
	assert.Equal(t, video.StatusProcessing, v.Status)
}

func TestWorker_CompletesJobAndMirrorsVideo(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{
			Status:   provider.StatusSucceeded,
			Progress: 100,
			Raw:      []byte(`{"status":"completed"}`),
		}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	// Pass 1 submits, pass 2 polls and completes.
	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusSucceeded, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.NotNil(t, got.CompletedAt)

	// The persisted result keeps the poll payload and gains the fetched URL.
	var resultData map[string]any
	require.NoError(t, json.Unmarshal(got.ResultData, &resultData))
	assert.Equal(t, "completed", resultData["status"])
	assert.Equal(t, "https://cdn.example.com/out.mp4", resultData["video_url"])

	v := f.reloadVideo(t, j.VideoID)
	assert.Equal(t, video.StatusCompleted, v.Status)
	assert.Equal(t, "https://cdn.example.com/out.mp4", v.ResultVideoURL)
	assert.Equal(t, 5.0, v.Duration)
	assert.Equal(t, 720, v.Width)
	assert.Equal(t, 1280, v.Height)

	outcomes := f.notifier.delivered()
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded)
	assert.Equal(t, "Holiday photo", outcomes[0].Title)
	assert.Contains(t, outcomes[0].WatchURL, "/videos/")
	assert.Contains(t, outcomes[0].ShareURL, "/s/tok123")
}

func TestWorker_SucceededJobCarriesVideoURL(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		// No raw payload from the upstream at all.
		return provider.StatusResult{Status: provider.StatusSucceeded}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	require.Equal(t, job.StatusSucceeded, got.Status)

	var resultData map[string]any
	require.NoError(t, json.Unmarshal(got.ResultData, &resultData))
	assert.Equal(t, "https://cdn.example.com/out.mp4", resultData["video_url"])
	assert.Equal(t, 5.0, resultData["duration"])
}

func TestWorker_RetriesFailedSubmission(t *testing.T) {
	var fails int
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.create = func() (provider.CreateResult, error) {
		if fails < 2 {
			fails++
			return provider.CreateResult{}, errors.New("upstream overloaded")
		}
		return provider.CreateResult{TaskID: "pixverse-task-9", Status: provider.StatusPending}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	// Two failed submissions keep the job queued with the budget spent.
	require.NoError(t, f.worker.RunOnce(context.Background()))
	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Empty(t, got.ErrorMessage)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	got = f.reload(t, j.ID)
	assert.Equal(t, job.StatusQueued, got.Status)
	assert.Equal(t, 2, got.Attempts)

	// Third attempt succeeds.
	require.NoError(t, f.worker.RunOnce(context.Background()))
	got = f.reload(t, j.ID)
	assert.Equal(t, job.StatusProcessing, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "pixverse-task-9", got.ProviderTaskID)
}

func TestWorker_ExhaustedAttemptsFailTerminally(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.create = func() (provider.CreateResult, error) {
		return provider.CreateResult{}, errors.New("image rejected")
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.worker.RunOnce(context.Background()))
	}

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Contains(t, got.ErrorMessage, "image rejected")
	assert.NotNil(t, got.CompletedAt)

	v := f.reloadVideo(t, j.VideoID)
	assert.Equal(t, video.StatusFailed, v.Status)

	outcomes := f.notifier.delivered()
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Succeeded)
	assert.Contains(t, outcomes[0].Reason, "image rejected")

	// A terminal job never comes back.
	require.NoError(t, f.worker.RunOnce(context.Background()))
	assert.Equal(t, 3, adapter.creates)
}

func TestWorker_PollFailureRequeues(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{}, errors.New("poll timeout")
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	// The poll failure resets the job without consuming a fresh attempt:
	// the attempt was spent at submission time.
	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
}

func TestWorker_UpstreamFailureReportedByPoll(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusFailed, Error: "nsfw content"}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 1)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Equal(t, "nsfw content", got.ErrorMessage)
}

func TestWorker_ProcessingOnFinalAttemptStillPolled(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 1)

	// Submission consumes the sole attempt; the processing job must still
	// be polled to completion.
	require.NoError(t, f.worker.RunOnce(context.Background()))
	got := f.reload(t, j.ID)
	require.Equal(t, job.StatusProcessing, got.Status)
	require.Equal(t, 1, got.Attempts)

	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusSucceeded}, nil
	}
	require.NoError(t, f.worker.RunOnce(context.Background()))
	got = f.reload(t, j.ID)
	assert.Equal(t, job.StatusSucceeded, got.Status)
}

func TestWorker_ProgressRecordedWhileRunning(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusProcessing, Progress: 73}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusProcessing, got.Status)
	assert.Equal(t, 73, got.Progress)
	assert.Equal(t, 1, got.Attempts)
}

func TestWorker_UnknownStatusLeavesStateAlone(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusUnknown}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusProcessing, got.Status)
}

func TestWorker_FetchNotReadyCountsAsFailure(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusSucceeded}, nil
	}
	adapter.fetch = func() (provider.FetchResult, error) {
		return provider.FetchResult{Success: false, Message: "result expired"}, nil
	}
	f := newFixture(t, adapter)
	j := f.seedJob(t, "pixverse", 1)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "result expired")
}

func TestWorker_BatchIsFIFO(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	f := newFixture(t, adapter)

	first := f.seedJob(t, "pixverse", 3)
	time.Sleep(2 * time.Millisecond)
	second := f.seedJob(t, "pixverse", 3)

	f.worker.batchSize = 1
	require.NoError(t, f.worker.RunOnce(context.Background()))

	assert.Equal(t, job.StatusProcessing, f.reload(t, first.ID).Status)
	assert.Equal(t, job.StatusQueued, f.reload(t, second.ID).Status)
}

func TestWorker_OneJobFailureDoesNotAbortBatch(t *testing.T) {
	flaky := &fakeAdapter{name: "pixverse"}
	flaky.create = func() (provider.CreateResult, error) {
		return provider.CreateResult{}, errors.New("boom")
	}
	steady := &fakeAdapter{name: "sample"}
	f := newFixture(t, flaky, steady)

	bad := f.seedJob(t, "pixverse", 3)
	good := f.seedJob(t, "sample", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))

	assert.Equal(t, job.StatusQueued, f.reload(t, bad.ID).Status)
	assert.Equal(t, job.StatusProcessing, f.reload(t, good.ID).Status)
}

func TestWorker_UnknownProviderConsumesAttempt(t *testing.T) {
	f := newFixture(t)
	j := f.seedJob(t, "ghost", 1)

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "unknown provider")
}

func TestWorker_OrphanResumedByTaskIDPrefix(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusSucceeded}, nil
	}
	f := newFixture(t, adapter)

	// A processing job whose provider name no longer resolves; only the
	// task-id prefix identifies the owner.
	j := f.seedJob(t, "pixverse-legacy", 3)
	require.NoError(t, j.Start(provider.MakeTaskID("pixverse", "orphan-1")))
	require.NoError(t, f.jobs.Update(context.Background(), j))

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.reload(t, j.ID)
	assert.Equal(t, job.StatusSucceeded, got.Status)
	assert.Equal(t, 1, adapter.polls)
}

func TestWorker_NotifierFailureIsSwallowed(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	adapter.poll = func() (provider.StatusResult, error) {
		return provider.StatusResult{Status: provider.StatusSucceeded}, nil
	}
	f := newFixture(t, adapter)
	f.notifier.result = false
	j := f.seedJob(t, "pixverse", 3)

	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.NoError(t, f.worker.RunOnce(context.Background()))

	assert.Equal(t, job.StatusSucceeded, f.reload(t, j.ID).Status)
	assert.Len(t, f.notifier.delivered(), 1)
}

// failingJobRepo wraps the memory repository to inject store failures.
type failingJobRepo struct {
	*job.MemoryRepository
	listErr error
}

func (r *failingJobRepo) ListDue(ctx context.Context, limit int) ([]*job.Job, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.MemoryRepository.ListDue(ctx, limit)
}

func TestWorker_StoreFailureAbortsPass(t *testing.T) {
	repo := &failingJobRepo{
		MemoryRepository: job.NewMemoryRepository(),
		listErr:          errors.New("connection refused"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(repo, video.NewMemoryRepository(), provider.NewRegistry("pixverse", "sample"),
		nil, metrics.New(), logger, Config{})

	err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list due jobs")
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	adapter := &fakeAdapter{name: "pixverse"}
	f := newFixture(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
