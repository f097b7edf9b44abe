// Package worker drives generation jobs through their lifecycle. A single
// pass picks up due jobs, submits queued ones to their provider, polls
// processing ones, and mirrors terminal outcomes onto video records.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/photomotion/photomotion-api/internal/job"
	"github.com/photomotion/photomotion-api/internal/metrics"
	"github.com/photomotion/photomotion-api/internal/notify"
	"github.com/photomotion/photomotion-api/internal/provider"
	"github.com/photomotion/photomotion-api/internal/video"
)

// Config holds worker tuning parameters.
type Config struct {
	// Interval is the sleep between passes in continuous mode.
	Interval time.Duration
	// BatchSize bounds the number of jobs handled per pass.
	BatchSize int
	// PublicBaseURL is used to build watch/share links for notifications.
	PublicBaseURL string
}

// Worker executes generation passes. Jobs are handled sequentially within a
// pass; one job's provider failure never aborts the batch, but a store-level
// failure does.
type Worker struct {
	jobs     job.Repository
	videos   video.Repository
	registry *provider.Registry
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	interval  time.Duration
	batchSize int
	baseURL   string
}

// New creates a Worker. A nil notifier is replaced with a noop one and a nil
// logger with the default.
func New(
	jobs job.Repository,
	videos video.Repository,
	registry *provider.Registry,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewNoopNotifier(logger)
	}
	if m == nil {
		m = metrics.New()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Worker{
		jobs:      jobs,
		videos:    videos,
		registry:  registry,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		baseURL:   cfg.PublicBaseURL,
	}
}

// Run executes passes continuously until the context is cancelled. Pass
// errors are logged and the loop keeps going; only cancellation stops it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		slog.Duration("interval", w.interval),
		slog.Int("batch_size", w.batchSize))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			w.logger.Error("worker pass failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
		}
	}

	w.logger.Info("worker stopped")
	return nil
}

// RunOnce executes a single pass: it loads due jobs and dispatches each one.
// Suitable for external schedulers that cannot keep a process alive.
func (w *Worker) RunOnce(ctx context.Context) error {
	start := time.Now()

	due, err := w.jobs.ListDue(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("worker: list due jobs: %w", err)
	}

	for _, j := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.dispatch(ctx, j); err != nil {
			return err
		}
	}

	w.metrics.ObservePass(time.Since(start).Seconds())
	return nil
}

// dispatch routes one job by its current state. Only store-level failures
// propagate; provider failures are absorbed into the attempt bookkeeping.
func (w *Worker) dispatch(ctx context.Context, j *job.Job) error {
	switch j.GetStatus() {
	case job.StatusQueued:
		return w.startJob(ctx, j)
	case job.StatusProcessing:
		return w.pollJob(ctx, j)
	default:
		// Terminal jobs are not due; seeing one means the store raced us.
		w.logger.Warn("skipping job in unexpected state",
			slog.Int64("job_id", j.ID),
			slog.String("status", string(j.GetStatus())))
		return nil
	}
}

// startJob submits a queued job to its provider.
func (w *Worker) startJob(ctx context.Context, j *job.Job) error {
	adapter, err := w.registry.Get(j.Provider)
	if err != nil {
		return w.failAttempt(ctx, j, fmt.Sprintf("unknown provider %q", j.Provider))
	}

	var payload provider.TaskPayload
	if err := json.Unmarshal(j.InputParams, &payload); err != nil {
		return w.failAttempt(ctx, j, "invalid input params: "+err.Error())
	}

	w.metrics.JobStarted()
	defer w.metrics.JobFinished()

	res, err := adapter.CreateTask(ctx, payload)
	if err != nil {
		w.logger.Warn("task submission failed",
			slog.Int64("job_id", j.ID),
			slog.String("provider", j.Provider),
			slog.Int("attempts", j.Attempts),
			slog.String("error", err.Error()))
		return w.failAttempt(ctx, j, err.Error())
	}

	if err := j.Start(res.TaskID); err != nil {
		w.logger.Error("cannot start job",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()))
		return nil
	}
	if err := w.updateJob(ctx, j); err != nil {
		return err
	}
	if err := w.setVideoStatus(ctx, j.VideoID, video.StatusProcessing); err != nil {
		return err
	}

	w.metrics.CountJob(metrics.OutcomeStarted, j.Provider)
	w.logger.Info("task submitted",
		slog.Int64("job_id", j.ID),
		slog.String("provider", j.Provider),
		slog.String("task_id", res.TaskID),
		slog.Int("attempt", j.Attempts))
	return nil
}

// pollJob checks a processing job's upstream status and acts on it.
func (w *Worker) pollJob(ctx context.Context, j *job.Job) error {
	adapter, err := w.resolveAdapter(j)
	if err != nil {
		return w.failAttempt(ctx, j, err.Error())
	}

	w.metrics.JobStarted()
	defer w.metrics.JobFinished()

	res, err := adapter.PollStatus(ctx, j.ProviderTaskID)
	if err != nil {
		w.logger.Warn("status poll failed",
			slog.Int64("job_id", j.ID),
			slog.String("task_id", j.ProviderTaskID),
			slog.String("error", err.Error()))
		return w.failAttempt(ctx, j, err.Error())
	}

	if len(res.Raw) > 0 {
		j.SetResultData(res.Raw)
	}

	switch res.Status {
	case provider.StatusSucceeded:
		return w.completeJob(ctx, j, adapter)
	case provider.StatusFailed:
		msg := res.Error
		if msg == "" {
			msg = "provider reported failure"
		}
		return w.failAttempt(ctx, j, msg)
	default:
		// Still running upstream; record progress and wait for the next pass.
		j.SetProgress(res.Progress)
		return w.updateJob(ctx, j)
	}
}

// completeJob fetches the result of a succeeded task and mirrors it onto the
// job and its video record.
func (w *Worker) completeJob(ctx context.Context, j *job.Job, adapter provider.Adapter) error {
	fetch, err := adapter.FetchResult(ctx, j.ProviderTaskID)
	if err != nil {
		w.logger.Warn("result fetch failed",
			slog.Int64("job_id", j.ID),
			slog.String("task_id", j.ProviderTaskID),
			slog.String("error", err.Error()))
		return w.failAttempt(ctx, j, err.Error())
	}
	if !fetch.Success {
		// The upstream said succeeded but withheld the result.
		return w.failAttempt(ctx, j, fetch.Message)
	}

	if err := j.Succeed(); err != nil {
		w.logger.Error("cannot complete job",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()))
		return nil
	}
	j.SetProgress(100)
	j.SetResultData(mergeResultData(j.ResultData, fetch))
	if err := w.updateJob(ctx, j); err != nil {
		return err
	}

	v, err := w.videos.FindByID(ctx, j.VideoID)
	if err != nil {
		if errors.Is(err, video.ErrVideoNotFound) {
			w.logger.Warn("video vanished before result mirror",
				slog.Int64("job_id", j.ID),
				slog.Int64("video_id", j.VideoID))
			return nil
		}
		return fmt.Errorf("worker: load video %d: %w", j.VideoID, err)
	}

	v.ApplyResult(video.Result{
		VideoURL:     fetch.VideoURL,
		ThumbnailURL: fetch.ThumbnailURL,
		Duration:     fetch.Duration,
		Width:        fetch.Width,
		Height:       fetch.Height,
	})
	if err := w.videos.Update(ctx, v); err != nil {
		if errors.Is(err, video.ErrVideoNotFound) {
			return nil
		}
		return fmt.Errorf("worker: update video %d: %w", v.ID, err)
	}

	w.metrics.CountJob(metrics.OutcomeSucceeded, j.Provider)
	w.logger.Info("job succeeded",
		slog.Int64("job_id", j.ID),
		slog.Int64("video_id", v.ID),
		slog.String("provider", j.Provider))

	w.sendNotification(ctx, j, v, true, "")
	return nil
}

// mergeResultData folds the fetched output into the last poll payload, so a
// succeeded job always carries its video URL in the persisted result.
func mergeResultData(raw json.RawMessage, fetch provider.FetchResult) json.RawMessage {
	data := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = map[string]any{}
		}
	}
	data["video_url"] = fetch.VideoURL
	if fetch.ThumbnailURL != "" {
		data["thumbnail_url"] = fetch.ThumbnailURL
	}
	if fetch.Duration > 0 {
		data["duration"] = fetch.Duration
	}
	if fetch.Width > 0 {
		data["width"] = fetch.Width
	}
	if fetch.Height > 0 {
		data["height"] = fetch.Height
	}
	merged, err := json.Marshal(data)
	if err != nil {
		return raw
	}
	return merged
}

// failAttempt records a failed attempt. The job either resets to queued for
// a later pass or, with the budget exhausted, fails terminally and has the
// failure mirrored onto its video.
func (w *Worker) failAttempt(ctx context.Context, j *job.Job, msg string) error {
	terminal, err := j.RecordFailure(msg)
	if err != nil {
		w.logger.Error("cannot record failure",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()))
		return nil
	}
	if err := w.updateJob(ctx, j); err != nil {
		return err
	}

	if !terminal {
		w.metrics.CountJob(metrics.OutcomeRetried, j.Provider)
		w.logger.Info("job attempt failed, will retry",
			slog.Int64("job_id", j.ID),
			slog.String("provider", j.Provider),
			slog.Int("attempts", j.Attempts),
			slog.Int("max_attempts", j.MaxAttempts),
			slog.String("reason", msg))
		return nil
	}

	if err := w.setVideoStatus(ctx, j.VideoID, video.StatusFailed); err != nil {
		return err
	}

	w.metrics.CountJob(metrics.OutcomeFailed, j.Provider)
	w.logger.Error("job failed permanently",
		slog.Int64("job_id", j.ID),
		slog.Int64("video_id", j.VideoID),
		slog.String("provider", j.Provider),
		slog.Int("attempts", j.Attempts),
		slog.String("reason", msg))

	if v, err := w.videos.FindByID(ctx, j.VideoID); err == nil {
		w.sendNotification(ctx, j, v, false, msg)
	} else {
		w.sendNotification(ctx, j, nil, false, msg)
	}
	return nil
}

// resolveAdapter finds the adapter for a processing job, falling back to the
// task-id prefix when the job's provider name is no longer registered.
func (w *Worker) resolveAdapter(j *job.Job) (provider.Adapter, error) {
	adapter, err := w.registry.Get(j.Provider)
	if err == nil {
		return adapter, nil
	}
	if j.ProviderTaskID == "" {
		return nil, err
	}
	return w.registry.ForTaskID(j.ProviderTaskID)
}

// sendNotification delivers an outcome, fire-and-forget. A nil video still
// produces a minimal failure notice.
func (w *Worker) sendNotification(ctx context.Context, j *job.Job, v *video.Video, succeeded bool, reason string) {
	outcome := notify.Outcome{
		VideoID:   j.VideoID,
		Succeeded: succeeded,
		Reason:    reason,
	}
	if v != nil {
		outcome.Title = v.Title
		outcome.WatchURL = w.watchURL(v.ID)
		if v.ShareToken != "" {
			outcome.ShareURL = w.shareURL(v.ShareToken)
		}
	}

	// Chat handles mirror user ids in the Telegram deployment.
	chat := strconv.FormatInt(j.UserID, 10)
	if ok := w.notifier.Notify(ctx, chat, outcome); !ok {
		w.logger.Warn("notification delivery failed",
			slog.Int64("job_id", j.ID),
			slog.Int64("user_id", j.UserID))
	}
}

func (w *Worker) watchURL(videoID int64) string {
	if w.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/videos/%d", w.baseURL, videoID)
}

func (w *Worker) shareURL(token string) string {
	if w.baseURL == "" {
		return ""
	}
	return w.baseURL + "/s/" + token
}

// updateJob persists a job, tolerating its disappearance mid-pass.
func (w *Worker) updateJob(ctx context.Context, j *job.Job) error {
	if err := w.jobs.Update(ctx, j); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			w.logger.Warn("job vanished mid-pass", slog.Int64("job_id", j.ID))
			return nil
		}
		return fmt.Errorf("worker: update job %d: %w", j.ID, err)
	}
	return nil
}

// setVideoStatus mirrors a job state onto its video, tolerating a missing
// video record.
func (w *Worker) setVideoStatus(ctx context.Context, videoID int64, status video.Status) error {
	if err := w.videos.SetStatus(ctx, videoID, status); err != nil {
		if errors.Is(err, video.ErrVideoNotFound) {
			w.logger.Warn("video vanished mid-pass", slog.Int64("video_id", videoID))
			return nil
		}
		return fmt.Errorf("worker: set video %d status: %w", videoID, err)
	}
	return nil
}
