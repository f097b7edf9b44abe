package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/photomotion/photomotion-api/internal/job"
	"github.com/photomotion/photomotion-api/internal/ledger"
	"github.com/photomotion/photomotion-api/internal/provider"
	"github.com/photomotion/photomotion-api/internal/video"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	jobs     job.Repository
	videos   video.Repository
	credits  *ledger.Service
	registry *provider.Registry

	validator *validator.Validate
	logger    *slog.Logger

	generationCost    int
	maxAttempts       int
	preferredProvider string
	signupCredits     int
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithGenerationCost sets the credits debited per generation.
func WithGenerationCost(cost int) HandlerOption {
	return func(h *Handlers) {
		h.generationCost = cost
	}
}

// WithMaxAttempts sets the attempt budget stamped onto new jobs.
func WithMaxAttempts(n int) HandlerOption {
	return func(h *Handlers) {
		h.maxAttempts = n
	}
}

// WithPreferredProvider sets the default provider preference for requests
// that do not name one.
func WithPreferredProvider(name string) HandlerOption {
	return func(h *Handlers) {
		h.preferredProvider = name
	}
}

// WithSignupCredits sets the grant seeded onto accounts with no ledger
// history. Zero disables the grant.
func WithSignupCredits(n int) HandlerOption {
	return func(h *Handlers) {
		h.signupCredits = n
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	jobs job.Repository,
	videos video.Repository,
	credits *ledger.Service,
	registry *provider.Registry,
	logger *slog.Logger,
	opts ...HandlerOption,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		jobs:           jobs,
		videos:         videos,
		credits:        credits,
		registry:       registry,
		validator:      validator.New(),
		logger:         logger,
		generationCost: 1,
		maxAttempts:    3,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateGeneration handles POST /api/generations requests. It debits the
// user's credits, creates the video record and its queued job, and leaves
// the rest to the worker.
func (h *Handlers) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req CreateGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	preferred := req.Provider
	if preferred == "" {
		preferred = h.preferredProvider
	}
	adapter, err := h.registry.Best(preferred)
	if err != nil {
		h.logger.Error("no provider available", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "no generation provider available", "NO_PROVIDER")
		return
	}

	preset := req.Preset
	if preset == "" {
		if presets := adapter.SupportedPresets(); len(presets) > 0 {
			preset = presets[0]
		}
	} else if !slices.Contains(adapter.SupportedPresets(), preset) {
		writeError(w, http.StatusBadRequest, "unsupported preset for provider "+adapter.Name(), "UNSUPPORTED_PRESET")
		return
	}

	balance, err := h.credits.Balance(r.Context(), req.UserID)
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		// First touch: seed the account with the signup grant.
		if h.signupCredits > 0 {
			entry, grantErr := h.credits.Credit(r.Context(), req.UserID, h.signupCredits,
				"signup grant", ledger.RefSignup, req.UserID)
			if grantErr != nil {
				h.logger.Error("signup grant failed",
					slog.Int64("user_id", req.UserID),
					slog.String("error", grantErr.Error()),
				)
				writeError(w, http.StatusInternalServerError, "failed to check balance", "BALANCE_CHECK_FAILED")
				return
			}
			balance = entry.ResultingBalance
		}
	case err != nil:
		h.logger.Error("balance lookup failed",
			slog.Int64("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to check balance", "BALANCE_CHECK_FAILED")
		return
	}
	if balance < h.generationCost {
		writeError(w, http.StatusPaymentRequired, "insufficient credits", "INSUFFICIENT_CREDITS")
		return
	}

	v := &video.Video{
		UserID:         req.UserID,
		Title:          req.Title,
		Status:         video.StatusPending,
		SourceImageURL: req.ImageURL,
		ShareToken:     uuid.NewString(),
	}
	if err := h.videos.Create(r.Context(), v); err != nil {
		h.logger.Error("failed to create video", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create video", "VIDEO_CREATION_FAILED")
		return
	}

	params, err := json.Marshal(provider.TaskPayload{
		ImageURL: req.ImageURL,
		Prompt:   req.Prompt,
		Duration: req.Duration,
		Format:   provider.Format(req.Format),
		Preset:   preset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode task payload", "PAYLOAD_ENCODING_FAILED")
		return
	}

	j := job.New(req.UserID, v.ID, adapter.Name(), params, h.maxAttempts)
	if err := h.jobs.Create(r.Context(), j); err != nil {
		h.logger.Error("failed to create job", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	if _, err := h.credits.DebitForJob(r.Context(), req.UserID, h.generationCost, j.ID); err != nil {
		// The balance moved between check and debit; unwind the records so
		// the worker never picks up the unpaid job.
		if abandonErr := j.Abandon("credit debit failed"); abandonErr == nil {
			if updateErr := h.jobs.Update(r.Context(), j); updateErr != nil {
				h.logger.Error("failed to abandon unpaid job",
					slog.Int64("job_id", j.ID),
					slog.String("error", updateErr.Error()),
				)
			}
		}
		_ = h.videos.SetStatus(r.Context(), v.ID, video.StatusFailed)
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			writeError(w, http.StatusPaymentRequired, "insufficient credits", "INSUFFICIENT_CREDITS")
			return
		}
		h.logger.Error("failed to debit credits",
			slog.Int64("user_id", req.UserID),
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to debit credits", "DEBIT_FAILED")
		return
	}

	remaining, err := h.credits.Balance(r.Context(), req.UserID)
	if err != nil {
		remaining = balance - h.generationCost
	}

	h.logger.Info("generation created",
		slog.Int64("job_id", j.ID),
		slog.Int64("video_id", v.ID),
		slog.Int64("user_id", req.UserID),
		slog.String("provider", adapter.Name()),
	)

	writeJSON(w, http.StatusAccepted, CreateGenerationResponse{
		JobID:    j.ID,
		VideoID:  v.ID,
		Status:   string(j.Status),
		Provider: adapter.Name(),
		Balance:  remaining,
	})
}

// GetGeneration handles GET /api/generations/{id} requests.
func (h *Handlers) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid generation ID", "INVALID_ID")
		return
	}

	foundJob, err := h.jobs.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "generation not found", "NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.Int64("job_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get generation", "FETCH_FAILED")
		return
	}

	resp := GenerationResponse{
		JobID:    foundJob.ID,
		Status:   string(foundJob.Status),
		Progress: foundJob.Progress,
		Attempts: foundJob.Attempts,
		Provider: foundJob.Provider,
		Error:    foundJob.ErrorMessage,
	}

	if v, err := h.videos.FindByID(r.Context(), foundJob.VideoID); err == nil {
		resp.Video = &VideoInfo{
			ID:           v.ID,
			Title:        v.Title,
			Status:       string(v.Status),
			VideoURL:     v.ResultVideoURL,
			ThumbnailURL: v.ThumbnailURL,
			Duration:     v.Duration,
			Width:        v.Width,
			Height:       v.Height,
			ShareToken:   v.ShareToken,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListGenerations handles GET /api/users/{id}/generations requests. It
// returns the user's jobs newest first, without the video detail carried by
// the single-generation endpoint.
func (h *Handlers) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user ID", "INVALID_ID")
		return
	}

	jobs, err := h.jobs.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list generations", "FETCH_FAILED")
		return
	}

	resp := ListGenerationsResponse{Generations: make([]GenerationResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Generations = append(resp.Generations, GenerationResponse{
			JobID:    j.ID,
			Status:   string(j.Status),
			Progress: j.Progress,
			Attempts: j.Attempts,
			Provider: j.Provider,
			Error:    j.ErrorMessage,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GrantCredits handles POST /api/credits/grant requests from the payment
// system. It appends a credit entry and bumps the user's balance.
func (h *Handlers) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req GrantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	description := req.Description
	if description == "" {
		description = "credit purchase"
	}

	if _, err := h.credits.Credit(r.Context(), req.UserID, req.Amount, description, ledger.RefPayment, req.ReferenceID); err != nil {
		h.logger.Error("failed to grant credits",
			slog.Int64("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to grant credits", "GRANT_FAILED")
		return
	}

	balance, err := h.credits.Balance(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("balance lookup failed after grant",
			slog.Int64("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read balance", "BALANCE_CHECK_FAILED")
		return
	}

	h.logger.Info("credits granted",
		slog.Int64("user_id", req.UserID),
		slog.Int("amount", req.Amount),
		slog.Int("balance", balance),
	)

	writeJSON(w, http.StatusOK, GrantCreditsResponse{
		UserID:  req.UserID,
		Balance: balance,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
