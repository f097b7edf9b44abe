// Package server provides the HTTP server for the PhotoMotion API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// CreateGenerationRequest is the HTTP request body for starting a generation.
type CreateGenerationRequest struct {
	// UserID is the owning user. Authentication happens upstream of this API.
	UserID int64 `json:"user_id" validate:"required,min=1"`
	// ImageURL references the uploaded source photo.
	ImageURL string `json:"image_url" validate:"required,url"`
	// Title is an optional display title for the resulting video.
	Title string `json:"title" validate:"max=200"`
	// Prompt optionally guides the animation.
	Prompt string `json:"prompt" validate:"max=1000"`
	// Duration is the target clip length in seconds.
	Duration int `json:"duration" validate:"omitempty,min=1,max=30"`
	// Format is the aspect-ratio tag.
	Format string `json:"format" validate:"required,oneof=16:9 9:16 1:1"`
	// Preset is the named motion preset; empty picks the provider default.
	Preset string `json:"preset" validate:"max=64"`
	// Provider optionally names a preferred provider.
	Provider string `json:"provider" validate:"max=64"`
}

// CreateGenerationResponse is the HTTP response after starting a generation.
type CreateGenerationResponse struct {
	// JobID identifies the generation job for status polling.
	JobID int64 `json:"job_id"`
	// VideoID identifies the video record being produced.
	VideoID int64 `json:"video_id"`
	// Status is the initial job status.
	Status string `json:"status"`
	// Provider is the adapter chosen for the job.
	Provider string `json:"provider"`
	// Balance is the user's credit balance after the debit.
	Balance int `json:"balance"`
}

// VideoInfo is the video portion of a generation status response.
type VideoInfo struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title,omitempty"`
	Status       string  `json:"status"`
	VideoURL     string  `json:"video_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	ShareToken   string  `json:"share_token,omitempty"`
}

// GenerationResponse is the HTTP response for polling a generation.
type GenerationResponse struct {
	JobID    int64  `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Attempts int    `json:"attempts"`
	Provider string `json:"provider"`
	// Error contains the failure message for terminally failed jobs.
	Error string `json:"error,omitempty"`
	// Video carries the mirrored video record when it still exists.
	Video *VideoInfo `json:"video,omitempty"`
}

// ListGenerationsResponse is the HTTP response listing a user's generations.
type ListGenerationsResponse struct {
	Generations []GenerationResponse `json:"generations"`
}

// GrantCreditsRequest is the payment webhook body crediting a user.
type GrantCreditsRequest struct {
	UserID int64 `json:"user_id" validate:"required,min=1"`
	Amount int   `json:"amount" validate:"required,min=1"`
	// Description labels the ledger entry, e.g. the purchased pack name.
	Description string `json:"description" validate:"max=200"`
	// ReferenceID ties the entry to the upstream payment.
	ReferenceID int64 `json:"reference_id"`
}

// GrantCreditsResponse reports the balance after a credit grant.
type GrantCreditsResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int   `json:"balance"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
