// Package pixverse provides an HTTP client for the PixVerse video generation API.
package pixverse

// Status represents the status of a PixVerse task as reported upstream.
// The provider adapter owns the mapping into the normalized vocabulary.
type Status string

// PixVerse task statuses as documented by the upstream API.
const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
	StatusCanceled   Status = "canceled"
)

// CreateTaskRequest is the request body for the task creation endpoint.
type CreateTaskRequest struct {
	Image       string  `json:"image"`
	Prompt      string  `json:"prompt"`
	Duration    int     `json:"duration"`
	AspectRatio string  `json:"aspect_ratio"`
	CFGScale    float64 `json:"cfg_scale"`
	MotionMode  string  `json:"motion_mode"`
}

// CreateTaskResponse is the response from the task creation endpoint.
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TaskStatusResponse is the response from the status endpoint.
type TaskStatusResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TaskResultResponse is the response from the result endpoint.
type TaskResultResponse struct {
	VideoURL     string  `json:"video_url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// cancelResponse is the response from the cancel endpoint.
type cancelResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
