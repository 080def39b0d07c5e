package api

import (
	"time"

	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/task"
)

// ConvertRequest defines the payload for the conversion endpoint.
type ConvertRequest struct {
	URL string `json:"url" validate:"required,min=1"`
}

// TaskRequest defines the payload for the cleanup and retry endpoints.
type TaskRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// TaskResponse represents a conversion task as exposed over the API.
type TaskResponse struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Title     string    `json:"title,omitempty"`
	FileURL   string    `json:"file_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CleanupResponse reports the outcome of a cleanup request.
type CleanupResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Cleaned bool   `json:"cleaned"`
	Message string `json:"message"`
}

// RetryResponse reports the outcome of a retry request.
type RetryResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	Restarted bool   `json:"restarted"`
	Message   string `json:"message"`
}

// taskToResponse converts a task view to its API representation. Finished
// tasks carry the download path so polling clients never have to build it.
func taskToResponse(view *task.View, cached bool) TaskResponse {
	resp := TaskResponse{
		TaskID:    view.ID.String(),
		Status:    string(view.Status),
		Progress:  view.Progress,
		Title:     view.Title,
		Error:     view.ErrorMessage,
		Cached:    cached,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
		ExpiresAt: view.ExpiresAt,
	}
	if view.Status == domain.TaskStatusFinished {
		resp.FileURL = "/api/download/" + resp.TaskID
	}
	return resp
}
