package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tubetone/tubetone-api/internal/api/shared"
	"github.com/tubetone/tubetone-api/internal/service"
)

// TaskHandler handles task status and administration requests
type TaskHandler struct {
	conversionService service.ConversionService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(conversionService service.ConversionService) *TaskHandler {
	return &TaskHandler{conversionService: conversionService}
}

// taskIDFromRequest extracts and parses the taskId path parameter.
func taskIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// taskIDFromBody extracts and parses the task_id field from a JSON body.
func taskIDFromBody(r *http.Request) (uuid.UUID, bool) {
	var req TaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.TaskID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetStatus handles GET /api/status/{taskId} requests.
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromRequest(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	view, err := h.conversionService.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(view, false))
}

// Cleanup handles POST /api/cleanup requests. Only tasks stuck in
// processing are touched; anything else reports back as not stuck.
func (h *TaskHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromBody(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	view, cleaned, err := h.conversionService.Cleanup(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := CleanupResponse{
		TaskID:  view.ID.String(),
		Status:  string(view.Status),
		Cleaned: cleaned,
	}
	if cleaned {
		resp.Message = "Task cancelled"
	} else {
		resp.Message = "Task is not stuck, no cleanup needed"
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Retry handles POST /api/retry requests. Failed tasks are requeued;
// finished or in-flight tasks are reported back unchanged.
func (h *TaskHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromBody(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	view, restarted, err := h.conversionService.Retry(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := RetryResponse{
		TaskID:    view.ID.String(),
		Status:    string(view.Status),
		Restarted: restarted,
	}
	if restarted {
		resp.Message = "Conversion restarted"
	} else {
		resp.Message = "Task does not need a retry"
	}

	status := http.StatusOK
	if restarted {
		status = http.StatusAccepted
	}
	shared.RespondWithJSON(w, r, status, resp)
}
