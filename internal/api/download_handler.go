package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/tubetone/tubetone-api/internal/api/shared"
	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/service"
	"github.com/tubetone/tubetone-api/internal/task"
)

// DownloadHandler serves finished audio artifacts, either as a file
// download or as an in-browser stream with range support.
type DownloadHandler struct {
	conversionService service.ConversionService
}

// NewDownloadHandler creates a new DownloadHandler
func NewDownloadHandler(conversionService service.ConversionService) *DownloadHandler {
	return &DownloadHandler{conversionService: conversionService}
}

// Download handles GET /api/download/{taskId} requests, serving the MP3 as
// an attachment.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	view, ok := h.artifact(w, r)
	if !ok {
		return
	}

	filename := domain.SanitizeTitle(view.Title) + ".mp3"
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.serve(w, r, view)
}

// Stream handles GET /api/stream/{taskId} requests, serving the MP3 inline
// so browser audio players can seek through it.
func (h *DownloadHandler) Stream(w http.ResponseWriter, r *http.Request) {
	view, ok := h.artifact(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.serve(w, r, view)
}

func (h *DownloadHandler) artifact(w http.ResponseWriter, r *http.Request) (*task.View, bool) {
	id, ok := taskIDFromRequest(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return nil, false
	}

	view, err := h.conversionService.GetArtifact(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return nil, false
	}
	return view, true
}

// serve writes the audio bytes through http.ServeContent, which handles
// Range requests, HEAD, and conditional headers.
func (h *DownloadHandler) serve(w http.ResponseWriter, r *http.Request, view *task.View) {
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, "", view.UpdatedAt, bytes.NewReader(view.Audio))
}
