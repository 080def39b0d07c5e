package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tubetone/tubetone-api/internal/api/shared"
	"github.com/tubetone/tubetone-api/internal/service"
)

// ConvertHandler handles conversion submission requests
type ConvertHandler struct {
	conversionService service.ConversionService
	validator         *validator.Validate
}

// NewConvertHandler creates a new ConvertHandler
func NewConvertHandler(conversionService service.ConversionService) *ConvertHandler {
	return &ConvertHandler{
		conversionService: conversionService,
		validator:         validator.New(),
	}
}

// Convert handles POST /api/convert requests. A cache hit returns 200 with
// a finished task; otherwise the task is queued and returned with 202.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "URL is required")
		return
	}

	view, cached, err := h.conversionService.Convert(r.Context(), req.URL)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	status := http.StatusAccepted
	resp := taskToResponse(view, cached)
	resp.Message = "Conversion started"
	if cached {
		status = http.StatusOK
		resp.Message = "Conversion served from cache"
	}
	shared.RespondWithJSON(w, r, status, resp)
}
