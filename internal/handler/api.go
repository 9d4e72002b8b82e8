package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/yogaaditandanu/medical-image-analysis/internal/classify"
	"github.com/yogaaditandanu/medical-image-analysis/internal/models"
	"github.com/yogaaditandanu/medical-image-analysis/internal/prompt"
	"github.com/yogaaditandanu/medical-image-analysis/internal/staging"
)

type analyzer interface {
	Analyze(ctx context.Context, sessionID string, upload models.Upload, mode prompt.Mode) (classify.Outcome, error)
}

type APIHandler struct {
	service       analyzer
	maxUploadSize int64
}

func NewAPIHandler(service analyzer, maxUploadSize int64) *APIHandler {
	return &APIHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// Analyze godoc
// @Summary Analyze medical image
// @Description Sends the uploaded X-ray/CT/MRI/USG image with the fixed instruction prompt to the model and returns the report. Rate-limit and model-not-found replies are returned as classified outcomes, not as raw text.
// @Tags analyze
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Medical image (jpg, jpeg, png)"
// @Param mode formData string false "Explanation mode" Enums(professional, patient) default(professional)
// @Success 200 {object} models.AnalyzeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/analyze [post]
func (h *APIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r, h.maxUploadSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("request validation failed: %s", err)})
		return
	}

	mode := prompt.ModeProfessional
	if v := r.FormValue("mode"); v != "" {
		if mode, err = prompt.ParseMode(v); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
	}

	outcome, err := h.service.Analyze(r.Context(), "", *upload, mode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, staging.ErrUnsupportedImage) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, models.ErrorResponse{Error: fmt.Sprintf("service error: %s", err)})
		return
	}

	writeJSON(w, http.StatusOK, models.AnalyzeResponse{
		Kind:    string(outcome.Kind),
		Mode:    mode.Slug(),
		Result:  outcome.Result,
		Message: outcome.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to encode: %s", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
