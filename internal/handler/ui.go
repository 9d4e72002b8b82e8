package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/yogaaditandanu/medical-image-analysis/internal/classify"
	"github.com/yogaaditandanu/medical-image-analysis/internal/models"
	"github.com/yogaaditandanu/medical-image-analysis/internal/prompt"
	"github.com/yogaaditandanu/medical-image-analysis/internal/session"
	"github.com/yogaaditandanu/medical-image-analysis/internal/staging"
	"github.com/yogaaditandanu/medical-image-analysis/internal/util"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	uploadPromptText = "Silakan unggah file gambar untuk memulai."
	filenameTipText  = "ℹ️ Tips: Pastikan gambar yang diunggah benar-benar citra medis untuk hasil akurat."
)

type analysisService interface {
	State(ctx context.Context, sessionID string) (session.State, error)
	SelectFile(ctx context.Context, sessionID, fileName string) (session.State, error)
	Clear(ctx context.Context, sessionID string) error
	Analyze(ctx context.Context, sessionID string, upload models.Upload, mode prompt.Mode) (classify.Outcome, error)
}

type UIHandler struct {
	logger        *log.Logger
	service       analysisService
	widgets       *widgetRegistry
	tmpl          *template.Template
	md            goldmark.Markdown
	maxUploadSize int64
}

// NewUIHandler forgets a session's pending upload and mode after sessionTTL
// without requests.
func NewUIHandler(logger *log.Logger, service analysisService, maxUploadSize int64, sessionTTL time.Duration) (*UIHandler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &UIHandler{
		logger:        logger,
		service:       service,
		widgets:       newWidgetRegistry(sessionTTL),
		tmpl:          tmpl,
		md:            goldmark.New(),
		maxUploadSize: maxUploadSize,
	}, nil
}

// Register mounts the page and its form actions.
func (h *UIHandler) Register(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/mode", h.SelectMode)
	r.Post("/upload", h.Upload)
	r.Post("/analyze", h.Analyze)
	r.Post("/clear", h.Clear)
}

type modeOption struct {
	Value   string
	Checked bool
}

type pageData struct {
	Phase    session.Phase
	Modes    []modeOption
	FileName string
	Preview  template.URL
	Tip      string
	Result   template.HTML
	Errors   []string
	Warnings []string
	Infos    []string
}

type banners struct {
	errors   []string
	warnings []string
}

func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, banners{})
}

func (h *UIHandler) SelectMode(w http.ResponseWriter, r *http.Request) {
	mode, err := prompt.ParseMode(r.FormValue("mode"))
	if err != nil {
		h.render(w, r, http.StatusBadRequest, banners{warnings: []string{err.Error()}})
		return
	}
	h.widgets.setMode(SessionID(r.Context()), mode)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())

	upload, err := readUpload(w, r, h.maxUploadSize)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, banners{warnings: []string{err.Error()}})
		return
	}

	if _, err := h.service.SelectFile(r.Context(), id, upload.FileName); err != nil {
		h.logger.Printf("select file: %v\n", err)
		h.render(w, r, http.StatusInternalServerError, banners{errors: []string{classify.FromError(err).Message}})
		return
	}
	h.widgets.setUpload(id, upload)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())
	if v := r.FormValue("mode"); v != "" {
		if mode, err := prompt.ParseMode(v); err == nil {
			h.widgets.setMode(id, mode)
		}
	}

	wd := h.widgets.get(id)
	if wd.upload == nil {
		h.render(w, r, http.StatusBadRequest, banners{warnings: []string{uploadPromptText}})
		return
	}

	outcome, err := h.service.Analyze(r.Context(), id, *wd.upload, wd.mode)
	if err != nil {
		h.logger.Printf("analyze %s: %v\n", wd.upload.FileName, err)
		if errors.Is(err, staging.ErrUnsupportedImage) {
			outcome = classify.Failure(err)
		} else {
			outcome = classify.FromError(err)
		}
	}

	var b banners
	if !outcome.OK() {
		b.errors = append(b.errors, outcome.Message)
	}
	h.render(w, r, http.StatusOK, b)
}

// Clear drops the stored result and the pending upload, returning the page
// to its initial state.
func (h *UIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())
	h.widgets.setUpload(id, nil)
	if err := h.service.Clear(r.Context(), id); err != nil {
		h.logger.Printf("clear: %v\n", err)
		h.render(w, r, http.StatusInternalServerError, banners{errors: []string{classify.FromError(err).Message}})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UIHandler) render(w http.ResponseWriter, r *http.Request, status int, b banners) {
	id := SessionID(r.Context())
	wd := h.widgets.get(id)

	state, err := h.service.State(r.Context(), id)
	if err != nil {
		h.logger.Printf("load session: %v\n", err)
		b.errors = append(b.errors, classify.FromError(err).Message)
	}

	data := pageData{
		Errors:   b.errors,
		Warnings: b.warnings,
	}
	for _, m := range prompt.Modes() {
		data.Modes = append(data.Modes, modeOption{Value: string(m), Checked: m == wd.mode})
	}

	if wd.upload != nil {
		data.FileName = wd.upload.FileName
		mime := util.SniffMimeHTTP(wd.upload.Data)
		data.Preview = template.URL(util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(wd.upload.Data)))
		if !prompt.LooksMedical(wd.upload.FileName) {
			data.Tip = filenameTipText
		}
	}

	if state.HasResult() {
		var buf bytes.Buffer
		if err := h.md.Convert([]byte(state.AnalysisResult), &buf); err != nil {
			data.Result = template.HTML(template.HTMLEscapeString(state.AnalysisResult))
		} else {
			data.Result = template.HTML(buf.String())
		}
	} else if wd.upload == nil {
		data.Infos = append(data.Infos, uploadPromptText)
	}
	// PhaseAnalyzing only exists in the browser while the analyze POST is in
	// flight; a rendered page is never mid-analysis.
	data.Phase = session.PhaseOf(state, wd.upload != nil, false)

	var out bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&out, "index.html", data); err != nil {
		h.logger.Printf("failed to execute template: %v\n", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out.Bytes())
}

// readUpload reads the "file" field of a multipart form.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (*models.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("file is larger than %d bytes", maxSize)
		}
		return nil, fmt.Errorf("invalid upload: %w", err)
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("no file uploaded: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	upload := &models.Upload{FileName: hdr.Filename, Data: data}
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	return upload, nil
}
