// Package web serves the sentiment lookup form and JSON API.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"ali-crawler/sentiment"
	"ali-crawler/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxBodyBytes = 1 << 20

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Content *string `json:"content" validate:"required"`
}

// PredictResponse echoes the submitted text with its classification.
type PredictResponse struct {
	Prediction string `json:"prediction"`
	Emoji      string `json:"emoji"`
	Email      string `json:"email"`
}

// page is the data rendered into index.html.
type page struct {
	Prediction string
	Emoji      string
	Email      string
	Submitted  bool
}

// Handler serves the sentiment endpoints.
type Handler struct {
	analyzer *sentiment.Analyzer
	tmpl     *template.Template
	validate *validator.Validate
	logger   *utils.Logger
}

// NewHandler parses the embedded templates.
func NewHandler(analyzer *sentiment.Analyzer, logger *utils.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		analyzer: analyzer,
		tmpl:     tmpl,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

// Home renders the empty form.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, page{})
}

// Predict classifies the form field "content" and re-renders the page.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, http.StatusBadRequest, "INVALID_INPUT", "invalid form body")
		return
	}

	text := r.PostFormValue("content")
	result := h.analyzer.Analyze(text)
	h.render(w, r, page{Prediction: result.Label, Emoji: result.Emoji, Email: text, Submitted: true})
}

// APIPredict classifies {"content": text} and returns the result as JSON.
func (h *Handler) APIPredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, r, http.StatusBadRequest, "INVALID_INPUT", "request body is empty")
			return
		}
		WriteError(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "field \"content\" is required")
		return
	}

	result := h.analyzer.Analyze(*req.Content)
	WriteJSON(w, http.StatusOK, PredictResponse{
		Prediction: result.Label,
		Emoji:      result.Emoji,
		Email:      *req.Content,
	})
}

// Analyze classifies the form field "text" and returns JSON.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, http.StatusBadRequest, "INVALID_INPUT", "invalid form body")
		return
	}

	text := r.PostFormValue("text")
	result := h.analyzer.Analyze(text)
	WriteJSON(w, http.StatusOK, PredictResponse{Prediction: result.Label, Emoji: result.Emoji, Email: text})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("[web] Rendering %s failed: %v", r.URL.Path, err)
	}
}
