// Package api serves the correction engine over HTTP.
//
// Endpoints:
//
//	POST /v1/correct        correct a text; body is a [CorrectRequest]
//	GET  /v1/suggest        ?word=&context=&domain=
//	GET  /v1/predict        ?prefix=&n=
//	POST /v1/words          add a custom word or correction; body is a [WordRequest]
//	GET  /v1/cache/stats    chunk and suggestion cache statistics
//	GET  /v1/patterns       ?n= most frequently applied substitutions
//	GET  /v1/stats          cumulative correction counters
//
// Every response is JSON. Errors use the shape {"error": "..."}.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MrWong99/typeassist/internal/cache"
	"github.com/MrWong99/typeassist/internal/correction"
	"github.com/MrWong99/typeassist/internal/dictionary"
	"github.com/MrWong99/typeassist/internal/observe"
	"github.com/MrWong99/typeassist/pkg/types"
)

// maxBodyBytes bounds request bodies. The orchestrator enforces its own rune
// limit on the text itself.
const maxBodyBytes = 4 << 20

// defaultPatterns is the number of patterns /v1/patterns returns without ?n=.
const defaultPatterns = 10

// Service is the slice of [correction.Orchestrator] the handlers use.
type Service interface {
	CorrectText(ctx context.Context, req types.Request) (*correction.Result, error)
	AddCustomWord(ctx context.Context, word, correction string) error
	GetSuggestions(word, context, domain string) []dictionary.Suggestion
	Predict(prefix string, n int) []dictionary.Prediction
	CommonPatterns(n int) []cache.PatternCount
	CacheStats() correction.CacheStats
	Stats() correction.Stats
}

var _ Service = (*correction.Orchestrator)(nil)

// Handler serves the /v1 routes.
type Handler struct {
	svc Service
}

// New creates a [Handler] backed by svc.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register adds the /v1 routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/correct", h.handleCorrect)
	mux.HandleFunc("GET /v1/suggest", h.handleSuggest)
	mux.HandleFunc("GET /v1/predict", h.handlePredict)
	mux.HandleFunc("POST /v1/words", h.handleAddWord)
	mux.HandleFunc("GET /v1/cache/stats", h.handleCacheStats)
	mux.HandleFunc("GET /v1/patterns", h.handlePatterns)
	mux.HandleFunc("GET /v1/stats", h.handleStats)
}

// CorrectRequest is the JSON body of POST /v1/correct. Empty mode and
// severity select comprehensive and medium.
type CorrectRequest struct {
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	Severity string `json:"severity"`
	Language string `json:"language"`
	Domain   string `json:"domain"`
}

// CorrectResponse wraps the result. Error is set when the text was returned
// unchanged or only partly corrected.
type CorrectResponse struct {
	*correction.Result
	Error string `json:"error,omitempty"`
}

// handleCorrect handles POST /v1/correct.
//
// Input errors come back as 422 with the text passed through. A request cut
// short by the client or the server deadline yields 503 with the chunks
// finished so far; a backend failure with nothing to fall back on yields 502.
func (h *Handler) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var body CorrectRequest
	if !decode(w, r, &body) {
		return
	}
	mode, err := types.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sev, err := types.ParseSeverity(body.Severity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.CorrectText(r.Context(), types.Request{
		Text:     body.Text,
		Mode:     mode,
		Severity: sev,
		Language: body.Language,
		Domain:   body.Domain,
	})
	if err == nil {
		writeJSON(w, http.StatusOK, CorrectResponse{Result: res})
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, correction.ErrEmptyInput), errors.Is(err, correction.ErrInputTooLarge):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, correction.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		observe.Logger(r.Context()).Warn("api: correction failed", "err", err)
	}
	writeJSON(w, status, CorrectResponse{Result: res, Error: err.Error()})
}

// handleSuggest handles GET /v1/suggest.
func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	word := q.Get("word")
	if word == "" {
		writeError(w, http.StatusBadRequest, errors.New("word is required"))
		return
	}
	sugg := h.svc.GetSuggestions(word, q.Get("context"), q.Get("domain"))
	if sugg == nil {
		sugg = []dictionary.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"word": word, "suggestions": sugg})
}

// handlePredict handles GET /v1/predict.
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, ok := intParam(w, q.Get("n"), 0)
	if !ok {
		return
	}
	preds := h.svc.Predict(q.Get("prefix"), n)
	if preds == nil {
		preds = []dictionary.Prediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"prefix": q.Get("prefix"), "predictions": preds})
}

// WordRequest is the JSON body of POST /v1/words. An empty correction adds
// word to the vocabulary.
type WordRequest struct {
	Word       string `json:"word"`
	Correction string `json:"correction"`
}

// handleAddWord handles POST /v1/words.
func (h *Handler) handleAddWord(w http.ResponseWriter, r *http.Request) {
	var body WordRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.svc.AddCustomWord(r.Context(), body.Word, body.Correction); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dictionary.ErrInvalidWord) {
			status = http.StatusBadRequest
		} else {
			observe.Logger(r.Context()).Error("api: add custom word failed", "word", body.Word, "err", err)
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCacheStats handles GET /v1/cache/stats.
func (h *Handler) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats())
}

// handlePatterns handles GET /v1/patterns.
func (h *Handler) handlePatterns(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(w, r.URL.Query().Get("n"), defaultPatterns)
	if !ok {
		return
	}
	p := h.svc.CommonPatterns(n)
	if p == nil {
		p = []cache.PatternCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": p})
}

// handleStats handles GET /v1/stats.
func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// ── helpers ──────────────────────────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, errors.New("invalid request body"))
		return false
	}
	return true
}

func intParam(w http.ResponseWriter, s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, errors.New("n must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
