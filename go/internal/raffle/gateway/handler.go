package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/mcdev12/staffraffle/go/internal/raffle"
	"github.com/mcdev12/staffraffle/go/internal/raffle/importer"
	"github.com/mcdev12/staffraffle/go/internal/raffle/orchestrator"
	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 10 << 20

// Controller is what the HTTP API needs from the raffle app.
type Controller interface {
	ImportCandidatesCSV(ctx context.Context, r io.Reader, source string) (int, error)
	ImportPrizesCSV(ctx context.Context, r io.Reader, source string) (int, error)
	Start(interval time.Duration) error
	Pause() error
	Resume() error
	TogglePause() error
	Skip() error
	Reset(ctx context.Context) error
	ResolveRestore(ctx context.Context, accept bool) error
	Export(w io.Writer) (string, error)
	State() raffle.View
}

// StartRequest is the body of POST /api/start.
type StartRequest struct {
	IntervalMs int64 `json:"interval_ms"`
}

// RestoreRequest is the body of POST /api/restore.
type RestoreRequest struct {
	Accept bool `json:"accept"`
}

// ImportResponse reports how many rows an import accepted.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// APIHandler serves the operator commands.
type APIHandler struct {
	app             Controller
	defaultInterval time.Duration
}

// NewAPIHandler creates the operator API.
func NewAPIHandler(app Controller, defaultInterval time.Duration) *APIHandler {
	return &APIHandler{app: app, defaultInterval: defaultInterval}
}

// RegisterRoutes registers the operator routes with an HTTP mux
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/import/candidates", h.handleImport(h.app.ImportCandidatesCSV, "candidates.csv"))
	mux.HandleFunc("POST /api/import/prizes", h.handleImport(h.app.ImportPrizesCSV, "prizes.csv"))
	mux.HandleFunc("POST /api/start", h.HandleStart)
	mux.HandleFunc("POST /api/pause", h.handleCommand("pause", h.app.Pause))
	mux.HandleFunc("POST /api/resume", h.handleCommand("resume", h.app.Resume))
	mux.HandleFunc("POST /api/toggle-pause", h.handleCommand("toggle-pause", h.app.TogglePause))
	mux.HandleFunc("POST /api/skip", h.handleCommand("skip", h.app.Skip))
	mux.HandleFunc("POST /api/reset", h.HandleReset)
	mux.HandleFunc("POST /api/restore", h.HandleRestore)
	mux.HandleFunc("GET /api/state", h.HandleState)
	mux.HandleFunc("GET /api/export", h.HandleExport)
}

type importFunc func(ctx context.Context, r io.Reader, source string) (int, error)

// handleImport accepts either a raw CSV body or a multipart form with a "file" field.
func (h *APIHandler) handleImport(fn importFunc, fallbackName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		body := io.Reader(r.Body)
		source := r.URL.Query().Get("filename")
		if source == "" {
			source = fallbackName
		}

		if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
			file, header, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
				return
			}
			defer file.Close()
			body = file
			source = header.Filename
		}

		n, err := fn(r.Context(), body, source)
		if err != nil {
			h.fail(w, "import", err)
			return
		}
		writeJSON(w, http.StatusOK, ImportResponse{Imported: n})
	}
}

// HandleStart handles POST /api/start
func (h *APIHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	interval := h.defaultInterval
	if req.IntervalMs > 0 {
		interval = time.Duration(req.IntervalMs) * time.Millisecond
	}

	if err := h.app.Start(interval); err != nil {
		h.fail(w, "start", err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.State())
}

func (h *APIHandler) handleCommand(name string, fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			h.fail(w, name, err)
			return
		}
		writeJSON(w, http.StatusOK, h.app.State())
	}
}

// HandleReset handles POST /api/reset
func (h *APIHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Reset(r.Context()); err != nil {
		h.fail(w, "reset", err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.State())
}

// HandleRestore handles POST /api/restore
func (h *APIHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := h.app.ResolveRestore(r.Context(), req.Accept); err != nil {
		h.fail(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.State())
}

// HandleState handles GET /api/state
func (h *APIHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.State())
}

// HandleExport handles GET /api/export
func (h *APIHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	filename, err := h.app.Export(&buf)
	if err != nil {
		h.fail(w, "export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("failed to write export response")
	}
}

func (h *APIHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("op", op).Msg("command failed")
	} else {
		log.Debug().Err(err).Str("op", op).Int("status", status).Msg("command rejected")
	}
	writeError(w, status, err)
}

// statusFor maps raffle errors to HTTP status codes.
func statusFor(err error) int {
	var importErr *importer.ImportError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &importErr), errors.Is(err, orchestrator.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, raffle.ErrNoWinners):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrInvalidTransition),
		errors.Is(err, orchestrator.ErrBusy),
		errors.Is(err, raffle.ErrRestorePending),
		errors.Is(err, raffle.ErrNoPendingRestore),
		errors.Is(err, raffle.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
