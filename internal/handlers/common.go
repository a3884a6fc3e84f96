package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sandwich-alignment/alignment/internal/auth"
	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/catalog"
	"github.com/sandwich-alignment/alignment/internal/consensus"
	"github.com/sandwich-alignment/alignment/internal/generator"
	"github.com/sandwich-alignment/alignment/internal/models"
	"github.com/sandwich-alignment/alignment/internal/storage"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

type Handler struct {
	sessionStore *storage.SessionStore
	submissions  storage.SubmissionStore
	catalog      *catalog.Catalog
	admin        *auth.Admin
	generator    *generator.Generator
	engine       consensus.Engine
	batchFilter  storage.ListOptions
	staticDir    string
}

// Options wires a Handler. Generator may be nil, which disables /api/generate.
type Options struct {
	Submissions   storage.SubmissionStore
	Catalog       *catalog.Catalog
	AdminPassword string
	Generator     *generator.Generator
	Engine        consensus.Engine
	// BatchFilter selects which stored submissions feed the consensus views
	BatchFilter storage.ListOptions
	StaticDir   string
	// SessionTTL and MaxSessions bound open boards; zero keeps the store defaults
	SessionTTL  time.Duration
	MaxSessions int
}

func New(opts Options) *Handler {
	submissions := opts.Submissions
	if submissions == nil {
		submissions = storage.NewMemoryStore()
	}
	sessions := storage.New()
	if opts.SessionTTL > 0 {
		sessions.TTL = opts.SessionTTL
	}
	if opts.MaxSessions > 0 {
		sessions.MaxSessions = opts.MaxSessions
	}
	return &Handler{
		sessionStore: sessions,
		submissions:  submissions,
		catalog:      opts.Catalog,
		admin:        auth.NewAdmin(opts.AdminPassword),
		generator:    opts.Generator,
		engine:       opts.Engine,
		batchFilter:  opts.BatchFilter,
		staticDir:    opts.StaticDir,
	}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth", h.HandleAuth)
	mux.HandleFunc("GET /api/catalog", h.HandleCatalog)

	mux.HandleFunc("POST /api/boards", h.HandleCreateBoard)
	mux.HandleFunc("GET /api/boards/{id}", h.HandleGetBoard)
	mux.HandleFunc("POST /api/boards/{id}/drop", h.HandleDrop)
	mux.HandleFunc("POST /api/boards/{id}/select", h.HandleSelect)
	mux.HandleFunc("POST /api/boards/{id}/remove-selected", h.HandleRemoveSelected)
	mux.HandleFunc("POST /api/boards/{id}/clear", h.HandleClearBoard)
	mux.HandleFunc("PUT /api/boards/{id}/labels", h.HandleLabels)
	mux.HandleFunc("POST /api/boards/{id}/submit", h.HandleSubmitBoard)

	mux.HandleFunc("GET /api/submissions", h.HandleListSubmissions)
	mux.HandleFunc("POST /api/submissions", h.HandleCreateSubmission)
	mux.HandleFunc("POST /api/submissions/clear", h.requireAdmin(h.HandleClearSubmissions))
	mux.HandleFunc("POST /api/generate", h.requireAdmin(h.HandleGenerate))

	mux.HandleFunc("GET /api/consensus", h.HandleConsensus)
	mux.HandleFunc("GET /api/consensus/extremes", h.HandleExtremes)
	mux.HandleFunc("GET /api/consensus/agreement", h.HandleAgreement)

	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	if h.staticDir != "" {
		mux.HandleFunc("GET /", h.HandleStatic)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Debug(message, "status", code)
	}
	h.writeJSON(w, code, models.ErrorResponse{Error: http.StatusText(code), Message: message})
}

// writeDomainError maps core error kinds onto status codes and keeps the
// error text in the response body
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	h.writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, board.ErrItemNotFound),
		errors.Is(err, board.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, board.ErrDuplicateItem):
		return http.StatusConflict
	case errors.Is(err, board.ErrInvalidViewport),
		errors.Is(err, board.ErrMissingCoordinate),
		errors.Is(err, board.ErrCoordinateOutOfRange),
		errors.Is(err, models.ErrNoteTooLong):
		return http.StatusBadRequest
	case errors.Is(err, consensus.ErrEmptyBatch):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrAdminDisabled):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// decodeOptionalJSON decodes the body if there is one. present is false for
// an empty body; ok is false once an error response has been written.
func (h *Handler) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, target any) (present, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(target)
	switch {
	case errors.Is(err, io.EOF):
		return false, true
	case err != nil:
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false, false
	}
	return true, true
}

// requireAdmin rejects requests without the admin password
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.admin.Check(auth.FromRequest(r)); err != nil {
			slog.Warn("Rejected admin request", "path", r.URL.Path, "remote", r.RemoteAddr, "reason", err)
			h.writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// WithLogging wraps a handler with request logging
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
