package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves the front end from the static directory.
// GET /?board=<id> also serves index.html so a shared link reopens a session.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	name = strings.TrimPrefix(name, "static/")
	if name == "" {
		name = "index.html"
	}

	if id := r.URL.Query().Get("board"); id != "" {
		if _, ok := h.sessionStore.Get(id); !ok {
			h.writeError(w, "Board not found", http.StatusNotFound)
			return
		}
	}

	// Prevent directory traversal attacks
	if strings.Contains(name, "..") {
		h.writeError(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	switch filepath.Ext(name) {
	case ".css":
		w.Header().Set("Content-Type", "text/css")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript")
	case ".html":
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFile(w, r, filepath.Join(h.staticDir, filepath.FromSlash(name)))
}
