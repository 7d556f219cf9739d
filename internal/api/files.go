// SPDX-License-Identifier: MIT
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleCombinedFile serves a single combined CSV by file name. Only
// plain .csv names are accepted; anything that looks like a path is
// rejected before touching the filesystem.
func (s *Server) handleCombinedFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validCSVName(name) {
		writeError(w, r, http.StatusBadRequest, "invalid file name")
		return
	}

	path := filepath.Join(s.cfg.CombinedDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, r, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeFile(w, r, path)
}

func validCSVName(name string) bool {
	if name == "" || !strings.HasSuffix(name, ".csv") {
		return false
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}
