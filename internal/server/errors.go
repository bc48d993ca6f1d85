package server

import (
	"net/http"
	"os"
	"path/filepath"
)

// ErrorPage is looked up in the served root.
const ErrorPage = "error.html"

// notFound is the single failure response: 404 with the error page when the
// root has one, a bare 404 otherwise.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(filepath.Join(s.root, ErrorPage))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusNotFound)
	w.Write(data)
}
