package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// resolve maps a URL path to a file under root. The path is cleaned as if it
// were absolute first, so ".." can never climb above root.
func resolve(root, urlPath string) string {
	clean := path.Clean("/" + urlPath)
	return filepath.Join(root, filepath.FromSlash(clean))
}

func isRegularFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// serveFile reads name in full and only then writes the response, so a
// failed read can still be answered with the error page.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name, contentType string) {
	data, err := os.ReadFile(name)
	if err != nil {
		s.logger.Debug("Cannot serve file", zap.String("file", name), zap.Error(err))
		s.notFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := resolve(s.root, r.URL.Path)
	if !isRegularFile(name) {
		s.notFound(w, r)
		return
	}
	s.serveFile(w, r, name, ContentType(name))
}
