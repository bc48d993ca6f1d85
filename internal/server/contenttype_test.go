package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"index.html":      "text/html",
		"css/site.css":    "text/css",
		"logo.png":        "image/png",
		"archive.tar.gz":  "application/octet-stream",
		"README":          "application/octet-stream",
		"SHOUT.HTML":      "application/octet-stream",
		"photo.jpg":       "application/octet-stream",
		"/abs/path/a.png": "image/png",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
}

func TestResolve(t *testing.T) {
	root := "/srv/site"
	tests := map[string]string{
		"/style.css":             "/srv/site/style.css",
		"/a/b/../c.png":          "/srv/site/a/c.png",
		"/../../etc/passwd":      "/srv/site/etc/passwd",
		"../outside":             "/srv/site/outside",
		"/":                      "/srv/site",
		"//double//slashes.html": "/srv/site/double/slashes.html",
	}
	for in, want := range tests {
		assert.Equal(t, want, resolve(root, in), in)
	}
}
