package server

import "path/filepath"

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".png":  "image/png",
}

// ContentType maps a file name to the type it is served with. Extensions are
// matched case-sensitively.
func ContentType(name string) string {
	if ct, ok := contentTypes[filepath.Ext(name)]; ok {
		return ct
	}
	return defaultContentType
}
