package api

import (
	"net/http"
	"os"
)

// staticHandler serves the UI from dir. Without a UI on disk the API still works
// and "/" answers 404.
func staticHandler(dir string) http.Handler {
	if dir == "" {
		return http.NotFoundHandler()
	}
	if _, err := os.Stat(dir); err != nil {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(dir))
}
