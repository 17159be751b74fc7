// Package ui serves the results view that browsers are redirected to.
package ui

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed static
var assets embed.FS

// Register mounts the results page at page, its assets under /static/ and a
// redirect from / to page.
func Register(r chi.Router, page string) {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	r.Get(page, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFileFS(w, req, static, "animals.html")
	})
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, page, http.StatusFound)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
}
