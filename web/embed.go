// Package web holds the dashboard's HTML templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Templates parses every page template with funcs available to all of them.
// Pages are looked up by file name, e.g. "index.html".
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("finboard").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
}

// Static returns the assets served under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
