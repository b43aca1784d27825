// Package assets bundles the data files the server needs at runtime:
// the waste item catalog and the SQL migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed catalog.yaml sql/*.sql
var FS embed.FS

// CatalogYAML returns the raw catalog document.
func CatalogYAML() ([]byte, error) {
	return FS.ReadFile("catalog.yaml")
}

// Migrations returns the migration directory rooted at sql/.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// sql/ is embedded at build time; a missing dir is a build defect.
		panic(err)
	}
	return sub
}
