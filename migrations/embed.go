// AngelaMos | 2026
// embed.go

// Package migrations carries the schema, applied with golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
