package migrations

import "embed"

// FS contains embedded SQLite migrations for leads storage.
//
//go:embed *.sql
var FS embed.FS
