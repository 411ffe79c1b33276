// Package migrations embeds the SQLite schema migrations.
package migrations

import "embed"

// FS contains embedded SQLite migrations for tastebook storage.
//
//go:embed *.sql
var FS embed.FS
