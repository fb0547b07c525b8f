// Package migrations embeds the Postgres schema for cmd/migrate.
package migrations

import "embed"

// FS holds the numbered up/down migrations.
//
//go:embed *.sql
var FS embed.FS
