// Package migrations embeds the SQL schema applied at start-up.
package migrations

import "embed"

// FS holds the numbered migration files, e.g. 001_reference_data.sql
//
//go:embed *.sql
var FS embed.FS
