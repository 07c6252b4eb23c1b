// Package migrations embeds the SQL migrations so the binary can run them
// without shipping files alongside it.
package migrations

import "embed"

//go:embed *.sql
var MigrationsFS embed.FS
