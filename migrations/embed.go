// Package migrations embeds the SQL schema migrations into the binary.
//
// Pass FS to database.DB.Migrate at startup:
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil { ... }
package migrations

import "embed"

// FS holds every *.sql migration file at its root.
//
//go:embed *.sql
var FS embed.FS
