// Package migrations embeds the SQL run by goose after AutoMigrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
