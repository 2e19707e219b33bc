// Package migrations embeds the histstore schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
