// Package migrations contains embedded SQL migrations for the SQLite stores.
package migrations

import "embed"

//go:embed rules/*.sql
var RulesFS embed.FS

//go:embed orders/*.sql
var OrdersFS embed.FS
