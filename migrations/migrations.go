// Package migrations embeds the SQL schema migrations for every supported
// storage backend.
package migrations

import "embed"

var (
	//go:embed postgres/*.sql
	Postgres embed.FS

	//go:embed sqlite/*.sql
	SQLite embed.FS
)

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
