// Package migrations embeds the device schema into the binary, one
// directory per SQL dialect (sqlite3, postgres).
package migrations

import (
	"embed"

	"github.com/nerrad567/devicehub/internal/infrastructure/database"
)

//go:embed sqlite3/*.sql postgres/*.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
