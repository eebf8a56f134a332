package auth

import "embed"

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the embedded SQL migrations so host
// applications can run them with their migration tooling of choice.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
