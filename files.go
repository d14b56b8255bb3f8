package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the schema migrations for the users and
// identity_links tables so host applications can run them with their own
// migrator.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
