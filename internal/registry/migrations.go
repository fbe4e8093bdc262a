package registry

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory within Migrations goose reads from.
const MigrationsDir = "migrations"
