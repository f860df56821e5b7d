// Package migrations holds the quiz schema as versioned SQL files,
// applied by `quiz-player migrate` and on `serve` start-up.
package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var sqlMigrations embed.FS

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustDiscover(sqlMigrations)
}
