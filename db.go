package auth

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenDB opens a bun.DB over the sqlite shim driver. Production setups
// usually bring their own *bun.DB and run the SQL files from
// GetMigrationsFS; this helper covers development and tests.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates the package tables from the bun models, for
// environments where running the SQL migrations is overkill.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Directory)(nil),
		(*AuthPartner)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
