package provisioning

import (
	"context"

	"stabledesk/internal/database"
)

type databaseBackend struct {
	*database.Database
}

// NewDatabaseBackend runs the in-database steps in a database transaction.
func NewDatabaseBackend(db *database.Database) Backend {
	return databaseBackend{Database: db}
}

func (b databaseBackend) InTx(ctx context.Context, fn func(tx Store) error) error {
	return b.Database.InTx(ctx, func(tx *database.Database) error {
		return fn(tx)
	})
}
