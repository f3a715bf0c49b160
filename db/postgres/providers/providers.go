package providers

import (
	"context"
	"database/sql"
	"fmt"
)

// DBHelper wraps the injected *sql.DB. Repositories receive it at
// construction; there is no process-wide connection singleton.
type DBHelper struct {
	PostgresClient *sql.DB
}

func NewDbProvider(postgresDBClient *sql.DB) (*DBHelper, error) {
	if postgresDBClient == nil {
		return nil, fmt.Errorf("invalid postgres client: nil pointer provided")
	}
	return &DBHelper{PostgresClient: postgresDBClient}, nil
}

// BeginSerializable starts a serializable transaction, the isolation level
// used for every matching and settlement unit of work.
func (h *DBHelper) BeginSerializable(ctx context.Context) (*sql.Tx, error) {
	tx, err := h.PostgresClient.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}
