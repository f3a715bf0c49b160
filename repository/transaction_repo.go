package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type TransactionRepository struct {
	DBHelper *providers.DBHelper
}

func NewTransactionRepository(db *providers.DBHelper) *TransactionRepository {
	return &TransactionRepository{DBHelper: db}
}

// Create appends one immutable cash movement record.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, transaction_type, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING transaction_id`
	err := tx.QueryRowContext(ctx, query, t.UserID, t.Type, t.Amount, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListByUser fetches a user's cash history, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, transaction_type, amount, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, transaction_id DESC`
	rows, err := r.DBHelper.PostgresClient.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
