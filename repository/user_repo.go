package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type UserRepository struct {
	DBHelper *providers.DBHelper
}

func NewUserRepository(db *providers.DBHelper) *UserRepository {
	return &UserRepository{DBHelper: db}
}

const userColumns = `id, username, email, balance, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Balance, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// GetByID fetches one user. A nil tx reads outside any transaction.
func (r *UserRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if tx != nil {
		return scanUser(tx.QueryRowContext(ctx, query, id))
	}
	return scanUser(r.DBHelper.PostgresClient.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate locks the user row for the remainder of the transaction
// so concurrent cash mutations cannot interleave.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(tx.QueryRowContext(ctx, query, id))
}

// UpdateBalance writes the user's realized cash balance.
func (r *UserRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update user balance: %w", err)
	}
	return nil
}
