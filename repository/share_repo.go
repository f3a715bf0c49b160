package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type ShareRepository struct {
	DBHelper *providers.DBHelper
}

func NewShareRepository(db *providers.DBHelper) *ShareRepository {
	return &ShareRepository{DBHelper: db}
}

const shareColumns = `share_id, symbol, name, latest_price`

func scanShare(row *sql.Row) (*models.Share, error) {
	var s models.Share
	err := row.Scan(&s.ID, &s.Symbol, &s.Name, &s.LatestPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to scan share: %w", err)
	}
	return &s, nil
}

func (r *ShareRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_id = $1`
	if tx != nil {
		return scanShare(tx.QueryRowContext(ctx, query, id))
	}
	return scanShare(r.DBHelper.PostgresClient.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate locks the share row, serializing tick processing for
// one share while leaving other shares free to match concurrently.
func (r *ShareRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_id = $1 FOR UPDATE`
	return scanShare(tx.QueryRowContext(ctx, query, id))
}

func (r *ShareRepository) UpdateLatestPrice(ctx context.Context, tx *sql.Tx, id int64, price float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE shares SET latest_price = $1 WHERE share_id = $2`, price, id)
	if err != nil {
		return fmt.Errorf("failed to update latest price: %w", err)
	}
	return nil
}

// List returns the share catalogue.
func (r *ShareRepository) List(ctx context.Context) ([]models.Share, error) {
	rows, err := r.DBHelper.PostgresClient.QueryContext(ctx,
		`SELECT `+shareColumns+` FROM shares ORDER BY share_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		var s models.Share
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Name, &s.LatestPrice); err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}
