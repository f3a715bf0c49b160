package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type PriceRepository struct {
	DBHelper *providers.DBHelper
}

func NewPriceRepository(db *providers.DBHelper) *PriceRepository {
	return &PriceRepository{DBHelper: db}
}

// InsertTick appends one immutable price observation.
func (r *PriceRepository) InsertTick(ctx context.Context, tx *sql.Tx, tick *models.SharePrice) error {
	query := `
		INSERT INTO share_prices (share_id, price, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING price_id`
	err := tx.QueryRowContext(ctx, query, tick.ShareID, tick.Price, tick.RecordedAt).Scan(&tick.ID)
	if err != nil {
		return fmt.Errorf("failed to insert price tick: %w", err)
	}
	return nil
}

// FindLatest returns the most recent tick for a share.
func (r *PriceRepository) FindLatest(ctx context.Context, tx *sql.Tx, shareID int64) (*models.SharePrice, error) {
	query := `
		SELECT price_id, share_id, price, recorded_at
		FROM share_prices
		WHERE share_id = $1
		ORDER BY recorded_at DESC, price_id DESC
		LIMIT 1`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, shareID)
	} else {
		row = r.DBHelper.PostgresClient.QueryRowContext(ctx, query, shareID)
	}

	var p models.SharePrice
	err := row.Scan(&p.ID, &p.ShareID, &p.Price, &p.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPriceNotFound
		}
		return nil, fmt.Errorf("failed to find latest price: %w", err)
	}
	return &p, nil
}
