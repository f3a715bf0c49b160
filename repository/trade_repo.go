package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type TradeRepository struct {
	DBHelper *providers.DBHelper
}

func NewTradeRepository(db *providers.DBHelper) *TradeRepository {
	return &TradeRepository{DBHelper: db}
}

// Create appends a trade and fills in its ID. Trades are audit records;
// there is deliberately no update or delete method.
func (r *TradeRepository) Create(ctx context.Context, tx *sql.Tx, trade *models.Trade) error {
	query := `
		INSERT INTO trades (portfolio_id, share_id, side, quantity, price, price_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING trade_id`
	err := tx.QueryRowContext(ctx, query,
		trade.PortfolioID, trade.ShareID, trade.Side,
		trade.Quantity, trade.Price, trade.PriceKind, trade.CreatedAt,
	).Scan(&trade.ID)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// ListByPortfolio fetches a portfolio's trades, newest first.
func (r *TradeRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.Trade, error) {
	query := `
		SELECT trade_id, portfolio_id, share_id, side, quantity, price, price_kind, created_at
		FROM trades
		WHERE portfolio_id = $1
		ORDER BY created_at DESC, trade_id DESC`
	rows, err := r.DBHelper.PostgresClient.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.ShareID, &t.Side,
			&t.Quantity, &t.Price, &t.PriceKind, &t.CreatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
