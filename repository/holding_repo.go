package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type HoldingRepository struct {
	DBHelper *providers.DBHelper
}

func NewHoldingRepository(db *providers.DBHelper) *HoldingRepository {
	return &HoldingRepository{DBHelper: db}
}

const holdingColumns = `holding_id, portfolio_id, share_id, quantity, average_price, market_value`

func scanHolding(row *sql.Row) (*models.Holding, error) {
	var h models.Holding
	err := row.Scan(&h.ID, &h.PortfolioID, &h.ShareID, &h.Quantity, &h.AveragePrice, &h.MarketValue)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetForUpdate locks the holding row for (portfolioID, shareID). It
// returns (nil, nil) when no holding exists yet.
func (r *HoldingRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, portfolioID, shareID int64) (*models.Holding, error) {
	query := `
		SELECT ` + holdingColumns + `
		FROM portfolio_holdings
		WHERE portfolio_id = $1 AND share_id = $2
		FOR UPDATE`
	h, err := scanHolding(tx.QueryRowContext(ctx, query, portfolioID, shareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch holding: %w", err)
	}
	return h, nil
}

// Get reads the holding for (portfolioID, shareID) without locking. It
// returns (nil, nil) when no holding exists.
func (r *HoldingRepository) Get(ctx context.Context, portfolioID, shareID int64) (*models.Holding, error) {
	query := `
		SELECT ` + holdingColumns + `
		FROM portfolio_holdings
		WHERE portfolio_id = $1 AND share_id = $2`
	h, err := scanHolding(r.DBHelper.PostgresClient.QueryRowContext(ctx, query, portfolioID, shareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch holding: %w", err)
	}
	return h, nil
}

// Create inserts the first holding row for a (portfolio, share) pair.
func (r *HoldingRepository) Create(ctx context.Context, tx *sql.Tx, h *models.Holding) error {
	query := `
		INSERT INTO portfolio_holdings (portfolio_id, share_id, quantity, average_price, market_value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING holding_id`
	err := tx.QueryRowContext(ctx, query,
		h.PortfolioID, h.ShareID, h.Quantity, h.AveragePrice, h.MarketValue,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	return nil
}

// Update persists quantity, cost basis and derived market value.
func (r *HoldingRepository) Update(ctx context.Context, tx *sql.Tx, h *models.Holding) error {
	query := `
		UPDATE portfolio_holdings
		SET quantity = $1, average_price = $2, market_value = $3
		WHERE holding_id = $4`
	_, err := tx.ExecContext(ctx, query, h.Quantity, h.AveragePrice, h.MarketValue, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holding %d: %w", h.ID, err)
	}
	return nil
}

// ListByShareForUpdate locks every holding that references a share, for
// tick revaluation.
func (r *HoldingRepository) ListByShareForUpdate(ctx context.Context, tx *sql.Tx, shareID int64) ([]*models.Holding, error) {
	query := `
		SELECT ` + holdingColumns + `
		FROM portfolio_holdings
		WHERE share_id = $1
		ORDER BY holding_id
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, shareID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings by share: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.ShareID, &h.Quantity, &h.AveragePrice, &h.MarketValue); err != nil {
			return nil, err
		}
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}

// ListByPortfolio joins holdings with the share catalogue for portfolio
// views, pricing each position at the latest tick.
func (r *HoldingRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.HoldingEntry, error) {
	query := `
		SELECT h.share_id, s.symbol, h.quantity, h.average_price, s.latest_price
		FROM portfolio_holdings h
		JOIN shares s ON s.share_id = h.share_id
		WHERE h.portfolio_id = $1
		ORDER BY h.share_id`
	rows, err := r.DBHelper.PostgresClient.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var entries []models.HoldingEntry
	for rows.Next() {
		var e models.HoldingEntry
		if err := rows.Scan(&e.ShareID, &e.Symbol, &e.Quantity, &e.AveragePrice, &e.LatestPrice); err != nil {
			return nil, err
		}
		e.MarketValue = float64(e.Quantity) * e.LatestPrice
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
