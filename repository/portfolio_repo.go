package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type PortfolioRepository struct {
	DBHelper *providers.DBHelper
}

func NewPortfolioRepository(db *providers.DBHelper) *PortfolioRepository {
	return &PortfolioRepository{DBHelper: db}
}

const portfolioColumns = `portfolio_id, user_id, balance, created_at`

func scanPortfolio(row *sql.Row) (*models.Portfolio, error) {
	var p models.Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Balance, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}
	return &p, nil
}

func (r *PortfolioRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE portfolio_id = $1`
	if tx != nil {
		return scanPortfolio(tx.QueryRowContext(ctx, query, id))
	}
	return scanPortfolio(r.DBHelper.PostgresClient.QueryRowContext(ctx, query, id))
}

// GetByUserID resolves the user's single portfolio.
func (r *PortfolioRepository) GetByUserID(ctx context.Context, tx *sql.Tx, userID int64) (*models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE user_id = $1`
	if tx != nil {
		return scanPortfolio(tx.QueryRowContext(ctx, query, userID))
	}
	return scanPortfolio(r.DBHelper.PostgresClient.QueryRowContext(ctx, query, userID))
}

// AddToBalance applies a mark-to-market revaluation delta to the
// portfolio's valuation figure.
func (r *PortfolioRepository) AddToBalance(ctx context.Context, tx *sql.Tx, id int64, delta float64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE portfolios SET balance = balance + $1 WHERE portfolio_id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to update portfolio balance: %w", err)
	}
	return nil
}
