package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
)

type OrderRepository struct {
	DBHelper *providers.DBHelper
}

func NewOrderRepository(db *providers.DBHelper) *OrderRepository {
	return &OrderRepository{DBHelper: db}
}

const orderColumns = `order_id, portfolio_id, share_id, side, price, quantity, remaining_quantity, status, created_at`

// Create inserts a new order into the ledger.
func (r *OrderRepository) Create(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (portfolio_id, share_id, side, price, quantity, remaining_quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING order_id`
	err := tx.QueryRowContext(ctx, query,
		order.PortfolioID, order.ShareID, order.Side, order.Price,
		order.Quantity, order.RemainingQty, order.Status, order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// UpdateExecution persists remaining quantity and status, the only two
// fields the matching and settlement paths are allowed to mutate.
func (r *OrderRepository) UpdateExecution(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	query := `
		UPDATE orders
		SET remaining_quantity = $1, status = $2
		WHERE order_id = $3`
	_, err := tx.ExecContext(ctx, query, order.RemainingQty, order.Status, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, err)
	}
	return nil
}

func scanOrderRows(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.PortfolioID, &o.ShareID, &o.Side, &o.Price,
			&o.Quantity, &o.RemainingQty, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// FetchEligible selects and row-locks the open orders for a share whose
// limit price lies within [lo, hi], in explicit insertion order
// (created_at with order_id as tiebreak). Callers must re-check each
// order's status after the lock is acquired.
func (r *OrderRepository) FetchEligible(ctx context.Context, tx *sql.Tx, shareID int64, lo, hi float64) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE share_id = $1
		  AND status IN ('PENDING', 'PARTIALLY_COMPLETED')
		  AND price BETWEEN $2 AND $3
		ORDER BY created_at ASC, order_id ASC
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, shareID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible orders: %w", err)
	}
	return scanOrderRows(rows)
}

// GetByID fetches one order. A nil tx reads outside any transaction.
func (r *OrderRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id)
	} else {
		row = r.DBHelper.PostgresClient.QueryRowContext(ctx, query, id)
	}
	return scanOrder(row)
}

// GetByIDForUpdate locks the order row so cancellation and matching are
// mutually exclusive on it.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1 FOR UPDATE`
	return scanOrder(tx.QueryRowContext(ctx, query, id))
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.PortfolioID, &o.ShareID, &o.Side, &o.Price,
		&o.Quantity, &o.RemainingQty, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

// FetchPendingByPortfolio lists a portfolio's open orders, oldest first.
func (r *OrderRepository) FetchPendingByPortfolio(ctx context.Context, portfolioID int64) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE portfolio_id = $1 AND status IN ('PENDING', 'PARTIALLY_COMPLETED')
		ORDER BY created_at ASC, order_id ASC`
	rows, err := r.DBHelper.PostgresClient.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending orders: %w", err)
	}
	return scanOrderRows(rows)
}

// ListByPortfolio returns a page of the portfolio's orders, newest first,
// optionally filtered by side and status set. It also reports the total
// count of matching orders before pagination.
func (r *OrderRepository) ListByPortfolio(ctx context.Context, portfolioID int64, page, limit int, side models.OrderSide, statuses []models.OrderStatus) ([]*models.Order, int, error) {
	statusStrs := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrs[i] = string(s)
	}

	where := `WHERE portfolio_id = $1
		  AND ($2 = '' OR side = $2)
		  AND (cardinality($3::text[]) = 0 OR status = ANY($3))`

	var total int
	err := r.DBHelper.PostgresClient.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders `+where,
		portfolioID, string(side), pq.Array(statusStrs),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders ` + where + `
		ORDER BY created_at DESC, order_id DESC
		LIMIT $4 OFFSET $5`
	rows, err := r.DBHelper.PostgresClient.QueryContext(ctx, query,
		portfolioID, string(side), pq.Array(statusStrs), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
