package service

import (
	"context"
	"time"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
)

// OrderService manages the limit-order book: creation, cancellation and
// the order state machine. Execution is the matching engine's job.
type OrderService struct {
	DBHelper      *providers.DBHelper
	OrderRepo     *repository.OrderRepository
	PortfolioRepo *repository.PortfolioRepository
	ShareRepo     *repository.ShareRepository
}

func NewOrderService(
	db *providers.DBHelper,
	orderRepo *repository.OrderRepository,
	portfolioRepo *repository.PortfolioRepository,
	shareRepo *repository.ShareRepository,
) *OrderService {
	return &OrderService{
		DBHelper:      db,
		OrderRepo:     orderRepo,
		PortfolioRepo: portfolioRepo,
		ShareRepo:     shareRepo,
	}
}

// CreateOrder validates and persists a new PENDING order with its full
// quantity remaining.
func (s *OrderService) CreateOrder(ctx context.Context, portfolioID, shareID int64, side models.OrderSide, price float64, quantity int) (*models.Order, error) {
	if price <= 0 {
		return nil, models.NewValidationError("price must be positive")
	}
	if quantity <= 0 {
		return nil, models.NewValidationError("quantity must be positive")
	}
	if side != models.SideBuy && side != models.SideSell {
		return nil, models.NewValidationError("side must be BUY or SELL")
	}

	tx, err := s.DBHelper.PostgresClient.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = s.PortfolioRepo.GetByID(ctx, tx, portfolioID); err != nil {
		return nil, err
	}
	if _, err = s.ShareRepo.GetByID(ctx, tx, shareID); err != nil {
		return nil, err
	}

	order := &models.Order{
		PortfolioID:  portfolioID,
		ShareID:      shareID,
		Side:         side,
		Price:        price,
		Quantity:     quantity,
		RemainingQty: quantity,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
	if err = s.OrderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder moves an open order to CANCELLED, keeping whatever
// remaining quantity it had. The row lock makes cancellation mutually
// exclusive with a concurrent matching pass on the same order.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	tx, err := s.DBHelper.PostgresClient.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	order, err := s.OrderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() {
		err = models.ErrOrderNotCancellable
		return nil, err
	}

	order.Status = models.StatusCancelled
	if err = s.OrderRepo.UpdateExecution(ctx, tx, order); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// GetPendingOrders lists the user's open orders, oldest first.
func (s *OrderService) GetPendingOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return s.OrderRepo.FetchPendingByPortfolio(ctx, portfolio.ID)
}

// GetOrders returns a page of the user's order history with optional
// side and status filters.
func (s *OrderService) GetOrders(ctx context.Context, userID int64, page, limit int, side models.OrderSide, statuses []models.OrderStatus) (*models.OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	orders, total, err := s.OrderRepo.ListByPortfolio(ctx, portfolio.ID, page, limit, side, statuses)
	if err != nil {
		return nil, err
	}

	resp := &models.OrderListResponse{Total: total, Page: page, Limit: limit}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, *o)
	}
	return resp, nil
}

// GetOrderStatus reports one order's execution progress.
func (s *OrderService) GetOrderStatus(ctx context.Context, orderID int64) (*models.OrderStatusResponse, error) {
	order, err := s.OrderRepo.GetByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}

	return &models.OrderStatusResponse{
		OrderID:           order.ID,
		Status:            order.Status,
		ExecutedQuantity:  order.Quantity - order.RemainingQty,
		RemainingQuantity: order.RemainingQty,
	}, nil
}
