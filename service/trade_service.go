package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
)

// TradeService is the settlement layer: the sole write path for trades,
// the immediate-execution path for market orders, and the limit-order
// convenience wrappers.
type TradeService struct {
	DBHelper      *providers.DBHelper
	TradeRepo     *repository.TradeRepository
	UserRepo      *repository.UserRepository
	PortfolioRepo *repository.PortfolioRepository
	PriceRepo     *repository.PriceRepository
	HoldingRepo   *repository.HoldingRepository
	Holdings      *HoldingService
	Orders        *OrderService
}

func NewTradeService(
	db *providers.DBHelper,
	tradeRepo *repository.TradeRepository,
	userRepo *repository.UserRepository,
	portfolioRepo *repository.PortfolioRepository,
	priceRepo *repository.PriceRepository,
	holdingRepo *repository.HoldingRepository,
	holdings *HoldingService,
	orders *OrderService,
) *TradeService {
	return &TradeService{
		DBHelper:      db,
		TradeRepo:     tradeRepo,
		UserRepo:      userRepo,
		PortfolioRepo: portfolioRepo,
		PriceRepo:     priceRepo,
		HoldingRepo:   holdingRepo,
		Holdings:      holdings,
		Orders:        orders,
	}
}

// CreateTrade appends a trade inside the caller's transaction and drives
// the holdings reconciler. Every trade in the system, matched or market,
// goes through here.
func (s *TradeService) CreateTrade(ctx context.Context, tx *sql.Tx, trade *models.Trade) error {
	if trade.Quantity <= 0 {
		return models.NewValidationError("trade quantity must be positive")
	}
	if trade.Price < 0 {
		return models.NewValidationError("trade price cannot be negative")
	}

	if err := s.TradeRepo.Create(ctx, tx, trade); err != nil {
		return err
	}
	return s.Holdings.ApplyTrade(ctx, tx, trade)
}

// BuyMarket executes an immediate buy at the latest observed price,
// debiting the user's cash balance.
func (s *TradeService) BuyMarket(ctx context.Context, userID, shareID int64, quantity int) (*models.Trade, error) {
	if quantity <= 0 {
		return nil, models.NewValidationError("quantity must be positive")
	}

	tx, err := s.DBHelper.BeginSerializable(ctx)
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

	latest, err := s.PriceRepo.FindLatest(ctx, tx, shareID)
	if err != nil {
		if errors.Is(err, models.ErrPriceNotFound) {
			err = models.NewValidationError("no market price recorded for share")
		}
		return nil, err
	}

	user, err := s.UserRepo.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	cost := latest.Price * float64(quantity)
	if cost > user.Balance {
		err = models.ErrInsufficientFunds
		return nil, err
	}

	if err = s.UserRepo.UpdateBalance(ctx, tx, userID, user.Balance-cost); err != nil {
		return nil, err
	}

	trade := &models.Trade{
		PortfolioID: portfolio.ID,
		ShareID:     shareID,
		Side:        models.SideBuy,
		Quantity:    quantity,
		Price:       latest.Price,
		PriceKind:   models.PriceKindMarket,
		CreatedAt:   time.Now(),
	}
	if err = s.CreateTrade(ctx, tx, trade); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return trade, nil
}

// SellMarket executes an immediate sell at the latest observed price,
// crediting the proceeds to the user's cash balance.
func (s *TradeService) SellMarket(ctx context.Context, userID, shareID int64, quantity int) (*models.Trade, error) {
	if quantity <= 0 {
		return nil, models.NewValidationError("quantity must be positive")
	}

	tx, err := s.DBHelper.BeginSerializable(ctx)
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

	latest, err := s.PriceRepo.FindLatest(ctx, tx, shareID)
	if err != nil {
		if errors.Is(err, models.ErrPriceNotFound) {
			err = models.NewValidationError("no market price recorded for share")
		}
		return nil, err
	}

	user, err := s.UserRepo.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	holding, err := s.HoldingRepo.GetForUpdate(ctx, tx, portfolio.ID, shareID)
	if err != nil {
		return nil, err
	}
	if holding == nil || holding.Quantity < quantity {
		err = models.ErrInsufficientHoldings
		return nil, err
	}

	proceeds := latest.Price * float64(quantity)
	if err = s.UserRepo.UpdateBalance(ctx, tx, userID, user.Balance+proceeds); err != nil {
		return nil, err
	}

	trade := &models.Trade{
		PortfolioID: portfolio.ID,
		ShareID:     shareID,
		Side:        models.SideSell,
		Quantity:    quantity,
		Price:       latest.Price,
		PriceKind:   models.PriceKindMarket,
		CreatedAt:   time.Now(),
	}
	if err = s.CreateTrade(ctx, tx, trade); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return trade, nil
}

// BuyLimit places a resting BUY order. Nothing executes until the
// matching engine pairs it on a later tick.
func (s *TradeService) BuyLimit(ctx context.Context, userID, shareID int64, price float64, quantity int) (*models.Order, error) {
	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return s.Orders.CreateOrder(ctx, portfolio.ID, shareID, models.SideBuy, price, quantity)
}

// SellLimit places a resting SELL order. Placement rejects quantities
// beyond the currently held position; the holdings reconciler enforces
// the same bound again at execution time.
func (s *TradeService) SellLimit(ctx context.Context, userID, shareID int64, price float64, quantity int) (*models.Order, error) {
	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if quantity > 0 {
		holding, err := s.HoldingRepo.Get(ctx, portfolio.ID, shareID)
		if err != nil {
			return nil, err
		}
		if holding == nil || holding.Quantity < quantity {
			return nil, models.ErrInsufficientHoldings
		}
	}
	return s.Orders.CreateOrder(ctx, portfolio.ID, shareID, models.SideSell, price, quantity)
}

// ListTrades returns the user's trade history.
func (s *TradeService) ListTrades(ctx context.Context, userID int64) ([]models.Trade, error) {
	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return s.TradeRepo.ListByPortfolio(ctx, portfolio.ID)
}
