package service

import (
	"context"
	"database/sql"

	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
)

// HoldingService reconciles per-portfolio positions from trades and
// revalues them when new prices arrive.
type HoldingService struct {
	HoldingRepo   *repository.HoldingRepository
	PortfolioRepo *repository.PortfolioRepository
	ShareRepo     *repository.ShareRepository
}

func NewHoldingService(
	holdingRepo *repository.HoldingRepository,
	portfolioRepo *repository.PortfolioRepository,
	shareRepo *repository.ShareRepository,
) *HoldingService {
	return &HoldingService{
		HoldingRepo:   holdingRepo,
		PortfolioRepo: portfolioRepo,
		ShareRepo:     shareRepo,
	}
}

// nextBuyPosition folds a BUY execution into a position, keeping the
// average price as the weighted cost basis of the held quantity.
func nextBuyPosition(held int, avgPrice float64, qty int, price float64) (int, float64) {
	newQty := held + qty
	newAvg := (float64(held)*avgPrice + float64(qty)*price) / float64(newQty)
	return newQty, newAvg
}

// nextSellPosition releases cost basis for a SELL execution. When the
// position empties, the average price resets to zero. Callers must
// ensure qty <= held.
func nextSellPosition(held int, avgPrice float64, qty int, price float64) (int, float64) {
	newQty := held - qty
	if newQty == 0 {
		return 0, 0
	}
	newAvg := (float64(held)*avgPrice - float64(qty)*price) / float64(newQty)
	return newQty, newAvg
}

// revaluationDelta is the mark-to-market change of a position when the
// share moves from prevPrice to newPrice.
func revaluationDelta(qty int, newPrice, prevPrice float64) float64 {
	return float64(qty) * (newPrice - prevPrice)
}

// ApplyTrade folds one new trade into the owning portfolio's holding,
// inside the caller's transaction. An oversell returns
// ErrInsufficientHoldings so the enclosing transaction (and with it the
// trade itself) rolls back.
func (s *HoldingService) ApplyTrade(ctx context.Context, tx *sql.Tx, trade *models.Trade) error {
	holding, err := s.HoldingRepo.GetForUpdate(ctx, tx, trade.PortfolioID, trade.ShareID)
	if err != nil {
		return err
	}

	share, err := s.ShareRepo.GetByID(ctx, tx, trade.ShareID)
	if err != nil {
		return err
	}

	switch trade.Side {
	case models.SideBuy:
		if holding == nil {
			holding = &models.Holding{
				PortfolioID:  trade.PortfolioID,
				ShareID:      trade.ShareID,
				Quantity:     trade.Quantity,
				AveragePrice: trade.Price,
				MarketValue:  float64(trade.Quantity) * share.LatestPrice,
			}
			return s.HoldingRepo.Create(ctx, tx, holding)
		}
		holding.Quantity, holding.AveragePrice = nextBuyPosition(
			holding.Quantity, holding.AveragePrice, trade.Quantity, trade.Price)

	case models.SideSell:
		if holding == nil || holding.Quantity < trade.Quantity {
			return models.ErrInsufficientHoldings
		}
		holding.Quantity, holding.AveragePrice = nextSellPosition(
			holding.Quantity, holding.AveragePrice, trade.Quantity, trade.Price)

	default:
		return models.NewValidationError("invalid trade side")
	}

	holding.MarketValue = float64(holding.Quantity) * share.LatestPrice
	return s.HoldingRepo.Update(ctx, tx, holding)
}

// RevalueOnTick marks every holding of a share to the new price and
// applies the valuation delta to each owning portfolio's balance.
func (s *HoldingService) RevalueOnTick(ctx context.Context, tx *sql.Tx, shareID int64, newPrice, prevPrice float64) error {
	holdings, err := s.HoldingRepo.ListByShareForUpdate(ctx, tx, shareID)
	if err != nil {
		return err
	}

	for _, h := range holdings {
		delta := revaluationDelta(h.Quantity, newPrice, prevPrice)
		h.MarketValue = float64(h.Quantity) * newPrice
		if err := s.HoldingRepo.Update(ctx, tx, h); err != nil {
			return err
		}
		if delta == 0 {
			continue
		}
		if err := s.PortfolioRepo.AddToBalance(ctx, tx, h.PortfolioID, delta); err != nil {
			return err
		}
	}
	return nil
}

// GetUserPortfolio returns the user's portfolio with its holdings priced
// at the latest ticks.
func (s *HoldingService) GetUserPortfolio(ctx context.Context, userID int64) (*models.PortfolioResponse, error) {
	portfolio, err := s.PortfolioRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.HoldingRepo.ListByPortfolio(ctx, portfolio.ID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, e := range entries {
		total += e.MarketValue
	}

	return &models.PortfolioResponse{
		PortfolioID: portfolio.ID,
		UserID:      portfolio.UserID,
		Balance:     portfolio.Balance,
		TotalValue:  total,
		Holdings:    entries,
	}, nil
}
