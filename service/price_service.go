package service

import (
	"context"
	"time"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
)

// PriceService is the tick ingress seam for the price feed. Recording a
// tick appends the observation, revalues every holding of the share and
// runs one matching pass, all inside a single transaction.
type PriceService struct {
	DBHelper  *providers.DBHelper
	PriceRepo *repository.PriceRepository
	ShareRepo *repository.ShareRepository
	Holdings  *HoldingService
	Engine    *MatchingEngine
}

func NewPriceService(
	db *providers.DBHelper,
	priceRepo *repository.PriceRepository,
	shareRepo *repository.ShareRepository,
	holdings *HoldingService,
	engine *MatchingEngine,
) *PriceService {
	return &PriceService{
		DBHelper:  db,
		PriceRepo: priceRepo,
		ShareRepo: shareRepo,
		Holdings:  holdings,
		Engine:    engine,
	}
}

// RecordPrice processes one new price observation. The share row lock
// serializes tick processing per share; ticks for different shares run
// concurrently. Either every resulting trade, order update and
// revaluation commits, or none does.
func (s *PriceService) RecordPrice(ctx context.Context, shareID int64, price float64) (*models.SharePrice, []models.Trade, error) {
	if price <= 0 {
		return nil, nil, models.NewValidationError("price must be positive")
	}

	tx, err := s.DBHelper.BeginSerializable(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	share, err := s.ShareRepo.GetByIDForUpdate(ctx, tx, shareID)
	if err != nil {
		return nil, nil, err
	}
	previousPrice := share.LatestPrice

	tick := &models.SharePrice{
		ShareID:    shareID,
		Price:      price,
		RecordedAt: time.Now(),
	}
	if err = s.PriceRepo.InsertTick(ctx, tx, tick); err != nil {
		return nil, nil, err
	}
	if err = s.ShareRepo.UpdateLatestPrice(ctx, tx, shareID, price); err != nil {
		return nil, nil, err
	}

	// Revalue existing positions before matching mutates them; the
	// delta uses pre-tick quantities against the pre-tick price.
	if err = s.Holdings.RevalueOnTick(ctx, tx, shareID, price, previousPrice); err != nil {
		return nil, nil, err
	}

	trades, err := s.Engine.Match(ctx, tx, shareID, price)
	if err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}
	return tick, trades, nil
}

// GetSharePrice returns the latest recorded tick for a share.
func (s *PriceService) GetSharePrice(ctx context.Context, shareID int64) (*models.SharePrice, error) {
	return s.PriceRepo.FindLatest(ctx, nil, shareID)
}

// ListShares returns the share catalogue with latest prices.
func (s *PriceService) ListShares(ctx context.Context) ([]models.Share, error) {
	return s.ShareRepo.List(ctx)
}
