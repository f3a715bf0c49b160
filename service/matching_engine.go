package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
)

// Orders are eligible for a tick when their limit price lies within
// [matchBandLower, matchBandUpper] times the tick price. The band substitutes
// for a full depth book: orders quoted "near market" may pair, but only
// with counterparties at exactly the same price level.
const (
	matchBandLower = 0.25
	matchBandUpper = 1.25
)

// MatchingEngine pairs opposing resting orders into trades whenever a
// new price tick arrives. It never owns a transaction; the tick ingress
// path passes one in so the whole pass commits or rolls back as a unit.
type MatchingEngine struct {
	OrderRepo  *repository.OrderRepository
	Settlement *TradeService
}

func NewMatchingEngine(orderRepo *repository.OrderRepository, settlement *TradeService) *MatchingEngine {
	return &MatchingEngine{OrderRepo: orderRepo, Settlement: settlement}
}

// Match runs one matching pass for a tick. It locks every candidate
// order row, re-checks eligibility under the lock (a cancellation may
// have landed between selection and lock), pairs BUY and SELL queues
// per price level in insertion order, and persists only the orders
// whose remaining quantity actually changed.
func (e *MatchingEngine) Match(ctx context.Context, tx *sql.Tx, shareID int64, tickPrice float64) ([]models.Trade, error) {
	orders, err := e.OrderRepo.FetchEligible(ctx, tx, shareID,
		matchBandLower*tickPrice, matchBandUpper*tickPrice)
	if err != nil {
		return nil, err
	}

	eligible := orders[:0]
	for _, o := range orders {
		if o.Status.IsOpen() && o.RemainingQty > 0 {
			eligible = append(eligible, o)
		}
	}

	levels := groupByPrice(eligible)

	prices := make([]float64, 0, len(levels))
	for price := range levels {
		prices = append(prices, price)
	}
	sort.Float64s(prices)

	now := time.Now()
	var trades []models.Trade
	touched := make(map[int64]*models.Order)

	for _, price := range prices {
		buys, sells := splitBySide(levels[price])
		for _, p := range pairLevel(buys, sells) {
			buyTrade := levelTrade(p.Buy, shareID, p.Quantity, price, now)
			sellTrade := levelTrade(p.Sell, shareID, p.Quantity, price, now)

			if err := e.Settlement.CreateTrade(ctx, tx, &buyTrade); err != nil {
				return nil, err
			}
			if err := e.Settlement.CreateTrade(ctx, tx, &sellTrade); err != nil {
				return nil, err
			}
			trades = append(trades, buyTrade, sellTrade)

			touched[p.Buy.ID] = p.Buy
			touched[p.Sell.ID] = p.Sell
		}
	}

	ids := make([]int64, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := e.OrderRepo.UpdateExecution(ctx, tx, touched[id]); err != nil {
			return nil, err
		}
	}

	return trades, nil
}

func levelTrade(order *models.Order, shareID int64, quantity int, price float64, at time.Time) models.Trade {
	return models.Trade{
		PortfolioID: order.PortfolioID,
		ShareID:     shareID,
		Side:        order.Side,
		Quantity:    quantity,
		Price:       price,
		PriceKind:   models.PriceKindLimit,
		CreatedAt:   at,
	}
}

// groupByPrice buckets orders by exact limit price, preserving the
// insertion order within each bucket.
func groupByPrice(orders []*models.Order) map[float64][]*models.Order {
	levels := make(map[float64][]*models.Order)
	for _, o := range orders {
		levels[o.Price] = append(levels[o.Price], o)
	}
	return levels
}

// splitBySide separates one price level into BUY and SELL queues,
// keeping insertion order.
func splitBySide(orders []*models.Order) (buys, sells []*models.Order) {
	for _, o := range orders {
		if o.Side == models.SideBuy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}
	return buys, sells
}

type pairing struct {
	Buy      *models.Order
	Sell     *models.Order
	Quantity int
}

// pairLevel walks both queues head-to-head, executing
// min(buy.remaining, sell.remaining) per pairing and advancing whichever
// side is exhausted. Order statuses and remaining quantities are updated
// in place; orders the loop never reaches stay untouched.
func pairLevel(buys, sells []*models.Order) []pairing {
	var pairings []pairing
	bi, si := 0, 0
	for bi < len(buys) && si < len(sells) {
		buy, sell := buys[bi], sells[si]

		qty := min(buy.RemainingQty, sell.RemainingQty)
		buy.RemainingQty -= qty
		sell.RemainingQty -= qty
		applyFillStatus(buy)
		applyFillStatus(sell)

		pairings = append(pairings, pairing{Buy: buy, Sell: sell, Quantity: qty})

		if buy.RemainingQty == 0 {
			bi++
		}
		if sell.RemainingQty == 0 {
			si++
		}
	}
	return pairings
}

func applyFillStatus(o *models.Order) {
	if o.RemainingQty == 0 {
		o.Status = models.StatusCompleted
	} else {
		o.Status = models.StatusPartiallyCompleted
	}
}
