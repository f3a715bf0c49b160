package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbroker/trading-engine/models"
)

func makeOrder(id int64, portfolioID int64, side models.OrderSide, price float64, qty, remaining int, status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:           id,
		PortfolioID:  portfolioID,
		ShareID:      1,
		Side:         side,
		Price:        price,
		Quantity:     qty,
		RemainingQty: remaining,
		Status:       status,
		CreatedAt:    time.Now(),
	}
}

func TestGroupByPrice(t *testing.T) {
	orders := []*models.Order{
		makeOrder(1, 1, models.SideBuy, 100, 10, 10, models.StatusPending),
		makeOrder(2, 2, models.SideSell, 100, 5, 5, models.StatusPending),
		makeOrder(3, 3, models.SideBuy, 105, 8, 8, models.StatusPending),
	}

	levels := groupByPrice(orders)

	require.Len(t, levels, 2)
	assert.Len(t, levels[100], 2)
	assert.Len(t, levels[105], 1)
	// Insertion order preserved within a level.
	assert.Equal(t, int64(1), levels[100][0].ID)
	assert.Equal(t, int64(2), levels[100][1].ID)
}

func TestSplitBySide(t *testing.T) {
	orders := []*models.Order{
		makeOrder(1, 1, models.SideSell, 100, 5, 5, models.StatusPending),
		makeOrder(2, 2, models.SideBuy, 100, 10, 10, models.StatusPending),
		makeOrder(3, 3, models.SideBuy, 100, 3, 3, models.StatusPending),
	}

	buys, sells := splitBySide(orders)

	require.Len(t, buys, 2)
	require.Len(t, sells, 1)
	assert.Equal(t, int64(2), buys[0].ID)
	assert.Equal(t, int64(3), buys[1].ID)
}

func TestPairLevel(t *testing.T) {
	tests := []struct {
		name          string
		buys          []*models.Order
		sells         []*models.Order
		wantPairings  []int // executed quantity per pairing
		checkOrders   func(t *testing.T, buys, sells []*models.Order)
	}{
		{
			name: "equal quantities fill both sides",
			buys: []*models.Order{
				makeOrder(1, 1, models.SideBuy, 100, 10, 10, models.StatusPending),
			},
			sells: []*models.Order{
				makeOrder(2, 2, models.SideSell, 100, 10, 10, models.StatusPending),
			},
			wantPairings: []int{10},
			checkOrders: func(t *testing.T, buys, sells []*models.Order) {
				assert.Equal(t, 0, buys[0].RemainingQty)
				assert.Equal(t, models.StatusCompleted, buys[0].Status)
				assert.Equal(t, 0, sells[0].RemainingQty)
				assert.Equal(t, models.StatusCompleted, sells[0].Status)
			},
		},
		{
			name: "partial fill leaves buy open",
			buys: []*models.Order{
				makeOrder(1, 1, models.SideBuy, 100, 10, 10, models.StatusPending),
			},
			sells: []*models.Order{
				makeOrder(2, 2, models.SideSell, 100, 6, 6, models.StatusPending),
			},
			wantPairings: []int{6},
			checkOrders: func(t *testing.T, buys, sells []*models.Order) {
				assert.Equal(t, 4, buys[0].RemainingQty)
				assert.Equal(t, models.StatusPartiallyCompleted, buys[0].Status)
				assert.Equal(t, 0, sells[0].RemainingQty)
				assert.Equal(t, models.StatusCompleted, sells[0].Status)
			},
		},
		{
			name: "one buy sweeps several sells",
			buys: []*models.Order{
				makeOrder(1, 1, models.SideBuy, 50, 12, 12, models.StatusPending),
			},
			sells: []*models.Order{
				makeOrder(2, 2, models.SideSell, 50, 5, 5, models.StatusPending),
				makeOrder(3, 3, models.SideSell, 50, 4, 4, models.StatusPending),
				makeOrder(4, 4, models.SideSell, 50, 10, 10, models.StatusPending),
			},
			wantPairings: []int{5, 4, 3},
			checkOrders: func(t *testing.T, buys, sells []*models.Order) {
				assert.Equal(t, 0, buys[0].RemainingQty)
				assert.Equal(t, models.StatusCompleted, buys[0].Status)
				assert.Equal(t, models.StatusCompleted, sells[0].Status)
				assert.Equal(t, models.StatusCompleted, sells[1].Status)
				assert.Equal(t, 7, sells[2].RemainingQty)
				assert.Equal(t, models.StatusPartiallyCompleted, sells[2].Status)
			},
		},
		{
			name: "partially completed order resumes from its remaining quantity",
			buys: []*models.Order{
				makeOrder(1, 1, models.SideBuy, 100, 10, 4, models.StatusPartiallyCompleted),
			},
			sells: []*models.Order{
				makeOrder(2, 2, models.SideSell, 100, 4, 4, models.StatusPending),
			},
			wantPairings: []int{4},
			checkOrders: func(t *testing.T, buys, sells []*models.Order) {
				assert.Equal(t, 0, buys[0].RemainingQty)
				assert.Equal(t, models.StatusCompleted, buys[0].Status)
			},
		},
		{
			name: "no counterparties leaves orders untouched",
			buys: []*models.Order{
				makeOrder(1, 1, models.SideBuy, 100, 10, 10, models.StatusPending),
				makeOrder(2, 2, models.SideBuy, 100, 3, 3, models.StatusPending),
			},
			sells:        nil,
			wantPairings: nil,
			checkOrders: func(t *testing.T, buys, sells []*models.Order) {
				assert.Equal(t, 10, buys[0].RemainingQty)
				assert.Equal(t, models.StatusPending, buys[0].Status)
				assert.Equal(t, 3, buys[1].RemainingQty)
				assert.Equal(t, models.StatusPending, buys[1].Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairings := pairLevel(tt.buys, tt.sells)

			require.Len(t, pairings, len(tt.wantPairings))
			for i, want := range tt.wantPairings {
				assert.Equal(t, want, pairings[i].Quantity, "pairing %d quantity", i)
				// Pairing symmetry: one BUY leg and one SELL leg of
				// equal quantity.
				assert.Equal(t, models.SideBuy, pairings[i].Buy.Side)
				assert.Equal(t, models.SideSell, pairings[i].Sell.Side)
			}
			if tt.checkOrders != nil {
				tt.checkOrders(t, tt.buys, tt.sells)
			}
		})
	}
}

func TestPairLevelLeftoversAfterExhaustion(t *testing.T) {
	// Once the sell queue runs dry, later buys must not be mutated.
	buys := []*models.Order{
		makeOrder(1, 1, models.SideBuy, 100, 5, 5, models.StatusPending),
		makeOrder(2, 2, models.SideBuy, 100, 7, 7, models.StatusPending),
	}
	sells := []*models.Order{
		makeOrder(3, 3, models.SideSell, 100, 5, 5, models.StatusPending),
	}

	pairings := pairLevel(buys, sells)

	require.Len(t, pairings, 1)
	assert.Equal(t, 5, pairings[0].Quantity)
	assert.Equal(t, models.StatusCompleted, buys[0].Status)
	assert.Equal(t, 7, buys[1].RemainingQty)
	assert.Equal(t, models.StatusPending, buys[1].Status)
}

func TestMatchBandBounds(t *testing.T) {
	// The tolerance band is a quarter of the tick price on the low side
	// and five quarters on the high side.
	assert.InDelta(t, 25.0, matchBandLower*100, 1e-9)
	assert.InDelta(t, 125.0, matchBandUpper*100, 1e-9)
}
