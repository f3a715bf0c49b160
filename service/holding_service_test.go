package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextBuyPosition(t *testing.T) {
	tests := []struct {
		name     string
		held     int
		avg      float64
		qty      int
		price    float64
		wantQty  int
		wantAvg  float64
	}{
		{
			name:    "first buy into empty position",
			held:    0, avg: 0,
			qty: 10, price: 100,
			wantQty: 10, wantAvg: 100,
		},
		{
			name:    "second buy at higher price raises basis",
			held:    10, avg: 100,
			qty: 10, price: 120,
			wantQty: 20, wantAvg: 110,
		},
		{
			name:    "small add barely moves basis",
			held:    100, avg: 50,
			qty: 1, price: 60,
			wantQty: 101, wantAvg: (100*50.0 + 60.0) / 101,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotQty, gotAvg := nextBuyPosition(tt.held, tt.avg, tt.qty, tt.price)
			assert.Equal(t, tt.wantQty, gotQty)
			assert.InDelta(t, tt.wantAvg, gotAvg, 1e-9)
		})
	}
}

func TestNextSellPosition(t *testing.T) {
	tests := []struct {
		name    string
		held    int
		avg     float64
		qty     int
		price   float64
		wantQty int
		wantAvg float64
	}{
		{
			name: "full liquidation resets basis",
			held: 10, avg: 100,
			qty: 10, price: 130,
			wantQty: 0, wantAvg: 0,
		},
		{
			name: "partial sell at cost keeps basis",
			held: 10, avg: 100,
			qty: 4, price: 100,
			wantQty: 6, wantAvg: 100,
		},
		{
			name: "partial sell above cost releases basis",
			held: 10, avg: 100,
			qty: 6, price: 150,
			// (10*100 - 6*150) / 4
			wantQty: 4, wantAvg: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotQty, gotAvg := nextSellPosition(tt.held, tt.avg, tt.qty, tt.price)
			assert.Equal(t, tt.wantQty, gotQty)
			assert.InDelta(t, tt.wantAvg, gotAvg, 1e-9)
		})
	}
}

func TestRevaluationDelta(t *testing.T) {
	assert.InDelta(t, 50.0, revaluationDelta(10, 105, 100), 1e-9)
	assert.InDelta(t, -30.0, revaluationDelta(10, 97, 100), 1e-9)
	assert.InDelta(t, 0.0, revaluationDelta(0, 200, 100), 1e-9)
	assert.InDelta(t, 0.0, revaluationDelta(25, 80, 80), 1e-9)
}
