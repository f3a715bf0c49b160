package models

import "time"

// Order is a limit order resting until the matching engine executes it.
// RemainingQty only ever decreases and stays within [0, Quantity]; the
// status is COMPLETED exactly when RemainingQty reaches 0, unless the
// order was cancelled first.
type Order struct {
	ID           int64       `json:"order_id"`
	PortfolioID  int64       `json:"portfolio_id"`
	ShareID      int64       `json:"share_id"`
	Side         OrderSide   `json:"side"`
	Price        float64     `json:"price"`
	Quantity     int         `json:"quantity"`
	RemainingQty int         `json:"remaining_quantity"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}
