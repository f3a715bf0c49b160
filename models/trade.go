package models

import "time"

// Trade is an immutable execution record, never updated or deleted.
type Trade struct {
	ID          int64     `json:"trade_id"`
	PortfolioID int64     `json:"portfolio_id"`
	ShareID     int64     `json:"share_id"`
	Side        OrderSide `json:"side"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	PriceKind   PriceKind `json:"price_kind"`
	CreatedAt   time.Time `json:"created_at"`
}
