package models

import "time"

// Portfolio is 1:1 with a user. Balance is the mark-to-market valuation
// figure maintained incrementally from price ticks; it is distinct from
// the user's realized cash balance.
type Portfolio struct {
	ID        int64     `json:"portfolio_id"`
	UserID    int64     `json:"user_id"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
