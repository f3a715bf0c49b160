package models

import "time"

// User owns realized cash. Portfolio valuation is tracked separately on
// the user's portfolio.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Balance   float64   `json:"balance"` // realized cash, never negative
	CreatedAt time.Time `json:"created_at"`
}
