package models

import "time"

// Transaction is an immutable cash movement on a user's balance,
// independent of trading.
type Transaction struct {
	ID        int64           `json:"transaction_id"`
	UserID    int64           `json:"user_id"`
	Type      TransactionType `json:"transaction_type"`
	Amount    float64         `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
