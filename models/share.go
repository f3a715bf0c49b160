package models

import "time"

// Share is a tradable instrument with its latest observed price.
type Share struct {
	ID          int64   `json:"share_id"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	LatestPrice float64 `json:"latest_price"`
}

// SharePrice is one immutable price observation. Ticks are append-only
// and strictly time-ordered per share.
type SharePrice struct {
	ID         int64     `json:"price_id"`
	ShareID    int64     `json:"share_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}
