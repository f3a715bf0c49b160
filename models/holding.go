package models

// Holding is a portfolio's position in one share, keyed by
// (portfolio_id, share_id). AveragePrice is the weighted cost basis of
// the currently held quantity; MarketValue is quantity priced at the
// latest tick. A holding is created on the first BUY and never deleted,
// though its quantity may fall to zero.
type Holding struct {
	ID           int64   `json:"holding_id"`
	PortfolioID  int64   `json:"portfolio_id"`
	ShareID      int64   `json:"share_id"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	MarketValue  float64 `json:"market_value"`
}
