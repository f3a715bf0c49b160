package models

type OrderStatusResponse struct {
	OrderID           int64       `json:"order_id"`
	Status            OrderStatus `json:"status"`
	ExecutedQuantity  int         `json:"executed_quantity"`
	RemainingQuantity int         `json:"remaining_quantity"`
}

type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

type HoldingEntry struct {
	ShareID      int64   `json:"share_id"`
	Symbol       string  `json:"symbol"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LatestPrice  float64 `json:"latest_price"`
	MarketValue  float64 `json:"market_value"`
}

type PortfolioResponse struct {
	PortfolioID int64          `json:"portfolio_id"`
	UserID      int64          `json:"user_id"`
	Balance     float64        `json:"balance"`
	TotalValue  float64        `json:"total_value"`
	Holdings    []HoldingEntry `json:"holdings"`
}
