package models

type CreateOrderRequest struct {
	UserID   int64   `json:"user_id" validate:"required,gt=0"`
	ShareID  int64   `json:"share_id" validate:"required,gt=0"`
	Side     string  `json:"side" validate:"required,oneof=BUY SELL"`
	Price    float64 `json:"price" validate:"required,gt=0"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
}

type CancelOrderRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

type MarketTradeRequest struct {
	UserID   int64 `json:"user_id" validate:"required,gt=0"`
	ShareID  int64 `json:"share_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

type LimitTradeRequest struct {
	UserID   int64   `json:"user_id" validate:"required,gt=0"`
	ShareID  int64   `json:"share_id" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"required,gt=0"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
}

type RecordPriceRequest struct {
	ShareID int64   `json:"share_id" validate:"required,gt=0"`
	Price   float64 `json:"price" validate:"required,gt=0"`
}

type CashRequest struct {
	UserID int64   `json:"user_id" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}
