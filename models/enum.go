package models

type OrderSide string
type OrderStatus string
type PriceKind string
type TransactionType string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"

	StatusPending            OrderStatus = "PENDING"
	StatusPartiallyCompleted OrderStatus = "PARTIALLY_COMPLETED"
	StatusCompleted          OrderStatus = "COMPLETED"
	StatusCancelled          OrderStatus = "CANCELLED"

	PriceKindLimit  PriceKind = "LIMIT"
	PriceKindMarket PriceKind = "MARKET"

	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// IsTerminal reports whether the status forbids any further mutation.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsOpen reports whether an order may still participate in matching.
func (s OrderStatus) IsOpen() bool {
	return s == StatusPending || s == StatusPartiallyCompleted
}
