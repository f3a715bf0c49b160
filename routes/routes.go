package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/paperbroker/trading-engine/handlers"
	"github.com/paperbroker/trading-engine/service"
)

func RegisterRoutes(
	router *gin.Engine,
	orders *service.OrderService,
	trades *service.TradeService,
	prices *service.PriceService,
	transactions *service.TransactionService,
	holdings *service.HoldingService,
) {
	h := handlers.NewHandler(orders, trades, prices, transactions, holdings)

	v1 := router.Group("/api/v1")
	{
		order := v1.Group("/order")
		{
			order.POST("/create", h.CreateOrder)
			order.POST("/cancel", h.CancelOrder)
			order.GET("/pending", h.GetPendingOrders)
			order.GET("/list", h.ListOrders)
			order.GET("/status/:id", h.GetOrderStatus)
		}

		trade := v1.Group("/trade")
		{
			trade.POST("/market/buy", h.BuyMarket)
			trade.POST("/market/sell", h.SellMarket)
			trade.POST("/limit/buy", h.BuyLimit)
			trade.POST("/limit/sell", h.SellLimit)
			trade.GET("/list", h.ListTrades)
		}

		price := v1.Group("/price")
		{
			price.POST("/update", h.RecordPrice)
			price.GET("/shares", h.ListShares)
			price.GET("/:shareId", h.GetSharePrice)
		}

		transaction := v1.Group("/transaction")
		{
			transaction.POST("/deposit", h.Deposit)
			transaction.POST("/withdraw", h.Withdraw)
			transaction.GET("/list", h.ListTransactions)
		}

		v1.GET("/portfolio", h.GetPortfolio)
	}
}
