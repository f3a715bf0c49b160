package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/service"
	"github.com/paperbroker/trading-engine/utils"
)

type Handler struct {
	Orders       *service.OrderService
	Trades       *service.TradeService
	Prices       *service.PriceService
	Transactions *service.TransactionService
	Holdings     *service.HoldingService
	Validator    *validator.Validate
}

func NewHandler(
	orders *service.OrderService,
	trades *service.TradeService,
	prices *service.PriceService,
	transactions *service.TransactionService,
	holdings *service.HoldingService,
) *Handler {
	return &Handler{
		Orders:       orders,
		Trades:       trades,
		Prices:       prices,
		Transactions: transactions,
		Holdings:     holdings,
		Validator:    utils.GetValidator(),
	}
}

func formatValidationError(err error) map[string]string {
	fields := make(map[string]string)
	for _, e := range err.(validator.ValidationErrors) {
		fields[e.Field()] = "failed on tag '" + e.Tag() + "'"
	}
	return fields
}

// errorStatus maps the service error taxonomy to HTTP status codes.
// Anything unrecognized is a storage/transaction failure, surfaced as a
// retryable 500.
func errorStatus(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrPortfolioNotFound),
		errors.Is(err, models.ErrShareNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInsufficientHoldings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrOrderNotCancellable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error, please retry"
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"validation_errors": formatValidationError(err)})
		return false
	}
	return true
}

func queryUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid user_id query parameter"})
		return 0, false
	}
	return id, true
}

// POST /order/create
func (h *Handler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}

	var (
		order *models.Order
		err   error
	)
	if models.OrderSide(req.Side) == models.SideBuy {
		order, err = h.Trades.BuyLimit(c.Request.Context(), req.UserID, req.ShareID, req.Price, req.Quantity)
	} else {
		order, err = h.Trades.SellLimit(c.Request.Context(), req.UserID, req.ShareID, req.Price, req.Quantity)
	}
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// POST /order/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	var req models.CancelOrderRequest
	if !h.bind(c, &req) {
		return
	}

	order, err := h.Orders.CancelOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /order/pending?user_id=
func (h *Handler) GetPendingOrders(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	orders, err := h.Orders.GetPendingOrders(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GET /order/list?user_id=&page=&limit=&side=&status=
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	side := models.OrderSide(c.Query("side"))

	var statuses []models.OrderStatus
	for _, s := range c.QueryArray("status") {
		statuses = append(statuses, models.OrderStatus(s))
	}

	resp, err := h.Orders.GetOrders(c.Request.Context(), userID, page, limit, side, statuses)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /order/status/:id
func (h *Handler) GetOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	resp, err := h.Orders.GetOrderStatus(c.Request.Context(), orderID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /trade/market/buy
func (h *Handler) BuyMarket(c *gin.Context) {
	var req models.MarketTradeRequest
	if !h.bind(c, &req) {
		return
	}

	trade, err := h.Trades.BuyMarket(c.Request.Context(), req.UserID, req.ShareID, req.Quantity)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

// POST /trade/market/sell
func (h *Handler) SellMarket(c *gin.Context) {
	var req models.MarketTradeRequest
	if !h.bind(c, &req) {
		return
	}

	trade, err := h.Trades.SellMarket(c.Request.Context(), req.UserID, req.ShareID, req.Quantity)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

// POST /trade/limit/buy
func (h *Handler) BuyLimit(c *gin.Context) {
	var req models.LimitTradeRequest
	if !h.bind(c, &req) {
		return
	}

	order, err := h.Trades.BuyLimit(c.Request.Context(), req.UserID, req.ShareID, req.Price, req.Quantity)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// POST /trade/limit/sell
func (h *Handler) SellLimit(c *gin.Context) {
	var req models.LimitTradeRequest
	if !h.bind(c, &req) {
		return
	}

	order, err := h.Trades.SellLimit(c.Request.Context(), req.UserID, req.ShareID, req.Price, req.Quantity)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GET /trade/list?user_id=
func (h *Handler) ListTrades(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	trades, err := h.Trades.ListTrades(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// POST /price/update
func (h *Handler) RecordPrice(c *gin.Context) {
	var req models.RecordPriceRequest
	if !h.bind(c, &req) {
		return
	}

	tick, trades, err := h.Prices.RecordPrice(c.Request.Context(), req.ShareID, req.Price)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tick": tick, "trades": trades})
}

// GET /price/:shareId
func (h *Handler) GetSharePrice(c *gin.Context) {
	shareID, err := strconv.ParseInt(c.Param("shareId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share ID"})
		return
	}

	tick, err := h.Prices.GetSharePrice(c.Request.Context(), shareID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, tick)
}

// GET /price/shares
func (h *Handler) ListShares(c *gin.Context) {
	shares, err := h.Prices.ListShares(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": shares})
}

// POST /transaction/deposit
func (h *Handler) Deposit(c *gin.Context) {
	var req models.CashRequest
	if !h.bind(c, &req) {
		return
	}

	record, err := h.Transactions.Deposit(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// POST /transaction/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req models.CashRequest
	if !h.bind(c, &req) {
		return
	}

	record, err := h.Transactions.Withdraw(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// GET /transaction/list?user_id=
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	records, err := h.Transactions.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": records})
}

// GET /portfolio?user_id=
func (h *Handler) GetPortfolio(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	portfolio, err := h.Holdings.GetUserPortfolio(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}
