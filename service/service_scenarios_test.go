package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbroker/trading-engine/db/postgres"
	providers "github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
	"github.com/paperbroker/trading-engine/service"
)

// testDeps wires the full service stack against the TEST_POSTGRES_* DB.
type testDeps struct {
	DB           *sql.DB
	Orders       *service.OrderService
	Trades       *service.TradeService
	Prices       *service.PriceService
	Transactions *service.TransactionService
	Holdings     *service.HoldingService
}

func setupTestDeps(t *testing.T) *testDeps {
	t.Helper()

	_ = godotenv.Load("../.env")
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("TEST_POSTGRES_HOST not set; skipping database scenarios")
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("TEST_POSTGRES_HOST"),
		os.Getenv("TEST_POSTGRES_PORT"),
		os.Getenv("TEST_POSTGRES_USER"),
		os.Getenv("TEST_POSTGRES_PASSWORD"),
		os.Getenv("TEST_POSTGRES_DB"),
	)
	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	pg := &postgres.Db{PostgresClient: db}
	require.NoError(t, pg.InitSchemaFrom("../db/postgres/schema.sql"))

	_, err = db.Exec(`TRUNCATE transactions, trades, portfolio_holdings, orders, share_prices, portfolios, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE shares SET latest_price = 0`)
	require.NoError(t, err)

	dbHelper, err := providers.NewDbProvider(db)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(dbHelper)
	portfolioRepo := repository.NewPortfolioRepository(dbHelper)
	shareRepo := repository.NewShareRepository(dbHelper)
	priceRepo := repository.NewPriceRepository(dbHelper)
	orderRepo := repository.NewOrderRepository(dbHelper)
	tradeRepo := repository.NewTradeRepository(dbHelper)
	holdingRepo := repository.NewHoldingRepository(dbHelper)
	transactionRepo := repository.NewTransactionRepository(dbHelper)

	holdingSvc := service.NewHoldingService(holdingRepo, portfolioRepo, shareRepo)
	orderSvc := service.NewOrderService(dbHelper, orderRepo, portfolioRepo, shareRepo)
	tradeSvc := service.NewTradeService(dbHelper, tradeRepo, userRepo, portfolioRepo, priceRepo, holdingRepo, holdingSvc, orderSvc)
	engine := service.NewMatchingEngine(orderRepo, tradeSvc)
	priceSvc := service.NewPriceService(dbHelper, priceRepo, shareRepo, holdingSvc, engine)
	transactionSvc := service.NewTransactionService(dbHelper, transactionRepo, userRepo)

	t.Cleanup(func() { db.Close() })

	return &testDeps{
		DB:           db,
		Orders:       orderSvc,
		Trades:       tradeSvc,
		Prices:       priceSvc,
		Transactions: transactionSvc,
		Holdings:     holdingSvc,
	}
}

// seedUser inserts a user with a portfolio and returns both IDs.
func (d *testDeps) seedUser(t *testing.T, name string, cash float64) (userID, portfolioID int64) {
	t.Helper()
	err := d.DB.QueryRow(
		`INSERT INTO users (username, email, balance) VALUES ($1, $1 || '@example.com', $2) RETURNING id`,
		name, cash,
	).Scan(&userID)
	require.NoError(t, err)
	err = d.DB.QueryRow(
		`INSERT INTO portfolios (user_id) VALUES ($1) RETURNING portfolio_id`,
		userID,
	).Scan(&portfolioID)
	require.NoError(t, err)
	return userID, portfolioID
}

func (d *testDeps) holdingQty(t *testing.T, portfolioID, shareID int64) int {
	t.Helper()
	var qty int
	err := d.DB.QueryRow(
		`SELECT quantity FROM portfolio_holdings WHERE portfolio_id = $1 AND share_id = $2`,
		portfolioID, shareID,
	).Scan(&qty)
	require.NoError(t, err)
	return qty
}

func (d *testDeps) tradeCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, d.DB.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n))
	return n
}

const testShareID = int64(1) // AAPL from the schema seed

func TestScenarioFullFillOnTick(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	buyerID, buyerPortfolio := deps.seedUser(t, "buyer_a", 100000)
	sellerID, sellerPortfolio := deps.seedUser(t, "seller_a", 100000)

	// Seed the seller's holding through a market buy at the first tick.
	_, _, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)
	_, err = deps.Trades.BuyMarket(ctx, sellerID, testShareID, 10)
	require.NoError(t, err)

	buyOrder, err := deps.Trades.BuyLimit(ctx, buyerID, testShareID, 100, 10)
	require.NoError(t, err)
	sellOrder, err := deps.Trades.SellLimit(ctx, sellerID, testShareID, 100, 10)
	require.NoError(t, err)

	before := deps.tradeCount(t)
	_, trades, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)

	// One pairing emits a BUY-side and a SELL-side trade of quantity 10.
	require.Len(t, trades, 2)
	assert.Equal(t, before+2, deps.tradeCount(t))
	assert.Equal(t, trades[0].Quantity, trades[1].Quantity)

	buyStatus, err := deps.Orders.GetOrderStatus(ctx, buyOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, buyStatus.Status)
	assert.Equal(t, 0, buyStatus.RemainingQuantity)

	sellStatus, err := deps.Orders.GetOrderStatus(ctx, sellOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, sellStatus.Status)

	assert.Equal(t, 10, deps.holdingQty(t, buyerPortfolio, testShareID))
	assert.Equal(t, 0, deps.holdingQty(t, sellerPortfolio, testShareID))

	// Idempotence: a fresh tick with no remaining eligible pairs
	// produces zero additional trades.
	before = deps.tradeCount(t)
	_, trades, err = deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, before, deps.tradeCount(t))
}

func TestScenarioPartialFillOnTick(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	buyerID, _ := deps.seedUser(t, "buyer_b", 100000)
	sellerID, _ := deps.seedUser(t, "seller_b", 100000)

	_, _, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)
	_, err = deps.Trades.BuyMarket(ctx, sellerID, testShareID, 6)
	require.NoError(t, err)

	buyOrder, err := deps.Trades.BuyLimit(ctx, buyerID, testShareID, 100, 10)
	require.NoError(t, err)
	sellOrder, err := deps.Trades.SellLimit(ctx, sellerID, testShareID, 100, 6)
	require.NoError(t, err)

	_, trades, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 6, trades[0].Quantity)

	buyStatus, err := deps.Orders.GetOrderStatus(ctx, buyOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyCompleted, buyStatus.Status)
	assert.Equal(t, 4, buyStatus.RemainingQuantity)

	sellStatus, err := deps.Orders.GetOrderStatus(ctx, sellOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, sellStatus.Status)
	assert.Equal(t, 0, sellStatus.RemainingQuantity)
}

func TestScenarioWithdrawInsufficientFunds(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, _ := deps.seedUser(t, "cash_user", 100)

	_, err := deps.Transactions.Withdraw(ctx, userID, 500)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	var balance float64
	require.NoError(t, deps.DB.QueryRow(`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance))
	assert.InDelta(t, 100.0, balance, 1e-9)

	var n int
	require.NoError(t, deps.DB.QueryRow(`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&n))
	assert.Zero(t, n)
}

func TestScenarioBuyMarketInsufficientFunds(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, portfolioID := deps.seedUser(t, "poor_buyer", 50)

	_, _, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)

	_, err = deps.Trades.BuyMarket(ctx, userID, testShareID, 10)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	assert.Zero(t, deps.tradeCount(t))
	var n int
	require.NoError(t, deps.DB.QueryRow(
		`SELECT COUNT(*) FROM portfolio_holdings WHERE portfolio_id = $1`, portfolioID).Scan(&n))
	assert.Zero(t, n)
}

func TestScenarioSellMarketInsufficientHoldings(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, _ := deps.seedUser(t, "no_holdings", 10000)

	_, _, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)

	_, err = deps.Trades.SellMarket(ctx, userID, testShareID, 5)
	require.ErrorIs(t, err, models.ErrInsufficientHoldings)
	assert.Zero(t, deps.tradeCount(t))

	// Limit sells beyond the held position are rejected at placement.
	_, err = deps.Trades.SellLimit(ctx, userID, testShareID, 100, 5)
	require.ErrorIs(t, err, models.ErrInsufficientHoldings)

	var n int
	require.NoError(t, deps.DB.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n))
	assert.Zero(t, n)
}

func TestCancelOrderStateMachine(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, _ := deps.seedUser(t, "canceller", 100000)

	_, _, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)

	order, err := deps.Trades.BuyLimit(ctx, userID, testShareID, 90, 10)
	require.NoError(t, err)

	cancelled, err := deps.Orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	// Cancellation keeps the remaining quantity for the audit trail.
	assert.Equal(t, 10, cancelled.RemainingQty)

	// Terminal states reject a second cancellation.
	_, err = deps.Orders.CancelOrder(ctx, order.ID)
	require.ErrorIs(t, err, models.ErrOrderNotCancellable)

	// A cancelled order never matches again.
	sellerID, _ := deps.seedUser(t, "cancel_seller", 100000)
	_, err = deps.Trades.BuyMarket(ctx, sellerID, testShareID, 10)
	require.NoError(t, err)
	_, err = deps.Trades.SellLimit(ctx, sellerID, testShareID, 90, 10)
	require.NoError(t, err)

	before := deps.tradeCount(t)
	_, trades, err := deps.Prices.RecordPrice(ctx, testShareID, 90)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, before, deps.tradeCount(t))
}

func TestTickRevaluesPortfolio(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, portfolioID := deps.seedUser(t, "holder", 100000)

	_, _, err := deps.Prices.RecordPrice(ctx, testShareID, 100)
	require.NoError(t, err)
	_, err = deps.Trades.BuyMarket(ctx, userID, testShareID, 10)
	require.NoError(t, err)

	var balanceBefore float64
	require.NoError(t, deps.DB.QueryRow(
		`SELECT balance FROM portfolios WHERE portfolio_id = $1`, portfolioID).Scan(&balanceBefore))

	_, _, err = deps.Prices.RecordPrice(ctx, testShareID, 105)
	require.NoError(t, err)

	var balanceAfter float64
	require.NoError(t, deps.DB.QueryRow(
		`SELECT balance FROM portfolios WHERE portfolio_id = $1`, portfolioID).Scan(&balanceAfter))

	// 10 shares at a 5 point move
	assert.InDelta(t, balanceBefore+50, balanceAfter, 1e-9)

	portfolio, err := deps.Holdings.GetUserPortfolio(ctx, userID)
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, portfolio.TotalValue, 1e-9)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, _ := deps.seedUser(t, "round_trip", 0)

	_, err := deps.Transactions.Deposit(ctx, userID, 300)
	require.NoError(t, err)
	_, err = deps.Transactions.Withdraw(ctx, userID, 120)
	require.NoError(t, err)

	var balance float64
	require.NoError(t, deps.DB.QueryRow(`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance))
	assert.InDelta(t, 180.0, balance, 1e-9)

	records, err := deps.Transactions.ListTransactions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, models.TransactionWithdrawal, records[0].Type)
	assert.InDelta(t, 120.0, records[0].Amount, 1e-9)
	assert.Equal(t, models.TransactionDeposit, records[1].Type)
}

func TestCreateOrderValidation(t *testing.T) {
	deps := setupTestDeps(t)
	ctx := context.Background()

	userID, portfolioID := deps.seedUser(t, "validator", 1000)

	_, err := deps.Orders.CreateOrder(ctx, portfolioID, testShareID, models.SideBuy, 0, 10)
	assert.True(t, models.IsValidation(err))

	_, err = deps.Orders.CreateOrder(ctx, portfolioID, testShareID, models.SideBuy, 100, 0)
	assert.True(t, models.IsValidation(err))

	_, err = deps.Orders.CreateOrder(ctx, 999999, testShareID, models.SideBuy, 100, 10)
	require.ErrorIs(t, err, models.ErrPortfolioNotFound)

	order, err := deps.Orders.CreateOrder(ctx, portfolioID, testShareID, models.SideBuy, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 10, order.RemainingQty)

	pending, err := deps.Orders.GetPendingOrders(ctx, userID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, order.ID, pending[0].ID)
}
