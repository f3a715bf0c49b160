package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/paperbroker/trading-engine/db/postgres"
	providers "github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/repository"
	"github.com/paperbroker/trading-engine/routes"
	"github.com/paperbroker/trading-engine/service"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	// 1. Connect PostgreSQL
	postgresClient := postgres.ConnectDB()
	defer postgresClient.Stop()

	if err := postgresClient.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	dbHelper, err := providers.NewDbProvider(postgresClient.PostgresClient)
	if err != nil {
		log.Fatalf("Failed to initialize DB helper: %v", err)
	}

	// 2. Repositories
	userRepo := repository.NewUserRepository(dbHelper)
	portfolioRepo := repository.NewPortfolioRepository(dbHelper)
	shareRepo := repository.NewShareRepository(dbHelper)
	priceRepo := repository.NewPriceRepository(dbHelper)
	orderRepo := repository.NewOrderRepository(dbHelper)
	tradeRepo := repository.NewTradeRepository(dbHelper)
	holdingRepo := repository.NewHoldingRepository(dbHelper)
	transactionRepo := repository.NewTransactionRepository(dbHelper)

	// 3. Services
	holdingSvc := service.NewHoldingService(holdingRepo, portfolioRepo, shareRepo)
	orderSvc := service.NewOrderService(dbHelper, orderRepo, portfolioRepo, shareRepo)
	tradeSvc := service.NewTradeService(dbHelper, tradeRepo, userRepo, portfolioRepo, priceRepo, holdingRepo, holdingSvc, orderSvc)
	engine := service.NewMatchingEngine(orderRepo, tradeSvc)
	priceSvc := service.NewPriceService(dbHelper, priceRepo, shareRepo, holdingSvc, engine)
	transactionSvc := service.NewTransactionService(dbHelper, transactionRepo, userRepo)

	// 4. Router
	router := gin.Default()
	routes.RegisterRoutes(router, orderSvc, tradeSvc, priceSvc, transactionSvc, holdingSvc)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Trading engine REST API running on %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 5. Wait for OS signal, then shut down gracefully
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("gracefully shutdown")
}
