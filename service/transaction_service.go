package service

import (
	"context"
	"time"

	"github.com/paperbroker/trading-engine/db/postgres/providers"
	"github.com/paperbroker/trading-engine/models"
	"github.com/paperbroker/trading-engine/repository"
)

// TransactionService is the cash ledger: deposits and withdrawals
// against the user's realized balance, independent of trading.
type TransactionService struct {
	DBHelper        *providers.DBHelper
	TransactionRepo *repository.TransactionRepository
	UserRepo        *repository.UserRepository
}

func NewTransactionService(
	db *providers.DBHelper,
	transactionRepo *repository.TransactionRepository,
	userRepo *repository.UserRepository,
) *TransactionService {
	return &TransactionService{
		DBHelper:        db,
		TransactionRepo: transactionRepo,
		UserRepo:        userRepo,
	}
}

// Deposit credits the user's cash balance and records the movement.
func (s *TransactionService) Deposit(ctx context.Context, userID int64, amount float64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("amount must be positive")
	}
	return s.apply(ctx, userID, amount, models.TransactionDeposit)
}

// Withdraw debits the user's cash balance. On failure no balance change
// and no transaction row are visible.
func (s *TransactionService) Withdraw(ctx context.Context, userID int64, amount float64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("amount must be positive")
	}
	return s.apply(ctx, userID, -amount, models.TransactionWithdrawal)
}

func (s *TransactionService) apply(ctx context.Context, userID int64, delta float64, kind models.TransactionType) (*models.Transaction, error) {
	tx, err := s.DBHelper.PostgresClient.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	user, err := s.UserRepo.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := user.Balance + delta
	if newBalance < 0 {
		err = models.ErrInsufficientFunds
		return nil, err
	}

	if err = s.UserRepo.UpdateBalance(ctx, tx, userID, newBalance); err != nil {
		return nil, err
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	record := &models.Transaction{
		UserID:    userID,
		Type:      kind,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if err = s.TransactionRepo.Create(ctx, tx, record); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return record, nil
}

// ListTransactions returns the user's cash movement history.
func (s *TransactionService) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	if _, err := s.UserRepo.GetByID(ctx, nil, userID); err != nil {
		return nil, err
	}
	return s.TransactionRepo.ListByUser(ctx, userID)
}
