package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/db"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

// RecordPurchase регистрирует отслеженную покупку: транзакция создаётся в
// pending, кэшбэк зачисляется в total и pending.
func (s *LedgerService) RecordPurchase(ctx context.Context, p models.PurchaseRequest) (*models.Transaction, error) {
	p.OrderID = strings.TrimSpace(p.OrderID)
	switch {
	case p.UserID == uuid.Nil:
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	case p.StoreID == uuid.Nil:
		return nil, fmt.Errorf("%w: storeId is required", ErrValidation)
	case p.OrderID == "":
		return nil, fmt.Errorf("%w: orderId is required", ErrValidation)
	case !p.Amount.IsPositive() || !validMoney(p.Amount):
		return nil, ErrInvalidAmount
	case p.CashbackEarned.IsNegative() || !validMoney(p.CashbackEarned):
		return nil, fmt.Errorf("%w: cashbackEarned must be non-negative with at most 2 decimal places", ErrValidation)
	case p.CashbackEarned.GreaterThan(p.Amount):
		return nil, fmt.Errorf("%w: cashbackEarned cannot exceed amount", ErrValidation)
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	tx, err := s.TransactionRepo.CreatePurchase(storeCtx, p)
	if errors.Is(err, db.ErrDuplicate) {
		return nil, ErrDuplicateOrder
	}
	if err != nil {
		return nil, storeError(err, ErrUserNotFound)
	}

	s.invalidate(ctx, tx.UserID)
	s.Logger.Info("Покупка зарегистрирована",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("user_id", tx.UserID.String()),
		zap.String("order_id", tx.OrderID),
		zap.String("cashback", tx.CashbackEarned.String()),
	)
	return tx, nil
}

// UpdateTransactionStatus подтверждает или отменяет pending-транзакцию.
// confirmed переносит кэшбэк из pending в available, cancelled списывает его
// из pending и total.
func (s *LedgerService) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) (*models.Transaction, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrValidation, status)
	}
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: transaction cannot return to %s", ErrInvalidTransition, status)
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	tx, err := s.TransactionRepo.UpdateTransactionStatus(storeCtx, id, status)
	if err != nil {
		return nil, storeError(err, ErrTransactionNotFound)
	}

	s.invalidate(ctx, tx.UserID)
	s.Logger.Info("Статус транзакции обновлён",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("user_id", tx.UserID.String()),
		zap.String("status", string(tx.Status)),
	)
	return tx, nil
}

// PendingTransactions возвращает до limit pending-транзакций, созданных
// после курсора, от старых к новым. Nil-курсор означает начало очереди.
func (s *LedgerService) PendingTransactions(ctx context.Context, after *models.PendingCursor, limit int) ([]models.Transaction, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	txs, err := s.TransactionRepo.ListPendingTransactions(ctx, after, limit)
	if err != nil {
		return nil, storeError(err, ErrTransactionNotFound)
	}
	return txs, nil
}
