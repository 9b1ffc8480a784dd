package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

// WalletFromUser выводит withdrawn = total - available - pending.
// Отрицательный результат означает порчу учёта и не округляется до нуля.
func WalletFromUser(u *models.User) (models.Wallet, error) {
	withdrawn := u.TotalCashback.Sub(u.AvailableCashback).Sub(u.PendingCashback)
	if withdrawn.IsNegative() || u.AvailableCashback.IsNegative() || u.PendingCashback.IsNegative() {
		return models.Wallet{}, fmt.Errorf("%w: user %s total=%s available=%s pending=%s",
			ErrLedgerIntegrity, u.ID, u.TotalCashback, u.AvailableCashback, u.PendingCashback)
	}
	return models.Wallet{
		TotalCashback:     u.TotalCashback,
		AvailableCashback: u.AvailableCashback,
		PendingCashback:   u.PendingCashback,
		WithdrawnCashback: withdrawn,
	}, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	generation, cacheable := int64(0), false
	if s.Cache != nil {
		cached, gen, err := s.Cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.Logger.Warn("Ошибка чтения кэша баланса", zap.String("user_id", userID.String()), zap.Error(err))
		case cached != nil:
			return *cached, nil
		default:
			generation, cacheable = gen, true
		}
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return models.Wallet{}, err
	}
	wallet, err := WalletFromUser(user)
	if err != nil {
		s.Logger.Error("Нарушен инвариант баланса", zap.String("user_id", userID.String()), zap.Error(err))
		return models.Wallet{}, err
	}

	if cacheable {
		if err := s.Cache.Set(ctx, userID, wallet, generation); err != nil {
			s.Logger.Warn("Не удалось записать баланс в кэш", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return wallet, nil
}

func (s *LedgerService) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	user, err := s.UserRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, q PageQuery, status *models.TransactionStatus) (*models.TransactionPage, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	items, total, err := s.TransactionRepo.ListTransactions(ctx, models.TransactionFilter{
		UserID: userID,
		Status: status,
		Limit:  q.Limit,
		Offset: q.Offset(),
	})
	if err != nil {
		return nil, storeError(err, ErrTransactionNotFound)
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return &models.TransactionPage{Transactions: items, Pagination: q.Pagination(total)}, nil
}
