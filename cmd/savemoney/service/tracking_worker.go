package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

const (
	trackingBatchSize      = 100
	trackingRequestTimeout = 5 * time.Second
)

// StartTrackingWorker периодически опрашивает систему отслеживания по
// pending-транзакциям и подтверждает или отменяет их. Останавливается по ctx.
func (s *LedgerService) StartTrackingWorker(ctx context.Context, client TrackingClient, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Logger.Info("Воркер отслеживания заказов остановлен")
				return
			case <-ticker.C:
				s.SyncTrackedOrders(ctx, client)
			}
		}
	}()
	return done
}

// SyncTrackedOrders выполняет один проход по всей очереди pending-транзакций
// пачками по trackingBatchSize и возвращает число транзакций, сменивших
// статус. Нерешённые заказы не мешают дойти до более новых.
func (s *LedgerService) SyncTrackedOrders(ctx context.Context, client TrackingClient) int {
	var (
		cursor  *models.PendingCursor
		updated int
	)
	for ctx.Err() == nil {
		pending, err := s.PendingTransactions(ctx, cursor, trackingBatchSize)
		if err != nil {
			s.Logger.Error("Ошибка получения транзакций для обновления статуса", zap.Error(err))
			return updated
		}
		updated += s.syncBatch(ctx, client, pending)
		if len(pending) < trackingBatchSize {
			break
		}
		last := pending[len(pending)-1]
		cursor = &models.PendingCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return updated
}

func (s *LedgerService) syncBatch(ctx context.Context, client TrackingClient, pending []models.Transaction) int {
	updated := 0
	for _, tx := range pending {
		if ctx.Err() != nil {
			return updated
		}
		status, known, err := func() (models.TransactionStatus, bool, error) {
			reqCtx, cancel := context.WithTimeout(ctx, trackingRequestTimeout)
			defer cancel()
			return client.OrderStatus(reqCtx, tx.StoreID, tx.OrderID)
		}()
		if err != nil {
			s.Logger.Error("Ошибка запроса к системе отслеживания",
				zap.String("transaction_id", tx.ID.String()), zap.Error(err))
			continue
		}
		if !known {
			continue
		}
		_, err = s.UpdateTransactionStatus(ctx, tx.ID, status)
		switch {
		case err == nil:
			updated++
		case errors.Is(err, ErrInvalidTransition):
			s.Logger.Debug("Транзакция уже обработана", zap.String("transaction_id", tx.ID.String()))
		default:
			s.Logger.Error("Ошибка обновления статуса транзакции",
				zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		}
	}
	return updated
}
