package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

type UserRepo interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type TransactionRepo interface {
	ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int64, error)
	ListPendingTransactions(ctx context.Context, after *models.PendingCursor, limit int) ([]models.Transaction, error)
	CreatePurchase(ctx context.Context, p models.PurchaseRequest) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) (*models.Transaction, error)
}

type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, w models.NewWithdrawal) (*models.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	GetWithdrawalByRequestID(ctx context.Context, userID uuid.UUID, requestID string) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, int64, error)
	UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, upd models.WithdrawalStatusRequest) (*models.Withdrawal, error)
}

// BalanceCache: необязательный кэш балансов. Ошибки кэша не прерывают
// операции: источником истины остаётся БД.
//
// Get возвращает снимок (nil при промахе) и текущее поколение записи.
// Set сохраняет снимок, только если поколение не изменилось с момента Get;
// Invalidate увеличивает поколение и удаляет снимок.
type BalanceCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, int64, error)
	Set(ctx context.Context, userID uuid.UUID, w models.Wallet, generation int64) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

const cacheTimeout = 2 * time.Second

type LedgerService struct {
	UserRepo        UserRepo
	TransactionRepo TransactionRepo
	WithdrawalRepo  WithdrawalRepo
	Cache           BalanceCache
	Logger          *zap.Logger
	Timeout         time.Duration

	details *detailsValidator
}

func NewLedgerService(users UserRepo, txs TransactionRepo, withdrawals WithdrawalRepo, cache BalanceCache, logger *zap.Logger, timeout time.Duration) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LedgerService{
		UserRepo:        users,
		TransactionRepo: txs,
		WithdrawalRepo:  withdrawals,
		Cache:           cache,
		Logger:          logger,
		Timeout:         timeout,
		details:         newDetailsValidator(),
	}
}

func (s *LedgerService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *LedgerService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.Cache == nil {
		return
	}
	// запись уже зафиксирована, сброс не должен зависеть от отмены запроса
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		s.Logger.Warn("Не удалось сбросить кэш баланса", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func sameJSON(a, b json.RawMessage) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return string(ca) == string(cb)
}
