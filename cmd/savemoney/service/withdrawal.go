package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/db"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

const maxRequestIDLength = 128

// RequestWithdrawal проверяет заявку строго по порядку: метод, сумма, минимум
// метода, доступный баланс, реквизиты. Резервирование суммы и вставка заявки
// выполняются репозиторием атомарно. replayed=true означает повтор запроса
// с тем же requestID: возвращается ранее созданная заявка.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, req models.WithdrawRequest) (w *models.Withdrawal, replayed bool, err error) {
	if !req.Method.Valid() {
		return nil, false, ErrInvalidMethod
	}
	if !req.Amount.IsPositive() || !validMoney(req.Amount) {
		return nil, false, ErrInvalidAmount
	}
	min, _ := req.Method.Minimum()
	if req.Amount.LessThan(min) {
		return nil, false, fmt.Errorf("%w: %s requires at least %s", ErrBelowMinimum, req.Method, min)
	}

	requestID := strings.TrimSpace(req.RequestID)
	if len(requestID) > maxRequestIDLength {
		return nil, false, fmt.Errorf("%w: requestId is too long", ErrValidation)
	}
	if requestID != "" {
		existing, err := s.findReplay(ctx, userID, requestID, req)
		if err != nil || existing != nil {
			return existing, existing != nil, err
		}
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if user.Status == models.UserStatusSuspended {
		return nil, false, ErrAccountSuspended
	}
	if req.Amount.GreaterThan(user.AvailableCashback) {
		return nil, false, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, req.Amount, user.AvailableCashback)
	}

	if err := s.details.Validate(req.Method, req.AccountDetails); err != nil {
		return nil, false, err
	}

	in := models.NewWithdrawal{
		UserID:         userID,
		Amount:         req.Amount,
		Method:         req.Method,
		AccountDetails: req.AccountDetails,
	}
	if requestID != "" {
		in.RequestID = &requestID
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	created, err := s.WithdrawalRepo.CreateWithdrawal(storeCtx, in)
	if errors.Is(err, db.ErrDuplicate) && requestID != "" {
		// параллельный запрос с тем же ключом успел первым
		existing, ferr := s.findReplay(ctx, userID, requestID, req)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing != nil {
			return existing, true, nil
		}
	}
	if err != nil {
		return nil, false, storeError(err, ErrUserNotFound)
	}

	s.invalidate(ctx, userID)
	s.Logger.Info("Сумма зарезервирована под вывод",
		zap.String("withdrawal_id", created.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", created.Amount.String()),
		zap.String("method", string(created.Method)),
	)
	return created, false, nil
}

func (s *LedgerService) findReplay(ctx context.Context, userID uuid.UUID, requestID string, req models.WithdrawRequest) (*models.Withdrawal, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	existing, err := s.WithdrawalRepo.GetWithdrawalByRequestID(ctx, userID, requestID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, ErrWithdrawalNotFound)
	}
	if !samePayload(existing, req) {
		return nil, ErrIdempotencyConflict
	}
	return existing, nil
}

func samePayload(w *models.Withdrawal, req models.WithdrawRequest) bool {
	return w.Amount.Equal(req.Amount) && w.Method == req.Method && sameJSON(w.AccountDetails, req.AccountDetails)
}

func (s *LedgerService) ListWithdrawals(ctx context.Context, userID *uuid.UUID, q PageQuery, status *models.WithdrawalStatus) (*models.WithdrawalPage, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	items, total, err := s.WithdrawalRepo.ListWithdrawals(ctx, models.WithdrawalFilter{
		UserID: userID,
		Status: status,
		Limit:  q.Limit,
		Offset: q.Offset(),
	})
	if err != nil {
		return nil, storeError(err, ErrWithdrawalNotFound)
	}
	if items == nil {
		items = []models.Withdrawal{}
	}
	return &models.WithdrawalPage{Withdrawals: items, Pagination: q.Pagination(total)}, nil
}

func (s *LedgerService) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	w, err := s.WithdrawalRepo.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, storeError(err, ErrWithdrawalNotFound)
	}
	return w, nil
}

// UpdateWithdrawalStatus выполняет ручной переход заявки. Переход в failed
// возвращает зарезервированную сумму в available.
func (s *LedgerService) UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, upd models.WithdrawalStatusRequest) (*models.Withdrawal, error) {
	if !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown withdrawal status %q", ErrValidation, upd.Status)
	}
	if upd.Status == models.WithdrawalPending {
		return nil, fmt.Errorf("%w: withdrawal cannot return to pending", ErrInvalidTransition)
	}
	upd.AdminNotes = trimOptional(upd.AdminNotes)
	upd.TransactionID = trimOptional(upd.TransactionID)

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	w, err := s.WithdrawalRepo.UpdateWithdrawalStatus(storeCtx, id, upd)
	if err != nil {
		return nil, storeError(err, ErrWithdrawalNotFound)
	}

	s.invalidate(ctx, w.UserID)
	fields := []zap.Field{
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("user_id", w.UserID.String()),
		zap.String("status", string(w.Status)),
		zap.String("amount", w.Amount.String()),
	}
	if w.Status == models.WithdrawalFailed {
		s.Logger.Info("Вывод не выполнен, средства возвращены", fields...)
	} else {
		s.Logger.Info("Статус вывода обновлён", fields...)
	}
	return w, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func validMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
