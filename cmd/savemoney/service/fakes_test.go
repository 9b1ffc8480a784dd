package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/db"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

// memStore реализует все три репозитория в памяти с теми же правилами,
// что и PostgreSQL-реализация.
type memStore struct {
	mu               sync.Mutex
	users            map[uuid.UUID]*models.User
	transactions     map[uuid.UUID]*models.Transaction
	withdrawals      map[uuid.UUID]*models.Withdrawal
	getUserCalls     int
	pendingListCalls int
	failWith         error
	// afterGetUser срабатывает один раз после чтения пользователя, вне блокировки
	afterGetUser func()
	clock        time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[uuid.UUID]*models.User),
		transactions: make(map[uuid.UUID]*models.Transaction),
		withdrawals:  make(map[uuid.UUID]*models.Withdrawal),
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(status models.UserStatus, total, available, pending string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = &models.User{
		ID:                id,
		Email:             id.String() + "@example.com",
		Status:            status,
		TotalCashback:     decimal.RequireFromString(total),
		AvailableCashback: decimal.RequireFromString(available),
		PendingCashback:   decimal.RequireFromString(pending),
	}
	return id
}

func (m *memStore) user(id uuid.UUID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	m.getUserCalls++
	if m.failWith != nil {
		m.mu.Unlock()
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		m.mu.Unlock()
		return nil, db.ErrUserNotFound
	}
	cp := *u
	hook := m.afterGetUser
	m.afterGetUser = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (m *memStore) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	var all []models.Transaction
	for _, t := range m.transactions {
		if t.UserID != f.UserID || (f.Status != nil && t.Status != *f.Status) {
			continue
		}
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return page(all, f.Offset, f.Limit), int64(len(all)), nil
}

func (m *memStore) ListPendingTransactions(ctx context.Context, after *models.PendingCursor, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingListCalls++
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.Status != models.TransactionPending {
			continue
		}
		if after != nil && !pendingAfter(t.CreatedAt, t.ID, *after) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return uuidLess(out[i].ID, out[j].ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreatePurchase(ctx context.Context, p models.PurchaseRequest) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[p.UserID]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	for _, t := range m.transactions {
		if t.StoreID == p.StoreID && t.OrderID == p.OrderID {
			return nil, db.ErrDuplicate
		}
	}
	now := m.now()
	t := &models.Transaction{
		ID: uuid.New(), UserID: p.UserID, StoreID: p.StoreID, OfferID: p.OfferID,
		Amount: p.Amount, CashbackEarned: p.CashbackEarned, Status: models.TransactionPending,
		OrderID: p.OrderID, CreatedAt: now, UpdatedAt: now,
	}
	m.transactions[t.ID] = t
	u.TotalCashback = u.TotalCashback.Add(p.CashbackEarned)
	u.PendingCashback = u.PendingCashback.Add(p.CashbackEarned)
	cp := *t
	return &cp, nil
}

func (m *memStore) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !t.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", db.ErrInvalidTransition, t.Status, status)
	}
	u := m.users[t.UserID]
	switch status {
	case models.TransactionConfirmed:
		u.PendingCashback = u.PendingCashback.Sub(t.CashbackEarned)
		u.AvailableCashback = u.AvailableCashback.Add(t.CashbackEarned)
	case models.TransactionCancelled:
		u.PendingCashback = u.PendingCashback.Sub(t.CashbackEarned)
		u.TotalCashback = u.TotalCashback.Sub(t.CashbackEarned)
	}
	t.Status = status
	t.UpdatedAt = m.now()
	cp := *t
	return &cp, nil
}

func (m *memStore) CreateWithdrawal(ctx context.Context, nw models.NewWithdrawal) (*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[nw.UserID]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	if u.Status == models.UserStatusSuspended {
		return nil, db.ErrUserSuspended
	}
	if nw.RequestID != nil {
		for _, w := range m.withdrawals {
			if w.UserID == nw.UserID && w.RequestID != nil && *w.RequestID == *nw.RequestID {
				return nil, db.ErrDuplicate
			}
		}
	}
	if u.AvailableCashback.LessThan(nw.Amount) {
		return nil, db.ErrInsufficientBalance
	}
	u.AvailableCashback = u.AvailableCashback.Sub(nw.Amount)
	now := m.now()
	w := &models.Withdrawal{
		ID: uuid.New(), UserID: nw.UserID, Amount: nw.Amount, Method: nw.Method,
		AccountDetails: append(json.RawMessage(nil), nw.AccountDetails...),
		Status:         models.WithdrawalPending, RequestID: nw.RequestID,
		RequestDate: now, UpdatedAt: now,
	}
	m.withdrawals[w.ID] = w
	cp := *w
	return &cp, nil
}

func (m *memStore) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) GetWithdrawalByRequestID(ctx context.Context, userID uuid.UUID, requestID string) (*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.withdrawals {
		if w.UserID == userID && w.RequestID != nil && *w.RequestID == requestID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) ListWithdrawals(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Withdrawal
	for _, w := range m.withdrawals {
		if f.UserID != nil && w.UserID != *f.UserID {
			continue
		}
		if f.Status != nil && w.Status != *f.Status {
			continue
		}
		all = append(all, *w)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RequestDate.After(all[j].RequestDate) })
	return page(all, f.Offset, f.Limit), int64(len(all)), nil
}

func (m *memStore) UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, upd models.WithdrawalStatusRequest) (*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !w.Status.CanTransitionTo(upd.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", db.ErrInvalidTransition, w.Status, upd.Status)
	}
	if upd.Status == models.WithdrawalFailed {
		u := m.users[w.UserID]
		u.AvailableCashback = u.AvailableCashback.Add(w.Amount)
	}
	w.Status = upd.Status
	if upd.AdminNotes != nil {
		w.AdminNotes = upd.AdminNotes
	}
	if upd.TransactionID != nil {
		w.TransactionID = upd.TransactionID
	}
	now := m.now()
	if upd.Status.Terminal() {
		w.ProcessedDate = &now
	}
	w.UpdatedAt = now
	cp := *w
	return &cp, nil
}

// pendingAfter повторяет сравнение кортежей (created_at, id) > (a, b) из PostgreSQL.
func pendingAfter(createdAt time.Time, id uuid.UUID, c models.PendingCursor) bool {
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.After(c.CreatedAt)
	}
	return uuidLess(c.ID, id)
}

func uuidLess(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type memCache struct {
	mu          sync.Mutex
	wallets     map[uuid.UUID]models.Wallet
	generations map[uuid.UUID]int64
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{
		wallets:     make(map[uuid.UUID]models.Wallet),
		generations: make(map[uuid.UUID]int64),
	}
}

func (c *memCache) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.wallets[userID]
	if !ok {
		return nil, c.generations[userID], nil
	}
	return &w, c.generations[userID], nil
}

func (c *memCache) Set(ctx context.Context, userID uuid.UUID, w models.Wallet, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return nil
	}
	c.wallets[userID] = w
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	delete(c.wallets, userID)
	c.invalidated++
	return nil
}

func newTestService(store *memStore, cache BalanceCache) *LedgerService {
	return NewLedgerService(store, store, store, cache, nil, time.Second)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
