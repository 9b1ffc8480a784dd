package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

const withdrawalColumns = `id, user_id, amount, method, account_details, status, admin_notes, transaction_id, request_id, request_date, processed_date, updated_at`

type WithdrawalRepoPG struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepoPG(pool *pgxpool.Pool) *WithdrawalRepoPG {
	return &WithdrawalRepoPG{pool: pool}
}

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	var details []byte
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Method, &details, &w.Status,
		&w.AdminNotes, &w.TransactionID, &w.RequestID, &w.RequestDate, &w.ProcessedDate, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.AccountDetails = details
	return &w, nil
}

// CreateWithdrawal резервирует сумму и создаёт заявку в одной транзакции.
// Строка пользователя блокируется, поэтому параллельные заявки одного
// пользователя выполняются по очереди и не уводят available в минус.
func (r *WithdrawalRepoPG) CreateWithdrawal(ctx context.Context, nw models.NewWithdrawal) (*models.Withdrawal, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	user, err := lockUser(ctx, tx, nw.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserStatusSuspended {
		return nil, ErrUserSuspended
	}

	if nw.RequestID != nil {
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM withdrawals WHERE user_id = $1 AND request_id = $2)
		`, nw.UserID, *nw.RequestID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicate
		}
	}

	if user.AvailableCashback.LessThan(nw.Amount) {
		return nil, ErrInsufficientBalance
	}

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET available_cashback = available_cashback - $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND available_cashback >= $1
	`, nw.Amount, nw.UserID)
	if err != nil {
		if isCheckViolation(err) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInsufficientBalance
	}

	created, err := scanWithdrawal(tx.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, method, account_details, status, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+withdrawalColumns,
		uuid.New(), nw.UserID, nw.Amount, string(nw.Method), string(nw.AccountDetails), string(models.WithdrawalPending), nw.RequestID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *WithdrawalRepoPG) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, err := scanWithdrawal(r.pool.QueryRow(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *WithdrawalRepoPG) GetWithdrawalByRequestID(ctx context.Context, userID uuid.UUID, requestID string) (*models.Withdrawal, error) {
	w, err := scanWithdrawal(r.pool.QueryRow(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 AND request_id = $2
	`, userID, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *WithdrawalRepoPG) ListWithdrawals(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, int64, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM withdrawals
		WHERE ($1::uuid IS NULL OR user_id = $1) AND ($2::text IS NULL OR status = $2)
	`, f.UserID, status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE ($1::uuid IS NULL OR user_id = $1) AND ($2::text IS NULL OR status = $2)
		ORDER BY request_date DESC, id ASC
		LIMIT $3 OFFSET $4
	`, f.UserID, status, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ws := make([]models.Withdrawal, 0, f.Limit)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, err
		}
		ws = append(ws, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return ws, total, nil
}

// UpdateWithdrawalStatus меняет статус заявки. Переход в failed возвращает
// зарезервированную сумму в available в той же транзакции.
func (r *WithdrawalRepoPG) UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, upd models.WithdrawalStatusRequest) (*models.Withdrawal, error) {
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM withdrawals WHERE id = $1`, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := lockUser(ctx, tx, userID); err != nil {
		return nil, err
	}
	current, err := scanWithdrawal(tx.QueryRow(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !current.Status.CanTransitionTo(upd.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, upd.Status)
	}

	if upd.Status == models.WithdrawalFailed {
		_, err := tx.Exec(ctx, `
			UPDATE users
			SET available_cashback = available_cashback + $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2
		`, current.Amount, userID)
		if err != nil {
			return nil, balanceErr(err)
		}
	}

	updated, err := scanWithdrawal(tx.QueryRow(ctx, `
		UPDATE withdrawals
		SET status = $1,
			admin_notes = COALESCE($2, admin_notes),
			transaction_id = COALESCE($3, transaction_id),
			processed_date = CASE WHEN $4 THEN CURRENT_TIMESTAMP ELSE processed_date END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING `+withdrawalColumns,
		string(upd.Status), upd.AdminNotes, upd.TransactionID, upd.Status.Terminal(), id,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}
