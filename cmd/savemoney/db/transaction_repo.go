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

const transactionColumns = `id, user_id, store_id, offer_id, amount, cashback_earned, status, order_id, created_at, updated_at`

type TransactionRepoPG struct {
	pool *pgxpool.Pool
}

func NewTransactionRepoPG(pool *pgxpool.Pool) *TransactionRepoPG {
	return &TransactionRepoPG{pool: pool}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.StoreID, &t.OfferID, &t.Amount, &t.CashbackEarned, &t.Status, &t.OrderID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepoPG) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int64, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
	`, f.UserID, status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id ASC
		LIMIT $3 OFFSET $4
	`, f.UserID, status, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0, f.Limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *TransactionRepoPG) ListPendingTransactions(ctx context.Context, after *models.PendingCursor, limit int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = 'pending'`
	args := []any{limit}
	if after != nil {
		query += ` AND (created_at, id) > ($2, $3)`
		args = append(args, after.CreatedAt, after.ID)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *TransactionRepoPG) CreatePurchase(ctx context.Context, p models.PurchaseRequest) (*models.Transaction, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := lockUser(ctx, tx, p.UserID); err != nil {
		return nil, err
	}

	created, err := scanTransaction(tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, store_id, offer_id, amount, cashback_earned, status, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		uuid.New(), p.UserID, p.StoreID, p.OfferID, p.Amount, p.CashbackEarned, string(models.TransactionPending), p.OrderID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET total_cashback = total_cashback + $1, pending_cashback = pending_cashback + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, p.CashbackEarned, p.UserID)
	if err != nil {
		return nil, balanceErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *TransactionRepoPG) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) (*models.Transaction, error) {
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM transactions WHERE id = $1`, id).Scan(&userID)
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
	current, err := scanTransaction(tx.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	var balanceSQL string
	switch status {
	case models.TransactionConfirmed:
		balanceSQL = `UPDATE users
			SET available_cashback = available_cashback + $1, pending_cashback = pending_cashback - $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2`
	case models.TransactionCancelled:
		balanceSQL = `UPDATE users
			SET total_cashback = total_cashback - $1, pending_cashback = pending_cashback - $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2`
	}
	if _, err := tx.Exec(ctx, balanceSQL, current.CashbackEarned, userID); err != nil {
		return nil, balanceErr(err)
	}

	updated, err := scanTransaction(tx.QueryRow(ctx, `
		UPDATE transactions SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING `+transactionColumns,
		string(status), id,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func balanceErr(err error) error {
	if isCheckViolation(err) {
		return fmt.Errorf("%w: %w", ErrBalanceConstraint, err)
	}
	return err
}
