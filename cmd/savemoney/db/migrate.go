package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'suspended')),
		total_cashback NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (total_cashback >= 0),
		available_cashback NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (available_cashback >= 0),
		pending_cashback NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (pending_cashback >= 0),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT users_withdrawn_non_negative CHECK (total_cashback >= available_cashback + pending_cashback)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		store_id UUID NOT NULL,
		offer_id UUID,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		cashback_earned NUMERIC(14,2) NOT NULL CHECK (cashback_earned >= 0),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		order_id TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT transactions_store_order_key UNIQUE (store_id, order_id)
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_created_idx ON transactions (user_id, created_at DESC, id)`,
	`CREATE INDEX IF NOT EXISTS transactions_pending_idx ON transactions (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		method TEXT NOT NULL CHECK (method IN ('upi', 'bank', 'paytm', 'voucher')),
		account_details JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
		admin_notes TEXT,
		transaction_id TEXT,
		request_id TEXT,
		request_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_date TIMESTAMP WITH TIME ZONE,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT withdrawals_user_request_key UNIQUE (user_id, request_id)
	)`,
	`CREATE INDEX IF NOT EXISTS withdrawals_user_requested_idx ON withdrawals (user_id, request_date DESC, id)`,
	`CREATE INDEX IF NOT EXISTS withdrawals_status_idx ON withdrawals (status, request_date DESC)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}
