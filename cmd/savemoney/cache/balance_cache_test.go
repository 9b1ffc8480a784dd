package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

func setupCache(t *testing.T) (*BalanceCache, context.Context) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client := NewClient(addr, os.Getenv("REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = client.Close() })
	c := NewBalanceCache(client, time.Minute)
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return c, ctx
}

func wallet(available string) models.Wallet {
	return models.Wallet{
		TotalCashback:     decimal.RequireFromString("100"),
		AvailableCashback: decimal.RequireFromString(available),
		PendingCashback:   decimal.Zero,
		WithdrawnCashback: decimal.RequireFromString("100").Sub(decimal.RequireFromString(available)),
	}
}

func TestBalanceCacheRoundTrip(t *testing.T) {
	c, ctx := setupCache(t)
	userID := uuid.New()

	got, gen, err := c.Get(ctx, userID)
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %+v (%v)", got, err)
	}
	if err := c.Set(ctx, userID, wallet("60"), gen); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _, err = c.Get(ctx, userID)
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %v", err)
	}
	if !got.AvailableCashback.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("unexpected cached wallet: %+v", got)
	}

	if err := c.Invalidate(ctx, userID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, _, err = c.Get(ctx, userID)
	if err != nil || got != nil {
		t.Fatalf("expected miss after invalidate, got %+v (%v)", got, err)
	}
}

func TestBalanceCacheRejectsSnapshotOlderThanInvalidation(t *testing.T) {
	c, ctx := setupCache(t)
	userID := uuid.New()

	_, readGen, err := c.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// баланс изменился между чтением из БД и записью в кэш
	if err := c.Invalidate(ctx, userID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Set(ctx, userID, wallet("100"), readGen); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, gen, err := c.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("stale snapshot cached: %+v", got)
	}
	if gen != readGen+1 {
		t.Fatalf("expected generation %d, got %d", readGen+1, gen)
	}
}
