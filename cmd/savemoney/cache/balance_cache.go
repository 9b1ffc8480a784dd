package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

const (
	walletPrefix     = "wallet:"
	generationPrefix = "wallet:gen:"
	generationTTL    = 24 * time.Hour
)

// setIfGeneration пишет снимок, только если поколение не сменилось после чтения.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1])
if gen == false then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// BalanceCache хранит снимки кошелька в Redis с ограниченным TTL. Каждое
// изменение баланса увеличивает поколение пользователя, поэтому снимок,
// прочитанный из БД до изменения, уже не попадёт в кэш.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BalanceCache{client: client, ttl: ttl}
}

func walletKey(userID uuid.UUID) string {
	return walletPrefix + userID.String()
}

func generationKey(userID uuid.UUID) string {
	return generationPrefix + userID.String()
}

func (c *BalanceCache) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, int64, error) {
	vals, err := c.client.MGet(ctx, generationKey(userID), walletKey(userID)).Result()
	if err != nil {
		return nil, 0, err
	}

	var generation int64
	if s, ok := vals[0].(string); ok {
		generation, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("поколение кэша %q: %w", s, err)
		}
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, generation, nil
	}
	var w models.Wallet
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, generation, err
	}
	return &w, generation, nil
}

func (c *BalanceCache) Set(ctx context.Context, userID uuid.UUID, w models.Wallet, generation int64) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	err = setIfGeneration.Run(ctx, c.client,
		[]string{generationKey(userID), walletKey(userID)},
		strconv.FormatInt(generation, 10), raw, c.ttl.Milliseconds(),
	).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (c *BalanceCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Expire(ctx, generationKey(userID), generationTTL)
		pipe.Del(ctx, walletKey(userID))
		return nil
	})
	return err
}

func (c *BalanceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
