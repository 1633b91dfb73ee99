package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safar/cartstore/internal/models"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

// generationTTL outlives any realistic load, so an expired counter cannot
// reset underneath an in-flight reader.
const generationTTL = 24 * time.Hour

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (r *RedisCache) Generation(ctx context.Context, customerID uuid.UUID) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(customerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set stores the cart with the base TTL plus up to a fifth of it as jitter
// so entries written together do not expire together. Nothing is written,
// and ErrStale returned, if Delete ran after generation was read.
func (r *RedisCache) Set(ctx context.Context, customerID uuid.UUID, cart *models.Cart, generation int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	ttl := (r.baseTTL + jitter).Milliseconds()

	stored, err := setIfGeneration.Run(ctx, r.client,
		[]string{cacheKey(customerID), generationKey(customerID)},
		strconv.FormatInt(generation, 10), data, ttl,
	).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stored == 0 {
		return ErrStale
	}
	return nil
}

// Delete drops the entry and advances the generation.
func (r *RedisCache) Delete(ctx context.Context, customerID uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cacheKey(customerID))
		pipe.Incr(ctx, generationKey(customerID))
		pipe.Expire(ctx, generationKey(customerID), generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(customerID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", customerID)
}

func generationKey(customerID uuid.UUID) string {
	return fmt.Sprintf("cart:%s:gen", customerID)
}
