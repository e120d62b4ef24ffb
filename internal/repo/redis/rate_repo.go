package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const announceRatePrefix = "announce_rate:"

// RateRepo counts announces per source IP in rolling redis windows.
type RateRepo struct {
	client *goredis.Client
}

func NewRateRepo(client *goredis.Client) *RateRepo {
	return &RateRepo{client: client}
}

// CountAnnounce bumps the announce counter for ip and returns the new
// count plus the time left in the current window.
func (r *RateRepo) CountAnnounce(ctx context.Context, ip string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	if ip == "" || window <= 0 {
		return 0, 0, fmt.Errorf("invalid announce rate payload")
	}

	key := announceRateKey(ip)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("increment announce counter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("set announce counter ttl: %w", err)
		}
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read announce counter ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	return count, ttl, nil
}

// AnnounceWindowState reads the current counter without bumping it.
func (r *RateRepo) AnnounceWindowState(ctx context.Context, ip string) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}
	if ip == "" {
		return 0, 0, fmt.Errorf("announce rate ip is required")
	}

	key := announceRateKey(ip)
	count, err := r.client.Get(ctx, key).Int64()
	if err != nil && err != goredis.Nil {
		return 0, 0, fmt.Errorf("get announce counter: %w", err)
	}
	if err == goredis.Nil {
		return 0, 0, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read announce counter ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	return count, ttl, nil
}

func announceRateKey(ip string) string {
	return announceRatePrefix + ip
}
