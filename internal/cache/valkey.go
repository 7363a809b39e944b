package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyClient - общий кэш ответов (Valkey/Redis) между репликами API
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewValkeyClient(cfg ValkeyConfig) (*ValkeyClient, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{client: rdb, ttl: cfg.TTL}, nil
}

// Get returns the cached bytes; ok is false on a miss
func (v *ValkeyClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := v.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, true, nil
}

func (v *ValkeyClient) Set(ctx context.Context, key string, value []byte) error {
	return v.client.Set(ctx, key, value, v.ttl).Err()
}

// DeletePrefix drops every key starting with prefix
func (v *ValkeyClient) DeletePrefix(ctx context.Context, prefix string) error {
	iter := v.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan error: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return v.client.Del(ctx, keys...).Err()
}

func (v *ValkeyClient) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
