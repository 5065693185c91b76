package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisService wraps the Redis connection. When configured, it backs
// the rate limiter so counters are shared across replicas; a single
// node runs fine without it.
type RedisService struct {
	client *redis.Client
}

// NewRedisService connects to Redis using the provided URL
func NewRedisService(redisURL string) (*RedisService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connected")
	return &RedisService{client: client}, nil
}

// LimiterStorage returns a fiber.Storage adapter over this connection
func (s *RedisService) LimiterStorage() *RedisStorage {
	return &RedisStorage{client: s.client, prefix: "ratelimit:"}
}

// Close releases the underlying connection
func (s *RedisService) Close() error {
	return s.client.Close()
}

// RedisStorage implements fiber.Storage over go-redis, used as shared
// storage for the rate limiter middleware.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// Get retrieves a value by key; missing keys return (nil, nil) per the
// fiber.Storage contract.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value with an expiration (0 = no expiry)
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), s.prefix+key, val, exp).Err()
}

// Delete removes a key
func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), s.prefix+key).Err()
}

// Reset removes all keys under the limiter prefix
func (s *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the RedisService owns the connection
func (s *RedisStorage) Close() error {
	return nil
}
