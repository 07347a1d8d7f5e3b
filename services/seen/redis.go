package seen

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"amznerrors/dealbot/pkg/errors"
)

// RedisStore implements Store on Redis string keys. Reservations ride
// on SET NX so two concurrent claims of the same link cannot both win.
type RedisStore struct {
	client     *redis.Client
	seenTTL    time.Duration
	reserveTTL time.Duration
}

// NewRedisStore creates a new Redis-backed seen store. seenTTL bounds
// how long delivered links stay suppressed; zero keeps them forever.
// reserveTTL bounds how long an uncommitted reservation can linger
// before Redis expires it on its own.
func NewRedisStore(addr string, db int, seenTTL, reserveTTL time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisStore{
		client:     client,
		seenTTL:    seenTTL,
		reserveTTL: reserveTTL,
	}
}

func key(scope, link string) string {
	return "seen:" + scope + ":" + link
}

// Reserve claims link for scope via SET NX
func (s *RedisStore) Reserve(ctx context.Context, scope, link string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(scope, link), "pending", s.reserveTTL).Result()
	if err != nil {
		return false, errors.NewStorage("seen.reserve", "setnx "+scope, err)
	}
	return ok, nil
}

// Commit overwrites the reservation with a delivered marker
func (s *RedisStore) Commit(ctx context.Context, scope, link string) error {
	if err := s.client.Set(ctx, key(scope, link), "done", s.seenTTL).Err(); err != nil {
		return errors.NewStorage("seen.commit", "set "+scope, err)
	}
	return nil
}

// Release deletes the reservation
func (s *RedisStore) Release(ctx context.Context, scope, link string) error {
	if err := s.client.Del(ctx, key(scope, link)).Err(); err != nil {
		return errors.NewStorage("seen.release", "del "+scope, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
