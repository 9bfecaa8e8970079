package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortsmith/logger"
	"shortsmith/types"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shortsmith:session:"

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Name     string // suffix of the redis key, "default" when empty
	TTL      time.Duration
}

// RedisStore keeps the checkpoint under one Redis key so API and worker
// processes on different hosts can resume each other's runs.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisStore connects and verifies the server is reachable.
func NewRedisStore(cfg RedisConfig, log *logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	name := cfg.Name
	if name == "" {
		name = "default"
	}
	return &RedisStore{
		client: client,
		key:    keyPrefix + name,
		ttl:    cfg.TTL,
		log:    log.Named("session"),
	}, nil
}

func (r *RedisStore) Key() string { return r.key }

func (r *RedisStore) Save(ctx context.Context, state *types.SessionState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (*types.SessionState, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session from redis: %w", err)
	}

	state, err := Decode(data)
	if err != nil {
		r.log.WithError(err).Warnf("ignoring unreadable session at %s", r.key)
		return nil, nil
	}
	return state, nil
}

func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("deleting session from redis: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
