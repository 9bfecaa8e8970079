// Package deduplication remembers which shorts were already published so a
// resumed or repeated run does not upload the same moment twice.
package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"shortsmith/types"

	"github.com/redis/go-redis/v9"
)

// Ledger records published clip keys.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// BloomConfig points a RedisBloom ledger at its server and filter key.
type BloomConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
	// Capacity is how many clip keys the filter expects before it degrades
	Capacity int
	// ErrorRate is the accepted chance of skipping a clip that was never published
	ErrorRate float64
}

// RedisBloom is a Ledger on the RedisBloom module. A false positive skips
// one upload; it never causes a duplicate.
type RedisBloom struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisBloom connects and reserves the filter if it does not exist yet.
func NewRedisBloom(cfg BloomConfig) (*RedisBloom, error) {
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

	// BF.ADD auto-creates the filter when BF.RESERVE is refused.
	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		_ = client.Do(ctx, "BF.RESERVE", cfg.Key, fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity).Err()
	}

	return &RedisBloom{client: client, key: cfg.Key, ttl: cfg.TTL}, nil
}

func (r *RedisBloom) Close() error {
	return r.client.Close()
}

func (r *RedisBloom) Seen(ctx context.Context, key string) (bool, error) {
	res, err := r.client.Do(ctx, "BF.EXISTS", r.key, key).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case bool:
		return v, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Mark adds key and slides the filter's expiry forward.
func (r *RedisBloom) Mark(ctx context.Context, key string) error {
	if err := r.client.Do(ctx, "BF.ADD", r.key, key).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		return r.client.Expire(ctx, r.key, r.ttl).Err()
	}
	return nil
}

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[string]struct{})}
}

func (m *MemoryLedger) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

func (m *MemoryLedger) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = struct{}{}
	return nil
}

// ClipKey identifies one moment of one source. The URL is normalized so
// share links and tracking parameters map to the same key.
// The result is sha256(normalizedURL + "|" + start + "|" + end)
func ClipKey(sourceURL string, m types.Moment) string {
	combined := normalizeURL(sourceURL) + "|" + normalizeStamp(m.StartTime) + "|" + normalizeStamp(m.EndTime)
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

func normalizeStamp(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// trackingParams are dropped before hashing.
var trackingParams = map[string]bool{"fbclid": true, "gclid": true, "si": true, "feature": true, "pp": true}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Host = strings.TrimPrefix(u.Host, "m.")
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] || lk == "t" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	// youtu.be/<id> and youtube.com/watch?v=<id> are the same video
	if u.Host == "youtu.be" {
		if id := strings.Trim(u.Path, "/"); id != "" {
			q.Set("v", id)
			u.Host = "youtube.com"
			u.Path = "/watch"
			u.RawQuery = q.Encode()
		}
	}

	return strings.TrimRight(u.String(), "/")
}
