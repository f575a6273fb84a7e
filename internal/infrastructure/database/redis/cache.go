package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// Store keeps JSON encoded standardizer responses shared by every broker
// replica. It is the remote tier of cache.Tiered.
type Store struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

// WithDefaultTTL is used by Set calls with a zero ttl.
func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// NewStore creates a Store with the "cts:" prefix and a 24h default ttl.
func NewStore(client *Client, log logging.Logger, opts ...StoreOption) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Store{
		client:     client,
		logger:     log.Named("redis.store"),
		prefix:     "cts:",
		defaultTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(k string) string { return s.prefix + k }

// jitter spreads expiry by +/-10% so entries filled together do not expire
// together.
func jitter(ttl time.Duration) time.Duration {
	return ttl + time.Duration(float64(ttl)*0.1*(rand.Float64()*2-1))
}

// Get decodes the value at key into dest, or returns ErrCacheMiss.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("dropping undecodable entry", logging.String("key", key), logging.Err(err))
		_ = s.client.Del(ctx, s.key(key)).Err()
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

// Set stores value at key for about ttl.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := s.client.Set(ctx, s.key(key), data, jitter(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}
