package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

const (
	TierLocal  = "local"
	TierRemote = "redis"
)

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// context of the caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// Tiered reads through local then remote and fills both from a loader on a
// miss. Remote failures degrade to a load; they are never returned.
type Tiered struct {
	local     *Local
	remote    Store
	localTTL  time.Duration
	remoteTTL time.Duration
	loadLimit time.Duration
	group     singleflight.Group
	logger    logging.Logger
	metrics   *prometheus.BrokerMetrics
}

// TieredOption configures a Tiered cache.
type TieredOption func(*Tiered)

// WithRemote adds a second tier. Without one only the local tier is used.
func WithRemote(s Store, ttl time.Duration) TieredOption {
	return func(t *Tiered) {
		t.remote = s
		t.remoteTTL = ttl
	}
}

// WithLoadTimeout bounds each shared load. Non-positive values are ignored.
func WithLoadTimeout(d time.Duration) TieredOption {
	return func(t *Tiered) {
		if d > 0 {
			t.loadLimit = d
		}
	}
}

func WithLogger(l logging.Logger) TieredOption {
	return func(t *Tiered) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithMetrics(m *prometheus.BrokerMetrics) TieredOption {
	return func(t *Tiered) {
		if m != nil {
			t.metrics = m
		}
	}
}

// NewTiered creates the cache over local.
func NewTiered(local *Local, localTTL time.Duration, opts ...TieredOption) *Tiered {
	t := &Tiered{
		local:    local,
		localTTL:  localTTL,
		loadLimit: DefaultLoadTimeout,
		logger:   logging.NewNopLogger(),
		metrics:  prometheus.NewNopBrokerMetrics(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetOrLoad fills dest from the first tier holding key, or from load. Only a
// successful load is stored. Concurrent misses on one key share one load,
// which keeps running when the caller that started it gives up; each caller
// still returns as soon as its own ctx ends. op labels the metrics.
func (t *Tiered) GetOrLoad(ctx context.Context, op, key string, dest interface{}, load func(ctx context.Context) (interface{}, error)) error {
	if err := t.local.Get(ctx, key, dest); err == nil {
		prometheus.RecordCacheAccess(t.metrics, TierLocal, op, true)
		return nil
	}

	if t.remote != nil {
		err := t.remote.Get(ctx, key, dest)
		if err == nil {
			prometheus.RecordCacheAccess(t.metrics, TierRemote, op, true)
			t.fillLocal(ctx, key, dest)
			return nil
		}
		if !IsMiss(err) {
			t.logger.Warn("remote cache read failed",
				logging.String("key", key), logging.Err(err))
		}
	}
	prometheus.RecordCacheAccess(t.metrics, "", op, false)

	ch := t.group.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.loadLimit)
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode loaded value")
		}
		t.store(lctx, key, json.RawMessage(data))
		return data, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if err := json.Unmarshal(res.Val.([]byte), dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode loaded value")
	}
	return nil
}

func (t *Tiered) fillLocal(ctx context.Context, key string, v interface{}) {
	if err := t.local.Set(ctx, key, v, t.localTTL); err != nil {
		t.logger.Warn("local cache write failed", logging.String("key", key), logging.Err(err))
	}
}

func (t *Tiered) store(ctx context.Context, key string, v json.RawMessage) {
	t.fillLocal(ctx, key, v)
	if t.remote == nil {
		return
	}
	if err := t.remote.Set(ctx, key, v, t.remoteTTL); err != nil {
		t.logger.Warn("remote cache write failed", logging.String("key", key), logging.Err(err))
	}
}
