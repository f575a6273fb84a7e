// Package cache provides the two-tier result cache used in front of the
// structure standardizer: an in-process go-cache tier backed by an optional
// remote store.
package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// ErrMiss is returned by a Store when a key is absent.
var ErrMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// Store is a JSON value store. The redis cache satisfies it.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// IsMiss reports whether err means the key was absent.
func IsMiss(err error) bool {
	return errors.IsCode(err, errors.ErrCodeNotFound)
}

// Local is an in-process Store. Values are held as encoded JSON so callers
// never share mutable state through the cache.
type Local struct {
	c *gocache.Cache
}

// NewLocal creates a local store whose entries expire after ttl.
func NewLocal(ttl, cleanupInterval time.Duration) *Local {
	return &Local{c: gocache.New(ttl, cleanupInterval)}
}

func (l *Local) Get(_ context.Context, key string, dest interface{}) error {
	v, found := l.c.Get(key)
	if !found {
		return ErrMiss
	}
	if err := json.Unmarshal(v.([]byte), dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached value")
	}
	return nil
}

// Set stores value. A zero ttl uses the store default.
func (l *Local) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode cache value")
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	l.c.Set(key, data, ttl)
	return nil
}

func (l *Local) Delete(key string) {
	l.c.Delete(key)
}

func (l *Local) Len() int {
	return l.c.ItemCount()
}

func (l *Local) Flush() {
	l.c.Flush()
}
