package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/CTS-Broker/pkg/errors"
)

func newPublisher(t *testing.T) *ResultPublisher {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { client.Close() })
	return NewResultPublisher(client, nil)
}

func TestResultPublisher_RoundTrip(t *testing.T) {
	pub := newPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := pub.Subscribe(ctx, "session-1")
	require.NoError(t, err)

	n, err := pub.Publish(ctx, "session-1", map[string]string{"calc": "test", "data": "N/A"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	select {
	case raw := <-ch:
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "N/A", got["data"])
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	cancel()
	for range ch {
	}
}

func TestResultPublisher_NoSubscribers(t *testing.T) {
	pub := newPublisher(t)

	n, err := pub.Publish(context.Background(), "nobody", "x")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResultPublisher_Validation(t *testing.T) {
	pub := newPublisher(t)

	_, err := pub.Publish(context.Background(), "", "x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))

	_, err = pub.Publish(context.Background(), "s", make(chan int))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}
