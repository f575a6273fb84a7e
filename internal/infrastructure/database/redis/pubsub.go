package redis

import (
	"context"
	"encoding/json"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// ResultPublisher pushes calculation results to the channel named by the
// requesting session id.
type ResultPublisher struct {
	client *Client
	logger logging.Logger
}

func NewResultPublisher(client *Client, log logging.Logger) *ResultPublisher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ResultPublisher{client: client, logger: log}
}

// Publish JSON-encodes payload onto channel sessionID and returns the number
// of subscribers that received it.
func (p *ResultPublisher) Publish(ctx context.Context, sessionID string, payload interface{}) (int64, error) {
	if sessionID == "" {
		return 0, errors.InvalidParam("session id is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, ErrSerializationFailed.WithCause(err)
	}
	n, err := p.client.Publish(ctx, sessionID, data).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to publish result")
	}
	p.logger.Debug("Result published",
		logging.String(logging.FieldSessionID, sessionID), logging.Int64("receivers", n))
	return n, nil
}

// Subscribe streams raw payloads published to sessionID until ctx is done.
// The returned channel is closed on exit.
func (p *ResultPublisher) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, error) {
	sub := p.client.Subscribe(ctx, sessionID)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to subscribe")
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
