package worker

import (
	"context"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Submitter enqueues calculation requests for the worker.
type Submitter struct {
	topic  string
	pub    kafka.Publisher
	source string
}

// NewSubmitter publishes to topic; source names the submitting service.
func NewSubmitter(topic, source string, pub kafka.Publisher) *Submitter {
	return &Submitter{topic: topic, pub: pub, source: source}
}

// Submit enqueues req keyed by its session id and returns the event id.
func (s *Submitter) Submit(ctx context.Context, req *calculator.Request) (string, error) {
	if req == nil {
		return "", errors.InvalidParam("request is required")
	}
	env, err := kafka.NewEnvelope(kafka.EventPchemRequested, s.source, req)
	if err != nil {
		return "", err
	}
	env.RequestID = logging.RequestIDFromContext(ctx)
	msg, err := env.ToMessage(s.topic, []byte(req.SessionID))
	if err != nil {
		return "", err
	}
	if err := s.pub.Publish(ctx, msg); err != nil {
		return "", err
	}
	return env.EventID, nil
}
