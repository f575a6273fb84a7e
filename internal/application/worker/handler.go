// Package worker runs physicochemical property jobs delivered over Kafka.
package worker

import (
	"context"
	"time"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/types/common"
)

// Source identifies the worker in published envelopes.
const Source = "cts-worker"

// Dispatcher runs one calculation request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *calculator.Request) (*calculator.Response, error)
}

// SessionNotifier pushes a result to the session that asked for it.
type SessionNotifier interface {
	Publish(ctx context.Context, sessionID string, payload interface{}) (int64, error)
}

// Config holds handler settings.
type Config struct {
	ResultTopic string
	JobTimeout  time.Duration
}

// Handler turns a request message into a published result envelope.
type Handler struct {
	cfg        Config
	dispatcher Dispatcher
	results    kafka.Publisher
	sessions   SessionNotifier
	logger     logging.Logger
	metrics    *prometheus.BrokerMetrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithSessionNotifier also pushes every response to its session channel.
func WithSessionNotifier(n SessionNotifier) Option {
	return func(h *Handler) { h.sessions = n }
}

// WithLogger sets the handler logger.
func WithLogger(l logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *prometheus.BrokerMetrics) Option {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewHandler creates a Handler publishing results through results.
func NewHandler(cfg Config, dispatcher Dispatcher, results kafka.Publisher, opts ...Option) *Handler {
	h := &Handler{
		cfg:        cfg,
		dispatcher: dispatcher,
		results:    results,
		logger:     logging.NewNopLogger(),
		metrics:    prometheus.NewNopBrokerMetrics(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("worker")
	return h
}

// Handle processes one message. Undecodable and invalid requests return a
// permanent error so the consumer dead letters them without retrying.
// Calculation failures are results, not errors.
func (h *Handler) Handle(ctx context.Context, msg *common.Message) error {
	start := time.Now()
	h.metrics.WorkerInFlight.WithLabelValues().Inc()
	defer h.metrics.WorkerInFlight.WithLabelValues().Dec()

	if id := msg.Headers[kafka.HeaderRequestID]; id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}
	log := h.logger.WithContext(ctx)

	env, err := kafka.EnvelopeFromMessage(msg)
	if err != nil {
		h.finish(prometheus.OutcomeRejected, start)
		return err
	}
	var req calculator.Request
	if err := env.DecodePayload(&req); err != nil {
		h.finish(prometheus.OutcomeRejected, start)
		return err
	}
	if env.RequestID != "" && logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRequestID(ctx, env.RequestID)
		log = h.logger.WithContext(ctx)
	}

	jobCtx := ctx
	if h.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, h.cfg.JobTimeout)
		defer cancel()
	}

	resp, err := h.dispatcher.Dispatch(jobCtx, &req)
	if err != nil {
		log.Warn("request rejected",
			logging.String(logging.FieldCalculator, req.Calc),
			logging.String(logging.FieldProperty, req.Prop),
			logging.Err(err))
		h.notify(ctx, req.SessionID, calculator.Failed(&req, "request rejected", err))
		h.finish(prometheus.OutcomeRejected, start)
		return err
	}

	if err := h.publish(ctx, logging.RequestIDFromContext(ctx), resp); err != nil {
		h.finish(prometheus.OutcomeError, start)
		return err
	}
	h.notify(ctx, resp.SessionID, resp)

	outcome := prometheus.OutcomeSuccess
	if !resp.Valid {
		outcome = prometheus.OutcomeError
	}
	h.finish(outcome, start)
	log.Info("job completed",
		logging.String(logging.FieldCalculator, resp.Calc),
		logging.String(logging.FieldProperty, resp.Prop),
		logging.String(logging.FieldSessionID, resp.SessionID),
		logging.Bool("valid", resp.Valid))
	return nil
}

func (h *Handler) publish(ctx context.Context, requestID string, resp *calculator.Response) error {
	env, err := kafka.NewEnvelope(kafka.EventPchemCompleted, Source, resp)
	if err != nil {
		return err
	}
	env.RequestID = requestID
	out, err := env.ToMessage(h.cfg.ResultTopic, []byte(resp.SessionID))
	if err != nil {
		return err
	}
	return h.results.Publish(ctx, out)
}

// notify is best effort; the result topic is the durable record.
func (h *Handler) notify(ctx context.Context, sessionID string, resp *calculator.Response) {
	if h.sessions == nil || sessionID == "" {
		return
	}
	if _, err := h.sessions.Publish(ctx, sessionID, resp); err != nil {
		h.logger.WithContext(ctx).Warn("session notify failed",
			logging.String(logging.FieldSessionID, sessionID), logging.Err(err))
	}
}

func (h *Handler) finish(outcome string, start time.Time) {
	h.metrics.WorkerJobsTotal.WithLabelValues(outcome).Inc()
	h.metrics.WorkerJobDuration.WithLabelValues().Observe(time.Since(start).Seconds())
}
