package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/testutil"
	"github.com/turtacn/CTS-Broker/pkg/errors"
	"github.com/turtacn/CTS-Broker/pkg/types/common"
)

// ─── doubles ───

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, req *calculator.Request) (*calculator.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*calculator.Response)
	return resp, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Publish(ctx context.Context, sessionID string, payload interface{}) (int64, error) {
	args := m.Called(ctx, sessionID, payload)
	return int64(args.Int(0)), args.Error(1)
}

type capturePublisher struct {
	msgs []*common.ProducerMessage
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, msg *common.ProducerMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func requestMessage(t *testing.T, req calculator.Request, requestID string) *common.Message {
	t.Helper()
	env, err := kafka.NewEnvelope(kafka.EventPchemRequested, "test", req)
	require.NoError(t, err)
	env.RequestID = requestID
	pm, err := env.ToMessage("req", []byte(req.SessionID))
	require.NoError(t, err)
	return &common.Message{Topic: pm.Topic, Key: pm.Key, Value: pm.Value, Headers: pm.Headers}
}

func decodeResult(t *testing.T, pm *common.ProducerMessage) (*kafka.Envelope, calculator.Response) {
	t.Helper()
	env, err := kafka.EnvelopeFromMessage(&common.Message{Value: pm.Value})
	require.NoError(t, err)
	var resp calculator.Response
	require.NoError(t, env.DecodePayload(&resp))
	return env, resp
}

var sampleRequest = calculator.Request{Chemical: "CCO", Calc: "epi", Prop: "boiling_point", SessionID: "s-1"}

// ─── tests ───

func TestHandle_PublishesResult(t *testing.T) {
	t.Parallel()
	d := new(mockDispatcher)
	n := new(mockNotifier)
	pub := &capturePublisher{}
	h := NewHandler(Config{ResultTopic: "res", JobTimeout: time.Minute}, d, pub, WithSessionNotifier(n))

	resp := &calculator.Response{Calc: "epi", Prop: "boiling_point", SessionID: "s-1", Data: 78.3, Valid: true}
	d.On("Dispatch", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline && logging.RequestIDFromContext(ctx) == "req-9"
	}), mock.MatchedBy(func(r *calculator.Request) bool { return r.Chemical == "CCO" })).Return(resp, nil).Once()
	n.On("Publish", mock.Anything, "s-1", resp).Return(1, nil).Once()

	require.NoError(t, h.Handle(context.Background(), requestMessage(t, sampleRequest, "req-9")))

	require.Len(t, pub.msgs, 1)
	out := pub.msgs[0]
	assert.Equal(t, "res", out.Topic)
	assert.Equal(t, "s-1", string(out.Key))
	assert.Equal(t, kafka.EventPchemCompleted, out.Headers[kafka.HeaderEventType])

	env, got := decodeResult(t, out)
	assert.Equal(t, "req-9", env.RequestID)
	assert.Equal(t, Source, env.Source)
	assert.True(t, got.Valid)
	assert.Equal(t, 78.3, got.Data)
	d.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestHandle_CalculationFailureIsAResult(t *testing.T) {
	t.Parallel()
	d := new(mockDispatcher)
	pub := &capturePublisher{}
	h := NewHandler(Config{ResultTopic: "res"}, d, pub)

	d.On("Dispatch", mock.Anything, mock.Anything).
		Return(&calculator.Response{Calc: "epi", Data: "Cannot filter SMILES for EPI data"}, nil)

	require.NoError(t, h.Handle(context.Background(), requestMessage(t, sampleRequest, "")))
	require.Len(t, pub.msgs, 1)
	_, got := decodeResult(t, pub.msgs[0])
	assert.False(t, got.Valid)
}

func TestHandle_RejectedRequest(t *testing.T) {
	t.Parallel()
	d := new(mockDispatcher)
	n := new(mockNotifier)
	pub := &capturePublisher{}
	mlog := testutil.NewMockLogger()
	h := NewHandler(Config{ResultTopic: "res"}, d, pub, WithSessionNotifier(n), WithLogger(mlog))

	unknown := errors.New(errors.ErrCodeUnknownCalculator, "unknown calculator")
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil, unknown)
	n.On("Publish", mock.Anything, "s-1", mock.MatchedBy(func(r *calculator.Response) bool {
		return !r.Valid && r.Error == unknown.Error() && r.RequestPost.Chemical == "CCO"
	})).Return(0, nil).Once()

	err := h.Handle(context.Background(), requestMessage(t, sampleRequest, ""))
	assert.ErrorIs(t, err, unknown)
	assert.True(t, kafka.IsPermanent(err))
	assert.Empty(t, pub.msgs)
	assert.True(t, mlog.HasMessage("warn", "request rejected"))
	n.AssertExpectations(t)
}

func TestHandle_BadPayloadIsPermanent(t *testing.T) {
	t.Parallel()
	d := new(mockDispatcher)
	h := NewHandler(Config{ResultTopic: "res"}, d, &capturePublisher{})

	err := h.Handle(context.Background(), &common.Message{Value: []byte("not json")})
	assert.True(t, kafka.IsPermanent(err))

	raw, _ := json.Marshal(kafka.Envelope{EventID: "e"})
	err = h.Handle(context.Background(), &common.Message{Value: raw})
	assert.True(t, kafka.IsPermanent(err))
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestHandle_PublishFailureIsRetryable(t *testing.T) {
	t.Parallel()
	d := new(mockDispatcher)
	n := new(mockNotifier)
	pub := &capturePublisher{err: errors.ServiceUnavailable("kafka down")}
	h := NewHandler(Config{ResultTopic: "res"}, d, pub, WithSessionNotifier(n))

	d.On("Dispatch", mock.Anything, mock.Anything).Return(&calculator.Response{Valid: true, SessionID: "s-1"}, nil)

	err := h.Handle(context.Background(), requestMessage(t, sampleRequest, ""))
	require.Error(t, err)
	assert.False(t, kafka.IsPermanent(err))
	n.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_NotifyFailureIsIgnored(t *testing.T) {
	t.Parallel()
	d := new(mockDispatcher)
	n := new(mockNotifier)
	pub := &capturePublisher{}
	h := NewHandler(Config{ResultTopic: "res"}, d, pub, WithSessionNotifier(n))

	d.On("Dispatch", mock.Anything, mock.Anything).Return(&calculator.Response{Valid: true, SessionID: "s-1"}, nil)
	n.On("Publish", mock.Anything, "s-1", mock.Anything).Return(0, stderrors.New("redis down"))

	assert.NoError(t, h.Handle(context.Background(), requestMessage(t, sampleRequest, "")))
	assert.Len(t, pub.msgs, 1)
}

func TestSubmitter(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{}
	s := NewSubmitter("req", "cts-api", pub)

	ctx := logging.ContextWithRequestID(context.Background(), "req-1")
	id, err := s.Submit(ctx, &sampleRequest)
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)

	env, err := kafka.EnvelopeFromMessage(&common.Message{Value: pub.msgs[0].Value})
	require.NoError(t, err)
	assert.Equal(t, id, env.EventID)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, kafka.EventPchemRequested, env.EventType)
	assert.Equal(t, "s-1", string(pub.msgs[0].Key))

	_, err = s.Submit(ctx, nil)
	assert.Error(t, err)
}
