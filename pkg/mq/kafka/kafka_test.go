package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newTestClient(t *testing.T, w *fakeWriter, opts ...ClientOption) *Client {
	t.Helper()
	opts = append(opts, withWriterFactory(func(string) messageWriter { return w }))
	c, err := New(&Config{Brokers: []string{"broker:9092"}}, opts...)
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"default", DefaultConfig(), nil},
		{"no brokers", &Config{}, ErrNoBrokers},
		{"bad acks", &Config{Brokers: []string{"b"}, Producer: ProducerConfig{RequiredAcks: 5}}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	var order []string
	mark := func(name string) ProducerMiddleware {
		return func(ctx context.Context, msg *Message, next PublishFunc) error {
			order = append(order, name)
			return next(ctx, msg)
		}
	}

	c := newTestClient(t, w, WithProducerMiddleware(mark("outer"), mark("inner"), ProducerTracingMiddleware("test")))

	ctx := logger.WithTraceID(context.Background(), "trace-1")
	require.NoError(t, c.PublishWithKey(ctx, "sheet-changes", "s1", []byte(`{"revision":1}`), nil))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("s1"), w.msgs[0].Key)
	assert.Equal(t, []string{"outer", "inner"}, order)

	var traceHeader string
	for _, h := range w.msgs[0].Headers {
		if h.Key == "x-trace-id" {
			traceHeader = string(h.Value)
		}
	}
	assert.Equal(t, "trace-1", traceHeader)

	p, err := c.Producer("sheet-changes")
	require.NoError(t, err)
	stats := p.Stats()
	assert.Equal(t, int64(1), stats.MessagesSucceeded)
	assert.False(t, stats.LastMessageTime.IsZero())
}

func TestPublishFailureAndRecovery(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	c := newTestClient(t, w, WithProducerMiddleware(ProducerLoggingMiddleware(logger.NewNoop())))

	err := c.Publish(context.Background(), "t", &Message{Value: []byte("x")})
	assert.EqualError(t, err, "broker down")

	p, _ := c.Producer("t")
	assert.Equal(t, int64(1), p.Stats().MessagesFailed)

	panicky := newTestClient(t, &fakeWriter{}, WithProducerMiddleware(
		ProducerRecoveryMiddleware(logger.NewNoop()),
		func(context.Context, *Message, PublishFunc) error { panic("boom") },
	))
	assert.ErrorIs(t, panicky.Publish(context.Background(), "t", &Message{}), ErrProducerPanic)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(t, w)

	_, err := c.Producer("")
	assert.ErrorIs(t, err, ErrEmptyTopic)

	_, err = c.Producer("t")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, w.closed)

	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.ErrorIs(t, c.Publish(context.Background(), "t", &Message{}), ErrClientClosed)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
}
