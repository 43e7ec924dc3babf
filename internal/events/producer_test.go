package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/observability"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	deadline bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaResultPublisher_PublishSuccess(t *testing.T) {
	writer := &fakeWriter{}
	p := NewKafkaResultPublisher(writer, zap.NewNop(), time.Second)
	ctx := observability.WithSaga(context.Background(), "corr-1", "wo-1")

	require.NoError(t, p.PublishSuccess(ctx, "corr-1", "wo-1"))

	require.Len(t, writer.messages, 1)
	m := writer.messages[0]
	assert.Equal(t, "corr-1", string(m.Key))
	assert.JSONEq(t, `{"correlationId":"corr-1","workOrderId":"wo-1","success":true,"failureReason":null}`, string(m.Value))
	assert.Equal(t, "corr-1", header(m, HeaderCorrelationID))
	assert.Equal(t, MessageTypeReductionResult, header(m, HeaderMessageType))
	assert.NotEmpty(t, header(m, HeaderMessageID))
	assert.True(t, writer.deadline)
}

func TestKafkaResultPublisher_PublishFailure(t *testing.T) {
	writer := &fakeWriter{}
	p := NewKafkaResultPublisher(writer, zap.NewNop(), time.Second)

	require.NoError(t, p.PublishFailure(context.Background(), "corr-1", "wo-1", domain.FailureInternalError))

	require.Len(t, writer.messages, 1)
	assert.JSONEq(t,
		`{"correlationId":"corr-1","workOrderId":"wo-1","success":false,"failureReason":"internal_error"}`,
		string(writer.messages[0].Value))
}

func TestKafkaResultPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	p := NewKafkaResultPublisher(writer, zap.NewNop(), time.Second)

	err := p.PublishSuccess(context.Background(), "corr-1", "wo-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"kafka:9092"}, "stock-reduction-results", nil)

	assert.Equal(t, "stock-reduction-results", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Nil(t, w.Transport)
}
