package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/observability"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaResultPublisher publishes reduction results keyed by correlation id.
// It does not retry; a failed write is returned to the caller.
type KafkaResultPublisher struct {
	writer  MessageWriter
	logger  *zap.Logger
	timeout time.Duration
}

func NewKafkaResultPublisher(writer MessageWriter, logger *zap.Logger, timeout time.Duration) *KafkaResultPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaResultPublisher{
		writer:  writer,
		logger:  logger,
		timeout: timeout,
	}
}

func (p *KafkaResultPublisher) PublishSuccess(ctx context.Context, correlationID, workOrderID string) error {
	observability.Logger(ctx, p.logger).Info("Publishing stock reduction success")
	return p.publish(ctx, domain.NewSuccessResult(correlationID, workOrderID))
}

func (p *KafkaResultPublisher) PublishFailure(ctx context.Context, correlationID, workOrderID string, reason domain.FailureReason) error {
	observability.Logger(ctx, p.logger).Warn("Publishing stock reduction failure",
		zap.String("failure_reason", string(reason)))
	return p.publish(ctx, domain.NewFailureResult(correlationID, workOrderID, reason))
}

func (p *KafkaResultPublisher) publish(ctx context.Context, result domain.ReductionResult) error {
	log := observability.Logger(ctx, p.logger)

	payload, err := json.Marshal(result)
	if err != nil {
		log.Error("Failed to marshal result", zap.Error(err))
		return fmt.Errorf("marshal reduction result: %w", err)
	}

	messageID := uuid.New().String()
	headers := []kafka.Header{
		{Key: HeaderMessageID, Value: []byte(messageID)},
		{Key: HeaderCorrelationID, Value: []byte(result.CorrelationID)},
		{Key: HeaderMessageType, Value: []byte(MessageTypeReductionResult)},
	}
	observability.InjectIntoHeaders(ctx, &headers)

	msg := kafka.Message{
		Key:     []byte(result.CorrelationID),
		Value:   payload,
		Headers: headers,
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		log.Error("Failed to publish result",
			zap.String("message_id", messageID),
			zap.Error(err))
		return fmt.Errorf("write reduction result: %w", err)
	}

	log.Info("Result published",
		zap.String("message_id", messageID),
		zap.Bool("success", result.Success))
	return nil
}

func (p *KafkaResultPublisher) Close() error {
	return p.writer.Close()
}
