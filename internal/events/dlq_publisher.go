package events

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type DeadLetterPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

func NewDeadLetterPublisher(writer MessageWriter, logger *zap.Logger) *DeadLetterPublisher {
	return &DeadLetterPublisher{
		writer: writer,
		logger: logger,
	}
}

// Publish wraps the original message in a DeadLetterMessage. The original key is reused
// unless a correlation id is known.
func (p *DeadLetterPublisher) Publish(ctx context.Context, msg kafka.Message, cause error, correlationID string) error {
	errorMsg := "unknown error"
	if cause != nil {
		errorMsg = cause.Error()
	}

	dlqMsg := DeadLetterMessage{
		OriginalTopic:     msg.Topic,
		OriginalPartition: msg.Partition,
		OriginalOffset:    msg.Offset,
		OriginalKey:       base64.StdEncoding.EncodeToString(msg.Key),
		OriginalValue:     base64.StdEncoding.EncodeToString(msg.Value),
		ErrorMessage:      errorMsg,
		FailedAt:          time.Now().UTC().Format(time.RFC3339),
		CorrelationID:     correlationID,
	}

	value, err := json.Marshal(dlqMsg)
	if err != nil {
		p.logger.Error("Failed to marshal DLQ message", zap.Error(err))
		return err
	}

	key := msg.Key
	if correlationID != "" {
		key = []byte(correlationID)
	}

	headers := []kafka.Header{
		{Key: HeaderMessageID, Value: []byte(uuid.New().String())},
		{Key: HeaderMessageType, Value: []byte(MessageTypeDeadLetter)},
	}
	if correlationID != "" {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(correlationID)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Headers: headers}); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			zap.String("original_topic", msg.Topic),
			zap.Int("original_partition", msg.Partition),
			zap.Int64("original_offset", msg.Offset),
			zap.Error(err))
		return err
	}

	p.logger.Warn("Message sent to DLQ",
		zap.String("original_topic", msg.Topic),
		zap.Int("original_partition", msg.Partition),
		zap.Int64("original_offset", msg.Offset),
		zap.String("correlation_id", correlationID),
		zap.String("error", errorMsg))
	return nil
}

func (p *DeadLetterPublisher) Close() error {
	return p.writer.Close()
}
