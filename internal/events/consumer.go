package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/observability"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	commitTimeout     = 5 * time.Second
	fetchErrorBackoff = time.Second
)

// RequestConsumer delivers reduction requests to a handler with at-least-once semantics:
// the offset is committed only after the handler succeeded or the message went to the DLQ.
type RequestConsumer struct {
	reader        MessageReader
	handler       RequestHandler
	deadLetters   DeadLetterSink
	logger        *zap.Logger
	retryAttempts int
	retryInterval time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewRequestConsumer(
	reader MessageReader,
	handler RequestHandler,
	deadLetters DeadLetterSink,
	logger *zap.Logger,
	retryAttempts int,
	retryInterval time.Duration,
) *RequestConsumer {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	return &RequestConsumer{
		reader:        reader,
		handler:       handler,
		deadLetters:   deadLetters,
		logger:        logger,
		retryAttempts: retryAttempts,
		retryInterval: retryInterval,
		sleep:         sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run fetches until ctx is cancelled. A message already being handled is finished
// before Run returns.
func (c *RequestConsumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started",
		zap.Int("retry_attempts", c.retryAttempts),
		zap.Duration("retry_interval", c.retryInterval))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Kafka consumer stopped")
				return nil
			}
			c.logger.Error("Error reading message", zap.Error(err))
			if err := c.sleep(ctx, fetchErrorBackoff); err != nil {
				c.logger.Info("Kafka consumer stopped")
				return nil
			}
			continue
		}

		if !c.processMessage(ctx, m) {
			continue
		}

		// 메시지 처리 성공 시 커밋
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		err = c.reader.CommitMessages(commitCtx, m)
		cancel()
		if err != nil {
			c.logger.Error("Error committing message",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

// processMessage returns true when the offset may be committed.
func (c *RequestConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	c.logger.Debug("Processing message",
		zap.String("topic", m.Topic),
		zap.String("key", string(m.Key)),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset))

	var req domain.ReductionRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return c.deadLetter(ctx, m, fmt.Errorf("failed to unmarshal request: %w", err), "")
	}
	if err := req.Validate(); err != nil {
		return c.deadLetter(ctx, m, err, req.CorrelationID)
	}

	msgCtx := observability.ExtractFromHeaders(ctx, m.Headers)
	if err := c.handleWithRetry(msgCtx, req); err != nil {
		if ctx.Err() != nil {
			// 종료 중: 커밋하지 않고 재전달에 맡김
			return false
		}
		return c.deadLetter(ctx, m, err, req.CorrelationID)
	}
	return true
}

// handleWithRetry makes up to retryAttempts attempts spaced retryInterval apart.
// The handler itself runs detached from ctx cancellation.
func (c *RequestConsumer) handleWithRetry(ctx context.Context, req domain.ReductionRequest) error {
	log := c.logger.With(
		zap.String("correlation_id", req.CorrelationID),
		zap.String("work_order_id", req.WorkOrderID))

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			log.Info("Retrying stock reduction request",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.retryAttempts),
				zap.Duration("interval", c.retryInterval))
			if err := c.sleep(ctx, c.retryInterval); err != nil {
				return err
			}
		}

		lastErr = c.handler.Handle(context.WithoutCancel(ctx), req)
		if lastErr == nil {
			return nil
		}
		log.Warn("Stock reduction handler failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retryAttempts),
			zap.Error(lastErr))
	}

	log.Error("Exhausted all retry attempts", zap.Error(lastErr))
	return lastErr
}

// deadLetter keeps writing to the DLQ until it succeeds, so the offset is never committed
// past a message that was not stored anywhere. It returns false only on shutdown.
func (c *RequestConsumer) deadLetter(ctx context.Context, m kafka.Message, cause error, correlationID string) bool {
	c.logger.Error("Sending message to DLQ",
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
		zap.String("correlation_id", correlationID),
		zap.Error(cause))

	for attempt := 1; ; attempt++ {
		err := c.deadLetters.Publish(context.WithoutCancel(ctx), m, cause, correlationID)
		if err == nil {
			return true
		}

		c.logger.Error("Failed to publish to DLQ",
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", c.retryInterval),
			zap.Error(err))

		if err := c.sleep(ctx, c.retryInterval); err != nil {
			// 종료 중: 커밋하지 않고 재전달에 맡김
			return false
		}
	}
}

func (c *RequestConsumer) Close() error {
	c.logger.Info("Stopping Kafka consumer")
	return c.reader.Close()
}
