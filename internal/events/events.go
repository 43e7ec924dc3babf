package events

import (
	"context"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

// 메시지 헤더 키
const (
	HeaderMessageID     = "message-id"
	HeaderCorrelationID = "correlation-id"
	HeaderMessageType   = "message-type"
)

const (
	MessageTypeReductionResult = "ReductionResult"
	MessageTypeDeadLetter      = "ReductionRequestDeadLetter"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RequestHandler processes one decoded reduction request.
type RequestHandler interface {
	Handle(ctx context.Context, req domain.ReductionRequest) error
}

// DeadLetterSink receives messages that could not be processed.
type DeadLetterSink interface {
	Publish(ctx context.Context, msg kafka.Message, cause error, correlationID string) error
}

// DeadLetterMessage는 처리 불가능한 요청을 감싸는 DLQ 메시지입니다
type DeadLetterMessage struct {
	OriginalTopic     string `json:"originalTopic"`
	OriginalPartition int    `json:"originalPartition"`
	OriginalOffset    int64  `json:"originalOffset"`
	OriginalKey       string `json:"originalKey"`   // base64
	OriginalValue     string `json:"originalValue"` // base64
	ErrorMessage      string `json:"errorMessage"`
	FailedAt          string `json:"failedAt"`
	CorrelationID     string `json:"correlationId,omitempty"`
}
