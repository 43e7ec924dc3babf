package events

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const dialTimeout = 10 * time.Second

func NewDialer(tlsConfig *tls.Config) *kafka.Dialer {
	return &kafka.Dialer{
		Timeout:   dialTimeout,
		DualStack: true,
		TLS:       tlsConfig,
	}
}

func NewReader(brokers []string, groupID, topic string, dialer *kafka.Dialer) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		Dialer:   dialer,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

// NewWriter returns a writer that waits for all in-sync replicas and keeps
// messages with the same key on the same partition.
func NewWriter(brokers []string, topic string, tlsConfig *tls.Config) *kafka.Writer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	if tlsConfig != nil {
		w.Transport = &kafka.Transport{TLS: tlsConfig}
	}
	return w
}

// CheckBrokers dials every broker and fails if none is reachable.
func CheckBrokers(ctx context.Context, dialer *kafka.Dialer, brokers []string) error {
	var errs []error
	for _, broker := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		conn.Close()
		return nil
	}
	if len(errs) == 0 {
		return errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("no kafka brokers available: %w", errors.Join(errs...))
}
