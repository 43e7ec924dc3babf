package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const ServiceName = "inventory-service"

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LocalMode bool   `envconfig:"LOCAL_MODE" default:"true"` // AWS 없이 로컬 실행 모드 (메모리 저장소)

	AWSRegion          string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	InventoryTableName string `envconfig:"INVENTORY_TABLE_NAME" default:"inventory-table"`
	DynamoDBEndpoint   string `envconfig:"DYNAMODB_ENDPOINT"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" default:"local"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" default:"local"`
	SeedOnStart        bool   `envconfig:"SEED_ON_START" default:"false"`

	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaGroupID      string   `envconfig:"KAFKA_GROUP_ID" default:"inventory-stock-reduction"`
	KafkaRequestTopic string   `envconfig:"KAFKA_REQUEST_TOPIC" default:"stock-reduction-requests"`
	KafkaResultTopic  string   `envconfig:"KAFKA_RESULT_TOPIC" default:"stock-reduction-results"`
	KafkaDLQTopic     string   `envconfig:"KAFKA_DLQ_TOPIC" default:"stock-reduction-requests-dlq"`
	ConsumerWorkers   int      `envconfig:"CONSUMER_WORKERS" default:"1"`

	RetryAttempts   int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryInterval   time.Duration `envconfig:"RETRY_INTERVAL" default:"5s"`
	ConflictRetries int           `envconfig:"CONFLICT_RETRIES" default:"3"`
	PublishTimeout  time.Duration `envconfig:"PUBLISH_TIMEOUT" default:"10s"`

	OtelEnabled      bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OtelEndpoint     string  `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	OtelInsecure     bool    `envconfig:"OTEL_INSECURE" default:"true"`
	OtelSamplingRate float64 `envconfig:"OTEL_SAMPLING_RATIO" default:"1"`

	TLSEnabled      bool   `envconfig:"TLS_ENABLED" default:"false"`
	SpireSocketPath string `envconfig:"SPIRE_SOCKET_PATH" default:"unix:///run/spire/sockets/agent.sock"`
}

// Load reads an optional .env file (ENV_FILE, default ".env") and then the process environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.KafkaBrokers) == 0 || strings.TrimSpace(c.KafkaBrokers[0]) == "" {
		errs = append(errs, errors.New("KAFKA_BROKERS must not be empty"))
	}
	if c.KafkaRequestTopic == "" || c.KafkaResultTopic == "" || c.KafkaDLQTopic == "" {
		errs = append(errs, errors.New("kafka topics must not be empty"))
	}
	if c.ConsumerWorkers < 1 {
		errs = append(errs, fmt.Errorf("CONSUMER_WORKERS must be >= 1, got %d", c.ConsumerWorkers))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must be >= 1, got %d", c.RetryAttempts))
	}
	if c.RetryInterval < 0 {
		errs = append(errs, fmt.Errorf("RETRY_INTERVAL must not be negative, got %s", c.RetryInterval))
	}
	if c.ConflictRetries < 1 {
		errs = append(errs, fmt.Errorf("CONFLICT_RETRIES must be >= 1, got %d", c.ConflictRetries))
	}
	if c.OtelSamplingRate < 0 || c.OtelSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0, 1], got %v", c.OtelSamplingRate))
	}
	return errors.Join(errs...)
}
