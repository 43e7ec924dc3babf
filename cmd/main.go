package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/handler"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/repository"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/seed"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/service"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/config"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/logger"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/observability"
	pkgtls "github.com/cloud-wave-best-zizon/inventory-service/pkg/tls"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type inventoryStore interface {
	repository.InventoryGateway
	Create(ctx context.Context, record *domain.Record) error
}

func main() {
	// Config 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Logger 초기화
	zlog, err := logger.New(config.ServiceName, cfg.LogLevel, cfg.LocalMode)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("Service stopped with error", zap.Error(err))
		zlog.Sync()
		os.Exit(1)
	}
	zlog.Info("Service exited")
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:       cfg.OtelEnabled,
		ServiceName:   config.ServiceName,
		Endpoint:      cfg.OtelEndpoint,
		Insecure:      cfg.OtelInsecure,
		SamplingRatio: cfg.OtelSamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			zlog.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// SPIRE mTLS (TLS_ENABLED=false 이면 nil)
	tlsSource, err := pkgtls.NewSource(ctx, cfg.TLSEnabled, cfg.SpireSocketPath, zlog)
	if err != nil {
		return fmt.Errorf("init tls: %w", err)
	}
	defer tlsSource.Close()

	store, err := newStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}

	// Kafka producers
	resultWriter := events.NewWriter(cfg.KafkaBrokers, cfg.KafkaResultTopic, tlsSource.ClientConfig())
	publisher := events.NewKafkaResultPublisher(resultWriter, zlog, cfg.PublishTimeout)
	defer publisher.Close()

	dlqWriter := events.NewWriter(cfg.KafkaBrokers, cfg.KafkaDLQTopic, tlsSource.ClientConfig())
	deadLetters := events.NewDeadLetterPublisher(dlqWriter, zlog)
	defer deadLetters.Close()

	reductionService := service.NewStockReductionService(store, publisher, zlog, cfg.ConflictRetries)

	dialer := events.NewDialer(tlsSource.ClientConfig())
	g, gctx := errgroup.WithContext(ctx)

	// Kafka consumers, 같은 그룹으로 파티션을 나눠 가집니다
	for i := 0; i < cfg.ConsumerWorkers; i++ {
		reader := events.NewReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaRequestTopic, dialer)
		consumer := events.NewRequestConsumer(reader, reductionService, deadLetters,
			zlog.With(zap.Int("worker", i)), cfg.RetryAttempts, cfg.RetryInterval)

		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gctx)
		})
	}

	readiness := func(ctx context.Context) error {
		return events.CheckBrokers(ctx, dialer, cfg.KafkaBrokers)
	}
	srv := newServer(cfg, store, readiness, tlsSource, zlog)

	g.Go(func() error {
		zlog.Info("Starting server", zap.String("port", cfg.Port), zap.Bool("tls", srv.TLSConfig != nil))

		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("Shutting down server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	go tlsSource.WatchCertificates(gctx)

	return g.Wait()
}

func newStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (inventoryStore, error) {
	if cfg.LocalMode {
		zlog.Info("Running in local mode with in-memory inventory")
		gateway := repository.NewMemoryGateway()
		if _, err := seed.Run(ctx, gateway, zlog); err != nil {
			return nil, err
		}
		return gateway, nil
	}

	// DynamoDB 클라이언트 초기화
	client, err := repository.NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create DynamoDB client: %w", err)
	}
	gateway := repository.NewDynamoDBGateway(client, cfg.InventoryTableName)

	if cfg.SeedOnStart {
		if _, err := seed.Run(ctx, gateway, zlog); err != nil {
			return nil, err
		}
	}
	return gateway, nil
}

func newServer(cfg *config.Config, items handler.ItemFinder, readiness handler.ReadinessCheck, tlsSource *pkgtls.Source, zlog *zap.Logger) *http.Server {
	if !cfg.LocalMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(zlog))
	handler.NewInventoryHandler(items, readiness, zlog).Register(router)

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		TLSConfig:         tlsSource.ServerConfig(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
