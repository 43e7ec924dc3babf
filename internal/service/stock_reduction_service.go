package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/repository"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/cloud-wave-best-zizon/inventory-service/internal/service"

// ResultPublisher emits the outcome of a reduction request back to the saga.
type ResultPublisher interface {
	PublishSuccess(ctx context.Context, correlationID, workOrderID string) error
	PublishFailure(ctx context.Context, correlationID, workOrderID string, reason domain.FailureReason) error
}

type StockReductionService struct {
	gateway         repository.InventoryGateway
	publisher       ResultPublisher
	logger          *zap.Logger
	tracer          trace.Tracer
	conflictRetries int
}

func NewStockReductionService(gateway repository.InventoryGateway, publisher ResultPublisher, logger *zap.Logger, conflictRetries int) *StockReductionService {
	if conflictRetries < 1 {
		conflictRetries = 1
	}
	return &StockReductionService{
		gateway:         gateway,
		publisher:       publisher,
		logger:          logger,
		tracer:          otel.Tracer(tracerName),
		conflictRetries: conflictRetries,
	}
}

// Handle runs the validate-then-apply protocol for one request and publishes exactly one
// result. Store failures and a failed success publish are reported as internal_error and
// are not returned. The only error returned is a failure to publish that report, which
// leaves the retry decision to the transport.
func (s *StockReductionService) Handle(ctx context.Context, req domain.ReductionRequest) error {
	ctx = observability.WithSaga(ctx, req.CorrelationID, req.WorkOrderID)
	ctx, span := s.tracer.Start(ctx, "stock_reduction.handle", trace.WithAttributes(
		attribute.String("saga.correlation_id", req.CorrelationID),
		attribute.String("saga.work_order_id", req.WorkOrderID),
		attribute.Int("inventory.items_count", len(req.Items)),
	))
	defer span.End()

	log := observability.Logger(ctx, s.logger)
	log.Info("Processing stock reduction request", zap.Int("items_count", len(req.Items)))

	var reason domain.FailureReason
	reduced, err := s.reduce(ctx, log, req.Items)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reduction failed")
		log.Error("Error processing stock reduction", zap.Error(err))
		reason = domain.FailureInternalError
	case !reduced:
		reason = domain.FailureInsufficientStock
	}
	span.SetAttributes(attribute.Bool("inventory.reduced", reduced && err == nil))

	if reason == "" {
		err = s.publisher.PublishSuccess(ctx, req.CorrelationID, req.WorkOrderID)
		if err != nil {
			// 재고는 이미 차감됨: 재시도로 다시 차감하지 않도록 internal_error로 보고
			span.RecordError(err)
			log.Error("Failed to publish success result, reporting internal error", zap.Error(err))
			reason = domain.FailureInternalError
		}
	}
	if reason != "" {
		err = s.publisher.PublishFailure(ctx, req.CorrelationID, req.WorkOrderID, reason)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result publish failed")
		return fmt.Errorf("publish reduction result: %w", err)
	}

	if reason == "" {
		log.Info("Stock reduction completed")
	}
	return nil
}

// reduce returns false without error when any item is missing or short.
func (s *StockReductionService) reduce(ctx context.Context, log *zap.Logger, items []domain.RequestedItem) (bool, error) {
	available, err := s.validate(ctx, log, items)
	if err != nil || !available {
		return false, err
	}

	for attempt := 1; ; attempt++ {
		reduced, err := s.apply(ctx, log, items)
		if errors.Is(err, repository.ErrConcurrentUpdate) && attempt < s.conflictRetries {
			log.Warn("Concurrent inventory update, retrying from a fresh read",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.conflictRetries))
			continue
		}
		return reduced, err
	}
}

// validate은 모든 항목의 재고를 확인합니다. 첫 번째 실패에서 중단합니다.
func (s *StockReductionService) validate(ctx context.Context, log *zap.Logger, items []domain.RequestedItem) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "stock_reduction.validate")
	defer span.End()

	for _, item := range items {
		record, err := s.gateway.FindByID(ctx, item.ItemID)
		if err != nil {
			return false, fmt.Errorf("load item %s: %w", item.ItemID, err)
		}

		if record == nil {
			log.Warn("Inventory item not found", zap.String("item_id", item.ItemID))
			return false, nil
		}

		if !record.HasAvailability(item.Quantity) {
			log.Warn("Insufficient stock",
				zap.String("item_id", item.ItemID),
				zap.Int("requested", item.Quantity),
				zap.Int("available", record.Quantity))
			return false, nil
		}
	}
	return true, nil
}

// apply re-reads every record, reduces them in request order and persists them as one unit.
// Repeated item ids accumulate on the same record.
func (s *StockReductionService) apply(ctx context.Context, log *zap.Logger, items []domain.RequestedItem) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "stock_reduction.apply")
	defer span.End()

	byID := make(map[string]*domain.Record, len(items))
	ordered := make([]*domain.Record, 0, len(items))
	previous := make(map[string]int, len(items))

	for _, item := range items {
		record, seen := byID[item.ItemID]
		if !seen {
			var err error
			record, err = s.gateway.FindByID(ctx, item.ItemID)
			if err != nil {
				return false, fmt.Errorf("reload item %s: %w", item.ItemID, err)
			}
			if record == nil {
				log.Warn("Inventory item disappeared before reduction", zap.String("item_id", item.ItemID))
				return false, nil
			}
			byID[item.ItemID] = record
			ordered = append(ordered, record)
			previous[item.ItemID] = record.Quantity
		}

		// 검증 이후 재고가 줄어든 경우
		if !record.HasAvailability(item.Quantity) {
			log.Warn("Insufficient stock at reduction time",
				zap.String("item_id", item.ItemID),
				zap.Int("requested", item.Quantity),
				zap.Int("available", record.Quantity))
			return false, nil
		}
		if err := record.ApplyReduction(item.Quantity); err != nil {
			return false, err
		}
	}

	var err error
	switch len(ordered) {
	case 0:
		return true, nil
	case 1:
		err = s.gateway.Update(ctx, ordered[0])
	default:
		err = s.gateway.UpdateAll(ctx, ordered)
	}
	if err != nil {
		return false, fmt.Errorf("persist %d items: %w", len(ordered), err)
	}

	for _, record := range ordered {
		log.Info("Stock reduced",
			zap.String("item_id", record.ID),
			zap.Int("previous_quantity", previous[record.ID]),
			zap.Int("new_quantity", record.Quantity))
	}
	return true, nil
}
