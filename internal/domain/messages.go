package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid reduction request")

type FailureReason string

const (
	FailureInsufficientStock FailureReason = "insufficient_stock"
	FailureInternalError     FailureReason = "internal_error"
)

// ReductionRequest는 work order 서비스가 보내는 재고 차감 요청입니다
type ReductionRequest struct {
	CorrelationID string          `json:"correlationId"`
	WorkOrderID   string          `json:"workOrderId"`
	Items         []RequestedItem `json:"items"`
}

type RequestedItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Validate checks the fields a request must carry before it can be correlated and applied.
func (r ReductionRequest) Validate() error {
	if r.CorrelationID == "" {
		return fmt.Errorf("%w: correlationId is required", ErrInvalidRequest)
	}
	if r.WorkOrderID == "" {
		return fmt.Errorf("%w: workOrderId is required", ErrInvalidRequest)
	}
	for i, item := range r.Items {
		if item.ItemID == "" {
			return fmt.Errorf("%w: items[%d].itemId is required", ErrInvalidRequest, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive, got %d", ErrInvalidRequest, i, item.Quantity)
		}
	}
	return nil
}

// ReductionResult is published once per handled request.
// FailureReason is nil exactly when Success is true.
type ReductionResult struct {
	CorrelationID string         `json:"correlationId"`
	WorkOrderID   string         `json:"workOrderId"`
	Success       bool           `json:"success"`
	FailureReason *FailureReason `json:"failureReason"`
}

func NewSuccessResult(correlationID, workOrderID string) ReductionResult {
	return ReductionResult{
		CorrelationID: correlationID,
		WorkOrderID:   workOrderID,
		Success:       true,
	}
}

func NewFailureResult(correlationID, workOrderID string, reason FailureReason) ReductionResult {
	return ReductionResult{
		CorrelationID: correlationID,
		WorkOrderID:   workOrderID,
		Success:       false,
		FailureReason: &reason,
	}
}
