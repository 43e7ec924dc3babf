package repository

import (
	"context"
	"errors"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
)

var (
	ErrItemExists       = errors.New("inventory item already exists")
	ErrConcurrentUpdate = errors.New("inventory item was modified concurrently")
	ErrBatchTooLarge    = errors.New("too many items in a single atomic update")
)

// MaxBatchItems is the largest number of distinct records UpdateAll accepts,
// the DynamoDB TransactWriteItems limit.
const MaxBatchItems = 100

// InventoryGateway loads and persists inventory records.
//
// FindByID returns (nil, nil) when the item does not exist. Update and UpdateAll are
// compare-and-swap on Record.Version and return ErrConcurrentUpdate when the stored
// version moved; on success the in-memory versions are bumped. UpdateAll writes every
// record or none.
type InventoryGateway interface {
	FindByID(ctx context.Context, id string) (*domain.Record, error)
	Update(ctx context.Context, record *domain.Record) error
	UpdateAll(ctx context.Context, records []*domain.Record) error
}
