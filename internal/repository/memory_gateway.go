package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
)

// MemoryGateway keeps records in process memory. Used in local mode and tests.
// Records are copied on the way in and out so callers never share state with the store.
type MemoryGateway struct {
	mu    sync.RWMutex
	items map[string]*domain.Record
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		items: make(map[string]*domain.Record),
	}
}

func (g *MemoryGateway) Create(ctx context.Context, record *domain.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.items[record.ID]; exists {
		return ErrItemExists
	}
	g.items[record.ID] = record.Clone()
	return nil
}

func (g *MemoryGateway) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	record, exists := g.items[id]
	if !exists {
		return nil, nil
	}
	return record.Clone(), nil
}

func (g *MemoryGateway) Update(ctx context.Context, record *domain.Record) error {
	return g.UpdateAll(ctx, []*domain.Record{record})
}

func (g *MemoryGateway) UpdateAll(ctx context.Context, records []*domain.Record) error {
	if len(records) > MaxBatchItems {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(records), MaxBatchItems)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// 모든 버전을 먼저 확인한 뒤에만 반영
	for _, record := range records {
		stored, exists := g.items[record.ID]
		if !exists || stored.Version != record.Version {
			return ErrConcurrentUpdate
		}
	}

	for _, record := range records {
		record.Version++
		g.items[record.ID] = record.Clone()
	}
	return nil
}

// Seed inserts or replaces records directly, bypassing version checks.
func (g *MemoryGateway) Seed(records ...*domain.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, record := range records {
		g.items[record.ID] = record.Clone()
	}
}
