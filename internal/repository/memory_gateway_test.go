package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(t *testing.T, id string, quantity int) *domain.Record {
	t.Helper()
	r, err := domain.NewRecord(id, "Pastilha de Freio", quantity, domain.CategoryPart, 89.9)
	require.NoError(t, err)
	return r
}

func TestMemoryGateway_FindByID(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.Seed(newRecord(t, "item-1", 10))

	found, err := g.FindByID(ctx, "item-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 10, found.Quantity)

	missing, err := g.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryGateway_FindByID_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.Seed(newRecord(t, "item-1", 10))

	found, err := g.FindByID(ctx, "item-1")
	require.NoError(t, err)
	found.Quantity = 0

	again, err := g.FindByID(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 10, again.Quantity)
}

func TestMemoryGateway_Create(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	require.NoError(t, g.Create(ctx, newRecord(t, "item-1", 1)))
	require.ErrorIs(t, g.Create(ctx, newRecord(t, "item-1", 2)), ErrItemExists)
}

func TestMemoryGateway_Update(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.Seed(newRecord(t, "item-1", 10))

	first, _ := g.FindByID(ctx, "item-1")
	stale, _ := g.FindByID(ctx, "item-1")

	require.NoError(t, first.ApplyReduction(4))
	require.NoError(t, g.Update(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	require.NoError(t, stale.ApplyReduction(4))
	require.ErrorIs(t, g.Update(ctx, stale), ErrConcurrentUpdate)

	stored, _ := g.FindByID(ctx, "item-1")
	assert.Equal(t, 6, stored.Quantity)
}

func TestMemoryGateway_UpdateAll_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.Seed(newRecord(t, "item-1", 10), newRecord(t, "item-2", 10))

	a, _ := g.FindByID(ctx, "item-1")
	b, _ := g.FindByID(ctx, "item-2")

	// item-2 moves underneath us
	concurrent, _ := g.FindByID(ctx, "item-2")
	require.NoError(t, g.Update(ctx, concurrent))

	require.NoError(t, a.ApplyReduction(1))
	require.NoError(t, b.ApplyReduction(1))
	require.ErrorIs(t, g.UpdateAll(ctx, []*domain.Record{a, b}), ErrConcurrentUpdate)

	storedA, _ := g.FindByID(ctx, "item-1")
	assert.Equal(t, 10, storedA.Quantity)
	assert.Equal(t, int64(0), storedA.Version)
}

func TestMemoryGateway_UpdateAll_BatchLimit(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	records := make([]*domain.Record, MaxBatchItems+1)
	for i := range records {
		records[i] = newRecord(t, fmt.Sprintf("item-%d", i), 5)
		g.Seed(records[i])
	}

	require.ErrorIs(t, g.UpdateAll(ctx, records), ErrBatchTooLarge)
	require.NoError(t, g.UpdateAll(ctx, records[:MaxBatchItems]))

	last, err := g.FindByID(ctx, records[MaxBatchItems].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), last.Version)
}

func TestMemoryGateway_UpdateAll_MissingRecord(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	require.ErrorIs(t, g.UpdateAll(ctx, []*domain.Record{newRecord(t, "ghost", 1)}), ErrConcurrentUpdate)
}

func TestMemoryGateway_ConcurrentCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.Seed(newRecord(t, "item-1", 5))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := g.FindByID(ctx, "item-1")
			if err != nil || r == nil || !r.HasAvailability(5) {
				return
			}
			if r.ApplyReduction(5) != nil {
				return
			}
			if g.Update(ctx, r) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	stored, _ := g.FindByID(ctx, "item-1")
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 0, stored.Quantity)
}
