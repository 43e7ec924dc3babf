package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 시드 ID는 이름에서 파생되므로 재시작해도 같은 항목을 가리킵니다
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("inventory-service/seed"))

type Creator interface {
	Create(ctx context.Context, record *domain.Record) error
}

type item struct {
	name      string
	quantity  int
	category  domain.Category
	unitPrice float64
}

var workshopItems = []item{
	{"Óleo Motor 5W30", 50, domain.CategoryPart, 45.90},
	{"Filtro de Óleo", 30, domain.CategoryPart, 25.50},
	{"Pastilha de Freio Dianteira", 20, domain.CategoryPart, 89.90},
	{"Pastilha de Freio Traseira", 25, domain.CategoryPart, 65.90},
	{"Filtro de Ar", 40, domain.CategoryPart, 32.90},
	{"Correia Dentada", 15, domain.CategoryPart, 125.90},
	{"Vela de Ignição", 60, domain.CategoryPart, 18.90},
	{"Disco de Freio", 10, domain.CategoryPart, 189.90},

	{"Fluido de Freio", 100, domain.CategorySupply, 15.90},
	{"Aditivo para Radiador", 80, domain.CategorySupply, 22.50},
	{"Graxa Multiuso", 200, domain.CategorySupply, 8.90},
	{"Desengraxante", 150, domain.CategorySupply, 12.90},
	{"Spray Lubrificante", 120, domain.CategorySupply, 16.50},
}

func ItemID(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

func Records() ([]*domain.Record, error) {
	records := make([]*domain.Record, 0, len(workshopItems))
	for _, it := range workshopItems {
		r, err := domain.NewRecord(ItemID(it.name), it.name, it.quantity, it.category, it.unitPrice)
		if err != nil {
			return nil, fmt.Errorf("seed item %q: %w", it.name, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Run creates every workshop item that is not stored yet and returns how many were created.
func Run(ctx context.Context, store Creator, logger *zap.Logger) (int, error) {
	records, err := Records()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, r := range records {
		err := store.Create(ctx, r)
		if errors.Is(err, repository.ErrItemExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed item %s: %w", r.ID, err)
		}
		created++
	}

	logger.Info("Inventory seeded",
		zap.Int("created", created),
		zap.Int("total", len(records)))
	return created, nil
}
