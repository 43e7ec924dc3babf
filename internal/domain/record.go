package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidName      = errors.New("name must have at least 3 characters")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrInvalidCategory  = errors.New("invalid item category")
	ErrInvalidUnitPrice = errors.New("unit price must be greater than zero")
)

const minNameLength = 3

// Category는 재고 항목의 분류입니다
type Category string

const (
	CategoryPart   Category = "Part"
	CategorySupply Category = "Supply"
)

func (c Category) Valid() bool {
	return c == CategoryPart || c == CategorySupply
}

// Record is a single stocked item. Quantity only changes through SetQuantity.
type Record struct {
	ID        string    `dynamodbav:"item_id"    json:"id"`
	Name      string    `dynamodbav:"name"       json:"name"`
	Quantity  int       `dynamodbav:"quantity"   json:"quantity"`
	Category  Category  `dynamodbav:"category"   json:"category"`
	UnitPrice float64   `dynamodbav:"unit_price" json:"unit_price"`
	Version   int64     `dynamodbav:"version"    json:"version"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

func NewRecord(id, name string, quantity int, category Category, unitPrice float64) (*Record, error) {
	now := time.Now().UTC()
	r := &Record{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Quantity:  quantity,
		Category:  category,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Record) Validate() error {
	if len([]rune(r.Name)) < minNameLength {
		return ErrInvalidName
	}
	if r.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, r.Category)
	}
	if r.UnitPrice <= 0 {
		return ErrInvalidUnitPrice
	}
	return nil
}

// HasAvailability reports whether requested units can be taken from the current quantity.
func (r *Record) HasAvailability(requested int) bool {
	return requested <= r.Quantity
}

func (r *Record) SetQuantity(quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	r.Quantity = quantity
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyReduction takes requested units off the quantity. The record is left untouched
// when the result would be negative.
func (r *Record) ApplyReduction(requested int) error {
	if err := r.SetQuantity(r.Quantity - requested); err != nil {
		return fmt.Errorf("reduce item %s by %d (available %d): %w", r.ID, requested, r.Quantity, err)
	}
	return nil
}

func (r *Record) Clone() *Record {
	c := *r
	return &c
}

type ItemResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	Category  Category `json:"category"`
	UnitPrice float64  `json:"unit_price"`
}

func (r *Record) Response() ItemResponse {
	return ItemResponse{
		ID:        r.ID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		Category:  r.Category,
		UnitPrice: r.UnitPrice,
	}
}
