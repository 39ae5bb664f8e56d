package port

import (
	"context"

	"github.com/rl1809/card-checkout/internal/core/domain"
)

type ProductRepository interface {
	// FindAll lists every product in catalog order.
	FindAll(ctx context.Context) ([]domain.Product, error)

	// FindByID retrieves a product, returning nil when it does not exist.
	FindByID(ctx context.Context, id string) (*domain.Product, error)

	// DecrementStock removes one unit, returning false when stock was
	// already exhausted. The write is conditional on stock > 0 so two
	// callers can never drive stock negative.
	DecrementStock(ctx context.Context, id string) (bool, error)

	// Seed inserts products, replacing any with the same id.
	Seed(ctx context.Context, products []domain.Product) error
}
