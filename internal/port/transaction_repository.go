package port

import (
	"context"

	"github.com/rl1809/card-checkout/internal/core/domain"
)

type TransactionRepository interface {
	// Create persists a new transaction together with its delivery and
	// customer rows.
	Create(ctx context.Context, tx *domain.Transaction) error

	// FindByID retrieves a transaction, returning nil when it does not exist.
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)

	// UpdateStatus sets the status and external transaction id.
	UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, externalID string) error
}
