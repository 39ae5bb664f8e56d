package port

import (
	"context"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/shopspring/decimal"
)

type AuthorizationRequest struct {
	Amount          decimal.Decimal
	Currency        string
	CardToken       string
	Installments    int
	AcceptanceToken string
	CustomerEmail   string
	Reference       string
}

type PaymentResponse struct {
	ID        string // gateway-assigned transaction id
	Status    domain.TransactionStatus
	Reference string
}

type PaymentGateway interface {
	// Authorize submits a card authorization. It never returns an error:
	// transport and parsing failures are absorbed into a response with
	// Status ERROR and an empty ID, so the checkout flow always completes
	// with a stored record.
	Authorize(ctx context.Context, req AuthorizationRequest) PaymentResponse

	// StatusOf polls the gateway for the current status of an external
	// transaction id. Unlike Authorize it returns transport failures as
	// errors, so the reconciler can tell a failed verification apart from
	// a gateway-reported terminal status.
	StatusOf(ctx context.Context, externalID string) (domain.TransactionStatus, error)
}
