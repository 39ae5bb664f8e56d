package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusApproved TransactionStatus = "APPROVED"
	TransactionStatusDeclined TransactionStatus = "DECLINED"
	TransactionStatusVoided   TransactionStatus = "VOIDED"
	TransactionStatusError    TransactionStatus = "ERROR"
)

// Terminal reports whether no further gateway-driven change is expected.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusApproved, TransactionStatusDeclined,
		TransactionStatusVoided, TransactionStatusError:
		return true
	}
	return false
}

// ParseTransactionStatus maps a gateway status string to a local status.
// Unknown values map to ERROR so a misbehaving gateway can never park a
// transaction in an unmodeled state.
func ParseTransactionStatus(s string) TransactionStatus {
	switch TransactionStatus(s) {
	case TransactionStatusPending, TransactionStatusApproved,
		TransactionStatusDeclined, TransactionStatusVoided,
		TransactionStatusError:
		return TransactionStatus(s)
	}
	return TransactionStatusError
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusShipped   DeliveryStatus = "SHIPPED"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

type Customer struct {
	ID          string
	FullName    string
	Email       string
	PhoneNumber string
	Address     string
	City        string
}

type Delivery struct {
	ID       string
	Status   DeliveryStatus
	Fee      decimal.Decimal
	Customer Customer
}

type Transaction struct {
	ID                    string
	Amount                decimal.Decimal
	Currency              string
	Status                TransactionStatus
	Reference             string
	Product               *Product
	Delivery              Delivery
	CreatedAt             time.Time
	ExternalTransactionID string
}

// NewCheckoutTransaction builds the PENDING transaction persisted before the
// gateway is called. The reference identifies this checkout attempt and must
// stay stable afterwards: it is an input to the gateway integrity signature.
func NewCheckoutTransaction(product *Product, customer Customer, amount decimal.Decimal, currency string) *Transaction {
	customer.ID = uuid.NewString()

	return &Transaction{
		ID:        uuid.NewString(),
		Amount:    amount,
		Currency:  currency,
		Status:    TransactionStatusPending,
		Reference: "REF-" + uuid.NewString(),
		Product:   product,
		Delivery: Delivery{
			ID:       uuid.NewString(),
			Status:   DeliveryStatusPending,
			Fee:      decimal.Zero,
			Customer: customer,
		},
		CreatedAt: time.Now(),
	}
}
