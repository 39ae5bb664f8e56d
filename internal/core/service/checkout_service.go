package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/rl1809/card-checkout/internal/port"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductOutOfStock   = errors.New("product out of stock")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type CheckoutRequest struct {
	ProductID       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	CustomerCity    string
	Amount          decimal.Decimal
	Currency        string
	CardToken       string
	Installments    int
	AcceptanceToken string
}

type CheckoutService struct {
	products     port.ProductRepository
	transactions port.TransactionRepository
	gateway      port.PaymentGateway
	cache        port.CacheRepository
}

func NewCheckoutService(
	products port.ProductRepository,
	transactions port.TransactionRepository,
	gateway port.PaymentGateway,
	cache port.CacheRepository,
) *CheckoutService {
	return &CheckoutService{
		products:     products,
		transactions: transactions,
		gateway:      gateway,
		cache:        cache,
	}
}

// CreateTransaction runs the buy path: it reserves the intent as a PENDING
// record, submits the authorization, and persists whatever outcome the
// gateway reported. A declined or errored payment is still a successful
// checkout from the caller's point of view; only missing or exhausted
// products fail the request.
func (s *CheckoutService) CreateTransaction(ctx context.Context, req CheckoutRequest) (*domain.Transaction, error) {
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.InStock() {
		return nil, ErrProductOutOfStock
	}

	customer := domain.Customer{
		FullName:    req.CustomerName,
		Email:       req.CustomerEmail,
		PhoneNumber: req.CustomerPhone,
		Address:     req.CustomerAddress,
		City:        req.CustomerCity,
	}
	tx := domain.NewCheckoutTransaction(product, customer, req.Amount, req.Currency)

	// The PENDING write must land before the gateway call so a crash
	// mid-flight leaves an auditable record instead of a lost intent.
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist pending transaction: %w", err)
	}

	resp := s.gateway.Authorize(ctx, port.AuthorizationRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		CardToken:       req.CardToken,
		Installments:    req.Installments,
		AcceptanceToken: req.AcceptanceToken,
		CustomerEmail:   req.CustomerEmail,
		Reference:       tx.Reference,
	})

	tx.Status = resp.Status
	tx.ExternalTransactionID = resp.ID

	if resp.Status == domain.TransactionStatusApproved {
		if err := s.deductStock(ctx, tx.ID, product.ID); err != nil {
			log.Printf("checkout: stock deduction failed for transaction %s: %v", tx.ID, err)
		}
	}

	if err := s.transactions.UpdateStatus(ctx, tx.ID, tx.Status, tx.ExternalTransactionID); err != nil {
		return nil, fmt.Errorf("persist transaction outcome: %w", err)
	}

	return tx, nil
}

// UpdateTransactionStatus applies an externally observed status to a stored
// transaction. Stock is deducted only on the first transition into APPROVED;
// the idempotency guard makes a repeated approval a no-op on stock even when
// the synchronous path and the reconciler race.
func (s *CheckoutService) UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus, externalID string) error {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		return ErrTransactionNotFound
	}

	if status == domain.TransactionStatusApproved && tx.Status != domain.TransactionStatusApproved {
		if err := s.deductStock(ctx, tx.ID, tx.Product.ID); err != nil {
			return fmt.Errorf("deduct stock: %w", err)
		}
	}

	if err := s.transactions.UpdateStatus(ctx, id, status, externalID); err != nil {
		return fmt.Errorf("persist status update: %w", err)
	}

	return nil
}

// deductStock removes one unit for a transaction, at most once. The
// per-transaction idempotency key claims the deduction, the conditional
// database write keeps stock from ever going negative, and the cache mirror
// is advisory: a cache outage never blocks a paid checkout.
func (s *CheckoutService) deductStock(ctx context.Context, txID, productID string) error {
	key := "deduct:" + txID

	claimed, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !claimed {
		// Another call site already deducted for this transaction.
		return nil
	}

	mirrored, err := s.cache.DecrementStock(ctx, productID)
	if err != nil {
		log.Printf("checkout: stock mirror decrement failed for product %s: %v", productID, err)
		mirrored = false
	}

	done, err := s.products.DecrementStock(ctx, productID)
	if err != nil || !done {
		if mirrored {
			if rollbackErr := s.cache.IncrementStock(ctx, productID); rollbackErr != nil {
				log.Printf("checkout: CRITICAL stock mirror rollback failed for product %s: %v", productID, rollbackErr)
			}
		}
		if relErr := s.cache.ReleaseIdempotency(ctx, key); relErr != nil {
			log.Printf("checkout: failed to release deduction claim %s: %v", key, relErr)
		}
	}
	if err != nil {
		return fmt.Errorf("stock decrement failed: %w", err)
	}
	if !done {
		// Approved payment against exhausted stock: the approval stands,
		// fulfilment has to resolve the shortage.
		log.Printf("checkout: stock exhausted for product %s on transaction %s", productID, txID)
	}

	return nil
}
