package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/rl1809/card-checkout/internal/port"
)

func testProduct(stock int) *domain.Product {
	return &domain.Product{
		ID:    "prod-1",
		Name:  "Marvelous Mug",
		Price: decimal.NewFromInt(25000),
		Stock: stock,
	}
}

func testCheckoutRequest() CheckoutRequest {
	return CheckoutRequest{
		ProductID:       "prod-1",
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@test.local",
		CustomerPhone:   "3001234567",
		CustomerAddress: "Cra 7 # 71-21",
		CustomerCity:    "Bogota",
		Amount:          decimal.NewFromInt(25000),
		Currency:        "COP",
		CardToken:       "tok_visa",
		Installments:    1,
		AcceptanceToken: "acc_token",
	}
}

func newTestCheckout(product *domain.Product, gw *mockGateway) (*CheckoutService, *mockProductRepo, *mockTransactionRepo, *mockCache) {
	products := newMockProductRepo()
	if product != nil {
		products.products[product.ID] = product
	}
	transactions := newMockTransactionRepo()
	cache := newMockCache()
	if product != nil {
		cache.stock[product.ID] = product.Stock
	}
	return NewCheckoutService(products, transactions, gw, cache), products, transactions, cache
}

func TestCreateTransaction_ProductNotFound(t *testing.T) {
	svc, _, transactions, _ := newTestCheckout(nil, &mockGateway{})

	_, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, transactions.transactions)
}

func TestCreateTransaction_OutOfStock(t *testing.T) {
	svc, products, transactions, _ := newTestCheckout(testProduct(0), &mockGateway{})

	_, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	assert.ErrorIs(t, err, ErrProductOutOfStock)
	assert.Empty(t, transactions.transactions)
	assert.Equal(t, 0, products.stockOf("prod-1"))
}

func TestCreateTransaction_Approved(t *testing.T) {
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "ext-1",
		Status: domain.TransactionStatusApproved,
	}}
	svc, products, transactions, _ := newTestCheckout(testProduct(5), gw)

	tx, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusApproved, tx.Status)
	assert.Equal(t, "ext-1", tx.ExternalTransactionID)
	assert.Equal(t, 4, products.stockOf("prod-1"))

	stored := transactions.stored(tx.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.TransactionStatusApproved, stored.Status)
	assert.Equal(t, "ext-1", stored.ExternalTransactionID)
}

func TestCreateTransaction_Declined_StockUntouched(t *testing.T) {
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "ext-2",
		Status: domain.TransactionStatusDeclined,
	}}
	svc, products, transactions, _ := newTestCheckout(testProduct(5), gw)

	tx, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusDeclined, tx.Status)
	assert.Equal(t, 5, products.stockOf("prod-1"))

	stored := transactions.stored(tx.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.TransactionStatusDeclined, stored.Status)
}

func TestCreateTransaction_GatewayFailureAbsorbed(t *testing.T) {
	// The adapter absorbs transport failures into a synthetic ERROR
	// response; the checkout must still end with a persisted record.
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "",
		Status: domain.TransactionStatusError,
	}}
	svc, products, transactions, _ := newTestCheckout(testProduct(5), gw)

	tx, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusError, tx.Status)
	assert.Empty(t, tx.ExternalTransactionID)
	assert.Equal(t, 5, products.stockOf("prod-1"))
	require.NotNil(t, transactions.stored(tx.ID))
}

func TestCreateTransaction_PendingWriteBeforeGatewayCall(t *testing.T) {
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "ext-3",
		Status: domain.TransactionStatusPending,
	}}
	svc, _, transactions, _ := newTestCheckout(testProduct(5), gw)

	tx, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, tx.Status)
	require.Len(t, gw.authRequests, 1)
	assert.Equal(t, tx.Reference, gw.authRequests[0].Reference,
		"gateway must be called with the persisted reference")

	stored := transactions.stored(tx.ID)
	require.NotNil(t, stored, "PENDING record must be durable before the outcome lands")
	assert.Equal(t, "ext-3", stored.ExternalTransactionID)
}

func TestCreateTransaction_PersistFailureStopsCheckout(t *testing.T) {
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "ext-4",
		Status: domain.TransactionStatusApproved,
	}}
	svc, _, transactions, _ := newTestCheckout(testProduct(5), gw)
	transactions.createErr = errors.New("connection refused")

	_, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())

	require.Error(t, err)
	assert.Empty(t, gw.authRequests, "gateway must not be called when the PENDING write fails")
}

func TestUpdateTransactionStatus_NotFound(t *testing.T) {
	svc, _, _, _ := newTestCheckout(testProduct(5), &mockGateway{})

	err := svc.UpdateTransactionStatus(context.Background(), "missing", domain.TransactionStatusApproved, "ext-9")

	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestUpdateTransactionStatus_FirstApprovalDeductsOnce(t *testing.T) {
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "ext-5",
		Status: domain.TransactionStatusPending,
	}}
	svc, products, transactions, _ := newTestCheckout(testProduct(5), gw)

	tx, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())
	require.NoError(t, err)
	require.Equal(t, 5, products.stockOf("prod-1"))

	err = svc.UpdateTransactionStatus(context.Background(), tx.ID, domain.TransactionStatusApproved, "ext-5")
	require.NoError(t, err)
	assert.Equal(t, 4, products.stockOf("prod-1"))

	stored := transactions.stored(tx.ID)
	assert.Equal(t, domain.TransactionStatusApproved, stored.Status)
	assert.Equal(t, "ext-5", stored.ExternalTransactionID)

	// A second approval re-applies the status but must not touch stock.
	err = svc.UpdateTransactionStatus(context.Background(), tx.ID, domain.TransactionStatusApproved, "ext-5")
	require.NoError(t, err)
	assert.Equal(t, 4, products.stockOf("prod-1"))
}

func TestUpdateTransactionStatus_DeclineSkipsStock(t *testing.T) {
	gw := &mockGateway{authResponse: port.PaymentResponse{
		ID:     "ext-6",
		Status: domain.TransactionStatusPending,
	}}
	svc, products, _, _ := newTestCheckout(testProduct(5), gw)

	tx, err := svc.CreateTransaction(context.Background(), testCheckoutRequest())
	require.NoError(t, err)

	err = svc.UpdateTransactionStatus(context.Background(), tx.ID, domain.TransactionStatusDeclined, "ext-6")
	require.NoError(t, err)
	assert.Equal(t, 5, products.stockOf("prod-1"))
}

func TestDeductStock_ConcurrentCallSitesDeductOnce(t *testing.T) {
	// The synchronous approval path and the reconciler can race on the
	// same transaction; the idempotency claim allows exactly one winner.
	svc, products, _, _ := newTestCheckout(testProduct(10), &mockGateway{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.deductStock(context.Background(), "tx-race", "prod-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, products.stockOf("prod-1"))
}

func TestDeductStock_ReleasesClaimWhenStockExhausted(t *testing.T) {
	svc, products, _, cache := newTestCheckout(testProduct(0), &mockGateway{})

	err := svc.deductStock(context.Background(), "tx-empty", "prod-1")

	require.NoError(t, err)
	assert.Equal(t, 0, products.stockOf("prod-1"))
	assert.False(t, cache.idempotencySet["deduct:tx-empty"],
		"claim must be released so a retry can run after restock")
}
