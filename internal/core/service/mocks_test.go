package service

import (
	"context"
	"sync"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/rl1809/card-checkout/internal/port"
)

type mockProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	findErr  error
}

func newMockProductRepo(products ...*domain.Product) *mockProductRepo {
	m := &mockProductRepo{products: make(map[string]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	copy := *p
	return &copy, nil
}

func (m *mockProductRepo) DecrementStock(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Stock < 1 {
		return false, nil
	}
	p.Stock--
	return true, nil
}

func (m *mockProductRepo) Seed(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
	return nil
}

func (m *mockProductRepo) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

type mockTransactionRepo struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
	createErr    error
	updates      int
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{transactions: make(map[string]*domain.Transaction)}
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copy := *tx
	m.transactions[tx.ID] = &copy
	return nil
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copy := *tx
	return &copy, nil
}

func (m *mockTransactionRepo) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if tx, ok := m.transactions[id]; ok {
		tx.Status = status
		tx.ExternalTransactionID = externalID
	}
	return nil
}

func (m *mockTransactionRepo) stored(id string) *domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil
	}
	copy := *tx
	return &copy
}

type mockGateway struct {
	mu           sync.Mutex
	authResponse port.PaymentResponse
	authRequests []port.AuthorizationRequest
	pollStatus   domain.TransactionStatus
	pollErr      error
	polls        int
}

func (m *mockGateway) Authorize(ctx context.Context, req port.AuthorizationRequest) port.PaymentResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authRequests = append(m.authRequests, req)
	return m.authResponse
}

func (m *mockGateway) StatusOf(ctx context.Context, externalID string) (domain.TransactionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	if m.pollErr != nil {
		return "", m.pollErr
	}
	return m.pollStatus, nil
}

type mockCache struct {
	mu             sync.Mutex
	idempotencySet map[string]bool
	stock          map[string]int
	setErr         error
}

func newMockCache() *mockCache {
	return &mockCache{
		idempotencySet: make(map[string]bool),
		stock:          make(map[string]int),
	}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCache) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCache) DecrementStock(ctx context.Context, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock[productID] < 1 {
		return false, nil
	}
	m.stock[productID]--
	return true, nil
}

func (m *mockCache) IncrementStock(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID]++
	return nil
}

func (m *mockCache) SetStock(ctx context.Context, productID string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = stock
	return nil
}
