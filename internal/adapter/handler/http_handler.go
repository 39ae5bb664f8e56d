package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/rl1809/card-checkout/internal/core/service"
	"github.com/rl1809/card-checkout/internal/port"
)

type HTTPHandler struct {
	checkout   *service.CheckoutService
	reconciler *service.Reconciler
	products   port.ProductRepository
	cache      port.CacheRepository

	// watchCtx outlives individual requests; cancelling it on shutdown
	// stops reconciliation polls that are still waiting on their timer.
	watchCtx context.Context
}

func NewHTTPHandler(
	watchCtx context.Context,
	checkout *service.CheckoutService,
	reconciler *service.Reconciler,
	products port.ProductRepository,
	cache port.CacheRepository,
) *HTTPHandler {
	return &HTTPHandler{
		checkout:   checkout,
		reconciler: reconciler,
		products:   products,
		cache:      cache,
		watchCtx:   watchCtx,
	}
}

func (h *HTTPHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Post("/transactions", h.CreateTransaction)
		r.Put("/transactions/{id}/status", h.UpdateTransactionStatus)
		r.Get("/products", h.ListProducts)
		r.Post("/products/seed", h.SeedProducts)
	})
	return r
}

type CreateTransactionRequest struct {
	ProductID       string          `json:"productId"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerAddress string          `json:"customerAddress"`
	CustomerCity    string          `json:"customerCity"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CardToken       string          `json:"cardToken"`
	Installments    int             `json:"installments"`
	AcceptanceToken string          `json:"acceptanceToken"`
}

type UpdateTransactionStatusRequest struct {
	Status     string `json:"status"`
	ExternalID string `json:"externalId"`
}

type TransactionResponse struct {
	ID                    string          `json:"id"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Status                string          `json:"status"`
	Reference             string          `json:"reference"`
	ProductID             string          `json:"productId"`
	ExternalTransactionID string          `json:"externalTransactionId,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImgURL      string          `json:"imgUrl"`
}

type FailureResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *HTTPHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}

	if req.ProductID == "" || req.CustomerEmail == "" || req.Currency == "" ||
		req.CardToken == "" || req.Installments < 1 || !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Code:    "INVALID_REQUEST",
			Message: "missing required fields",
		})
		return
	}

	tx, err := h.checkout.CreateTransaction(r.Context(), service.CheckoutRequest{
		ProductID:       req.ProductID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		CustomerCity:    req.CustomerCity,
		Amount:          req.Amount,
		Currency:        req.Currency,
		CardToken:       req.CardToken,
		Installments:    req.Installments,
		AcceptanceToken: req.AcceptanceToken,
	})
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			writeJSON(w, http.StatusBadRequest, FailureResponse{
				Code:    "PRODUCT_NOT_FOUND",
				Message: "Product not found",
			})
			return
		}
		if errors.Is(err, service.ErrProductOutOfStock) {
			writeJSON(w, http.StatusBadRequest, FailureResponse{
				Code:    "PRODUCT_OUT_OF_STOCK",
				Message: "Product out of stock",
			})
			return
		}
		log.Printf("handler: create transaction failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Code:    "INTERNAL_ERROR",
			Message: "internal error",
		})
		return
	}

	// A non-terminal synchronous response hands the transaction to the
	// reconciler; the request does not wait for the deferred poll.
	if !tx.Status.Terminal() && tx.ExternalTransactionID != "" {
		watch := h.reconciler.Watch(h.watchCtx, tx.ID, tx.ExternalTransactionID, tx.Status)
		go func() {
			outcome := <-watch
			if outcome.Err != nil {
				log.Printf("handler: reconciliation of %s failed: %v", outcome.TransactionID, outcome.Err)
			}
		}()
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *HTTPHandler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateTransactionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}

	err := h.checkout.UpdateTransactionStatus(r.Context(), id,
		domain.ParseTransactionStatus(req.Status), req.ExternalID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			writeJSON(w, http.StatusNotFound, FailureResponse{
				Code:    "TRANSACTION_NOT_FOUND",
				Message: "Transaction not found",
			})
			return
		}
		log.Printf("handler: update transaction status failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Code:    "INTERNAL_ERROR",
			Message: "internal error",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.FindAll(r.Context())
	if err != nil {
		log.Printf("handler: list products failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Code:    "INTERNAL_ERROR",
			Message: "internal error",
		})
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			ImgURL:      p.ImgURL,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) SeedProducts(w http.ResponseWriter, r *http.Request) {
	products := []domain.Product{
		{
			ID:          uuid.NewString(),
			Name:        "Marvelous Mug",
			Description: "A mug that keeps your coffee hot forever (not really, but it looks cool).",
			Price:       decimal.NewFromInt(25000),
			Stock:       100,
			ImgURL:      "https://images.unsplash.com/photo-1514228742587-6b1558fcca3d?auto=format&fit=crop&w=800&q=80",
		},
		{
			ID:          uuid.NewString(),
			Name:        "Fantastic T-Shirt",
			Description: "100% Cotton, 200% Awesome.",
			Price:       decimal.NewFromInt(55000),
			Stock:       50,
			ImgURL:      "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?auto=format&fit=crop&w=800&q=80",
		},
		{
			ID:          uuid.NewString(),
			Name:        "Super Sneakers",
			Description: "Run faster than your problems.",
			Price:       decimal.NewFromInt(120000),
			Stock:       20,
			ImgURL:      "https://images.unsplash.com/photo-1542291026-7eec264c27ff?auto=format&fit=crop&w=800&q=80",
		},
	}

	if err := h.products.Seed(r.Context(), products); err != nil {
		log.Printf("handler: seed products failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Code:    "INTERNAL_ERROR",
			Message: "internal error",
		})
		return
	}

	for _, p := range products {
		if err := h.cache.SetStock(r.Context(), p.ID, p.Stock); err != nil {
			log.Printf("handler: failed to mirror stock for %s: %v", p.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Products seeded successfully",
		"count":   len(products),
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                    tx.ID,
		Amount:                tx.Amount,
		Currency:              tx.Currency,
		Status:                string(tx.Status),
		Reference:             tx.Reference,
		ProductID:             tx.Product.ID,
		ExternalTransactionID: tx.ExternalTransactionID,
		CreatedAt:             tx.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
