package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/rl1809/card-checkout/internal/port"
)

// Client submits card authorizations to the payment gateway and polls
// transaction status. Authorize never fails loudly: every transport or
// parsing problem collapses into a synthetic ERROR response so the checkout
// orchestration is never interrupted by a network exception.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	privateKey   string
	integrityKey string
}

func NewClient(baseURL, privateKey, integrityKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		privateKey:   privateKey,
		integrityKey: integrityKey,
	}
}

type paymentMethod struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	Installments int    `json:"installments"`
}

type authorizePayload struct {
	AmountInCents   int64         `json:"amount_in_cents"`
	Currency        string        `json:"currency"`
	CustomerEmail   string        `json:"customer_email"`
	PaymentMethod   paymentMethod `json:"payment_method"`
	Reference       string        `json:"reference"`
	AcceptanceToken string        `json:"acceptance_token"`
	Signature       string        `json:"signature"`
}

// The gateway wraps every response body in a data envelope.
type transactionEnvelope struct {
	Data struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// AmountInCents converts a decimal amount to whole cents, rounding halves up.
func AmountInCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Signature computes the integrity signature the gateway verifies:
// hex(sha256(reference || cents || currency || integrityKey)), with the
// cents rendered as a plain decimal string and no delimiters. The
// concatenation order is fixed; reordering produces a rejected request.
func Signature(reference string, amount decimal.Decimal, currency, integrityKey string) string {
	raw := reference + strconv.FormatInt(AmountInCents(amount), 10) + currency + integrityKey
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (c *Client) Authorize(ctx context.Context, req port.AuthorizationRequest) port.PaymentResponse {
	payload := authorizePayload{
		AmountInCents: AmountInCents(req.Amount),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		PaymentMethod: paymentMethod{
			Type:         "CARD",
			Token:        req.CardToken,
			Installments: req.Installments,
		},
		Reference:       req.Reference,
		AcceptanceToken: req.AcceptanceToken,
		Signature:       Signature(req.Reference, req.Amount, req.Currency, c.integrityKey),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return c.errorResponse("marshal payload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return c.errorResponse("build request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.privateKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.errorResponse("submit authorization", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorResponse("submit authorization", fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var envelope transactionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return c.errorResponse("decode response", err)
	}

	log.Printf("gateway: authorization %s -> %s (%s)",
		envelope.Data.Reference, envelope.Data.Status, envelope.Data.ID)

	return port.PaymentResponse{
		ID:        envelope.Data.ID,
		Status:    domain.ParseTransactionStatus(envelope.Data.Status),
		Reference: envelope.Data.Reference,
	}
}

func (c *Client) StatusOf(ctx context.Context, externalID string) (domain.TransactionStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/"+externalID, nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.privateKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("poll status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("poll status: gateway returned %d", resp.StatusCode)
	}

	var envelope transactionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}

	return domain.ParseTransactionStatus(envelope.Data.Status), nil
}

func (c *Client) errorResponse(op string, err error) port.PaymentResponse {
	log.Printf("gateway: %s failed: %v", op, err)
	return port.PaymentResponse{
		ID:        "",
		Status:    domain.TransactionStatusError,
		Reference: "",
	}
}
