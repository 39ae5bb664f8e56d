// Stress tool: fires concurrent checkouts for one product against a running
// server and reports the approved/declined/failed split. With more requests
// than stock it doubles as a check that stock never oversells.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	serverURL     = "http://localhost:8080"
	totalRequests = 50
	concurrency   = 10
)

type checkoutRequest struct {
	ProductID       string  `json:"productId"`
	CustomerName    string  `json:"customerName"`
	CustomerEmail   string  `json:"customerEmail"`
	CustomerPhone   string  `json:"customerPhone"`
	CustomerAddress string  `json:"customerAddress"`
	CustomerCity    string  `json:"customerCity"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	CardToken       string  `json:"cardToken"`
	Installments    int     `json:"installments"`
	AcceptanceToken string  `json:"acceptanceToken"`
}

type checkoutResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func main() {
	client := &http.Client{Timeout: 30 * time.Second}

	// Pick the first product from the catalog
	resp, err := client.Get(serverURL + "/api/products")
	if err != nil {
		log.Fatalf("failed to list products: %v", err)
	}
	var products []struct {
		ID    string  `json:"id"`
		Price float64 `json:"price,string"`
		Stock int     `json:"stock"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		log.Fatalf("failed to decode products: %v", err)
	}
	resp.Body.Close()
	if len(products) == 0 {
		log.Fatal("no products available, seed first: POST /api/products/seed")
	}
	product := products[0]
	log.Printf("target product %s (stock %d)", product.ID, product.Stock)

	var approved, rejected, failed atomic.Int32
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	start := time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(n int) {
			defer wg.Done()
			defer func() { <-sem }()

			body, _ := json.Marshal(checkoutRequest{
				ProductID:       product.ID,
				CustomerName:    fmt.Sprintf("Stress User %d", n),
				CustomerEmail:   fmt.Sprintf("stress-%d@test.local", n),
				CustomerPhone:   "3000000000",
				CustomerAddress: "Cra 1 # 1-1",
				CustomerCity:    "Bogota",
				Amount:          product.Price,
				Currency:        "COP",
				CardToken:       "tok_stress",
				Installments:    1,
				AcceptanceToken: "acc_stress",
			})

			resp, err := client.Post(serverURL+"/api/transactions", "application/json", bytes.NewReader(body))
			if err != nil {
				failed.Add(1)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusCreated {
				rejected.Add(1)
				return
			}

			var out checkoutResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				failed.Add(1)
				return
			}
			if out.Status == "APPROVED" {
				approved.Add(1)
			} else {
				rejected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("done in %s: approved=%d rejected=%d failed=%d",
		time.Since(start), approved.Load(), rejected.Load(), failed.Load())
	if int(approved.Load()) > product.Stock {
		log.Printf("OVERSOLD: %d approvals for %d units", approved.Load(), product.Stock)
	}
}
