package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/card-checkout/internal/adapter/gateway"
	"github.com/rl1809/card-checkout/internal/adapter/handler"
	"github.com/rl1809/card-checkout/internal/adapter/storage"
	"github.com/rl1809/card-checkout/internal/config"
	"github.com/rl1809/card-checkout/internal/core/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb)
	productAdapter := storage.NewMySQLProductAdapter(db)
	transactionAdapter := storage.NewMySQLTransactionAdapter(db)
	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.PrivateKey,
		cfg.Gateway.IntegrityKey,
		cfg.Gateway.Timeout,
	)

	// Sync stock mirror from the authoritative store
	products, err := productAdapter.FindAll(ctx)
	if err != nil {
		log.Fatalf("failed to load products: %v", err)
	}
	for _, p := range products {
		if err := redisAdapter.SetStock(ctx, p.ID, p.Stock); err != nil {
			log.Fatalf("failed to mirror stock for %s: %v", p.ID, err)
		}
	}
	log.Printf("mirrored stock for %d products", len(products))

	// Initialize services
	checkoutService := service.NewCheckoutService(productAdapter, transactionAdapter, gatewayClient, redisAdapter)
	reconciler := service.NewReconciler(gatewayClient, checkoutService, cfg.Reconciler.Delay)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(ctx, checkoutService, reconciler, productAdapter, redisAdapter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Cancel any reconciliation watches still waiting on their timer
	cancel()

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}
