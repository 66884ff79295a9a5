package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/driftndash/storefront/internal/adapter/storage"
	"github.com/driftndash/storefront/internal/config"
	"github.com/driftndash/storefront/internal/core/domain"
	"github.com/driftndash/storefront/internal/core/service"
)

const (
	itemID        = "loadgen-item"
	customerID    = "loadgen-customer"
	shippingID    = "loadgen-shipping"
	initialStock  = 20
	totalRequests = 50
)

// noopDispatcher keeps the load run independent of Kafka.
type noopDispatcher struct{}

func (noopDispatcher) Dispatch(ctx context.Context, msg domain.EmailMessage) error { return nil }

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	seed(ctx, db)

	logger := zap.NewNop()
	orderService := service.NewOrderService(
		storage.NewMySQLAdapter(db), storage.NewRedisAdapter(rdb), noopDispatcher{}, logger)

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := orderService.PlaceOrder(ctx, service.PlaceOrderRequest{
				RequestID:  fmt.Sprintf("loadgen-%d-%d", start.UnixNano(), n),
				CustomerID: customerID,
				ShippingID: shippingID,
				Lines:      []service.LineRequest{{ItemID: itemID, Quantity: 1}},
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD RUN RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("======================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: exactly %d orders succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	var finalStock int
	db.QueryRowContext(ctx, `SELECT quantity FROM stock WHERE item_id = ?`, itemID).Scan(&finalStock)
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: stock depleted to 0")
	} else {
		fmt.Printf("FAIL: expected stock 0, got %d\n", finalStock)
	}
}

func seed(ctx context.Context, db *sql.DB) {
	stmts := []string{
		`INSERT INTO customer (customer_id, full_name, email) VALUES (?, 'Load Gen', 'loadgen@example.com')
		 ON DUPLICATE KEY UPDATE full_name = full_name`,
		`INSERT INTO shipping (shipping_id, region, rate) VALUES (?, 'Metro', 50.00)
		 ON DUPLICATE KEY UPDATE region = region`,
		`INSERT INTO item (item_id, item_name, sell_price) VALUES (?, 'Load Gen Item', 10.00)
		 ON DUPLICATE KEY UPDATE item_name = item_name`,
	}
	args := [][]any{{customerID}, {shippingID}, {itemID}}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt, args[i]...); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO stock (item_id, quantity) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE quantity = ?`, itemID, initialStock, initialStock); err != nil {
		log.Fatalf("seed stock failed: %v", err)
	}
}
