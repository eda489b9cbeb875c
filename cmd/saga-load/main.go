package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/order-saga/internal/adapter/handler/orderrpc"
	"github.com/rl1809/order-saga/internal/core/domain"
)

type settings struct {
	CartURL     string        `env:"CART_SERVICE_URL" envDefault:"http://localhost:3000"`
	OrderURL    string        `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:3001"`
	OrderGRPC   string        `env:"ORDER_SERVICE_GRPC" envDefault:"localhost:50051"`
	UseGRPC     bool          `env:"LOAD_USE_GRPC" envDefault:"false"`
	Orders      int           `env:"LOAD_ORDERS" envDefault:"50"`
	PaidTimeout time.Duration `env:"LOAD_PAID_TIMEOUT" envDefault:"2m"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func main() {
	cfg, err := env.ParseAs[settings]()
	if err != nil {
		log.Fatalf("invalid settings: %v", err)
	}
	ctx := context.Background()

	var rpc *orderrpc.OrderServiceClient
	if cfg.UseGRPC {
		conn, err := grpc.NewClient(cfg.OrderGRPC, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("failed to dial order service: %v", err)
		}
		defer conn.Close()
		rpc = orderrpc.NewOrderServiceClient(conn)
	}

	run := uuid.NewString()[:8]

	// Seed one cart per order
	for i := 0; i < cfg.Orders; i++ {
		if err := seedCart(ctx, cfg.CartURL, userID(run, i)); err != nil {
			log.Fatalf("failed to seed cart %d: %v", i, err)
		}
	}
	log.Printf("seeded %d carts", cfg.Orders)

	var (
		createdCount atomic.Int32
		failCount    atomic.Int32
		mu           sync.Mutex
		orderIDs     []int64
		wg           sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < cfg.Orders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			var id int64
			var err error
			if rpc != nil {
				var resp *orderrpc.CreateOrderResponse
				resp, err = rpc.CreateOrder(ctx, &orderrpc.CreateOrderRequest{UserID: userID(run, n), ShippingAddress: "221B Baker St"})
				if err == nil {
					id = resp.OrderID
				}
			} else {
				id, err = createOrder(ctx, cfg.OrderURL, userID(run, n))
			}
			if err != nil {
				failCount.Add(1)
				log.Printf("order %d failed: %v", n, err)
				return
			}

			createdCount.Add(1)
			mu.Lock()
			orderIDs = append(orderIDs, id)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	submitted := time.Since(start)

	paid := waitPaid(ctx, cfg.OrderURL, orderIDs, cfg.PaidTimeout)
	elapsed := time.Since(start)

	created := createdCount.Load()
	fmt.Println("========== SAGA LOAD RESULTS ==========")
	fmt.Printf("Orders Submitted: %d\n", cfg.Orders)
	fmt.Printf("Created:          %d\n", created)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Paid:             %d\n", paid)
	fmt.Printf("Submit Duration:  %v\n", submitted)
	fmt.Printf("Total Duration:   %v\n", elapsed)
	fmt.Println("========================================")

	if created == int32(cfg.Orders) {
		fmt.Printf("PASS: all %d orders created\n", created)
	} else {
		fmt.Printf("FAIL: expected %d orders created, got %d\n", cfg.Orders, created)
	}
	if paid == int(created) {
		fmt.Printf("PASS: all %d orders reached Paid\n", paid)
	} else {
		fmt.Printf("FAIL: expected %d orders Paid, got %d\n", created, paid)
	}
}

func userID(run string, n int) string {
	return fmt.Sprintf("load-%s-%d", run, n)
}

func seedCart(ctx context.Context, baseURL, user string) error {
	body, _ := json.Marshal(map[string]any{"productId": "p1", "quantity": 2, "price": 10.0})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/cart/"+user+"/items", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cart service returned status %d", resp.StatusCode)
	}
	return nil
}

func createOrder(ctx context.Context, baseURL, user string) (int64, error) {
	body, _ := json.Marshal(map[string]string{"userId": user, "shippingAddress": "221B Baker St"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	var out struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.OrderID, nil
}

// waitPaid polls every order until all are Paid or the timeout passes.
func waitPaid(ctx context.Context, baseURL string, ids []int64, timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	pending := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	for len(pending) > 0 && time.Now().Before(deadline) {
		for id := range pending {
			status, err := orderStatus(ctx, baseURL, id)
			if err != nil {
				continue
			}
			if status == domain.OrderStatusPaid {
				delete(pending, id)
			}
		}
		if len(pending) > 0 {
			time.Sleep(500 * time.Millisecond)
		}
	}
	return len(ids) - len(pending)
}

func orderStatus(ctx context.Context, baseURL string, id int64) (domain.OrderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/orders/%d", baseURL, id), nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", err
	}
	return order.Status, nil
}
