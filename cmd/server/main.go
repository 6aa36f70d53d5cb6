package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/stock-ledger/internal/adapter/handler"
	"github.com/rl1809/stock-ledger/internal/adapter/storage"
	"github.com/rl1809/stock-ledger/internal/auth"
	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/core/service"
	"github.com/rl1809/stock-ledger/internal/port"
)

const (
	workerCount = 10
	queueSize   = 10000
	tokenTTL    = 15 * time.Minute
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger store: Mongo when configured, in-memory otherwise.
	var store port.StockRepository = storage.NewMemoryAdapter()
	if mongoURI := os.Getenv("MONGO_URI"); mongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			log.Fatalf("failed to connect mongo: %v", err)
		}
		defer client.Disconnect(ctx)

		if err := client.Ping(ctx, nil); err != nil {
			log.Fatalf("failed to ping mongo: %v", err)
		}
		log.Println("connected to mongo")

		store = storage.NewMongoAdapter(
			client.Database(envOr("MONGO_DB", "ledger")).Collection("items"))
	}

	ledgerService := service.NewLedgerService(store)
	productHandler := handler.NewProductHandler(ledgerService)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", productHandler.HealthCheck)
	mux.HandleFunc("/products", productHandler.HandleProducts)

	// Inventory mutations are admin-gated when a token secret is set.
	productRoutes := productHandler.HandleProduct
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		tokens := auth.NewTokenManager([]byte(secret), tokenTTL)
		authService := auth.NewService(tokens)
		authHandler := handler.NewAuthHandler(authService)

		// Self-registration only creates regular users; the sole way to
		// obtain an admin account is the bootstrap credential pair.
		adminUser := os.Getenv("ADMIN_USERNAME")
		adminPass := os.Getenv("ADMIN_PASSWORD")
		if adminUser != "" && adminPass != "" {
			if err := authService.RegisterAdmin(ctx, adminUser, adminPass); err != nil {
				log.Fatalf("failed to seed admin account: %v", err)
			}
			log.Printf("seeded admin account %q", adminUser)
		}

		mux.HandleFunc("/auth/register", authHandler.Register)
		mux.HandleFunc("/auth/login", authHandler.Login)
		productRoutes = guardMutations(tokens, productHandler.HandleProduct)
		log.Println("auth enabled, inventory mutations require admin token")
	}
	mux.HandleFunc("/products/", productRoutes)

	// Flash path: redis-fronted decrement with durable MySQL orders,
	// enabled only when both stores are configured.
	var orderService *service.OrderService
	var wg sync.WaitGroup
	redisAddr := os.Getenv("REDIS_ADDR")
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if redisAddr != "" && mysqlDSN != "" {
		db, err := sql.Open("mysql", mysqlDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Println("connected to mysql")

		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		log.Println("connected to redis")

		cache := storage.NewRedisAdapter(rdb)
		orders := storage.NewMySQLAdapter(db)

		orderService = service.NewOrderService(cache, queueSize)
		flashHandler := handler.NewFlashHandler(orderService)
		mux.HandleFunc("/api/purchase", flashHandler.Purchase)

		for i := 0; i < workerCount; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				workerLoop(id, orderService.GetOrderQueue(), orders, cache)
			}(i)
		}
		log.Printf("started %d order workers", workerCount)
	}

	httpServer := &http.Server{
		Addr:    ":" + envOr("PORT", "8080"),
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	if orderService != nil {
		orderService.Close()
		wg.Wait()
		log.Println("workers stopped")
	}
}

// guardMutations requires an admin token for the inventory and restock
// sub-resources; reads and purchases stay open.
func guardMutations(tokens *auth.TokenManager, next http.HandlerFunc) http.HandlerFunc {
	guarded := auth.RequireRole(tokens, auth.RoleAdmin, next)
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/products/")
		_, action, _ := strings.Cut(rest, "/")
		if action == "inventory" || action == "restock" {
			guarded(w, r)
			return
		}
		next(w, r)
	}
}

func workerLoop(id int, queue <-chan domain.Order, db port.OrderRepository, cache port.CacheRepository) {
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := db.CreateOrder(ctx, order); err != nil {
			log.Printf("worker %d: failed to save order %s: %v", id, order.ID, err)

			// Rollback: restore stock in the cache.
			if _, rollbackErr := cache.IncrementStock(ctx, order.ItemID, order.Quantity); rollbackErr != nil {
				log.Printf("worker %d: CRITICAL rollback failed for order %s: %v", id, order.ID, rollbackErr)
			} else {
				log.Printf("worker %d: rolled back stock for order %s", id, order.ID)
			}
		} else {
			log.Printf("worker %d: saved order %s", id, order.ID)
		}

		cancel()
	}
}
