package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

func getMongoCollection(t *testing.T) *mongo.Collection {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("Mongo not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("Mongo not available: %v", err)
	}

	t.Cleanup(func() {
		client.Disconnect(context.Background())
	})

	return client.Database("ledger_test").Collection("items")
}

func TestMongoTryDecrement_Success(t *testing.T) {
	coll := getMongoCollection(t)
	ctx := context.Background()
	adapter := NewMongoAdapter(coll)

	item := newTestItem("mongo-item-1", 10)
	coll.DeleteOne(ctx, bson.M{"_id": item.ID})
	if err := adapter.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if err := adapter.CreateItem(ctx, item); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists on duplicate create, got: %v", err)
	}

	remaining, err := adapter.TryDecrement(ctx, item.ID, 4)
	if err != nil {
		t.Fatalf("TryDecrement failed: %v", err)
	}
	if remaining != 6 {
		t.Errorf("expected remaining 6, got %d", remaining)
	}

	stored, err := adapter.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if stored.Quantity != 6 {
		t.Errorf("expected stored quantity 6, got %d", stored.Quantity)
	}
	if !stored.Price.Equal(item.Price) {
		t.Errorf("price changed: expected %s, got %s", item.Price, stored.Price)
	}
}

func TestMongoTryDecrement_FailureKindsDistinct(t *testing.T) {
	coll := getMongoCollection(t)
	ctx := context.Background()
	adapter := NewMongoAdapter(coll)

	item := newTestItem("mongo-item-2", 2)
	coll.DeleteOne(ctx, bson.M{"_id": item.ID})
	coll.DeleteOne(ctx, bson.M{"_id": "mongo-missing"})
	if err := adapter.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	if _, err := adapter.TryDecrement(ctx, item.ID, 5); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}
	if _, err := adapter.TryDecrement(ctx, "mongo-missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}

	// Failed decrement left the quantity alone
	stored, _ := adapter.GetItem(ctx, item.ID)
	if stored.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", stored.Quantity)
	}
}

func TestMongoTryDecrement_Concurrent(t *testing.T) {
	coll := getMongoCollection(t)
	ctx := context.Background()
	adapter := NewMongoAdapter(coll)

	item := newTestItem("mongo-concurrent", 10)
	coll.DeleteOne(ctx, bson.M{"_id": item.ID})
	if err := adapter.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	totalRequests := 20
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := adapter.TryDecrement(ctx, item.ID, 1); err == nil {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 10 {
		t.Errorf("expected 10 successes, got %d", successCount.Load())
	}

	stored, _ := adapter.GetItem(ctx, item.ID)
	if stored.Quantity != 0 {
		t.Errorf("expected final quantity 0, got %d", stored.Quantity)
	}
}

func TestMongoSetQuantityAndList(t *testing.T) {
	coll := getMongoCollection(t)
	ctx := context.Background()
	adapter := NewMongoAdapter(coll)

	coll.Drop(ctx)

	adapter.CreateItem(ctx, newTestItem("mongo-low", 1))
	adapter.CreateItem(ctx, newTestItem("mongo-high", 50))

	if err := adapter.SetQuantity(ctx, "mongo-low", 3); err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	if err := adapter.SetQuantity(ctx, "mongo-missing", 3); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}

	items, err := adapter.ListItems(ctx, 10)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "mongo-high" {
		t.Errorf("expected only mongo-high, got %v", items)
	}
}
