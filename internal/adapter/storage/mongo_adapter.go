package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

// MongoAdapter keeps the catalog in a document collection. TryDecrement maps
// onto findOneAndUpdate with a quantity precondition in the filter, which the
// server applies atomically per document.
type MongoAdapter struct {
	coll *mongo.Collection
}

func NewMongoAdapter(coll *mongo.Collection) *MongoAdapter {
	return &MongoAdapter{coll: coll}
}

type itemDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	Price       string    `bson:"price"`
	Quantity    int       `bson:"quantity"`
	Version     int       `bson:"version"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toDoc(item domain.Item) itemDoc {
	return itemDoc{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price.String(),
		Quantity:    item.Quantity,
		Version:     item.Version,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func (d itemDoc) toDomain() (domain.Item, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("parse price for item %s: %w", d.ID, err)
	}
	return domain.Item{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Quantity:    d.Quantity,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (m *MongoAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	if _, err := m.coll.InsertOne(ctx, toDoc(item)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var doc itemDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}

	item, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *MongoAdapter) ListItems(ctx context.Context, minStock int) ([]domain.Item, error) {
	filter := bson.M{}
	if minStock >= 0 {
		filter["quantity"] = bson.M{"$gte": minStock}
	}

	cursor, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []domain.Item
	for cursor.Next(ctx) {
		var doc itemDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		item, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (m *MongoAdapter) SetQuantity(ctx context.Context, id string, quantity int) error {
	result, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"quantity": quantity, "updated_at": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("set quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MongoAdapter) TryDecrement(ctx context.Context, id string, amount int) (int, error) {
	var doc itemDoc
	err := m.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"quantity": -amount, "version": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		// The precondition filter hides whether the document exists at
		// all; a second lookup tells the two failures apart.
		count, countErr := m.coll.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return 0, fmt.Errorf("count item: %w", countErr)
		}
		if count == 0 {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("decrement item: %w", err)
	}
	return doc.Quantity, nil
}

func (m *MongoAdapter) IncrementStock(ctx context.Context, id string, amount int) (int, error) {
	var doc itemDoc
	err := m.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"quantity": amount, "version": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment item: %w", err)
	}
	return doc.Quantity, nil
}
