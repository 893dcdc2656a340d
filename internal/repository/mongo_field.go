package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFieldRepository implements domain.FieldRepository
type MongoFieldRepository struct {
	collection *mongo.Collection
}

func NewMongoFieldRepository(db *mongo.Database) *MongoFieldRepository {
	coll := db.Collection("fields")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_active", Value: 1}},
	})

	return &MongoFieldRepository{collection: coll}
}

func (r *MongoFieldRepository) Create(ctx context.Context, field *domain.Field) error {
	now := time.Now()
	field.CreatedAt = now
	field.UpdatedAt = now
	field.ID = ulid.Make().String()

	if _, err := r.collection.InsertOne(ctx, field); err != nil {
		return fmt.Errorf("failed to create field: %w", err)
	}
	return nil
}

func (r *MongoFieldRepository) GetByID(ctx context.Context, id string) (*domain.Field, error) {
	var field domain.Field
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&field)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrFieldNotFound
		}
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return &field, nil
}

func (r *MongoFieldRepository) GetActive(ctx context.Context) ([]*domain.Field, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fields []*domain.Field
	if err := cursor.All(ctx, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *MongoFieldRepository) SetSlotRates(ctx context.Context, id string, rates []domain.SlotRate) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"slot_rates": rates,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set slot rates: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrFieldNotFound
	}
	return nil
}

func (r *MongoFieldRepository) SetPhotoURL(ctx context.Context, id, url string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"photo_url":  url,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set photo url: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrFieldNotFound
	}
	return nil
}
