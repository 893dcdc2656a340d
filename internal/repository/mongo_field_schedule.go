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

// MongoFieldScheduleRepository implements domain.FieldScheduleRepository
type MongoFieldScheduleRepository struct {
	collection *mongo.Collection
}

func NewMongoFieldScheduleRepository(db *mongo.Database) *MongoFieldScheduleRepository {
	coll := db.Collection("field_schedules")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "field_id", Value: 1}, {Key: "date", Value: 1}, {Key: "slot_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "field_id", Value: 1}, {Key: "status", Value: 1}}},
	})

	return &MongoFieldScheduleRepository{collection: coll}
}

func (r *MongoFieldScheduleRepository) CreateMany(ctx context.Context, records []*domain.FieldSchedule) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		rec.ID = ulid.Make().String()
		docs = append(docs, rec)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create schedule records: %w", err)
	}
	return nil
}

func (r *MongoFieldScheduleRepository) GetByID(ctx context.Context, id string) (*domain.FieldSchedule, error) {
	var rec domain.FieldSchedule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule record: %w", err)
	}
	return &rec, nil
}

func (r *MongoFieldScheduleRepository) GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]*domain.FieldSchedule, error) {
	filter := bson.M{
		"field_id": fieldID,
		"date": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.FieldSchedule
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *MongoFieldScheduleRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update schedule status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}
