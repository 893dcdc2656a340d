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

// MongoPackageSessionRepository implements domain.PackageSessionRepository
type MongoPackageSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoPackageSessionRepository(db *mongo.Database) *MongoPackageSessionRepository {
	coll := db.Collection("package_sessions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "package_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "schedule_id", Value: 1}}},
	})

	return &MongoPackageSessionRepository{collection: coll}
}

func (r *MongoPackageSessionRepository) CreateMany(ctx context.Context, sessions []*domain.PackageSession) error {
	if len(sessions) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(sessions))
	for _, s := range sessions {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		s.ID = ulid.Make().String()
		docs = append(docs, s)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create package sessions: %w", err)
	}
	return nil
}

func (r *MongoPackageSessionRepository) GetByID(ctx context.Context, id string) (*domain.PackageSession, error) {
	var session domain.PackageSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get package session: %w", err)
	}
	return &session, nil
}

func (r *MongoPackageSessionRepository) GetByPackage(ctx context.Context, packageID string) ([]*domain.PackageSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"package_id": packageID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*domain.PackageSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *MongoPackageSessionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"session_status": status,
			"updated_at":     time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
