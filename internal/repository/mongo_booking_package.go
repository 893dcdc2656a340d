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

// MongoBookingPackageRepository implements domain.BookingPackageRepository
type MongoBookingPackageRepository struct {
	collection *mongo.Collection
}

func NewMongoBookingPackageRepository(db *mongo.Database) *MongoBookingPackageRepository {
	coll := db.Collection("booking_packages")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_status", Value: 1}}},
		{Keys: bson.D{{Key: "field_id", Value: 1}}},
	})

	return &MongoBookingPackageRepository{collection: coll}
}

func (r *MongoBookingPackageRepository) Create(ctx context.Context, pkg *domain.BookingPackage) error {
	now := time.Now()
	if pkg.CreatedAt.IsZero() {
		pkg.CreatedAt = now
	}
	pkg.UpdatedAt = now
	pkg.ID = ulid.Make().String()

	if _, err := r.collection.InsertOne(ctx, pkg); err != nil {
		return fmt.Errorf("failed to create booking package: %w", err)
	}
	return nil
}

func (r *MongoBookingPackageRepository) GetByID(ctx context.Context, id string) (*domain.BookingPackage, error) {
	var pkg domain.BookingPackage
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&pkg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to get booking package: %w", err)
	}
	return &pkg, nil
}

func (r *MongoBookingPackageRepository) GetByCustomer(ctx context.Context, customerID string) ([]*domain.BookingPackage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var packages []*domain.BookingPackage
	if err := cursor.All(ctx, &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *MongoBookingPackageRepository) ListByStatus(ctx context.Context, bookingStatus string) ([]*domain.BookingPackage, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"booking_status": bookingStatus})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var packages []*domain.BookingPackage
	if err := cursor.All(ctx, &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *MongoBookingPackageRepository) UpdateStatus(ctx context.Context, id, bookingStatus, paymentStatus string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"booking_status": bookingStatus,
			"payment_status": paymentStatus,
			"updated_at":     time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update package status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

func (r *MongoBookingPackageRepository) UpdateTotalPrice(ctx context.Context, id string, total int64) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"total_price": total,
			"updated_at":  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update package total: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

func (r *MongoBookingPackageRepository) SetRefundQR(ctx context.Context, id, qrURL string, expiresAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"refund_qr_url":        qrURL,
			"refund_qr_expires_at": expiresAt,
			"updated_at":           time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set refund QR: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}
