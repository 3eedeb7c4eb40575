package db

import (
	"context"

	"github.com/ukydev/travel-bot/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TripCollection defines the interface for trip journal operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip models.Trip) error
	UpdateTripStatus(ctx context.Context, paymentID, status string, emitted int) error
	FindTripByPaymentID(ctx context.Context, paymentID string) (*models.Trip, error)
}

// mongoCollection is the subset of *mongo.Collection the journal uses.
type mongoCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}
