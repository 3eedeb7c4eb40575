package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/travel-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrTripNotFound is returned when no journal entry matches a payment id.
var ErrTripNotFound = errors.New("trip not found")

// TripsCollectionName is the collection holding the trip journal.
const TripsCollectionName = "trips"

// ConnectMongo connects to MongoDB at uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for trip journal operations.
type MongoCollection struct {
	Collection mongoCollection
	now        func() time.Time
}

// NewTripCollection returns the journal stored in database dbName.
func NewTripCollection(client *mongo.Client, dbName string) *MongoCollection {
	return &MongoCollection{Collection: client.Database(dbName).Collection(TripsCollectionName)}
}

func (c *MongoCollection) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// InsertTrip inserts a trip record into the collection.
func (c *MongoCollection) InsertTrip(ctx context.Context, trip models.Trip) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := c.clock()
	trip.CreatedAt = now
	trip.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, trip)
	return err
}

// UpdateTripStatus sets the status of the latest running journal entry for paymentID.
func (c *MongoCollection) UpdateTripStatus(ctx context.Context, paymentID, status string, emitted int) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := c.clock()
	filter := bson.M{"payment_id": paymentID, "status": models.TripStatusRunning}
	update := bson.M{"$set": bson.M{
		"status":     status,
		"emitted":    emitted,
		"end_time":   now,
		"updated_at": now,
	}}
	result, err := c.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTripNotFound
	}
	return nil
}

// FindTripByPaymentID returns the most recent journal entry for paymentID.
// It backs the control API lookup of finished trips; playback never reads the
// journal.
func (c *MongoCollection) FindTripByPaymentID(ctx context.Context, paymentID string) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var trip models.Trip
	err := c.Collection.FindOne(ctx, bson.M{"payment_id": paymentID}, opts).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &trip, nil
}
