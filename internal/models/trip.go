package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Journal statuses recorded for a trip.
const (
	TripStatusRunning   = "running"
	TripStatusCompleted = "completed"
	TripStatusNoRoute   = "no_route"
	TripStatusCancelled = "cancelled"
)

// Trip is the journal record of one simulated journey.
type Trip struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PaymentID     string             `json:"payment_id" bson:"payment_id"`
	Name          string             `json:"name" bson:"name"`
	StartLocation Location           `json:"start_location" bson:"start_location"`
	EndLocation   Location           `json:"end_location" bson:"end_location"`
	Waypoints     int                `json:"waypoints" bson:"waypoints"`
	Emitted       int                `json:"emitted" bson:"emitted"`
	Status        string             `json:"status" bson:"status"` // "running", "completed", "no_route", "cancelled"
	StartTime     time.Time          `json:"start_time" bson:"start_time"`
	EndTime       time.Time          `json:"end_time,omitempty" bson:"end_time,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
