package models

// StartTripEvent is the inbound "travel-bot" payload that starts one simulated trip.
type StartTripEvent struct {
	PaymentID              string   `json:"paymentId"`
	DriverLocation         Location `json:"driverLocation"`
	RequestServiceLocation Location `json:"requestServiceLocation"`
	DestinationLocation    Location `json:"destinationLocation"`
	Name                   string   `json:"name"`
}

// PositionEvent is the envelope emitted once per playback tick.
type PositionEvent struct {
	Event string   `json:"event"`
	Data  Location `json:"data"`
}

// StatusUpdate is the body sent to the payment service when a trip completes.
type StatusUpdate struct {
	Status string `json:"status"`
}

// TravelEvent returns the event key for position updates of a trip.
func TravelEvent(paymentID string) string {
	return "travel/" + paymentID
}
