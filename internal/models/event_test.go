package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTripEvent_Unmarshal(t *testing.T) {
	raw := `{
		"paymentId": "pay_123",
		"driverLocation": {"latitude": 10.5, "longitude": 20.25},
		"requestServiceLocation": {"latitude": 11, "longitude": 21},
		"destinationLocation": {"latitude": 12.75, "longitude": 22.5},
		"name": "Alice"
	}`

	var ev StartTripEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	assert.Equal(t, "pay_123", ev.PaymentID)
	assert.Equal(t, Location{Latitude: 10.5, Longitude: 20.25}, ev.DriverLocation)
	assert.Equal(t, Location{Latitude: 12.75, Longitude: 22.5}, ev.DestinationLocation)
	assert.Equal(t, "Alice", ev.Name)
}

func TestPositionEvent_Wire(t *testing.T) {
	ev := PositionEvent{
		Event: TravelEvent("abc"),
		Data:  Location{Latitude: 10, Longitude: 20.1},
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"travel/abc","data":{"latitude":10,"longitude":20.1}}`, string(data))
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "10.000000,-20.500000", Location{Latitude: 10, Longitude: -20.5}.String())
}
