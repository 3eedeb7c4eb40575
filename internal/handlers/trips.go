package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/db"
	"github.com/ukydev/travel-bot/internal/models"
	"github.com/ukydev/travel-bot/internal/playback"
	"github.com/ukydev/travel-bot/internal/polyline"
)

// maxStartBodyBytes bounds the start-trip request body.
const maxStartBodyBytes = 64 << 10

// TripManager is the part of playback.Manager the handlers use.
type TripManager interface {
	HandleStartTrip(ctx context.Context, ev models.StartTripEvent) error
	Get(paymentID string) *playback.Driver
	Active() []*playback.Driver
}

// TripHistory looks up finished trips in the journal.
type TripHistory interface {
	FindTripByPaymentID(ctx context.Context, paymentID string) (*models.Trip, error)
}

// TripHandler serves the trip control API
type TripHandler struct {
	manager TripManager

	// History, when set, answers GET /api/trips/{paymentId} for trips that
	// are no longer running.
	History TripHistory
}

// NewTripHandler creates a new trip handler
func NewTripHandler(manager TripManager) *TripHandler {
	return &TripHandler{manager: manager}
}

// TripStatus describes a running trip.
type TripStatus struct {
	PaymentID string    `json:"payment_id"`
	State     string    `json:"state"`
	Cursor    int       `json:"cursor"`
	Waypoints int       `json:"waypoints"`
	Interval  string    `json:"interval"`
	StartedAt time.Time `json:"started_at"`
	Route     string    `json:"route,omitempty"`
}

func tripStatus(d *playback.Driver) TripStatus {
	return TripStatus{
		PaymentID: d.PaymentID(),
		State:     d.State().String(),
		Cursor:    d.Cursor(),
		Waypoints: len(d.Path()),
		Interval:  d.Interval().String(),
		StartedAt: d.StartedAt(),
	}
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Trips handles GET and POST on /api/trips
func (h *TripHandler) Trips(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.start(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Trip handles GET /api/trips/{paymentId}
func (h *TripHandler) Trip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	paymentID := strings.TrimPrefix(r.URL.Path, "/api/trips/")
	if paymentID == "" || strings.Contains(paymentID, "/") {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}

	d := h.manager.Get(paymentID)
	if d == nil {
		h.journaled(w, r, paymentID)
		return
	}
	status := tripStatus(d)
	status.Route = polyline.Encode(d.Path())
	writeJSON(w, http.StatusOK, status)
}

func (h *TripHandler) journaled(w http.ResponseWriter, r *http.Request, paymentID string) {
	if h.History == nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	trip, err := h.History.FindTripByPaymentID(r.Context(), paymentID)
	if errors.Is(err, db.ErrTripNotFound) {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).WithField("payment_id", paymentID).Error("Failed to read trip journal")
		http.Error(w, "Failed to read trip journal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) list(w http.ResponseWriter, r *http.Request) {
	active := h.manager.Active()
	trips := make([]TripStatus, 0, len(active))
	for _, d := range active {
		trips = append(trips, tripStatus(d))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trips": trips,
		"count": len(trips),
	})
}

func (h *TripHandler) start(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStartBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var ev models.StartTripEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if ev.PaymentID == "" {
		http.Error(w, "paymentId is required", http.StatusBadRequest)
		return
	}
	if h.manager.Get(ev.PaymentID) != nil {
		http.Error(w, "Trip already running", http.StatusConflict)
		return
	}

	// The route fetch outlives the request.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.manager.HandleStartTrip(ctx, ev); err != nil && !errors.Is(err, playback.ErrEmptyRoute) {
			log.WithError(err).WithField("payment_id", ev.PaymentID).Warn("Trip was not started")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"payment_id": ev.PaymentID,
		"status":     "accepted",
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
