package handlers

import (
	"net/http"

	"github.com/ukydev/travel-bot/internal/middleware"
)

// NewRouter wires the control API. authMW guards mutating requests; rate
// limiting applies to trip creation only.
func NewRouter(h *TripHandler, authMW *middleware.AuthMiddleware, rl *middleware.RateLimitMiddleware) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)

	trips := http.Handler(http.HandlerFunc(h.Trips))
	if rl != nil {
		limited := rl.RateLimit(30, 60)(trips)
		trips = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			h.Trips(w, r)
		})
	}
	mux.Handle("/api/trips", trips)
	mux.HandleFunc("/api/trips/", h.Trip)

	return authMW.Authenticate(mux)
}
