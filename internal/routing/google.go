package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ukydev/travel-bot/internal/models"
)

// DefaultGoogleDirectionsURL is the Directions API endpoint.
const DefaultGoogleDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"

// GoogleDirections fetches routes from the Google Directions API.
type GoogleDirections struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

func (g *GoogleDirections) Name() string {
	return "google"
}

// EncodedRoute returns the overview polyline of the first route.
func (g *GoogleDirections) EncodedRoute(ctx context.Context, origin, destination models.Location) (string, error) {
	base := g.BaseURL
	if base == "" {
		base = DefaultGoogleDirectionsURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid directions url: %w", err)
	}
	q := u.Query()
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())
	q.Set("key", g.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directions status %d", resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode directions response: %w", err)
	}
	if body.Status == "ZERO_RESULTS" || len(body.Routes) == 0 {
		return "", ErrNoRoute
	}
	if body.Status != "" && body.Status != "OK" {
		return "", fmt.Errorf("directions status %s: %s", body.Status, body.ErrorMessage)
	}
	return body.Routes[0].OverviewPolyline.Points, nil
}
