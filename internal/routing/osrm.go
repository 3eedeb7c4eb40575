package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ukydev/travel-bot/internal/models"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org"

// OSRM fetches routes from an OSRM server with polyline geometries.
type OSRM struct {
	Client  *http.Client
	BaseURL string
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRM) Name() string {
	return "osrm"
}

// EncodedRoute returns the geometry of the first route. OSRM takes lon,lat order.
func (o *OSRM) EncodedRoute(ctx context.Context, origin, destination models.Location) (string, error) {
	base := o.BaseURL
	if base == "" {
		base = DefaultOSRMURL
	}
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=polyline",
		strings.TrimRight(base, "/"),
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("osrm request failed: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("osrm status %d: %w", resp.StatusCode, err)
	}
	if body.Code == "NoRoute" || (resp.StatusCode == http.StatusOK && len(body.Routes) == 0) {
		return "", ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	return body.Routes[0].Geometry, nil
}
