// Package routing fetches driving routes from a mapping provider and decodes
// them into waypoints.
package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/models"
	"github.com/ukydev/travel-bot/internal/polyline"
)

// ErrNoRoute is returned by a provider that answered but found no route.
var ErrNoRoute = errors.New("no route found")

// Fetcher returns the waypoints between two locations. Every failure is
// reported as an empty sequence.
type Fetcher interface {
	FetchRoute(ctx context.Context, origin, destination models.Location) []models.Location
}

// Provider is a mapping backend returning an encoded route geometry.
type Provider interface {
	Name() string
	EncodedRoute(ctx context.Context, origin, destination models.Location) (string, error)
}

// Service adapts a Provider to the Fetcher contract.
type Service struct {
	Provider Provider
}

// NewService wraps a provider.
func NewService(p Provider) *Service {
	return &Service{Provider: p}
}

// FetchRoute asks the provider for a route and decodes it. Provider errors,
// decode errors and empty routes all come back as an empty sequence.
func (s *Service) FetchRoute(ctx context.Context, origin, destination models.Location) []models.Location {
	fields := log.Fields{
		"provider":    s.Provider.Name(),
		"origin":      origin.String(),
		"destination": destination.String(),
	}

	encoded, err := s.Provider.EncodedRoute(ctx, origin, destination)
	if err != nil {
		log.WithFields(fields).WithField("reason", reason(err)).WithError(err).Error("Failed to fetch route")
		return []models.Location{}
	}

	path, err := polyline.Decode(encoded)
	if err != nil {
		log.WithFields(fields).WithField("reason", reason(err)).WithError(err).Error("Failed to decode route")
		return []models.Location{}
	}

	log.WithFields(fields).WithField("waypoints", len(path)).Debug("Fetched route")
	return path
}

func reason(err error) string {
	var decodeErr *polyline.DecodeError
	switch {
	case errors.Is(err, ErrNoRoute):
		return "no_route"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "transport"
	}
}

// New builds the provider named by kind ("google" or "osrm").
func New(kind string, client *http.Client, googleURL, apiKey, osrmURL string) (Provider, error) {
	if client == nil {
		client = http.DefaultClient
	}
	switch kind {
	case "google", "":
		return &GoogleDirections{Client: client, BaseURL: googleURL, APIKey: apiKey}, nil
	case "osrm":
		return &OSRM{Client: client, BaseURL: osrmURL}, nil
	default:
		return nil, fmt.Errorf("unknown route provider %q", kind)
	}
}
