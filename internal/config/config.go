// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting of the travel bot.
type Config struct {
	SocketIOServer string

	RouteProvider       string
	GoogleMapsAPIKey    string
	GoogleDirectionsURL string
	OSRMBaseURL         string

	TickInterval time.Duration

	PaymentAPIURL    string
	PaymentJWTSecret string
	PaymentJWTExpiry time.Duration

	MQTTBroker   string
	MQTTClientID string

	MongoURI string
	MongoDB  string

	HTTPPort         string
	ControlJWTSecret string
	TrustProxy       bool

	LogLevel  string
	LogFormat string
}

// Load reads a .env file when present, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		SocketIOServer:      getenv("SOCKET_IO_SERVER", "http://localhost:3000"),
		RouteProvider:       getenv("ROUTE_PROVIDER", "google"),
		GoogleMapsAPIKey:    os.Getenv("GOOGLE_MAPS_API_KEY"),
		GoogleDirectionsURL: getenv("GOOGLE_DIRECTIONS_URL", "https://maps.googleapis.com/maps/api/directions/json"),
		OSRMBaseURL:         getenv("OSRM_BASE_URL", "https://router.project-osrm.org"),
		TickInterval:        1000 * time.Millisecond,
		PaymentJWTSecret:    os.Getenv("PAYMENT_JWT_SECRET"),
		PaymentJWTExpiry:    5 * time.Minute,
		MQTTBroker:          os.Getenv("MQTT_BROKER"),
		MQTTClientID:        getenv("MQTT_CLIENT_ID", "travel-bot"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getenv("MONGO_DB", "travelbot"),
		HTTPPort:            "8081",
		ControlJWTSecret:    os.Getenv("CONTROL_JWT_SECRET"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogFormat:           os.Getenv("LOG_FORMAT"),
	}
	cfg.PaymentAPIURL = getenv("PAYMENT_API_URL", cfg.SocketIOServer)

	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		cfg.TrustProxy = b
	}
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS %q: %w", v, err)
		}
		cfg.TickInterval = time.Duration(n) * time.Millisecond
	}
	if v := os.Getenv("PAYMENT_JWT_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PAYMENT_JWT_EXPIRY %q: %w", v, err)
		}
		cfg.PaymentJWTExpiry = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.SocketIOServer == "" {
		return errors.New("SOCKET_IO_SERVER is required")
	}
	switch c.RouteProvider {
	case "google":
		if c.GoogleMapsAPIKey == "" {
			return errors.New("GOOGLE_MAPS_API_KEY is required for the google route provider")
		}
	case "osrm":
	default:
		return fmt.Errorf("unknown ROUTE_PROVIDER %q", c.RouteProvider)
	}
	return nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
