package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/auth"
	"github.com/ukydev/travel-bot/internal/config"
	"github.com/ukydev/travel-bot/internal/db"
	"github.com/ukydev/travel-bot/internal/handlers"
	"github.com/ukydev/travel-bot/internal/middleware"
	"github.com/ukydev/travel-bot/internal/models"
	"github.com/ukydev/travel-bot/internal/payment"
	"github.com/ukydev/travel-bot/internal/playback"
	"github.com/ukydev/travel-bot/internal/realtime"
	"github.com/ukydev/travel-bot/internal/realtime/mqttsink"
	"github.com/ukydev/travel-bot/internal/routing"
)

// StartTripEvent is the Socket.IO event that starts a simulated trip.
const StartTripEvent = "travel-bot"

// startTripHandler decodes a travel-bot payload and hands it to the manager.
func startTripHandler(ctx context.Context, starter interface {
	HandleStartTrip(context.Context, models.StartTripEvent) error
}) realtime.Handler {
	return func(payload json.RawMessage) {
		var ev models.StartTripEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.WithError(err).Error("Invalid travel-bot payload")
			return
		}
		if err := starter.HandleStartTrip(ctx, ev); err != nil && !errors.Is(err, playback.ErrEmptyRoute) {
			log.WithError(err).WithField("payment_id", ev.PaymentID).Warn("Trip was not started")
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Travel bot stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log.WithFields(log.Fields{
		"socket_io_server": cfg.SocketIOServer,
		"route_provider":   cfg.RouteProvider,
		"interval":         cfg.TickInterval,
		"payment_api_url":  cfg.PaymentAPIURL,
	}).Info("Starting travel bot")

	httpClient := &http.Client{}

	provider, err := routing.New(cfg.RouteProvider, httpClient, cfg.GoogleDirectionsURL, cfg.GoogleMapsAPIKey, cfg.OSRMBaseURL)
	if err != nil {
		return err
	}

	var tokens payment.TokenSource
	if cfg.PaymentJWTSecret != "" {
		svc, err := auth.NewService(cfg.PaymentJWTSecret, cfg.PaymentJWTExpiry)
		if err != nil {
			return err
		}
		tokens = svc
	}

	socket := realtime.New(cfg.SocketIOServer)
	emitters := playback.MultiEmitter{socket}

	if cfg.MQTTBroker != "" {
		sink, client, err := mqttsink.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		emitters = append(emitters, sink)
	}

	opts := playback.Options{
		Fetcher:  routing.NewService(provider),
		Emitter:  emitters,
		Status:   payment.NewClient(cfg.PaymentAPIURL, httpClient, tokens),
		Interval: cfg.TickInterval,
	}

	var history handlers.TripHistory
	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
		journal := db.NewTripCollection(client, cfg.MongoDB)
		opts.Journal = journal
		history = journal
	}

	manager := playback.NewManager(opts)
	socket.On(StartTripEvent, startTripHandler(ctx, manager))
	if err := socket.Connect(ctx); err != nil {
		return err
	}

	if cfg.HTTPPort != "" {
		srv, err := controlServer(cfg, manager, history)
		if err != nil {
			return err
		}
		go func() {
			log.WithField("port", cfg.HTTPPort).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("HTTP server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping trips")
	case <-socket.Done():
		log.Warn("Socket.IO connection lost, stopping trips")
	}

	manager.Shutdown()
	if err := socket.Close(); err != nil {
		log.WithError(err).Debug("Socket.IO close")
	}
	log.Info("Travel bot stopped")
	return nil
}

func controlServer(cfg *config.Config, manager *playback.Manager, history handlers.TripHistory) (*http.Server, error) {
	var controlAuth *auth.Service
	if cfg.ControlJWTSecret != "" {
		svc, err := auth.NewService(cfg.ControlJWTSecret, 0)
		if err != nil {
			return nil, err
		}
		controlAuth = svc
	}
	limiter := middleware.NewRateLimitMiddleware()
	limiter.TrustProxy = cfg.TrustProxy
	trips := handlers.NewTripHandler(manager)
	trips.History = history
	router := handlers.NewRouter(
		trips,
		middleware.NewAuthMiddleware(controlAuth),
		limiter,
	)
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
