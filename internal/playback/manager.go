package playback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/models"
	"github.com/ukydev/travel-bot/internal/routing"
)

var (
	ErrMissingPaymentID = errors.New("payment id is required")
	ErrTripExists       = errors.New("trip already running")
	ErrEmptyRoute       = errors.New("no route available")
	ErrShuttingDown     = errors.New("manager is shutting down")
)

// Options configures a Manager.
type Options struct {
	Fetcher   routing.Fetcher
	Emitter   Emitter
	Status    StatusUpdater
	Journal   Journal
	Interval  time.Duration
	NewTicker TickerFactory
}

// Manager runs one Driver per payment id. Trips share nothing but the
// emitter and status updater.
type Manager struct {
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	trips map[string]*Driver
	wg    sync.WaitGroup
}

// NewManager creates a manager. Zero Interval means DefaultTickInterval.
func NewManager(opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = DefaultTickInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		trips:  make(map[string]*Driver),
	}
}

// HandleStartTrip fetches the route for ev and starts playback.
func (m *Manager) HandleStartTrip(ctx context.Context, ev models.StartTripEvent) error {
	logger := log.WithField("payment_id", ev.PaymentID)
	if ev.PaymentID == "" {
		logger.Warn("Ignoring start trip event without payment id")
		return ErrMissingPaymentID
	}
	if m.Get(ev.PaymentID) != nil {
		logger.Warn("Trip already running, ignoring start trip event")
		return ErrTripExists
	}

	logger.WithFields(log.Fields{
		"name":        ev.Name,
		"origin":      ev.DriverLocation.String(),
		"destination": ev.DestinationLocation.String(),
	}).Info("Received travel-bot event")

	path := m.opts.Fetcher.FetchRoute(ctx, ev.DriverLocation, ev.DestinationLocation)
	_, err := m.Start(ctx, ev, path)
	return err
}

// Start begins playback of path for ev. An empty path aborts the trip before
// it ever runs.
func (m *Manager) Start(ctx context.Context, ev models.StartTripEvent, path []models.Location) (*Driver, error) {
	logger := log.WithField("payment_id", ev.PaymentID)
	if ev.PaymentID == "" {
		return nil, ErrMissingPaymentID
	}
	if len(path) == 0 {
		logger.Error("Failed to fetch a valid route, stopping simulation")
		m.journal(ctx, ev, 0, models.TripStatusNoRoute)
		return nil, ErrEmptyRoute
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if _, exists := m.trips[ev.PaymentID]; exists {
		m.mu.Unlock()
		logger.Warn("Trip already running, ignoring start trip event")
		return nil, ErrTripExists
	}
	d := NewDriver(ev.PaymentID, path, m.opts.Interval, m.opts.Emitter, m.opts.Status)
	d.newTicker = m.opts.NewTicker
	d.journal = m.opts.Journal
	m.trips[ev.PaymentID] = d
	m.wg.Add(1)
	m.mu.Unlock()

	m.journal(ctx, ev, len(path), models.TripStatusRunning)

	go func() {
		defer m.wg.Done()
		defer m.remove(d)
		d.Run(m.ctx)
	}()
	return d, nil
}

func (m *Manager) journal(ctx context.Context, ev models.StartTripEvent, waypoints int, status string) {
	if m.opts.Journal == nil {
		return
	}
	now := time.Now()
	trip := models.Trip{
		PaymentID:     ev.PaymentID,
		Name:          ev.Name,
		StartLocation: ev.DriverLocation,
		EndLocation:   ev.DestinationLocation,
		Waypoints:     waypoints,
		Status:        status,
		StartTime:     now,
	}
	if status == models.TripStatusNoRoute {
		trip.EndTime = now
	}
	if err := m.opts.Journal.InsertTrip(context.WithoutCancel(ctx), trip); err != nil {
		log.WithError(err).WithField("payment_id", ev.PaymentID).Warn("Failed to journal trip")
	}
}

func (m *Manager) remove(d *Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trips[d.paymentID] == d {
		delete(m.trips, d.paymentID)
	}
}

// Get returns the running trip for paymentID, or nil.
func (m *Manager) Get(paymentID string) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trips[paymentID]
}

// Active lists running trips ordered by payment id.
func (m *Manager) Active() []*Driver {
	m.mu.Lock()
	out := make([]*Driver, 0, len(m.trips))
	for _, d := range m.trips {
		out = append(out, d)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].paymentID < out[j].paymentID })
	return out
}

// Wait blocks until every started trip has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels running trips and waits for them to stop.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
