// Package playback advances a simulated vehicle along its waypoints on a timer
// and reports the trip as completed once the route is exhausted.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/models"
)

// DefaultTickInterval is the time between two position updates.
const DefaultTickInterval = 1000 * time.Millisecond

// State of a trip's playback.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Emitter publishes one position of a trip.
type Emitter interface {
	EmitPosition(paymentID string, loc models.Location) error
}

// StatusUpdater tells the payment service a trip has completed.
type StatusUpdater interface {
	MarkCompleted(ctx context.Context, paymentID string) error
}

// Journal records trip lifecycle changes. Failures never affect playback.
type Journal interface {
	InsertTrip(ctx context.Context, trip models.Trip) error
	UpdateTripStatus(ctx context.Context, paymentID, status string, emitted int) error
}

// MultiEmitter fans a position out to every sink and joins their errors.
type MultiEmitter []Emitter

func (m MultiEmitter) EmitPosition(paymentID string, loc models.Location) error {
	var errs []error
	for _, e := range m {
		if err := e.EmitPosition(paymentID, loc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Driver owns the cursor and ticker of a single trip.
type Driver struct {
	paymentID string
	path      []models.Location
	interval  time.Duration
	newTicker TickerFactory
	emitter   Emitter
	status    StatusUpdater
	journal   Journal

	mu      sync.RWMutex
	state   State
	cursor  int
	started time.Time

	// outbox carries waypoints from the tick loop to the emitting goroutine
	// so a slow sink never delays a tick.
	outbox  chan models.Location
	drained chan struct{}

	done chan struct{}
}

// NewDriver prepares playback of path for paymentID. The driver starts Idle.
func NewDriver(paymentID string, path []models.Location, interval time.Duration, emitter Emitter, status StatusUpdater) *Driver {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Driver{
		paymentID: paymentID,
		path:      path,
		interval:  interval,
		newTicker: NewTimeTicker,
		emitter:   emitter,
		status:    status,
		done:      make(chan struct{}),
	}
}

// PaymentID identifies the trip.
func (d *Driver) PaymentID() string { return d.paymentID }

// Path returns the waypoint sequence. Callers must not modify it.
func (d *Driver) Path() []models.Location { return d.path }

// Interval returns the tick interval.
func (d *Driver) Interval() time.Duration { return d.interval }

// Done is closed once Run has returned.
func (d *Driver) Done() <-chan struct{} { return d.done }

// State returns the current playback state.
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Cursor returns the index of the next waypoint to emit.
func (d *Driver) Cursor() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursor
}

// StartedAt returns when playback entered Running.
func (d *Driver) StartedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.started
}

// Run plays the route back and blocks until the trip completes or ctx is
// cancelled. A cancelled trip sends no status update.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.done)

	d.mu.Lock()
	if d.state != Idle {
		d.mu.Unlock()
		return errors.New("playback already started")
	}
	d.state = Running
	d.started = time.Now()
	d.mu.Unlock()

	logger := log.WithField("payment_id", d.paymentID)
	logger.WithFields(log.Fields{
		"waypoints": len(d.path),
		"interval":  d.interval,
	}).Info("Starting trip playback")

	d.outbox = make(chan models.Location, len(d.path))
	d.drained = make(chan struct{})
	go d.pump(logger)

	ticker := d.newTicker(d.interval)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			d.flush()
			d.setState(Cancelled)
			logger.Warn("Trip playback cancelled")
			d.record(context.WithoutCancel(ctx), models.TripStatusCancelled)
			return ctx.Err()
		case <-ticker.C():
			if d.tick(logger) {
				continue
			}
			ticker.Stop()
			d.flush()
			d.complete(context.WithoutCancel(ctx), logger)
			return nil
		}
	}
}

// tick queues the waypoint under the cursor and advances it. It reports false,
// without emitting, once the route is exhausted.
func (d *Driver) tick(logger *log.Entry) bool {
	d.mu.RLock()
	cursor := d.cursor
	d.mu.RUnlock()

	if cursor >= len(d.path) {
		return false
	}

	loc := d.path[cursor]
	logger.WithFields(log.Fields{
		"cursor":    cursor,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	}).Debug("Sending update")
	d.outbox <- loc

	d.mu.Lock()
	d.cursor++
	d.mu.Unlock()
	return true
}

// pump emits queued waypoints in order until the outbox is closed.
func (d *Driver) pump(logger *log.Entry) {
	defer close(d.drained)
	for loc := range d.outbox {
		if err := d.emitter.EmitPosition(d.paymentID, loc); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"latitude":  loc.Latitude,
				"longitude": loc.Longitude,
			}).Error("Failed to emit position")
		}
	}
}

// flush closes the outbox and waits until every queued waypoint was emitted.
func (d *Driver) flush() {
	close(d.outbox)
	<-d.drained
}

func (d *Driver) complete(ctx context.Context, logger *log.Entry) {
	d.setState(Completed)
	logger.Info("Journey completed")

	if err := d.status.MarkCompleted(ctx, d.paymentID); err != nil {
		logger.WithError(err).Error("Error updating payment status")
	} else {
		logger.Info("Payment status updated to completed")
	}
	d.record(ctx, models.TripStatusCompleted)
}

func (d *Driver) record(ctx context.Context, status string) {
	if d.journal == nil {
		return
	}
	if err := d.journal.UpdateTripStatus(ctx, d.paymentID, status, d.Cursor()); err != nil {
		log.WithError(err).WithField("payment_id", d.paymentID).Warn("Failed to journal trip status")
	}
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}
