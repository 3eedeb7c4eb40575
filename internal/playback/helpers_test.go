package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ukydev/travel-bot/internal/models"
)

type manualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire delivers one tick and reports whether the driver took it.
func (t *manualTicker) fire(at time.Time) bool {
	select {
	case t.c <- at:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

type emission struct {
	paymentID string
	loc       models.Location
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emission
	at     []time.Time
	ch     chan emission
	err    error
	gate   chan struct{}
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{ch: make(chan emission, 64)}
}

func (r *recordingEmitter) EmitPosition(paymentID string, loc models.Location) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.events = append(r.events, emission{paymentID: paymentID, loc: loc})
	r.at = append(r.at, time.Now())
	r.mu.Unlock()
	r.ch <- emission{paymentID: paymentID, loc: loc}
	return r.err
}

func (r *recordingEmitter) For(paymentID string) []models.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Location
	for _, e := range r.events {
		if e.paymentID == paymentID {
			out = append(out, e.loc)
		}
	}
	return out
}

func (r *recordingEmitter) Times() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.at...)
}

type recordingStatus struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
	err   error
}

func newRecordingStatus() *recordingStatus {
	return &recordingStatus{ch: make(chan string, 16)}
}

func (r *recordingStatus) MarkCompleted(ctx context.Context, paymentID string) error {
	r.mu.Lock()
	r.calls = append(r.calls, paymentID)
	r.mu.Unlock()
	r.ch <- paymentID
	return r.err
}

func (r *recordingStatus) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type staticFetcher map[string][]models.Location

func (f staticFetcher) FetchRoute(ctx context.Context, origin, destination models.Location) []models.Location {
	return f[origin.String()]
}

var errSink = errors.New("sink unavailable")
