// Package channels holds the registry of named notification channels and
// dispatches deliveries to them under per-channel rate limits.
package channels

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
	"medical-alert-service/internal/ratelimit"
)

// DefaultTimeout bounds a single handler invocation.
const DefaultTimeout = 5 * time.Second

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrTimeout         = errors.New("channel handler timed out")
)

// Delivery is one alert addressed to one contact of one team.
type Delivery struct {
	Alert   models.AlertPayload
	Team    string
	Contact models.ContactMethod
}

// Handler delivers alerts over a concrete transport. Implementations should
// honour ctx cancellation.
type Handler interface {
	Handle(ctx context.Context, d Delivery) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, d Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// Outcome of a single dispatch.
type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeNotFound   Outcome = "channel_not_found"
	OutcomeFailed     Outcome = "failed"
)

// Result reports what happened to one delivery.
type Result struct {
	Channel string             `json:"channel"`
	Team    string             `json:"team"`
	Contact models.ContactKind `json:"contact"`
	Outcome Outcome            `json:"outcome"`
	Err     error              `json:"-"`
}

// Observer is notified of every dispatch outcome.
type Observer interface {
	ObserveDelivery(channel string, outcome Outcome)
}

type Option func(*Dispatcher)

func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher routes deliveries to registered handlers. Handler failures,
// timeouts and panics are contained and reported as OutcomeFailed.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	limiter  *ratelimit.Limiter
	clock    clock.Clock
	timeout  time.Duration
	logger   *logging.Logger
	observer Observer
}

func New(limiter *ratelimit.Limiter, logger *logging.Logger, opts ...Option) *Dispatcher {
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		limiter:  limiter,
		clock:    clock.New(),
		timeout:  DefaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register stores h under channelID, replacing any previous handler.
func (d *Dispatcher) Register(channelID string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	d.handlers[channelID] = h
	d.mu.Unlock()
}

// Now reads the dispatcher's clock, the one rate-limit windows are measured on.
func (d *Dispatcher) Now() time.Time {
	return d.clock.Now()
}

// Channels returns the registered channel ids, sorted.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	ids := make([]string, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (d *Dispatcher) handler(channelID string) (Handler, bool) {
	d.mu.RLock()
	h, ok := d.handlers[channelID]
	d.mu.RUnlock()
	return h, ok
}

// Dispatch delivers del over channelID. It never returns an error; the
// outcome is carried in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, channelID string, del Delivery) Result {
	res := Result{Channel: channelID, Team: del.Team, Contact: del.Contact.Kind}
	log := d.logger.WithFields(logrus.Fields{
		"alert_id": del.Alert.ID,
		"channel":  channelID,
		"team":     del.Team,
	})

	h, ok := d.handler(channelID)
	if !ok {
		res.Outcome, res.Err = OutcomeNotFound, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
		log.Warn("No handler registered for channel")
		d.observe(res)
		return res
	}

	now := d.clock.Now()
	if !d.limiter.Acquire(channelID, now) {
		res.Outcome = OutcomeSuppressed
		log.Info("Delivery suppressed by rate limit")
		d.observe(res)
		return res
	}

	if err := d.invoke(ctx, h, del); err != nil {
		d.limiter.Release(channelID, now)
		res.Outcome, res.Err = OutcomeFailed, err
		log.WithError(err).Error("Channel delivery failed")
		d.observe(res)
		return res
	}

	res.Outcome = OutcomeDelivered
	log.Debug("Delivered")
	d.observe(res)
	return res
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, del Delivery) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("channel handler panic: %v", r)
			}
		}()
		done <- h.Handle(ctx, del)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
		}
		return ctx.Err()
	}
}

func (d *Dispatcher) observe(res Result) {
	if d.observer != nil {
		d.observer.ObserveDelivery(res.Channel, res.Outcome)
	}
}
