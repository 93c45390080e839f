// Package correlator pairs admin requests with the asynchronous engine
// notifications that answer them.
package correlator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
	"github.com/jonesrussell/north-cloud/search-admin/internal/gateway"
)

// DefaultTimeout bounds every correlated wait unless configured otherwise.
const DefaultTimeout = 10 * time.Second

// Outcomes reported to the Recorder.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeSendError = "send_error"
	OutcomeCancelled = "cancelled"
	OutcomeMismatch  = "mismatch"
)

// Recorder receives correlation metrics.
type Recorder interface {
	ObserveCorrelation(command, outcome string, elapsed time.Duration)
	SetPendingCorrelations(n int)
	IncUncorrelatedNotifications()
}

// Correlator sends gateway commands and waits for the notification with
// the same correlation id. Run must be running for waits to complete.
type Correlator struct {
	gateway gateway.Gateway
	timeout time.Duration
	log     logger.Logger
	metrics Recorder
	newID   func() string

	mu      sync.Mutex
	pending map[string]chan gateway.Notification

	locks *keyedLock
}

// Option configures a Correlator.
type Option func(*Correlator)

func WithRecorder(r Recorder) Option {
	return func(c *Correlator) { c.metrics = r }
}

// WithIDGenerator replaces uuid.NewString as the correlation id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Correlator) { c.newID = fn }
}

// New returns a Correlator over gw. A non-positive timeout means
// DefaultTimeout.
func New(gw gateway.Gateway, timeout time.Duration, log logger.Logger, opts ...Option) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}

	c := &Correlator{
		gateway: gw,
		timeout: timeout,
		log:     log,
		newID:   uuid.NewString,
		pending: make(map[string]chan gateway.Notification),
		locks:   newKeyedLock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run dispatches notifications to their waiting requests until ctx is done
// or the gateway closes its stream. Notifications nobody waits for are
// dropped.
func (c *Correlator) Run(ctx context.Context) error {
	notifications := c.gateway.Notifications()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				c.log.Info("Gateway notification stream closed")
				return nil
			}
			c.dispatch(n)
		}
	}
}

func (c *Correlator) dispatch(n gateway.Notification) {
	c.mu.Lock()
	ch, ok := c.pending[n.CorrelationID]
	if ok {
		delete(c.pending, n.CorrelationID)
		c.setPendingLocked()
	}
	c.mu.Unlock()

	if !ok {
		if c.metrics != nil {
			c.metrics.IncUncorrelatedNotifications()
		}
		c.log.Debug("Dropping uncorrelated notification",
			logger.String("correlation_id", n.CorrelationID),
			logger.String("type", string(n.Type)),
			logger.String("index", n.IndexID),
		)
		return
	}

	// Buffered with capacity one and delivered at most once.
	ch <- n
}

// Pending returns the number of outstanding correlations.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) register(id string) chan gateway.Notification {
	ch := make(chan gateway.Notification, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.setPendingLocked()
	c.mu.Unlock()

	return ch
}

func (c *Correlator) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.setPendingLocked()
	c.mu.Unlock()
}

// setPendingLocked publishes the pending count. c.mu must be held so
// concurrent updates reach the gauge in the order they happened.
func (c *Correlator) setPendingLocked() {
	if c.metrics != nil {
		c.metrics.SetPendingCorrelations(len(c.pending))
	}
}

func (c *Correlator) observe(cmd gateway.CommandType, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveCorrelation(string(cmd), outcome, time.Since(start))
	}
}

// await sends one command and blocks for its notification. The pending
// entry is registered before Send so a fast answer cannot be missed, and
// removed on every exit path.
func (c *Correlator) await(ctx context.Context, cmdType gateway.CommandType, indexID string) (gateway.Notification, error) {
	start := time.Now()
	cmd := gateway.Command{
		CorrelationID: c.newID(),
		Type:          cmdType,
		IndexID:       indexID,
		IssuedAt:      start.UTC(),
	}

	ch := c.register(cmd.CorrelationID)
	defer c.unregister(cmd.CorrelationID)

	if err := c.gateway.Send(ctx, cmd); err != nil {
		c.observe(cmdType, OutcomeSendError, start)
		return gateway.Notification{}, fmt.Errorf("%w: send %s: %w", domain.ErrEngineUnavailable, cmdType, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case n := <-ch:
		if n.Type != cmdType.ExpectedNotification() {
			c.observe(cmdType, OutcomeMismatch, start)
			return n, fmt.Errorf("%w: %s answered with %q", domain.ErrEngineFailure, cmdType, n.Type)
		}
		outcome := OutcomeSucceeded
		if !n.Succeeded {
			outcome = OutcomeFailed
		}
		c.observe(cmdType, outcome, start)
		return n, nil

	case <-timer.C:
		c.observe(cmdType, OutcomeTimeout, start)
		c.log.Warn("Engine notification timed out",
			logger.String("correlation_id", cmd.CorrelationID),
			logger.String("command", string(cmdType)),
			logger.String("index", indexID),
			logger.Duration("timeout", c.timeout),
		)
		return gateway.Notification{}, fmt.Errorf("%w: no %s notification within %s",
			domain.ErrEngineUnavailable, cmdType.ExpectedNotification(), c.timeout)

	case <-ctx.Done():
		c.observe(cmdType, OutcomeCancelled, start)
		return gateway.Notification{}, ctx.Err()
	}
}
