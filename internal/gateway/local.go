package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
)

const notificationBuffer = 64

// Local executes commands in-process, one goroutine per command.
type Local struct {
	engine         Engine
	commandTimeout time.Duration
	log            logger.Logger

	notifications chan Notification
	stop          chan struct{}
	inflight      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewLocal returns a Local gateway. Each command runs under its own
// commandTimeout, independent of the context passed to Send.
func NewLocal(engine Engine, commandTimeout time.Duration, log logger.Logger) *Local {
	if log == nil {
		log = logger.NewNop()
	}
	if commandTimeout <= 0 {
		commandTimeout = DefaultCommandTimeout
	}
	return &Local{
		engine:         engine,
		commandTimeout: commandTimeout,
		log:            log,
		notifications:  make(chan Notification, notificationBuffer),
		stop:           make(chan struct{}),
	}
}

func (g *Local) Send(_ context.Context, cmd Command) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return ErrClosed
	}

	g.inflight.Add(1)
	go g.run(cmd)
	return nil
}

func (g *Local) run(cmd Command) {
	defer g.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), g.commandTimeout)
	defer cancel()

	n := Execute(ctx, g.engine, cmd)
	if !n.Succeeded {
		g.log.Warn("Engine command failed",
			logger.String("correlation_id", cmd.CorrelationID),
			logger.String("command", string(cmd.Type)),
			logger.String("index", cmd.IndexID),
			logger.String("error", n.Error),
		)
	}

	select {
	case g.notifications <- n:
	case <-g.stop:
		g.log.Debug("Dropping notification after close",
			logger.String("correlation_id", cmd.CorrelationID),
		)
	}
}

func (g *Local) Notifications() <-chan Notification {
	return g.notifications
}

// Close rejects further commands, waits for in-flight ones and closes the
// notification stream. Notifications nobody reads are dropped.
func (g *Local) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	close(g.stop)
	g.mu.Unlock()

	g.inflight.Wait()
	close(g.notifications)
	return nil
}
