package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
)

const (
	publishTimeout = 5 * time.Second

	// pollTimeout bounds one BRPOP so Run notices cancellation.
	pollTimeout = time.Second

	// pollRetryDelay is the pause after a failed BRPOP.
	pollRetryDelay = time.Second
)

// Worker is the engine side of the Redis gateway: it pops commands from
// the commands queue and publishes one notification for each. Several
// workers can share a queue.
type Worker struct {
	client         *redis.Client
	engine         Engine
	prefix         string
	commandTimeout time.Duration
	log            logger.Logger
}

// NewWorker returns a Worker for the queue and channels under prefix.
func NewWorker(client *redis.Client, engine Engine, prefix string, commandTimeout time.Duration, log logger.Logger) *Worker {
	if log == nil {
		log = logger.NewNop()
	}
	if commandTimeout <= 0 {
		commandTimeout = DefaultCommandTimeout
	}
	return &Worker{
		client:         client,
		engine:         engine,
		prefix:         prefix,
		commandTimeout: commandTimeout,
		log:            log,
	}
}

// Run consumes commands until ctx is done, then waits for in-flight
// commands to publish their notifications.
func (w *Worker) Run(ctx context.Context) error {
	presence := w.client.Subscribe(ctx, WorkersChannel(w.prefix))
	defer func() { _ = presence.Close() }()

	if _, err := presence.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", WorkersChannel(w.prefix), err)
	}

	queue := CommandsQueue(w.prefix)
	w.log.Info("Engine worker listening", logger.String("queue", queue))

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		if ctx.Err() != nil {
			w.log.Info("Engine worker stopping")
			return nil
		}

		payload, err := w.next(ctx, queue)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Warn("Failed to pop command", logger.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		if payload == "" {
			continue
		}

		var cmd Command
		if err = json.Unmarshal([]byte(payload), &cmd); err != nil {
			w.log.Warn("Discarding malformed command", logger.Error(err))
			continue
		}
		if w.expired(cmd) {
			w.log.Warn("Discarding expired command",
				logger.String("correlation_id", cmd.CorrelationID),
				logger.String("command", string(cmd.Type)),
			)
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			w.handle(cmd)
		}()
	}
}

// next pops one command, returning "" when the poll times out.
func (w *Worker) next(ctx context.Context, queue string) (string, error) {
	res, err := w.client.BRPop(ctx, pollTimeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return res[1], nil
}

// expired reports whether cmd sat in the queue past the command timeout;
// its caller has given up on it by then.
func (w *Worker) expired(cmd Command) bool {
	return !cmd.IssuedAt.IsZero() && time.Since(cmd.IssuedAt) > w.commandTimeout
}

func (w *Worker) handle(cmd Command) {
	ctx, cancel := context.WithTimeout(context.Background(), w.commandTimeout)
	defer cancel()

	n := Execute(ctx, w.engine, cmd)

	payload, err := json.Marshal(n)
	if err != nil {
		w.log.Error("Failed to encode notification", logger.Error(err))
		return
	}

	// The command may have used up ctx; publishing gets its own deadline.
	pubCtx, pubCancel := context.WithTimeout(context.Background(), publishTimeout)
	defer pubCancel()

	if err = w.client.Publish(pubCtx, NotificationsChannel(w.prefix), payload).Err(); err != nil {
		w.log.Error("Failed to publish notification",
			logger.String("correlation_id", cmd.CorrelationID),
			logger.Error(err),
		)
		return
	}

	w.log.Debug("Engine command executed",
		logger.String("correlation_id", cmd.CorrelationID),
		logger.String("command", string(cmd.Type)),
		logger.Bool("succeeded", n.Succeeded),
	)
}
