package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
)

// CommandsQueue is the Redis list commands are queued on. Each entry is
// popped by exactly one worker.
func CommandsQueue(prefix string) string { return prefix + ":commands" }

// WorkersChannel is the Pub/Sub channel workers subscribe to so senders
// can tell whether anyone will pop the queue.
func WorkersChannel(prefix string) string { return prefix + ":workers" }

// NotificationsChannel is the Pub/Sub channel notifications arrive on.
func NotificationsChannel(prefix string) string { return prefix + ":notifications" }

// ErrNoWorker is returned by Send when no worker is listening.
var ErrNoWorker = errors.New("no engine worker subscribed")

// Redis queues commands for Workers on a Redis list and reads their
// notifications back over Pub/Sub. Any number of workers may share the
// queue; each command runs once. Notification delivery is at most once:
// one emitted after the gateway stops listening is lost and surfaces as a
// correlation timeout.
type Redis struct {
	client   *redis.Client
	commands string
	workers  string
	log      logger.Logger
	breaker  *circuitbreaker.Breaker

	pubsub        *redis.PubSub
	notifications chan Notification
	cancel        context.CancelFunc
	done          chan struct{}
	closeOnce     sync.Once
}

// NewRedis subscribes to the notification channel and returns once the
// subscription is confirmed.
func NewRedis(ctx context.Context, client *redis.Client, prefix string, log logger.Logger) (*Redis, error) {
	if log == nil {
		log = logger.NewNop()
	}

	pubsub := client.Subscribe(ctx, NotificationsChannel(prefix))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", NotificationsChannel(prefix), err)
	}

	recvCtx, cancel := context.WithCancel(context.Background())
	g := &Redis{
		client:        client,
		commands:      CommandsQueue(prefix),
		workers:       WorkersChannel(prefix),
		log:           log,
		breaker:       newPublishBreaker(log),
		pubsub:        pubsub,
		notifications: make(chan Notification, notificationBuffer),
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	go g.receive(recvCtx)

	log.Info("Redis gateway subscribed",
		logger.String("commands", g.commands),
		logger.String("workers", g.workers),
		logger.String("notifications", NotificationsChannel(prefix)),
	)
	return g, nil
}

// Send queues cmd. It fails when no worker is listening, and fails fast
// while repeated failures hold the breaker open.
func (g *Redis) Send(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	return g.breaker.Execute(func() error {
		subs, subErr := g.client.PubSubNumSub(ctx, g.workers).Result()
		if subErr != nil {
			return fmt.Errorf("count engine workers: %w", subErr)
		}
		if subs[g.workers] == 0 {
			return fmt.Errorf("%w on %s", ErrNoWorker, g.workers)
		}
		if pushErr := g.client.LPush(ctx, g.commands, payload).Err(); pushErr != nil {
			return fmt.Errorf("queue command: %w", pushErr)
		}
		return nil
	})
}

func newPublishBreaker(log logger.Logger) *circuitbreaker.Breaker {
	cfg := circuitbreaker.DefaultConfig()
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		log.Warn("Gateway publish breaker changed state",
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}
	return circuitbreaker.New(cfg)
}

func (g *Redis) Notifications() <-chan Notification {
	return g.notifications
}

func (g *Redis) receive(ctx context.Context) {
	defer close(g.done)
	defer close(g.notifications)

	messages := g.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				g.log.Warn("Discarding malformed notification",
					logger.String("channel", msg.Channel),
					logger.Error(err),
				)
				continue
			}

			select {
			case g.notifications <- n:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close unsubscribes and closes the notification stream.
func (g *Redis) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.cancel()
		err = g.pubsub.Close()
		<-g.done
	})
	return err
}
