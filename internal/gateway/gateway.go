// Package gateway is the command/notification facade in front of the
// search engine. Each command sent produces exactly one notification
// carrying the command's correlation id.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

// CommandType names an engine request.
type CommandType string

const (
	CommandList   CommandType = "list"
	CommandRemove CommandType = "remove"
	CommandCreate CommandType = "create"
)

// NotificationType names an engine event.
type NotificationType string

const (
	NotificationIndexesListed NotificationType = "indexesListed"
	NotificationIndexRemoved  NotificationType = "indexRemoved"
	NotificationIndexCreated  NotificationType = "indexCreated"
)

// ExpectedNotification returns the notification type that answers t.
func (t CommandType) ExpectedNotification() NotificationType {
	switch t {
	case CommandList:
		return NotificationIndexesListed
	case CommandRemove:
		return NotificationIndexRemoved
	case CommandCreate:
		return NotificationIndexCreated
	default:
		return ""
	}
}

// Command is a fire-and-forget engine request.
type Command struct {
	CorrelationID string      `json:"correlation_id"`
	Type          CommandType `json:"type"`
	IndexID       string      `json:"index_id,omitempty"`
	IssuedAt      time.Time   `json:"issued_at"`
}

// Notification is the engine's answer to one Command.
type Notification struct {
	CorrelationID string           `json:"correlation_id"`
	Type          NotificationType `json:"type"`
	IndexID       string           `json:"index_id,omitempty"`
	Succeeded     bool             `json:"succeeded"`
	Indexes       []domain.Index   `json:"indexes,omitempty"`
	Error         string           `json:"error,omitempty"`
	EmittedAt     time.Time        `json:"emitted_at"`
}

// Gateway sends commands and surfaces their notifications on one stream.
// Send returns only transport errors; the outcome of the command arrives
// as a Notification.
type Gateway interface {
	Send(ctx context.Context, cmd Command) error
	Notifications() <-chan Notification
	Close() error
}

// Engine performs commands against the search engine.
type Engine interface {
	ListIndexes(ctx context.Context) ([]domain.Index, error)
	RemoveIndex(ctx context.Context, id string) error
	CreateIndex(ctx context.Context, id string) error
}

// DefaultCommandTimeout bounds one engine command when none is configured.
const DefaultCommandTimeout = 30 * time.Second

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("gateway closed")

var errUnknownCommand = errors.New("unknown command type")

// Execute runs cmd against engine and returns its single notification.
// Engine errors become Succeeded=false with the error text attached.
func Execute(ctx context.Context, engine Engine, cmd Command) Notification {
	n := Notification{
		CorrelationID: cmd.CorrelationID,
		Type:          cmd.Type.ExpectedNotification(),
		IndexID:       cmd.IndexID,
	}

	var err error
	switch cmd.Type {
	case CommandList:
		n.Indexes, err = engine.ListIndexes(ctx)
	case CommandRemove:
		err = engine.RemoveIndex(ctx, cmd.IndexID)
	case CommandCreate:
		err = engine.CreateIndex(ctx, cmd.IndexID)
	default:
		err = errUnknownCommand
	}

	n.Succeeded = err == nil
	if err != nil {
		n.Error = err.Error()
	}
	n.EmittedAt = time.Now().UTC()
	return n
}
