package correlator

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
	"github.com/jonesrussell/north-cloud/search-admin/internal/gateway"
)

// FlushState is the progress of a flush.
type FlushState string

const (
	FlushIdle             FlushState = "idle"
	FlushAwaitingRemoval  FlushState = "awaiting_removal"
	FlushAwaitingCreation FlushState = "awaiting_creation"
	FlushSucceeded        FlushState = "succeeded"
	FlushFailed           FlushState = "failed"
)

// Flush steps reported in FlushResult.FailedStep.
const (
	StepRemove = "remove"
	StepCreate = "create"
)

// RemoveResult is the engine's verdict on a removal.
type RemoveResult struct {
	Removed bool
	Error   string
}

// FlushResult is the final state of a flush.
type FlushResult struct {
	Flushed    bool
	State      FlushState
	FailedStep string
	Error      string
}

// ListIndexes returns the engine's indexes sorted by id. An engine that
// cannot produce the listing is reported as unavailable.
func (c *Correlator) ListIndexes(ctx context.Context) ([]domain.Index, error) {
	n, err := c.await(ctx, gateway.CommandList, "")
	if err != nil {
		return nil, err
	}
	if !n.Succeeded {
		return nil, fmt.Errorf("%w: %s", domain.ErrEngineUnavailable, n.Error)
	}

	indexes := n.Indexes
	if indexes == nil {
		indexes = []domain.Index{}
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].ID < indexes[j].ID })
	return indexes, nil
}

// RemoveIndex asks the engine to delete id. Errors are reserved for
// invalid ids and for commands that got no answer.
func (c *Correlator) RemoveIndex(ctx context.Context, id string) (RemoveResult, error) {
	if err := domain.ValidateIndexID(id); err != nil {
		return RemoveResult{}, err
	}

	release, err := c.locks.acquire(ctx, id)
	if err != nil {
		return RemoveResult{}, err
	}
	defer release()

	n, err := c.await(ctx, gateway.CommandRemove, id)
	if err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Removed: n.Succeeded, Error: n.Error}, nil
}

// FlushIndex removes id and then creates it again. Creation is only sent
// after the removal notification arrived and reported success. A failed
// creation leaves the index removed.
func (c *Correlator) FlushIndex(ctx context.Context, id string) (FlushResult, error) {
	result := FlushResult{State: FlushIdle}

	if err := domain.ValidateIndexID(id); err != nil {
		return result, err
	}

	release, err := c.locks.acquire(ctx, id)
	if err != nil {
		return result, err
	}
	defer release()

	result.State = FlushAwaitingRemoval
	removed, err := c.await(ctx, gateway.CommandRemove, id)
	if err != nil {
		return failFlush(result, StepRemove, err.Error()), err
	}
	if !removed.Succeeded {
		return failFlush(result, StepRemove, removed.Error), nil
	}

	result.State = FlushAwaitingCreation
	created, err := c.await(ctx, gateway.CommandCreate, id)
	if err != nil {
		c.warnRemovedNotRecreated(id, err.Error())
		return failFlush(result, StepCreate, err.Error()), err
	}
	if !created.Succeeded {
		c.warnRemovedNotRecreated(id, created.Error)
		return failFlush(result, StepCreate, created.Error), nil
	}

	result.State = FlushSucceeded
	result.Flushed = true
	return result, nil
}

func failFlush(result FlushResult, step, reason string) FlushResult {
	result.State = FlushFailed
	result.FailedStep = step
	result.Error = reason
	return result
}

func (c *Correlator) warnRemovedNotRecreated(id, reason string) {
	c.log.Warn("Index removed during flush but not recreated",
		logger.String("index", id),
		logger.String("error", reason),
	)
}
