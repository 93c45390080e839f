// Package mappingstore persists the per-index mapping document and applies
// every change as one read-modify-write cycle over the whole document.
package mappingstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

// Backend loads and atomically rewrites the mapping document. A missing
// document loads as empty. Update must guard the cycle against other
// processes and must leave the stored document untouched when mutate
// returns an error, which Update returns unchanged.
type Backend interface {
	Load(ctx context.Context) (domain.MappingDocument, error)
	Update(ctx context.Context, mutate func(domain.MappingDocument) (domain.MappingDocument, error)) error
	Ping(ctx context.Context) error
}

// Recorder receives one observation per store operation.
type Recorder interface {
	ObserveStoreOperation(operation, outcome string)
}

// Store serializes access to a Backend: reads share, mutations are
// exclusive within the process.
type Store struct {
	backend Backend
	log     logger.Logger
	metrics Recorder

	mu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

// New returns a Store over backend.
func New(backend Backend, log logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{backend: backend, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// All returns a copy of the whole document.
func (s *Store) All(ctx context.Context) (domain.MappingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.backend.Load(ctx)
	s.observe("all", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if doc == nil {
		doc = domain.MappingDocument{}
	}
	return doc, nil
}

// Get returns the mapping stored for index.
func (s *Store) Get(ctx context.Context, index string) (domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		s.observe("get", err)
		return domain.Mapping{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	m, ok := doc[index]
	if !ok {
		err = fmt.Errorf("%w: %s", domain.ErrMappingNotFound, index)
	}
	s.observe("get", err)
	return m, err
}

// Create stores mapping under index. It fails with ErrMappingExists when
// index already has a mapping.
func (s *Store) Create(ctx context.Context, index string, mapping domain.Mapping) error {
	return s.mutate(ctx, "create", index, func(doc domain.MappingDocument) error {
		if _, exists := doc[index]; exists {
			return fmt.Errorf("%w: %s", domain.ErrMappingExists, index)
		}
		doc[index] = mapping.Clone()
		return nil
	})
}

// Update replaces the mapping of index. It fails with ErrMappingNotFound
// when index has none.
func (s *Store) Update(ctx context.Context, index string, mapping domain.Mapping) error {
	return s.mutate(ctx, "update", index, func(doc domain.MappingDocument) error {
		if _, exists := doc[index]; !exists {
			return fmt.Errorf("%w: %s", domain.ErrMappingNotFound, index)
		}
		doc[index] = mapping.Clone()
		return nil
	})
}

// Delete removes the mapping of index. It fails with ErrMappingNotFound
// when index has none.
func (s *Store) Delete(ctx context.Context, index string) error {
	return s.mutate(ctx, "delete", index, func(doc domain.MappingDocument) error {
		if _, exists := doc[index]; !exists {
			return fmt.Errorf("%w: %s", domain.ErrMappingNotFound, index)
		}
		delete(doc, index)
		return nil
	})
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) mutate(ctx context.Context, op, index string, change func(domain.MappingDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Update(ctx, func(doc domain.MappingDocument) (domain.MappingDocument, error) {
		if doc == nil {
			doc = domain.MappingDocument{}
		}
		if changeErr := change(doc); changeErr != nil {
			return nil, changeErr
		}
		return doc, nil
	})
	s.observe(op, err)

	if err == nil {
		s.log.Info("Mapping store updated",
			logger.String("operation", op),
			logger.String("index", index),
		)
		return nil
	}
	if isDomainOutcome(err) {
		return err
	}

	s.log.Error("Mapping store write failed",
		logger.String("operation", op),
		logger.String("index", index),
		logger.Error(err),
	)
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

func isDomainOutcome(err error) bool {
	return errors.Is(err, domain.ErrMappingNotFound) || errors.Is(err, domain.ErrMappingExists)
}

func (s *Store) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMappingNotFound):
		outcome = "not_found"
	case errors.Is(err, domain.ErrMappingExists):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	s.metrics.ObserveStoreOperation(op, outcome)
}
