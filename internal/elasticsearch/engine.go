// Package elasticsearch executes gateway commands against an Elasticsearch
// cluster.
package elasticsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
	"github.com/jonesrussell/north-cloud/search-admin/internal/elasticsearch/mappings"
)

// MappingSource reads stored mappings. *mappingstore.Store satisfies it.
type MappingSource interface {
	All(ctx context.Context) (domain.MappingDocument, error)
	Get(ctx context.Context, index string) (domain.Mapping, error)
}

// Engine implements gateway.Engine on top of Client.
type Engine struct {
	client   *Client
	mappings MappingSource
	settings mappings.Settings
	log      logger.Logger
}

// NewEngine returns an Engine that builds new indexes from the mappings in
// source.
func NewEngine(client *Client, source MappingSource, settings mappings.Settings, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{client: client, mappings: source, settings: settings, log: log}
}

// ListIndexes returns every non-system index. Name and tag come from the
// stored mapping; when the store cannot be read the ids are still listed.
func (e *Engine) ListIndexes(ctx context.Context) ([]domain.Index, error) {
	ids, err := e.client.ListIndices(ctx, "*")
	if err != nil {
		return nil, err
	}

	doc, err := e.mappings.All(ctx)
	if err != nil {
		e.log.Warn("Listing indexes without stored mapping names", logger.Error(err))
		doc = domain.MappingDocument{}
	}

	indexes := make([]domain.Index, 0, len(ids))
	for _, id := range ids {
		idx := domain.Index{ID: id, Name: id}
		if m, ok := doc[id]; ok {
			idx.Tag = m.Tag
			if m.Name != "" {
				idx.Name = m.Name
			}
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

func (e *Engine) RemoveIndex(ctx context.Context, id string) error {
	if err := e.client.DeleteIndex(ctx, id); err != nil {
		return err
	}
	e.log.Info("Index removed", logger.String("index", id))
	return nil
}

// CreateIndex creates id from its stored mapping. An index without a stored
// mapping cannot be created.
func (e *Engine) CreateIndex(ctx context.Context, id string) error {
	m, err := e.mappings.Get(ctx, id)
	if errors.Is(err, domain.ErrMappingNotFound) {
		return fmt.Errorf("no mapping stored for index %s", id)
	}
	if err != nil {
		return fmt.Errorf("read mapping for %s: %w", id, err)
	}

	if err = e.client.CreateIndex(ctx, id, mappings.Translate(m, e.settings)); err != nil {
		return err
	}
	e.log.Info("Index created", logger.String("index", id), logger.Int("fields", len(m.Fields)))
	return nil
}
