package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
)

// Client wraps the Elasticsearch client with the index operations the
// admin service performs.
type Client struct {
	esClient *es.Client
}

// NewClient wraps an already connected Elasticsearch client
func NewClient(esClient *es.Client) *Client {
	return &Client{esClient: esClient}
}

// CreateIndex creates a new index with the given body (settings, mappings)
func (c *Client) CreateIndex(ctx context.Context, indexName string, body map[string]any) error {
	exists, err := c.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		return fmt.Errorf("index %s already exists", indexName)
	}

	var reader io.Reader
	if body != nil {
		raw, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal index body: %w", marshalErr)
		}
		reader = bytes.NewReader(raw)
	}

	res, err := c.esClient.Indices.Create(
		indexName,
		c.esClient.Indices.Create.WithBody(reader),
		c.esClient.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating index", res.Body)
	}
	return nil
}

// DeleteIndex deletes an index
func (c *Client) DeleteIndex(ctx context.Context, indexName string) error {
	res, err := c.esClient.Indices.Delete([]string{indexName}, c.esClient.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("deleting index", res.Body)
	}
	return nil
}

// IndexExists checks if an index exists
func (c *Client) IndexExists(ctx context.Context, indexName string) (bool, error) {
	res, err := c.esClient.Indices.Exists([]string{indexName}, c.esClient.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("error checking index existence: %s", res.String())
	}
	return true, nil
}

// ListIndices lists the indices matching pattern, without system indices
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	res, err := c.esClient.Cat.Indices(
		c.esClient.Cat.Indices.WithIndex(pattern),
		c.esClient.Cat.Indices.WithContext(ctx),
		c.esClient.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("listing indices", res.Body)
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err = json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	indices := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Index == "" || strings.HasPrefix(row.Index, ".") {
			continue
		}
		indices = append(indices, row.Index)
	}
	return indices, nil
}

func responseError(action string, body io.Reader) error {
	raw, _ := io.ReadAll(body)
	return fmt.Errorf("error %s: %s", action, strings.TrimSpace(string(raw)))
}
