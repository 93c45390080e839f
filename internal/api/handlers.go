// Package api is the admin HTTP surface: index operations go to the
// correlator, mapping operations to the mapping store.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/search-admin/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/correlator"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

const (
	probeMessage       = "Please see documentation about using this administration api."
	keysMessage        = "KEYS"
	storeWriteFailed   = "Mappings file could not be updated."
	storeReadFailed    = "Mappings could not be read."
	engineUnavailable  = "The search engine is not available."
	engineFailed       = "The search engine could not complete the request."
	internalError      = "Internal server error"
	invalidBodyMessage = "The request body is not a valid mapping."
)

// IndexOperations are the engine operations behind the index routes.
type IndexOperations interface {
	ListIndexes(ctx context.Context) ([]domain.Index, error)
	RemoveIndex(ctx context.Context, id string) (correlator.RemoveResult, error)
	FlushIndex(ctx context.Context, id string) (correlator.FlushResult, error)
}

// MappingStore is the mapping persistence behind the mapping routes.
type MappingStore interface {
	All(ctx context.Context) (domain.MappingDocument, error)
	Get(ctx context.Context, index string) (domain.Mapping, error)
	Create(ctx context.Context, index string, mapping domain.Mapping) error
	Update(ctx context.Context, index string, mapping domain.Mapping) error
	Delete(ctx context.Context, index string) error
}

// HandlerConfig tunes handler behaviour.
type HandlerConfig struct {
	// AdminRole is the role every admin route requires.
	AdminRole domain.Role
	// LegacyConflictStatus answers a duplicate create with 404.
	LegacyConflictStatus bool
}

// Handler handles HTTP requests for the admin API
type Handler struct {
	indexes  IndexOperations
	mappings MappingStore
	log      logger.Logger
	cfg      HandlerConfig
}

// NewHandler creates a new API handler
func NewHandler(indexes IndexOperations, mappings MappingStore, log logger.Logger, cfg HandlerConfig) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.AdminRole == "" {
		cfg.AdminRole = domain.RoleAdmin
	}
	return &Handler{
		indexes:  indexes,
		mappings: mappings,
		log:      log,
		cfg:      cfg,
	}
}

// Probe handles GET /admin
func (h *Handler) Probe(c *gin.Context) {
	c.String(http.StatusOK, probeMessage)
}

// Keys handles GET /admin/keys. Key management is not implemented.
func (h *Handler) Keys(c *gin.Context) {
	c.String(http.StatusOK, keysMessage)
}

// ListIndexes handles GET /admin/indexes
func (h *Handler) ListIndexes(c *gin.Context) {
	indexes, err := h.indexes.ListIndexes(c.Request.Context())
	if err != nil {
		h.fail(c, err, engineUnavailable)
		return
	}
	c.JSON(http.StatusOK, indexes)
}

// RemoveIndex handles DELETE /admin/index/:index
func (h *Handler) RemoveIndex(c *gin.Context) {
	id := c.Param("index")

	result, err := h.indexes.RemoveIndex(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, engineUnavailable)
		return
	}
	if !result.Removed {
		h.logFor(c).Warn("Index removal failed",
			logger.String("index", id),
			logger.String("error", result.Error),
		)
		c.String(http.StatusInternalServerError, "The index %q could not be removed.", id)
		return
	}

	h.logFor(c).Info("Index removed", logger.String("index", id))
	c.String(http.StatusOK, "The index %q have been removed from the search engine.", id)
}

// FlushIndex handles GET /admin/index/:index/flush
func (h *Handler) FlushIndex(c *gin.Context) {
	id := c.Param("index")

	result, err := h.indexes.FlushIndex(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, engineUnavailable)
		return
	}
	if !result.Flushed {
		h.logFor(c).Warn("Index flush failed",
			logger.String("index", id),
			logger.String("failed_step", result.FailedStep),
			logger.String("error", result.Error),
		)
		c.String(http.StatusInternalServerError, "The index %q could not be flushed.", id)
		return
	}

	h.logFor(c).Info("Index flushed", logger.String("index", id))
	c.String(http.StatusOK, "The index %q have been flushed.", id)
}

// ListMappings handles GET /admin/mappings
func (h *Handler) ListMappings(c *gin.Context) {
	doc, err := h.mappings.All(c.Request.Context())
	if err != nil {
		h.fail(c, err, storeReadFailed)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GetMapping handles GET /admin/mapping/:index
func (h *Handler) GetMapping(c *gin.Context) {
	id, ok := h.indexParam(c)
	if !ok {
		return
	}

	mapping, err := h.mappings.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, storeReadFailed)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

// CreateMapping handles POST /admin/mapping/:index
func (h *Handler) CreateMapping(c *gin.Context) {
	id, mapping, ok := h.mappingRequest(c)
	if !ok {
		return
	}

	if err := h.mappings.Create(c.Request.Context(), id, mapping); err != nil {
		h.fail(c, err, storeWriteFailed)
		return
	}
	c.String(http.StatusOK, "Mappings for the index %q have been created.", id)
}

// UpdateMapping handles PUT /admin/mapping/:index
func (h *Handler) UpdateMapping(c *gin.Context) {
	id, mapping, ok := h.mappingRequest(c)
	if !ok {
		return
	}

	if err := h.mappings.Update(c.Request.Context(), id, mapping); err != nil {
		h.fail(c, err, storeWriteFailed)
		return
	}
	c.String(http.StatusOK, "Mappings for the index %q have been updated.", id)
}

// DeleteMapping handles DELETE /admin/mapping/:index
func (h *Handler) DeleteMapping(c *gin.Context) {
	id, ok := h.indexParam(c)
	if !ok {
		return
	}

	if err := h.mappings.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, storeWriteFailed)
		return
	}
	c.String(http.StatusOK, "Mappings for the index %q have been removed.", id)
}

func (h *Handler) indexParam(c *gin.Context) (string, bool) {
	id := c.Param("index")
	if err := domain.ValidateIndexID(id); err != nil {
		h.fail(c, err, "")
		return "", false
	}
	return id, true
}

func (h *Handler) mappingRequest(c *gin.Context) (string, domain.Mapping, bool) {
	var mapping domain.Mapping

	id, ok := h.indexParam(c)
	if !ok {
		return "", mapping, false
	}

	if err := c.ShouldBindJSON(&mapping); err != nil {
		h.logFor(c).Warn("Invalid mapping body",
			logger.String("index", id),
			logger.Error(err),
		)
		c.String(http.StatusBadRequest, invalidBodyMessage)
		return "", mapping, false
	}
	if err := mapping.Validate(); err != nil {
		h.fail(c, err, "")
		return "", mapping, false
	}
	return id, mapping, true
}

// fail writes the status for err. fallback replaces the message of
// failures whose text is internal.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	status := statusFor(err, h.cfg.LegacyConflictStatus)
	message := messageFor(err, c.Param("index"), fallback)

	log := h.logFor(c).With(
		logger.String("path", c.FullPath()),
		logger.Int("status", status),
		logger.Error(err),
	)
	if status >= http.StatusInternalServerError {
		log.Error("Admin request failed")
	} else {
		log.Debug("Admin request rejected")
	}

	c.String(status, message)
}

func (h *Handler) logFor(c *gin.Context) logger.Logger {
	return h.log.With(logger.String("request_id", c.GetString(infragin.RequestIDKey)))
}
