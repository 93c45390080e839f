package api

import (
	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/search-admin/infrastructure/gin"
)

// SetupRoutes configures all admin routes. Health and metrics routes are
// registered by the infrastructure/gin server builder.
func SetupRoutes(router gin.IRouter, handler *Handler, jwtSecret string) {
	admin := infragin.ProtectedGroup(router, "/admin", jwtSecret)
	admin.Use(handler.RequireAdmin())

	admin.GET("", handler.Probe)     // GET /admin
	admin.GET("/keys", handler.Keys) // GET /admin/keys

	admin.GET("/indexes", handler.ListIndexes)           // GET /admin/indexes
	admin.DELETE("/index/:index", handler.RemoveIndex)   // DELETE /admin/index/:index
	admin.GET("/index/:index/flush", handler.FlushIndex) // GET /admin/index/:index/flush

	admin.GET("/mappings", handler.ListMappings)           // GET /admin/mappings
	admin.GET("/mapping/:index", handler.GetMapping)       // GET /admin/mapping/:index
	admin.POST("/mapping/:index", handler.CreateMapping)   // POST /admin/mapping/:index
	admin.PUT("/mapping/:index", handler.UpdateMapping)    // PUT /admin/mapping/:index
	admin.DELETE("/mapping/:index", handler.DeleteMapping) // DELETE /admin/mapping/:index
}
