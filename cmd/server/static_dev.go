//go:build !embed
// +build !embed

package main

import (
	"strings"

	"github.com/gin-gonic/gin"

	"valuator/internal/logger"
)

// setupStaticFiles answers non-API routes in development, where the front end is served separately
func setupStaticFiles(router *gin.Engine) {
	logger.Info("Frontend assets are not embedded (development mode)",
		"hint", "serve the dashboard front end separately")

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(404, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(200, gin.H{
			"message": "Frontend is running separately",
			"dev_url": "http://localhost:3000",
			"api":     "/api/v1/domains",
		})
	})
}
