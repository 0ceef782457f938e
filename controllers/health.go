package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ParserProbe reports whether the extraction service answers.
type ParserProbe interface {
	HealthCheck(ctx context.Context) bool
}

// Health mounts the liveness endpoint. It stays 200 when only the parser is down.
func Health(router gin.IRouter, parser ParserProbe) {
	router.GET("/health", func(c *gin.Context) {
		parserUp := false
		if parser != nil {
			parserUp = parser.HealthCheck(c.Request.Context())
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"status":    "ok",
			"parser":    parserUp,
			"timestamp": time.Now().UTC(),
		})
	})
}
