package server

import (
	"net/http"

	"course-fee-gateway/internal/database"

	"github.com/gin-gonic/gin"
)

func HealthCheck(db database.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := db.Health(c.Request.Context())
		code := http.StatusOK
		if stats["status"] != "up" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, stats)
	}
}
