package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbpkg "sdragent/db"
)

const SERVICE_NAME = "Agente SDR"

// GET /
func Root(c *gin.Context) {
	RespondSuccess(c, gin.H{"status": "ok", "service": SERVICE_NAME})
}

// GET /health
func Health(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}

	status, code := "healthy", http.StatusOK
	redis := "connected"
	if err := s.Store.Ping(c.Request.Context()); err != nil {
		s.logger().Error("redis indisponível", "err", err)
		redis = "disconnected"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	crmStatus := "disabled"
	if db := dbpkg.DBInstance(c); db != nil {
		crmStatus = "connected"
		if err := db.DB().PingContext(c.Request.Context()); err != nil {
			crmStatus = "disconnected"
		}
	}

	sheets := "disabled"
	if s.Sheets {
		sheets = "configured"
	}

	c.JSON(code, gin.H{"status": status, "redis": redis, "crm": crmStatus, "sheets": sheets})
}
