package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler wires HTTP endpoints to the services.
type Handler struct {
	Ledger    services.SeatLedger
	Bookings  services.BookingService
	Schedules services.ScheduleService
	Fleet     services.FleetService

	// DB is nil when running on the in-memory store.
	DB      *sql.DB
	Dialect intdb.Dialect

	// TrustBodyUserID accepts a userId from the body or query when the
	// request carries no identity. Only safe behind a trusted gateway.
	TrustBodyUserID bool

	routes func() gin.RoutesInfo
}

// SetRoutes lets /api/routes list the engine the handler is mounted on.
func (h *Handler) SetRoutes(fn func() gin.RoutesInfo) {
	h.routes = fn
}

func (h Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "bus ticket backend running"})
}

func (h Handler) DBCheck(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusOK, gin.H{"message": "in-memory store", "driver": "memory"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		respondError(c, http.StatusServiceUnavailable, "db_unavailable", "database unreachable", gin.H{"_": err.Error()})
		return
	}
	missing, err := intdb.MissingTables(ctx, h.DB, h.Dialect)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "db_unavailable", "schema check failed", gin.H{"_": err.Error()})
		return
	}
	if len(missing) > 0 {
		respondError(c, http.StatusServiceUnavailable, "schema_incomplete", "missing tables", gin.H{"missing": missing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK", "driver": string(h.Dialect)})
}

func (h Handler) Routes(c *gin.Context) {
	if h.routes == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "router not ready", nil)
		return
	}
	routes := h.routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{"method": rt.Method, "path": rt.Path})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
