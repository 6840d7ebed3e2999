package api

import (
	"log"
	stdhttp "net/http"

	intconfig "busticket/internal/config"
	"busticket/internal/domain"
	"busticket/internal/http/handlers"
	"busticket/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts every endpoint on a fresh engine. The handler is
// mutated so /api/routes can list the engine it lives on.
func NewRouter(env intconfig.Env, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		gin.Recovery(),
		middleware.CORS(env.CORSAllowedOrigins),
		middleware.Identity(env.JWTSecret),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	h.SetRoutes(r.Routes)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Schedules
		api.GET("/schedules/search", h.SearchSchedules)
		api.GET("/schedules/:id", h.GetSchedule)

		// Seat ledger
		api.GET("/seats/:scheduleId", h.GetSeatMap)
		api.POST("/seats/lock", h.LockSeats)
		api.POST("/seats/release", h.ReleaseSeats)

		// Bookings
		api.POST("/book", h.CreateBooking)
		api.GET("/ticket/:ticketId", h.GetTicket)
		bookings := api.Group("/bookings", middleware.RequireUser())
		bookings.GET("", h.ListMyBookings)
		bookings.POST("/:id/cancel", h.CancelBooking)

		// Admin
		admin := api.Group("/admin", middleware.RequireUser(), middleware.RequireRoles(domain.RoleAdmin))
		admin.POST("/buses", h.CreateBus)
		admin.POST("/schedules", h.PublishSchedule)
	}

	return r
}
