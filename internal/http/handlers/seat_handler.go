package handlers

import (
	"net/http"
	"time"

	"busticket/internal/services"
	"busticket/internal/utils"

	"github.com/gin-gonic/gin"
)

type lockSeatsRequest struct {
	ScheduleID  int64   `json:"scheduleId"`
	SeatIDs     []int64 `json:"seatIds"`
	UserID      int64   `json:"userId"`
	HoldSeconds int     `json:"holdSeconds"`
}

type releaseSeatsRequest struct {
	SeatIDs []int64 `json:"seatIds"`
	UserID  int64   `json:"userId"`
}

// GET /api/seats/:scheduleId
func (h Handler) GetSeatMap(c *gin.Context) {
	scheduleID, ok := pathID(c, "scheduleId")
	if !ok {
		return
	}
	viewer := viewerID(c)
	if viewer == 0 && h.TrustBodyUserID {
		if id, ok := utils.ParseID(c.Query("userId")); ok {
			viewer = id
		}
	}
	views, err := h.Ledger.ListAvailability(c.Request.Context(), scheduleID, viewer)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduleId": scheduleID, "seats": toSeatDTOs(views)})
}

// POST /api/seats/lock
func (h Handler) LockSeats(c *gin.Context) {
	var req lockSeatsRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	userID, ok := h.actingUser(c, req.UserID)
	if !ok {
		return
	}
	res, err := h.Ledger.LockSeats(c.Request.Context(), services.LockRequest{
		ScheduleID: req.ScheduleID,
		SeatIDs:    req.SeatIDs,
		UserID:     userID,
		Hold:       time.Duration(req.HoldSeconds) * time.Second,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scheduleId":  res.ScheduleID,
		"seatIds":     res.SeatIDs,
		"lockedUntil": res.LockedUntil,
	})
}

// POST /api/seats/release
func (h Handler) ReleaseSeats(c *gin.Context) {
	var req releaseSeatsRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	userID, ok := h.actingUser(c, req.UserID)
	if !ok {
		return
	}
	if err := h.Ledger.ReleaseSeats(c.Request.Context(), req.SeatIDs, userID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seatIds": req.SeatIDs, "released": len(req.SeatIDs)})
}
