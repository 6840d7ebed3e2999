package handlers

import (
	"net/http"

	"busticket/internal/http/middleware"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	ScheduleID    int64                     `json:"scheduleId"`
	SeatIDs       []int64                   `json:"seatIds"`
	UserID        int64                     `json:"userId"`
	Passengers    []services.PassengerInput `json:"passengers"`
	ContactEmail  string                    `json:"contactEmail"`
	ContactPhone  string                    `json:"contactPhone"`
	PaymentMethod string                    `json:"paymentMethod"`
}

// POST /api/book
func (h Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	userID, ok := h.actingUser(c, req.UserID)
	if !ok {
		return
	}
	b, err := h.Bookings.CreateBooking(c.Request.Context(), services.BookingRequest{
		ScheduleID:    req.ScheduleID,
		SeatIDs:       req.SeatIDs,
		UserID:        userID,
		Passengers:    req.Passengers,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookingId":   b.ID,
		"ticketId":    b.TicketNumber,
		"status":      b.Status,
		"totalAmount": toBookingDTO(b).TotalAmount,
		"totalCents":  b.TotalCents,
	})
}

// GET /api/ticket/:ticketId
func (h Handler) GetTicket(c *gin.Context) {
	view, err := h.Bookings.GetTicket(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := toBookingDTO(view.Booking)
	sc := toScheduleDTO(view.Schedule)
	out.Schedule = &sc
	c.JSON(http.StatusOK, out)
}

// GET /api/bookings
func (h Handler) ListMyBookings(c *gin.Context) {
	rc, _ := middleware.CurrentUser(c)
	list, err := h.Bookings.ListUserBookings(c.Request.Context(), int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := make([]bookingDTO, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingDTO(b))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// POST /api/bookings/:id/cancel
func (h Handler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rc, _ := middleware.CurrentUser(c)
	b, err := h.Bookings.CancelBooking(c.Request.Context(), id, int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingDTO(b))
}
