package handlers

import (
	"net/http"

	"busticket/internal/services"
	"busticket/internal/utils"

	"github.com/gin-gonic/gin"
)

type createBusRequest struct {
	Operator  string   `json:"operator"`
	Number    string   `json:"number"`
	BusType   string   `json:"busType"`
	Amenities []string `json:"amenities"`
	Seats     []struct {
		Number   string `json:"number"`
		Deck     string `json:"deck"`
		Position string `json:"position"`
		Type     string `json:"type"`
	} `json:"seats"`
}

type publishScheduleRequest struct {
	BusID         int64   `json:"busId"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Date          string  `json:"date"`
	DepartureTime string  `json:"departureTime"`
	ArrivalTime   string  `json:"arrivalTime"`
	Price         float64 `json:"price"`
	BoardingPoint string  `json:"boardingPoint"`
	DropPoint     string  `json:"dropPoint"`
}

// POST /api/admin/buses
func (h Handler) CreateBus(c *gin.Context) {
	var req createBusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in := services.BusInput{
		Operator:  req.Operator,
		Number:    req.Number,
		BusType:   req.BusType,
		Amenities: req.Amenities,
	}
	for _, s := range req.Seats {
		in.Seats = append(in.Seats, services.SeatInput{Number: s.Number, Deck: s.Deck, Position: s.Position, SeatType: s.Type})
	}
	bus, err := h.Fleet.CreateBus(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBusDTO(bus))
}

// POST /api/admin/schedules
func (h Handler) PublishSchedule(c *gin.Context) {
	var req publishScheduleRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	cents, err := utils.AmountToCents(req.Price)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid price", gin.H{"price": err.Error()})
		return
	}
	sc, err := h.Schedules.Publish(c.Request.Context(), services.ScheduleInput{
		BusID:          req.BusID,
		FromCity:       req.From,
		ToCity:         req.To,
		TravelDate:     req.Date,
		DepartureTime:  req.DepartureTime,
		ArrivalTime:    req.ArrivalTime,
		BasePriceCents: cents,
		BoardingPoint:  req.BoardingPoint,
		DropPoint:      req.DropPoint,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromSchedule(sc))
}
