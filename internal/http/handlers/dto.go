package handlers

import (
	"time"

	"busticket/internal/domain/models"
	"busticket/internal/utils"
)

type seatDTO struct {
	models.SeatView
	Price float64 `json:"price"`
}

type scheduleDTO struct {
	ID             int64    `json:"id"`
	BusID          int64    `json:"busId"`
	Operator       string   `json:"operator,omitempty"`
	BusNumber      string   `json:"busNumber,omitempty"`
	BusType        string   `json:"busType,omitempty"`
	Amenities      []string `json:"amenities,omitempty"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	Date           string   `json:"date"`
	DepartureTime  string   `json:"departureTime"`
	ArrivalTime    string   `json:"arrivalTime"`
	Price          float64  `json:"price"`
	PriceCents     int64    `json:"priceCents"`
	TotalSeats     int      `json:"totalSeats"`
	AvailableSeats int      `json:"availableSeats"`
	BoardingPoint  string   `json:"boardingPoint,omitempty"`
	DropPoint      string   `json:"dropPoint,omitempty"`
}

type passengerDTO struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	SeatID     int64  `json:"seatId"`
	SeatNumber string `json:"seatNumber"`
}

type bookingDTO struct {
	BookingID     int64          `json:"bookingId"`
	TicketID      string         `json:"ticketId"`
	ScheduleID    int64          `json:"scheduleId"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"paymentStatus"`
	TotalAmount   float64        `json:"totalAmount"`
	TotalCents    int64          `json:"totalCents"`
	ContactEmail  string         `json:"contactEmail"`
	ContactPhone  string         `json:"contactPhone"`
	CreatedAt     time.Time      `json:"createdAt"`
	Passengers    []passengerDTO `json:"passengers"`
	Schedule      *scheduleDTO   `json:"schedule,omitempty"`
}

type busDTO struct {
	ID        int64        `json:"id"`
	Operator  string       `json:"operator"`
	Number    string       `json:"number"`
	BusType   string       `json:"busType"`
	Amenities []string     `json:"amenities"`
	Seats     []busSeatDTO `json:"seats"`
}

type busSeatDTO struct {
	ID       int64  `json:"id"`
	Number   string `json:"number"`
	Deck     string `json:"deck"`
	Position string `json:"position,omitempty"`
	SeatType string `json:"type"`
}

func toSeatDTOs(views []models.SeatView) []seatDTO {
	out := make([]seatDTO, 0, len(views))
	for _, v := range views {
		out = append(out, seatDTO{SeatView: v, Price: utils.CentsToAmount(v.PriceCents)})
	}
	return out
}

func toScheduleDTO(s models.ScheduleSummary) scheduleDTO {
	d := fromSchedule(s.Schedule)
	d.Operator = s.Operator
	d.BusNumber = s.BusNumber
	d.BusType = s.BusType
	d.Amenities = s.Amenities
	return d
}

func fromSchedule(s models.Schedule) scheduleDTO {
	return scheduleDTO{
		ID:             s.ID,
		BusID:          s.BusID,
		From:           s.FromCity,
		To:             s.ToCity,
		Date:           s.TravelDate,
		DepartureTime:  s.DepartureTime,
		ArrivalTime:    s.ArrivalTime,
		Price:          utils.CentsToAmount(s.BasePriceCents),
		PriceCents:     s.BasePriceCents,
		TotalSeats:     s.TotalSeats,
		AvailableSeats: s.AvailableSeats,
		BoardingPoint:  s.BoardingPoint,
		DropPoint:      s.DropPoint,
	}
}

func toBookingDTO(b models.Booking) bookingDTO {
	d := bookingDTO{
		BookingID:     b.ID,
		TicketID:      b.TicketNumber,
		ScheduleID:    b.ScheduleID,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   utils.CentsToAmount(b.TotalCents),
		TotalCents:    b.TotalCents,
		ContactEmail:  b.ContactEmail,
		ContactPhone:  b.ContactPhone,
		CreatedAt:     b.CreatedAt,
		Passengers:    make([]passengerDTO, 0, len(b.Passengers)),
	}
	for _, p := range b.Passengers {
		d.Passengers = append(d.Passengers, passengerDTO{
			Name:       p.Name,
			Age:        p.Age,
			Gender:     p.Gender,
			SeatID:     p.SeatAvailabilityID,
			SeatNumber: p.SeatNumber,
		})
	}
	return d
}

func toBusDTO(b models.Bus) busDTO {
	d := busDTO{ID: b.ID, Operator: b.Operator, Number: b.Number, BusType: b.BusType, Amenities: b.Amenities}
	for _, s := range b.Seats {
		d.Seats = append(d.Seats, busSeatDTO{ID: s.ID, Number: s.Number, Deck: s.Deck, Position: s.Position, SeatType: s.SeatType})
	}
	return d
}
