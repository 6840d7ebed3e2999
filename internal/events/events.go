package events

import "time"

// Routing keys on the booking exchange.
const (
	KeyBookingConfirmed = "booking.confirmed"
	KeyBookingCancelled = "booking.cancelled"
	KeySeatsReleased    = "seats.released"
)

// Release reasons carried by SeatsReleased.
const (
	ReleaseByUser   = "user"
	ReleaseByExpiry = "expired"
)

type BookingConfirmed struct {
	BookingID    int64     `json:"bookingId"`
	TicketNumber string    `json:"ticketId"`
	UserID       int64     `json:"userId"`
	ScheduleID   int64     `json:"scheduleId"`
	SeatIDs      []int64   `json:"seatIds"`
	TotalCents   int64     `json:"totalCents"`
	At           time.Time `json:"at"`
}

type BookingCancelled struct {
	BookingID    int64     `json:"bookingId"`
	TicketNumber string    `json:"ticketId"`
	UserID       int64     `json:"userId"`
	At           time.Time `json:"at"`
}

type SeatsReleased struct {
	ScheduleID int64     `json:"scheduleId"`
	SeatIDs    []int64   `json:"seatIds"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
