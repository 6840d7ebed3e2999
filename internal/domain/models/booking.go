package models

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Genders accepted for passengers.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Booking is a confirmed purchase of one or more seats on a schedule.
type Booking struct {
	ID            int64
	TicketNumber  string
	UserID        int64
	ScheduleID    int64
	Status        BookingStatus
	PaymentStatus PaymentStatus
	PaymentRef    string
	TotalCents    int64
	ContactEmail  string
	ContactPhone  string
	CreatedAt     time.Time
	Passengers    []Passenger
}

// SeatIDs lists the seat-availability ids the booking holds.
func (b Booking) SeatIDs() []int64 {
	out := make([]int64, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		out = append(out, p.SeatAvailabilityID)
	}
	return out
}

// Passenger occupies exactly one seat of a booking.
type Passenger struct {
	ID                 int64
	BookingID          int64
	SeatAvailabilityID int64
	SeatID             int64
	SeatNumber         string
	Name               string
	Age                int
	Gender             string
}

// TicketNumber formats the public ticket id: BT, the zero padded booking id,
// and a random suffix.
func TicketNumber(bookingID int64, suffix string) string {
	return fmt.Sprintf("BT%06d-%s", bookingID, suffix)
}

// TicketView joins a booking with the schedule it was made on.
type TicketView struct {
	Booking  Booking
	Schedule ScheduleSummary
}
