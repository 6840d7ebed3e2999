package models

import "time"

const (
	DeckLower = "lower"
	DeckUpper = "upper"
)

const (
	SeatTypeSeater  = "seater"
	SeatTypeSleeper = "sleeper"
)

const (
	PositionWindow = "window"
	PositionAisle  = "aisle"
	PositionMiddle = "middle"
)

// Bus is an operator vehicle and its physical seat layout.
type Bus struct {
	ID        int64
	Operator  string
	Number    string
	BusType   string
	Amenities []string
	IsActive  bool
	CreatedAt time.Time
	Seats     []Seat
}

// Seat is a physical seat of a bus, independent of any schedule.
type Seat struct {
	ID       int64
	BusID    int64
	Number   string
	Deck     string
	Position string
	SeatType string
}
