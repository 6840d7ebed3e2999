package models

import "time"

// Schedule is one departure of a bus on a route and date.
type Schedule struct {
	ID             int64
	BusID          int64
	FromCity       string
	ToCity         string
	TravelDate     string // YYYY-MM-DD
	DepartureTime  string // HH:MM
	ArrivalTime    string // HH:MM
	BasePriceCents int64
	TotalSeats     int
	AvailableSeats int
	BoardingPoint  string
	DropPoint      string
	IsActive       bool
	CreatedAt      time.Time
}

// ScheduleSummary adds the bus details a search result shows.
type ScheduleSummary struct {
	Schedule
	Operator  string
	BusNumber string
	BusType   string
	Amenities []string
}

// ScheduleQuery filters a schedule search.
type ScheduleQuery struct {
	From string
	To   string
	Date string
}
