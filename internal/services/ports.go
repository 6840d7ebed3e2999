package services

import (
	"context"
	"time"

	"busticket/internal/domain/models"
	"busticket/internal/repositories"
)

// LedgerStore holds seat_availability rows. Each mutating call is atomic
// over its whole id set and returns a domain.SeatConflictError listing
// every refused seat when any of them cannot move.
type LedgerStore interface {
	ListBySchedule(ctx context.Context, scheduleID int64) ([]models.SeatAvailability, error)
	GetSeats(ctx context.Context, ids []int64) ([]models.SeatAvailability, error)
	LockSeats(ctx context.Context, scheduleID int64, ids []int64, userID int64, until, now time.Time) ([]models.SeatAvailability, error)
	CommitSeats(ctx context.Context, ids []int64, userID int64, now time.Time) ([]models.SeatAvailability, error)
	ReleaseSeats(ctx context.Context, ids []int64, userID int64) ([]models.SeatAvailability, error)
	ReleaseExpired(ctx context.Context, scheduleID int64, now time.Time) ([]models.SeatAvailability, error)
}

type BookingStore interface {
	CreateConfirmed(ctx context.Context, in repositories.ConfirmBooking) (models.Booking, error)
	GetByTicket(ctx context.Context, ticket string) (models.Booking, error)
	GetByID(ctx context.Context, id int64) (models.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from []models.BookingStatus, to models.BookingStatus, payment models.PaymentStatus) error
}

type ScheduleStore interface {
	Search(ctx context.Context, q models.ScheduleQuery) ([]models.ScheduleSummary, error)
	Get(ctx context.Context, id int64) (models.ScheduleSummary, error)
	Publish(ctx context.Context, s models.Schedule, upperDeckSurcharge int64) (models.Schedule, error)
}

type FleetStore interface {
	CreateBus(ctx context.Context, b models.Bus) (models.Bus, error)
	GetBus(ctx context.Context, id int64) (models.Bus, error)
}

// SeatMapCache fronts ListBySchedule. Invalidate is called after every
// successful mutation of a schedule's seats.
type SeatMapCache interface {
	Load(ctx context.Context, scheduleID int64, load func(context.Context) ([]models.SeatAvailability, error)) ([]models.SeatAvailability, error)
	Invalidate(ctx context.Context, scheduleIDs ...int64)
}

// EventPublisher emits domain events after a state change committed.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// PaymentGateway charges and refunds booking totals. A declined charge is
// reported as domain.PaymentError.
type PaymentGateway interface {
	Charge(ctx context.Context, req models.PaymentRequest) (models.PaymentReceipt, error)
	Refund(ctx context.Context, receipt models.PaymentReceipt) error
}
