package services

import (
	"context"
	"fmt"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/events"
	"busticket/internal/utils"
)

const (
	DefaultSeatHold    = 5 * time.Minute
	MaxSeatHold        = 30 * time.Minute
	MaxSeatsPerRequest = 10
)

// LockRequest asks for a temporary hold on a set of seats.
type LockRequest struct {
	ScheduleID int64
	SeatIDs    []int64
	UserID     int64
	Hold       time.Duration // zero uses the ledger default
}

type LockResult struct {
	ScheduleID  int64
	SeatIDs     []int64
	LockedUntil time.Time
}

// SeatLedger is the authority on per-schedule seat state.
type SeatLedger struct {
	Store     LedgerStore
	Schedules ScheduleStore
	Cache     SeatMapCache
	Events    EventPublisher
	Hold      time.Duration
	Now       func() time.Time
}

func (l SeatLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return utils.NowUTC()
}

func (l SeatLedger) holdFor(requested time.Duration) time.Duration {
	hold := requested
	if hold <= 0 {
		hold = l.Hold
	}
	if hold <= 0 {
		hold = DefaultSeatHold
	}
	if hold > MaxSeatHold {
		hold = MaxSeatHold
	}
	return hold
}

// ListAvailability renders every seat of the schedule for viewerID.
// viewerID 0 is an anonymous viewer that never sees "selected".
func (l SeatLedger) ListAvailability(ctx context.Context, scheduleID, viewerID int64) ([]models.SeatView, error) {
	if scheduleID <= 0 {
		return nil, domain.ValidationError{Field: "scheduleId", Msg: "must be positive"}
	}
	if _, err := l.Schedules.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	rows, err := l.rows(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	out := make([]models.SeatView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Project(viewerID, now))
	}
	return out, nil
}

func (l SeatLedger) rows(ctx context.Context, scheduleID int64) ([]models.SeatAvailability, error) {
	load := func(ctx context.Context) ([]models.SeatAvailability, error) {
		return l.Store.ListBySchedule(ctx, scheduleID)
	}
	if l.Cache == nil {
		return load(ctx)
	}
	return l.Cache.Load(ctx, scheduleID, load)
}

// LockSeats holds every requested seat for the user or none of them.
// Re-locking seats the user already holds extends the hold. Expired locks
// on the schedule are released first.
func (l SeatLedger) LockSeats(ctx context.Context, req LockRequest) (LockResult, error) {
	if err := validateSeatSet(req.UserID, req.SeatIDs); err != nil {
		return LockResult{}, err
	}
	if req.ScheduleID <= 0 {
		return LockResult{}, domain.ValidationError{Field: "scheduleId", Msg: "must be positive"}
	}
	if _, err := l.Schedules.Get(ctx, req.ScheduleID); err != nil {
		return LockResult{}, err
	}

	now := l.now()
	l.releaseExpired(ctx, req.ScheduleID, now)

	until := now.Add(l.holdFor(req.Hold))
	rows, err := l.Store.LockSeats(ctx, req.ScheduleID, req.SeatIDs, req.UserID, until, now)
	if err != nil {
		utils.LogEvent(domain.RequestIDFrom(ctx), "ledger", "lock_seats", fmt.Sprintf("schedule=%d user=%d seats=%v err=%v", req.ScheduleID, req.UserID, req.SeatIDs, err))
		return LockResult{}, err
	}
	// Extended holds may outlive until; report the earliest seat expiry.
	until = earliestExpiry(rows, until)
	l.invalidate(ctx, req.ScheduleID)
	utils.LogEvent(domain.RequestIDFrom(ctx), "ledger", "lock_seats", fmt.Sprintf("schedule=%d user=%d seats=%v until=%s", req.ScheduleID, req.UserID, req.SeatIDs, utils.FormatTimestamp(until)))
	return LockResult{ScheduleID: req.ScheduleID, SeatIDs: append([]int64(nil), req.SeatIDs...), LockedUntil: until}, nil
}

// CommitSeats books seats the user holds a live lock on. Expired locks are
// refused with lock_expired and stay locked until the sweeper frees them.
func (l SeatLedger) CommitSeats(ctx context.Context, seatIDs []int64, userID int64) ([]models.SeatAvailability, error) {
	if err := validateSeatSet(userID, seatIDs); err != nil {
		return nil, err
	}
	rows, err := l.Store.CommitSeats(ctx, seatIDs, userID, l.now())
	if err != nil {
		return nil, err
	}
	l.invalidate(ctx, scheduleIDs(rows)...)
	return rows, nil
}

// ReleaseSeats gives the user's locks back before they expire.
func (l SeatLedger) ReleaseSeats(ctx context.Context, seatIDs []int64, userID int64) error {
	if err := validateSeatSet(userID, seatIDs); err != nil {
		return err
	}
	rows, err := l.Store.ReleaseSeats(ctx, seatIDs, userID)
	if err != nil {
		return err
	}
	l.invalidate(ctx, scheduleIDs(rows)...)
	l.publishReleased(ctx, rows, events.ReleaseByUser)
	utils.LogEvent(domain.RequestIDFrom(ctx), "ledger", "release_seats", fmt.Sprintf("user=%d seats=%v", userID, seatIDs))
	return nil
}

// ReleaseExpiredLocks frees every lock past its expiry and reports how
// many seats changed. Running it again immediately returns 0.
func (l SeatLedger) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	rows, err := l.Store.ReleaseExpired(ctx, 0, l.now())
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	l.invalidate(ctx, scheduleIDs(rows)...)
	l.publishReleased(ctx, rows, events.ReleaseByExpiry)
	return len(rows), nil
}

// releaseExpired is the opportunistic sweep done before a lock attempt.
// Failures only cost freshness, so they are logged and ignored.
func (l SeatLedger) releaseExpired(ctx context.Context, scheduleID int64, now time.Time) {
	rows, err := l.Store.ReleaseExpired(ctx, scheduleID, now)
	if err != nil {
		utils.LogEvent(domain.RequestIDFrom(ctx), "ledger", "release_expired", fmt.Sprintf("schedule=%d err=%v", scheduleID, err))
		return
	}
	if len(rows) > 0 {
		l.invalidate(ctx, scheduleID)
		l.publishReleased(ctx, rows, events.ReleaseByExpiry)
	}
}

func (l SeatLedger) invalidate(ctx context.Context, ids ...int64) {
	if l.Cache != nil {
		l.Cache.Invalidate(ctx, ids...)
	}
}

func (l SeatLedger) publishReleased(ctx context.Context, rows []models.SeatAvailability, reason string) {
	if l.Events == nil {
		return
	}
	bySchedule := map[int64][]int64{}
	var order []int64
	for _, r := range rows {
		if _, ok := bySchedule[r.ScheduleID]; !ok {
			order = append(order, r.ScheduleID)
		}
		bySchedule[r.ScheduleID] = append(bySchedule[r.ScheduleID], r.ID)
	}
	at := l.now()
	for _, id := range order {
		ev := events.SeatsReleased{ScheduleID: id, SeatIDs: bySchedule[id], Reason: reason, At: at}
		if err := l.Events.Publish(ctx, events.KeySeatsReleased, ev); err != nil {
			utils.LogEvent(domain.RequestIDFrom(ctx), "events", "publish", fmt.Sprintf("key=%s schedule=%d err=%v", events.KeySeatsReleased, id, err))
		}
	}
}

func scheduleIDs(rows []models.SeatAvailability) []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, r := range rows {
		if !seen[r.ScheduleID] {
			seen[r.ScheduleID] = true
			out = append(out, r.ScheduleID)
		}
	}
	return out
}

func validateSeatSet(userID int64, seatIDs []int64) error {
	var errs domain.ValidationErrors
	if userID <= 0 {
		errs = append(errs, domain.ValidationError{Field: "userId", Msg: "must be positive"})
	}
	switch {
	case len(seatIDs) == 0:
		errs = append(errs, domain.ValidationError{Field: "seatIds", Msg: "at least one seat is required"})
	case len(seatIDs) > MaxSeatsPerRequest:
		errs = append(errs, domain.ValidationError{Field: "seatIds", Msg: fmt.Sprintf("at most %d seats per request", MaxSeatsPerRequest)})
	default:
		seen := make(map[int64]bool, len(seatIDs))
		for _, id := range seatIDs {
			if id <= 0 {
				errs = append(errs, domain.ValidationError{Field: "seatIds", Msg: "seat ids must be positive"})
				break
			}
			if seen[id] {
				errs = append(errs, domain.ValidationError{Field: "seatIds", Msg: fmt.Sprintf("seat %d listed twice", id)})
				break
			}
			seen[id] = true
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func earliestExpiry(rows []models.SeatAvailability, fallback time.Time) time.Time {
	var out time.Time
	for _, r := range rows {
		if r.LockedUntil != nil && (out.IsZero() || r.LockedUntil.Before(out)) {
			out = *r.LockedUntil
		}
	}
	if out.IsZero() {
		return fallback
	}
	return out
}
