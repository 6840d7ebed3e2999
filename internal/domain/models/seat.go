package models

import (
	"time"

	"busticket/internal/domain"
)

// SeatStatus is the persisted state of a seat on one schedule.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatLocked    SeatStatus = "locked"
	SeatBooked    SeatStatus = "booked"
)

// Statuses shown to a viewer. A lock is only "selected" for its holder.
const (
	ViewAvailable   = "available"
	ViewUnavailable = "unavailable"
	ViewSelected    = "selected"
)

// SeatAvailability is one row of the ledger: the state of a physical seat
// for a single schedule.
type SeatAvailability struct {
	ID             int64
	ScheduleID     int64
	SeatID         int64
	SeatNumber     string
	Deck           string
	Position       string
	SeatType       string
	Status         SeatStatus
	LockedUntil    *time.Time
	LockedByUserID *int64
	PriceCents     int64
}

// HeldBy reports whether userID holds a lock on the seat that has not expired.
func (s SeatAvailability) HeldBy(userID int64, now time.Time) bool {
	return s.Status == SeatLocked &&
		s.LockedByUserID != nil && *s.LockedByUserID == userID &&
		s.LockedUntil != nil && s.LockedUntil.After(now)
}

// LockUntil is the expiry a successful lock by userID leaves on the seat.
// Re-locking a live hold never moves its expiry earlier.
func (s SeatAvailability) LockUntil(userID int64, until, now time.Time) time.Time {
	if s.HeldBy(userID, now) && s.LockedUntil.After(until) {
		return *s.LockedUntil
	}
	return until
}

// LockExpired reports whether the seat is locked with an expiry at or before now.
func (s SeatAvailability) LockExpired(now time.Time) bool {
	return s.Status == SeatLocked && s.LockedUntil != nil && !s.LockedUntil.After(now)
}

// LockRejection returns "" when userID may lock (or extend) the seat.
func (s SeatAvailability) LockRejection(userID int64, now time.Time) string {
	switch s.Status {
	case SeatAvailable:
		return ""
	case SeatBooked:
		return domain.ReasonBooked
	case SeatLocked:
		if s.HeldBy(userID, now) {
			return ""
		}
		if s.LockedByUserID != nil && *s.LockedByUserID == userID {
			return domain.ReasonLockExpired
		}
		return domain.ReasonLockedByOther
	}
	return domain.ReasonRaced
}

// CommitRejection returns "" when userID may turn the seat into a booking.
func (s SeatAvailability) CommitRejection(userID int64, now time.Time) string {
	switch s.Status {
	case SeatBooked:
		return domain.ReasonBooked
	case SeatAvailable:
		return domain.ReasonNotLocked
	case SeatLocked:
		if s.LockedByUserID == nil || *s.LockedByUserID != userID {
			return domain.ReasonLockedByOther
		}
		if !s.HeldBy(userID, now) {
			return domain.ReasonLockExpired
		}
		return ""
	}
	return domain.ReasonRaced
}

// ReleaseRejection returns "" when userID may give the seat back.
// An expired lock of the same user can still be released.
func (s SeatAvailability) ReleaseRejection(userID int64) string {
	switch s.Status {
	case SeatBooked:
		return domain.ReasonBooked
	case SeatAvailable:
		return domain.ReasonNotLocked
	case SeatLocked:
		if s.LockedByUserID == nil || *s.LockedByUserID != userID {
			return domain.ReasonLockedByOther
		}
		return ""
	}
	return domain.ReasonRaced
}

// Clone copies the row including its pointer fields.
func (s SeatAvailability) Clone() SeatAvailability {
	out := s
	if s.LockedUntil != nil {
		t := *s.LockedUntil
		out.LockedUntil = &t
	}
	if s.LockedByUserID != nil {
		u := *s.LockedByUserID
		out.LockedByUserID = &u
	}
	return out
}

// SeatView is a seat as rendered for a particular viewer.
type SeatView struct {
	ID          int64      `json:"seatId"`
	BusSeatID   int64      `json:"busSeatId"`
	Number      string     `json:"number"`
	Deck        string     `json:"deck"`
	Position    string     `json:"position,omitempty"`
	SeatType    string     `json:"type"`
	Status      string     `json:"status"`
	PriceCents  int64      `json:"priceCents"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// Project renders the row for viewerID. Other users' locks and bookings are
// both "unavailable"; a viewer's own live lock is "selected". Expired locks
// waiting for the sweeper read as available.
func (s SeatAvailability) Project(viewerID int64, now time.Time) SeatView {
	v := SeatView{
		ID:         s.ID,
		BusSeatID:  s.SeatID,
		Number:     s.SeatNumber,
		Deck:       s.Deck,
		Position:   s.Position,
		SeatType:   s.SeatType,
		PriceCents: s.PriceCents,
	}
	switch {
	case s.Status == SeatAvailable, s.LockExpired(now):
		v.Status = ViewAvailable
	case s.Status == SeatLocked && viewerID > 0 && s.HeldBy(viewerID, now):
		v.Status = ViewSelected
		t := *s.LockedUntil
		v.LockedUntil = &t
	default:
		v.Status = ViewUnavailable
	}
	return v
}

// CheckSeats applies reject to each requested id in request order and
// collects the refusals. Ids missing from rows fail as not found.
func CheckSeats(ids []int64, rows map[int64]SeatAvailability, reject func(SeatAvailability) string) []domain.SeatFailure {
	var failed []domain.SeatFailure
	for _, id := range ids {
		row, ok := rows[id]
		if !ok {
			failed = append(failed, domain.SeatFailure{SeatID: id, Reason: domain.ReasonNotFound})
			continue
		}
		if reason := reject(row); reason != "" {
			failed = append(failed, domain.SeatFailure{SeatID: id, Reason: reason})
		}
	}
	return failed
}
