// Package memory keeps every table in process memory behind one mutex. It
// backs DB_DRIVER=memory and the concurrency tests; the seat transitions
// follow the same check-then-apply rules as the SQL repositories, with the
// mutex standing in for row locks.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
)

type Store struct {
	mu sync.Mutex

	seq          map[string]int64
	buses        map[int64]models.Bus
	seats        map[int64]models.Seat
	schedules    map[int64]models.Schedule
	availability map[int64]models.SeatAvailability
	bookings     map[int64]models.Booking
	tickets      map[string]int64
	busNumbers   map[string]int64
}

func New() *Store {
	return &Store{
		seq:          map[string]int64{},
		buses:        map[int64]models.Bus{},
		seats:        map[int64]models.Seat{},
		schedules:    map[int64]models.Schedule{},
		availability: map[int64]models.SeatAvailability{},
		bookings:     map[int64]models.Booking{},
		tickets:      map[string]int64{},
		busNumbers:   map[string]int64{},
	}
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// ---- fleet ----

func (s *Store) CreateBus(ctx context.Context, b models.Bus) (models.Bus, error) {
	if err := ctx.Err(); err != nil {
		return models.Bus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.busNumbers[strings.ToLower(b.Number)]; dup {
		return models.Bus{}, domain.ConflictError{Resource: "bus", Msg: "bus number already registered"}
	}
	seen := map[string]bool{}
	for _, seat := range b.Seats {
		if seen[seat.Number] {
			return models.Bus{}, domain.ValidationError{Field: "seats", Msg: "duplicate seat number " + seat.Number}
		}
		seen[seat.Number] = true
	}

	b.ID = s.next("buses")
	b.IsActive = true
	b.Amenities = append([]string(nil), b.Amenities...)
	seats := make([]models.Seat, len(b.Seats))
	for i, seat := range b.Seats {
		seat.ID = s.next("seats")
		seat.BusID = b.ID
		s.seats[seat.ID] = seat
		seats[i] = seat
	}
	b.Seats = seats
	s.buses[b.ID] = b
	s.busNumbers[strings.ToLower(b.Number)] = b.ID
	return cloneBus(b), nil
}

func (s *Store) GetBus(ctx context.Context, id int64) (models.Bus, error) {
	if err := ctx.Err(); err != nil {
		return models.Bus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buses[id]
	if !ok {
		return models.Bus{}, domain.NotFoundError{Resource: "bus"}
	}
	return cloneBus(b), nil
}

func cloneBus(b models.Bus) models.Bus {
	b.Amenities = append([]string(nil), b.Amenities...)
	b.Seats = append([]models.Seat(nil), b.Seats...)
	return b
}

// ---- schedules ----

func (s *Store) Publish(ctx context.Context, sc models.Schedule, upperDeckSurcharge int64) (models.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return models.Schedule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bus, ok := s.buses[sc.BusID]
	if !ok || len(bus.Seats) == 0 {
		return models.Schedule{}, domain.NotFoundError{Resource: "bus"}
	}
	sc.ID = s.next("schedules")
	sc.TotalSeats = len(bus.Seats)
	sc.AvailableSeats = len(bus.Seats)
	sc.IsActive = true
	s.schedules[sc.ID] = sc

	for _, seat := range bus.Seats {
		price := sc.BasePriceCents
		if seat.Deck == models.DeckUpper {
			price += upperDeckSurcharge
		}
		row := models.SeatAvailability{
			ID:         s.next("seat_availability"),
			ScheduleID: sc.ID,
			SeatID:     seat.ID,
			SeatNumber: seat.Number,
			Deck:       seat.Deck,
			Position:   seat.Position,
			SeatType:   seat.SeatType,
			Status:     models.SeatAvailable,
			PriceCents: price,
		}
		s.availability[row.ID] = row
	}
	return sc, nil
}

func (s *Store) summary(sc models.Schedule) models.ScheduleSummary {
	bus := s.buses[sc.BusID]
	return models.ScheduleSummary{
		Schedule:  sc,
		Operator:  bus.Operator,
		BusNumber: bus.Number,
		BusType:   bus.BusType,
		Amenities: append([]string{}, bus.Amenities...),
	}
}

func (s *Store) Get(ctx context.Context, id int64) (models.ScheduleSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.ScheduleSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[id]
	if !ok {
		return models.ScheduleSummary{}, domain.NotFoundError{Resource: "schedule"}
	}
	return s.summary(sc), nil
}

func (s *Store) Search(ctx context.Context, q models.ScheduleQuery) ([]models.ScheduleSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from := strings.ToLower(strings.TrimSpace(q.From))
	to := strings.ToLower(strings.TrimSpace(q.To))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ScheduleSummary{}
	for _, sc := range s.schedules {
		if !sc.IsActive || sc.TravelDate != q.Date {
			continue
		}
		if !strings.Contains(strings.ToLower(sc.FromCity), from) || !strings.Contains(strings.ToLower(sc.ToCity), to) {
			continue
		}
		out = append(out, s.summary(sc))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureTime != out[j].DepartureTime {
			return out[i].DepartureTime < out[j].DepartureTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- seat ledger ----

func (s *Store) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.SeatAvailability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.SeatAvailability{}
	for _, row := range s.availability {
		if row.ScheduleID == scheduleID {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetSeats(ctx context.Context, ids []int64) ([]models.SeatAvailability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.SeatAvailability{}
	for _, id := range ids {
		if row, ok := s.availability[id]; ok {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// rows snapshots the requested ids. Caller holds s.mu.
func (s *Store) rows(ids []int64) map[int64]models.SeatAvailability {
	out := make(map[int64]models.SeatAvailability, len(ids))
	for _, id := range ids {
		if row, ok := s.availability[id]; ok {
			out[id] = row
		}
	}
	return out
}

func (s *Store) LockSeats(ctx context.Context, scheduleID int64, ids []int64, userID int64, until, now time.Time) ([]models.SeatAvailability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.rows(ids)
	failed := models.CheckSeats(ids, current, func(row models.SeatAvailability) string {
		if row.ScheduleID != scheduleID {
			return domain.ReasonWrongSchedule
		}
		return row.LockRejection(userID, now)
	})
	if len(failed) > 0 {
		return nil, domain.SeatConflictError{Failed: failed}
	}

	out := make([]models.SeatAvailability, 0, len(ids))
	for _, id := range ids {
		row := current[id]
		u, h := row.LockUntil(userID, until, now), userID
		row.Status = models.SeatLocked
		row.LockedUntil, row.LockedByUserID = &u, &h
		s.availability[id] = row
		out = append(out, row.Clone())
	}
	return out, nil
}

// commitLocked books the seats. Caller holds s.mu.
func (s *Store) commitLocked(ids []int64, userID int64, now time.Time) ([]models.SeatAvailability, error) {
	current := s.rows(ids)
	failed := models.CheckSeats(ids, current, func(row models.SeatAvailability) string {
		return row.CommitRejection(userID, now)
	})
	if len(failed) > 0 {
		return nil, domain.SeatConflictError{Failed: failed}
	}
	out := make([]models.SeatAvailability, 0, len(ids))
	for _, id := range ids {
		row := current[id]
		row.Status = models.SeatBooked
		row.LockedUntil, row.LockedByUserID = nil, nil
		s.availability[id] = row
		if sc, ok := s.schedules[row.ScheduleID]; ok {
			sc.AvailableSeats--
			s.schedules[row.ScheduleID] = sc
		}
		out = append(out, row.Clone())
	}
	return out, nil
}

func (s *Store) CommitSeats(ctx context.Context, ids []int64, userID int64, now time.Time) ([]models.SeatAvailability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ids, userID, now)
}

func (s *Store) ReleaseSeats(ctx context.Context, ids []int64, userID int64) ([]models.SeatAvailability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.rows(ids)
	failed := models.CheckSeats(ids, current, func(row models.SeatAvailability) string {
		return row.ReleaseRejection(userID)
	})
	if len(failed) > 0 {
		return nil, domain.SeatConflictError{Failed: failed}
	}
	out := make([]models.SeatAvailability, 0, len(ids))
	for _, id := range ids {
		row := current[id]
		row.Status = models.SeatAvailable
		row.LockedUntil, row.LockedByUserID = nil, nil
		s.availability[id] = row
		out = append(out, row.Clone())
	}
	return out, nil
}

func (s *Store) ReleaseExpired(ctx context.Context, scheduleID int64, now time.Time) ([]models.SeatAvailability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SeatAvailability
	for id, row := range s.availability {
		if scheduleID > 0 && row.ScheduleID != scheduleID {
			continue
		}
		if !row.LockExpired(now) {
			continue
		}
		row.Status = models.SeatAvailable
		row.LockedUntil, row.LockedByUserID = nil, nil
		s.availability[id] = row
		out = append(out, row.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- bookings ----

func (s *Store) CreateConfirmed(ctx context.Context, in repositories.ConfirmBooking) (models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := in.Booking
	for _, id := range in.SeatIDs {
		if row, ok := s.availability[id]; ok && row.ScheduleID != b.ScheduleID {
			return models.Booking{}, domain.SeatConflictError{Failed: []domain.SeatFailure{{SeatID: id, Reason: domain.ReasonWrongSchedule}}}
		}
	}
	if _, ok := s.schedules[b.ScheduleID]; !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "schedule"}
	}
	// Validate everything before mutating so a failure leaves no trace.
	current := s.rows(in.SeatIDs)
	failed := models.CheckSeats(in.SeatIDs, current, func(row models.SeatAvailability) string {
		return row.CommitRejection(b.UserID, in.Now)
	})
	if len(failed) > 0 {
		return models.Booking{}, domain.SeatConflictError{Failed: failed}
	}

	id := s.next("bookings")
	ticket := models.TicketNumber(id, in.TicketSuffix)
	if _, dup := s.tickets[ticket]; dup {
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "ticket number collision"}
	}
	if _, err := s.commitLocked(in.SeatIDs, b.UserID, in.Now); err != nil {
		return models.Booking{}, err
	}

	b.ID = id
	b.TicketNumber = ticket
	b.CreatedAt = in.Now
	passengers := make([]models.Passenger, len(b.Passengers))
	for i, p := range b.Passengers {
		row := current[p.SeatAvailabilityID]
		p.ID = s.next("passengers")
		p.BookingID = id
		p.SeatID = row.SeatID
		p.SeatNumber = row.SeatNumber
		passengers[i] = p
	}
	b.Passengers = passengers
	s.bookings[id] = b
	s.tickets[ticket] = id
	return cloneBooking(b), nil
}

func cloneBooking(b models.Booking) models.Booking {
	b.Passengers = append([]models.Passenger(nil), b.Passengers...)
	return b
}

func (s *Store) GetByTicket(ctx context.Context, ticket string) (models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tickets[ticket]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return cloneBooking(s.bookings[id]), nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return cloneBooking(b), nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, from []models.BookingStatus, to models.BookingStatus, payment models.PaymentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	allowed := false
	for _, st := range from {
		if b.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking %d cannot become %s", id, to)}
	}
	b.Status = to
	b.PaymentStatus = payment
	s.bookings[id] = b
	return nil
}
