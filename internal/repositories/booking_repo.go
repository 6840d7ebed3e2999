package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

// ConfirmBooking is everything needed to persist a paid booking atomically.
type ConfirmBooking struct {
	Booking      models.Booking
	SeatIDs      []int64
	TicketSuffix string
	Now          time.Time
}

type BookingRepo struct {
	DB      *sql.DB
	Dialect intdb.Dialect
}

const bookingColumns = `id, ticket_number, user_id, schedule_id, status, payment_status, payment_ref,
	total_cents, contact_email, contact_phone, created_at`

// CreateConfirmed books the seats, writes the booking and its passengers,
// and assigns the ticket number in a single transaction. Any failure leaves
// nothing behind.
func (r BookingRepo) CreateConfirmed(ctx context.Context, in ConfirmBooking) (models.Booking, error) {
	b := in.Booking
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Booking{}, err
	}
	defer tx.Rollback()

	seats, err := commitSeatsTx(ctx, tx, r.Dialect, in.SeatIDs, b.UserID, in.Now)
	if err != nil {
		return models.Booking{}, err
	}
	byID := make(map[int64]models.SeatAvailability, len(seats))
	for _, s := range seats {
		if s.ScheduleID != b.ScheduleID {
			return models.Booking{}, domain.SeatConflictError{Failed: []domain.SeatFailure{{SeatID: s.ID, Reason: domain.ReasonWrongSchedule}}}
		}
		byID[s.ID] = s
	}

	id, err := r.Dialect.InsertID(ctx, tx, `
		INSERT INTO bookings (ticket_number, user_id, schedule_id, status, payment_status, payment_ref,
			total_cents, contact_email, contact_phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"PENDING-"+in.TicketSuffix, b.UserID, b.ScheduleID, string(b.Status), string(b.PaymentStatus), b.PaymentRef,
		b.TotalCents, b.ContactEmail, b.ContactPhone, in.Now,
	)
	if err != nil {
		if intdb.IsUniqueViolation(err) {
			return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "ticket number collision", Err: err}
		}
		return models.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	b.ID = id
	b.TicketNumber = models.TicketNumber(id, in.TicketSuffix)
	b.CreatedAt = in.Now
	if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`UPDATE bookings SET ticket_number = ? WHERE id = ?`), b.TicketNumber, id); err != nil {
		return models.Booking{}, fmt.Errorf("assign ticket number: %w", err)
	}

	for i := range b.Passengers {
		p := &b.Passengers[i]
		seat := byID[p.SeatAvailabilityID]
		p.BookingID = id
		p.SeatID = seat.SeatID
		pid, err := r.Dialect.InsertID(ctx, tx, `
			INSERT INTO passengers (booking_id, seat_availability_id, seat_id, name, age, gender)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, p.SeatAvailabilityID, p.SeatID, p.Name, p.Age, p.Gender,
		)
		if err != nil {
			return models.Booking{}, fmt.Errorf("insert passenger: %w", err)
		}
		p.ID = pid
	}

	if err := tx.Commit(); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

func scanBooking(rs rowScanner) (models.Booking, error) {
	var (
		b             models.Booking
		status, payst string
	)
	err := rs.Scan(&b.ID, &b.TicketNumber, &b.UserID, &b.ScheduleID, &status, &payst, &b.PaymentRef,
		&b.TotalCents, &b.ContactEmail, &b.ContactPhone, &b.CreatedAt)
	b.Status = models.BookingStatus(status)
	b.PaymentStatus = models.PaymentStatus(payst)
	b.CreatedAt = b.CreatedAt.UTC()
	return b, err
}

func (r BookingRepo) getOne(ctx context.Context, where string, arg any) (models.Booking, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE `+where+` LIMIT 1`), arg)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, err
	}
	byBooking, err := r.passengers(ctx, []int64{b.ID})
	if err != nil {
		return models.Booking{}, err
	}
	b.Passengers = byBooking[b.ID]
	return b, nil
}

func (r BookingRepo) GetByTicket(ctx context.Context, ticket string) (models.Booking, error) {
	return r.getOne(ctx, "ticket_number = ?", ticket)
}

func (r BookingRepo) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	return r.getOne(ctx, "id = ?", id)
}

// ListByUser returns the user's bookings, newest first.
func (r BookingRepo) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, err
	}
	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, len(out))
	for i, b := range out {
		ids[i] = b.ID
	}
	byBooking, err := r.passengers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Passengers = byBooking[out[i].ID]
	}
	return out, nil
}

func (r BookingRepo) passengers(ctx context.Context, bookingIDs []int64) (map[int64][]models.Passenger, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT p.id, p.booking_id, p.seat_availability_id, p.seat_id, s.seat_number, p.name, p.age, p.gender
		FROM passengers p
		JOIN seats s ON s.id = p.seat_id
		WHERE p.booking_id IN (`+intdb.Placeholders(len(bookingIDs))+`)
		ORDER BY p.id`), intdb.Int64Args(bookingIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]models.Passenger{}
	for rows.Next() {
		var p models.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.SeatAvailabilityID, &p.SeatID, &p.SeatNumber, &p.Name, &p.Age, &p.Gender); err != nil {
			return nil, err
		}
		out[p.BookingID] = append(out[p.BookingID], p)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking to status only while it is in one of from.
func (r BookingRepo) UpdateStatus(ctx context.Context, id int64, from []models.BookingStatus, to models.BookingStatus, payment models.PaymentStatus) error {
	args := []any{string(to), string(payment), id}
	for _, s := range from {
		args = append(args, string(s))
	}
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE bookings SET status = ?, payment_status = ?
		WHERE id = ? AND status IN (`+intdb.Placeholders(len(from))+`)`), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking %d cannot become %s", id, to)}
	}
	return nil
}
