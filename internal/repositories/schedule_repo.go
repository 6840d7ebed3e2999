package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/utils"
)

const dateLayout = "2006-01-02"

type ScheduleRepo struct {
	DB      *sql.DB
	Dialect intdb.Dialect
}

const scheduleColumns = `sc.id, sc.bus_id, sc.from_city, sc.to_city, sc.travel_date, sc.departure_time, sc.arrival_time,
	sc.base_price_cents, sc.total_seats, sc.available_seats, sc.boarding_point, sc.drop_point, sc.is_active, sc.created_at,
	b.operator, b.bus_number, b.bus_type, b.amenities`

func scanSchedule(rs rowScanner) (models.ScheduleSummary, error) {
	var (
		s         models.ScheduleSummary
		date      time.Time
		amenities sql.NullString
	)
	if err := rs.Scan(&s.ID, &s.BusID, &s.FromCity, &s.ToCity, &date, &s.DepartureTime, &s.ArrivalTime,
		&s.BasePriceCents, &s.TotalSeats, &s.AvailableSeats, &s.BoardingPoint, &s.DropPoint, &s.IsActive, &s.CreatedAt,
		&s.Operator, &s.BusNumber, &s.BusType, &amenities); err != nil {
		return s, err
	}
	s.TravelDate = date.Format(dateLayout)
	s.Amenities = utils.SplitList(amenities.String)
	return s, nil
}

// Search matches cities case-insensitively by substring on an exact date.
// Only active schedules are returned, earliest departure first.
func (r ScheduleRepo) Search(ctx context.Context, q models.ScheduleQuery) ([]models.ScheduleSummary, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT `+scheduleColumns+`
		FROM schedules sc
		JOIN buses b ON b.id = sc.bus_id
		WHERE LOWER(sc.from_city) LIKE ?
		  AND LOWER(sc.to_city) LIKE ?
		  AND sc.travel_date = ?
		  AND sc.is_active = ?
		ORDER BY sc.departure_time, sc.id`),
		likeContains(q.From), likeContains(q.To), q.Date, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ScheduleSummary{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r ScheduleRepo) Get(ctx context.Context, id int64) (models.ScheduleSummary, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`
		SELECT `+scheduleColumns+`
		FROM schedules sc
		JOIN buses b ON b.id = sc.bus_id
		WHERE sc.id = ?`), id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduleSummary{}, domain.NotFoundError{Resource: "schedule", Err: err}
	}
	return s, err
}

// Publish creates the schedule and one available ledger row per bus seat.
// Upper deck seats cost upperDeckSurcharge more than the base fare.
func (r ScheduleRepo) Publish(ctx context.Context, s models.Schedule, upperDeckSurcharge int64) (models.Schedule, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Schedule{}, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, r.Dialect.Rebind(`SELECT id, deck FROM seats WHERE bus_id = ? ORDER BY id`), s.BusID)
	if err != nil {
		return models.Schedule{}, err
	}
	type seatDeck struct {
		id   int64
		deck string
	}
	var seats []seatDeck
	for rows.Next() {
		var sd seatDeck
		if err := rows.Scan(&sd.id, &sd.deck); err != nil {
			rows.Close()
			return models.Schedule{}, err
		}
		seats = append(seats, sd)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Schedule{}, err
	}
	if len(seats) == 0 {
		return models.Schedule{}, domain.NotFoundError{Resource: "bus"}
	}

	s.TotalSeats = len(seats)
	s.AvailableSeats = len(seats)
	s.IsActive = true
	id, err := r.Dialect.InsertID(ctx, tx, `
		INSERT INTO schedules (bus_id, from_city, to_city, travel_date, departure_time, arrival_time,
			base_price_cents, total_seats, available_seats, boarding_point, drop_point, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.BusID, s.FromCity, s.ToCity, s.TravelDate, s.DepartureTime, s.ArrivalTime,
		s.BasePriceCents, s.TotalSeats, s.AvailableSeats, s.BoardingPoint, s.DropPoint, s.IsActive, s.CreatedAt,
	)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("insert schedule: %w", err)
	}
	s.ID = id

	stmt, err := tx.PrepareContext(ctx, r.Dialect.Rebind(`
		INSERT INTO seat_availability (schedule_id, seat_id, status, price_cents) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return models.Schedule{}, err
	}
	defer stmt.Close()
	for _, seat := range seats {
		price := s.BasePriceCents
		if seat.deck == models.DeckUpper {
			price += upperDeckSurcharge
		}
		if _, err := stmt.ExecContext(ctx, id, seat.id, string(models.SeatAvailable), price); err != nil {
			return models.Schedule{}, fmt.Errorf("insert seat availability: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Schedule{}, err
	}
	return s, nil
}

func likeContains(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("%", "", "_", "").Replace(s)
	return "%" + s + "%"
}

func joinAmenities(list []string) string {
	clean := make([]string, 0, len(list))
	for _, a := range list {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	return strings.Join(clean, ",")
}
