package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/utils"
)

type BusRepo struct {
	DB      *sql.DB
	Dialect intdb.Dialect
}

// CreateBus inserts the bus with its seat layout.
func (r BusRepo) CreateBus(ctx context.Context, b models.Bus) (models.Bus, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Bus{}, err
	}
	defer tx.Rollback()

	b.IsActive = true
	id, err := r.Dialect.InsertID(ctx, tx, `
		INSERT INTO buses (operator, bus_number, bus_type, amenities, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.Operator, b.Number, b.BusType, joinAmenities(b.Amenities), b.IsActive, b.CreatedAt,
	)
	if err != nil {
		if intdb.IsUniqueViolation(err) {
			return models.Bus{}, domain.ConflictError{Resource: "bus", Msg: "bus number already registered", Err: err}
		}
		return models.Bus{}, fmt.Errorf("insert bus: %w", err)
	}
	b.ID = id

	for i := range b.Seats {
		seat := &b.Seats[i]
		seat.BusID = id
		sid, err := r.Dialect.InsertID(ctx, tx, `
			INSERT INTO seats (bus_id, seat_number, deck, position, seat_type)
			VALUES (?, ?, ?, ?, ?)`,
			id, seat.Number, seat.Deck, seat.Position, seat.SeatType,
		)
		if err != nil {
			if intdb.IsUniqueViolation(err) {
				return models.Bus{}, domain.ValidationError{Field: "seats", Msg: "duplicate seat number " + seat.Number, Err: err}
			}
			return models.Bus{}, fmt.Errorf("insert seat: %w", err)
		}
		seat.ID = sid
	}

	if err := tx.Commit(); err != nil {
		return models.Bus{}, err
	}
	return b, nil
}

func (r BusRepo) GetBus(ctx context.Context, id int64) (models.Bus, error) {
	var (
		b         models.Bus
		amenities sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`
		SELECT id, operator, bus_number, bus_type, amenities, is_active, created_at
		FROM buses WHERE id = ?`), id).
		Scan(&b.ID, &b.Operator, &b.Number, &b.BusType, &amenities, &b.IsActive, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bus{}, domain.NotFoundError{Resource: "bus", Err: err}
	}
	if err != nil {
		return models.Bus{}, err
	}
	b.Amenities = utils.SplitList(amenities.String)

	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT id, bus_id, seat_number, deck, position, seat_type
		FROM seats WHERE bus_id = ? ORDER BY id`), id)
	if err != nil {
		return models.Bus{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var s models.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.Number, &s.Deck, &s.Position, &s.SeatType); err != nil {
			return models.Bus{}, err
		}
		b.Seats = append(b.Seats, s)
	}
	return b, rows.Err()
}
