package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

// SeatLedgerRepo persists seat_availability rows. Every transition runs in
// one transaction: the rows are locked with SELECT ... FOR UPDATE in id
// order, checked, then updated with a conditional UPDATE whose affected row
// count must equal the size of the set.
type SeatLedgerRepo struct {
	DB      *sql.DB
	Dialect intdb.Dialect
}

const seatColumns = `sa.id, sa.schedule_id, sa.seat_id, s.seat_number, s.deck, s.position, s.seat_type,
	sa.status, sa.locked_until, sa.locked_by_user_id, sa.price_cents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(rs rowScanner) (models.SeatAvailability, error) {
	var (
		s      models.SeatAvailability
		status string
		until  sql.NullTime
		holder sql.NullInt64
	)
	if err := rs.Scan(&s.ID, &s.ScheduleID, &s.SeatID, &s.SeatNumber, &s.Deck, &s.Position, &s.SeatType,
		&status, &until, &holder, &s.PriceCents); err != nil {
		return s, err
	}
	s.Status = models.SeatStatus(status)
	s.LockedUntil = intdb.TimePtr(until)
	s.LockedByUserID = intdb.Int64Ptr(holder)
	return s, nil
}

func (r SeatLedgerRepo) querySeats(ctx context.Context, where string, args ...any) ([]models.SeatAvailability, error) {
	query := `SELECT ` + seatColumns + `
		FROM seat_availability sa
		JOIN seats s ON s.id = sa.seat_id
		WHERE ` + where + `
		ORDER BY sa.id`
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SeatAvailability{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r SeatLedgerRepo) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.SeatAvailability, error) {
	return r.querySeats(ctx, "sa.schedule_id = ?", scheduleID)
}

func (r SeatLedgerRepo) GetSeats(ctx context.Context, ids []int64) ([]models.SeatAvailability, error) {
	if len(ids) == 0 {
		return []models.SeatAvailability{}, nil
	}
	return r.querySeats(ctx, "sa.id IN ("+intdb.Placeholders(len(ids))+")", intdb.Int64Args(ids)...)
}

// LockSeats moves every id from available (or the caller's own live lock)
// to locked until the given time.
func (r SeatLedgerRepo) LockSeats(ctx context.Context, scheduleID int64, ids []int64, userID int64, until, now time.Time) ([]models.SeatAvailability, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := selectForUpdate(ctx, tx, r.Dialect, ids)
	if err != nil {
		return nil, err
	}
	failed := models.CheckSeats(ids, current, func(s models.SeatAvailability) string {
		if s.ScheduleID != scheduleID {
			return domain.ReasonWrongSchedule
		}
		return s.LockRejection(userID, now)
	})
	if len(failed) > 0 {
		return nil, domain.SeatConflictError{Failed: failed}
	}

	// locked_until is assigned first: MySQL evaluates SET left to right
	// against already updated columns.
	args := []any{string(models.SeatLocked), now, until, until, string(models.SeatLocked), userID}
	args = append(args, intdb.Int64Args(ids)...)
	args = append(args, string(models.SeatAvailable), string(models.SeatLocked), userID, now)
	res, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE seat_availability
		SET locked_until = CASE WHEN status = ? AND locked_until > ? THEN GREATEST(locked_until, ?) ELSE ? END,
		    status = ?, locked_by_user_id = ?
		WHERE id IN (`+intdb.Placeholders(len(ids))+`)
		  AND (status = ? OR (status = ? AND locked_by_user_id = ? AND locked_until > ?))
	`), args...)
	if err := expectAffected(res, err, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := make([]models.SeatAvailability, 0, len(ids))
	for _, id := range ids {
		s := current[id]
		u, h := s.LockUntil(userID, until, now), userID
		s.Status = models.SeatLocked
		s.LockedUntil, s.LockedByUserID = &u, &h
		out = append(out, s)
	}
	return out, nil
}

// CommitSeats books seats the caller holds a live lock on.
func (r SeatLedgerRepo) CommitSeats(ctx context.Context, ids []int64, userID int64, now time.Time) ([]models.SeatAvailability, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out, err := commitSeatsTx(ctx, tx, r.Dialect, ids, userID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseSeats returns the caller's locks to available.
func (r SeatLedgerRepo) ReleaseSeats(ctx context.Context, ids []int64, userID int64) ([]models.SeatAvailability, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := selectForUpdate(ctx, tx, r.Dialect, ids)
	if err != nil {
		return nil, err
	}
	failed := models.CheckSeats(ids, current, func(s models.SeatAvailability) string {
		return s.ReleaseRejection(userID)
	})
	if len(failed) > 0 {
		return nil, domain.SeatConflictError{Failed: failed}
	}

	args := []any{string(models.SeatAvailable)}
	args = append(args, intdb.Int64Args(ids)...)
	args = append(args, string(models.SeatLocked), userID)
	res, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE seat_availability
		SET status = ?, locked_until = NULL, locked_by_user_id = NULL
		WHERE id IN (`+intdb.Placeholders(len(ids))+`)
		  AND status = ? AND locked_by_user_id = ?
	`), args...)
	if err := expectAffected(res, err, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := make([]models.SeatAvailability, 0, len(ids))
	for _, id := range ids {
		s := current[id]
		s.Status = models.SeatAvailable
		s.LockedUntil, s.LockedByUserID = nil, nil
		out = append(out, s)
	}
	return out, nil
}

// ReleaseExpired frees every lock whose expiry is at or before now. A
// scheduleID of 0 sweeps all schedules. Rows locked by an in-flight
// transaction are skipped and picked up by a later sweep.
func (r SeatLedgerRepo) ReleaseExpired(ctx context.Context, scheduleID int64, now time.Time) ([]models.SeatAvailability, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	where := "status = ? AND locked_until <= ?"
	args := []any{string(models.SeatLocked), now}
	if scheduleID > 0 {
		where += " AND schedule_id = ?"
		args = append(args, scheduleID)
	}
	rows, err := tx.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT id, schedule_id FROM seat_availability
		WHERE `+where+`
		ORDER BY id
		FOR UPDATE SKIP LOCKED
	`), args...)
	if err != nil {
		return nil, err
	}
	var expired []models.SeatAvailability
	for rows.Next() {
		var s models.SeatAvailability
		if err := rows.Scan(&s.ID, &s.ScheduleID); err != nil {
			rows.Close()
			return nil, err
		}
		s.Status = models.SeatAvailable
		expired = append(expired, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(expired))
	for i, s := range expired {
		ids[i] = s.ID
	}
	upd := []any{string(models.SeatAvailable)}
	upd = append(upd, intdb.Int64Args(ids)...)
	upd = append(upd, string(models.SeatLocked), now)
	res, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE seat_availability
		SET status = ?, locked_until = NULL, locked_by_user_id = NULL
		WHERE id IN (`+intdb.Placeholders(len(ids))+`)
		  AND status = ? AND locked_until <= ?
	`), upd...)
	if err := expectAffected(res, err, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return expired, nil
}

// selectForUpdate row-locks the ids in ascending order so concurrent
// transactions over overlapping sets queue instead of deadlocking.
func selectForUpdate(ctx context.Context, tx *sql.Tx, d intdb.Dialect, ids []int64) (map[int64]models.SeatAvailability, error) {
	if len(ids) == 0 {
		return map[int64]models.SeatAvailability{}, nil
	}
	rows, err := tx.QueryContext(ctx, d.Rebind(`
		SELECT id, schedule_id, seat_id, status, locked_until, locked_by_user_id, price_cents
		FROM seat_availability
		WHERE id IN (`+intdb.Placeholders(len(ids))+`)
		ORDER BY id
		FOR UPDATE
	`), intdb.Int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]models.SeatAvailability, len(ids))
	for rows.Next() {
		var (
			s      models.SeatAvailability
			status string
			until  sql.NullTime
			holder sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.ScheduleID, &s.SeatID, &status, &until, &holder, &s.PriceCents); err != nil {
			return nil, err
		}
		s.Status = models.SeatStatus(status)
		s.LockedUntil = intdb.TimePtr(until)
		s.LockedByUserID = intdb.Int64Ptr(holder)
		out[s.ID] = s
	}
	return out, rows.Err()
}

// commitSeatsTx books the seats inside an open transaction and decrements
// the per-schedule available counter.
func commitSeatsTx(ctx context.Context, tx *sql.Tx, d intdb.Dialect, ids []int64, userID int64, now time.Time) ([]models.SeatAvailability, error) {
	current, err := selectForUpdate(ctx, tx, d, ids)
	if err != nil {
		return nil, err
	}
	failed := models.CheckSeats(ids, current, func(s models.SeatAvailability) string {
		return s.CommitRejection(userID, now)
	})
	if len(failed) > 0 {
		return nil, domain.SeatConflictError{Failed: failed}
	}

	args := []any{string(models.SeatBooked)}
	args = append(args, intdb.Int64Args(ids)...)
	args = append(args, string(models.SeatLocked), userID, now)
	res, err := tx.ExecContext(ctx, d.Rebind(`
		UPDATE seat_availability
		SET status = ?, locked_until = NULL, locked_by_user_id = NULL
		WHERE id IN (`+intdb.Placeholders(len(ids))+`)
		  AND status = ? AND locked_by_user_id = ? AND locked_until > ?
	`), args...)
	if err := expectAffected(res, err, ids); err != nil {
		return nil, err
	}

	perSchedule := map[int64]int{}
	var order []int64
	out := make([]models.SeatAvailability, 0, len(ids))
	for _, id := range ids {
		s := current[id]
		if perSchedule[s.ScheduleID] == 0 {
			order = append(order, s.ScheduleID)
		}
		perSchedule[s.ScheduleID]++
		s.Status = models.SeatBooked
		s.LockedUntil, s.LockedByUserID = nil, nil
		out = append(out, s)
	}
	for _, scheduleID := range order {
		if _, err := tx.ExecContext(ctx, d.Rebind(`
			UPDATE schedules SET available_seats = available_seats - ? WHERE id = ?
		`), perSchedule[scheduleID], scheduleID); err != nil {
			return nil, fmt.Errorf("update available seats: %w", err)
		}
	}
	return out, nil
}

// expectAffected fails the transition unless the UPDATE touched every id.
func expectAffected(res sql.Result, err error, ids []int64) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == int64(len(ids)) {
		return nil
	}
	failed := make([]domain.SeatFailure, 0, len(ids))
	for _, id := range ids {
		failed = append(failed, domain.SeatFailure{SeatID: id, Reason: domain.ReasonRaced})
	}
	return domain.SeatConflictError{Failed: failed}
}
