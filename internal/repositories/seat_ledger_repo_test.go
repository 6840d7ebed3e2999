package repositories

import (
	"context"
	"testing"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var lockColumns = []string{"id", "schedule_id", "seat_id", "status", "locked_until", "locked_by_user_id", "price_cents"}

func newLedgerRepo(t *testing.T) (SeatLedgerRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	return SeatLedgerRepo{DB: conn, Dialect: intdb.MySQL}, mock, func() { conn.Close() }
}

func failureReasons(t *testing.T, err error) map[int64]string {
	t.Helper()
	failed := domain.SeatFailures(err)
	if failed == nil {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	out := map[int64]string{}
	for _, f := range failed {
		out[f.SeatID] = f.Reason
	}
	return out
}

func TestLockSeatsCommitsWhenAllAvailable(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	until := now.Add(5 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "available", nil, nil, int64(4500)).
			AddRow(int64(2), int64(10), int64(101), "available", nil, nil, int64(4500)))
	mock.ExpectExec("UPDATE seat_availability SET locked_until = CASE").
		WithArgs("locked", now, until, until, "locked", int64(7), int64(1), int64(2), "available", "locked", int64(7), now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	rows, err := repo.LockSeats(context.Background(), 10, []int64{1, 2}, 7, until, now)
	if err != nil {
		t.Fatalf("lock seats: %v", err)
	}
	if len(rows) != 2 || rows[0].Status != models.SeatLocked || !rows[1].HeldBy(7, now) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLockSeatsRefusesWholeSet(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	other := now.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "available", nil, nil, int64(4500)).
			AddRow(int64(2), int64(10), int64(101), "booked", nil, nil, int64(4500)).
			AddRow(int64(3), int64(10), int64(102), "locked", other, int64(99), int64(4500)).
			AddRow(int64(4), int64(11), int64(100), "available", nil, nil, int64(4500)))
	mock.ExpectRollback()

	_, err := repo.LockSeats(context.Background(), 10, []int64{1, 2, 3, 4, 5}, 7, now.Add(5*time.Minute), now)
	reasons := failureReasons(t, err)
	want := map[int64]string{
		2: domain.ReasonBooked,
		3: domain.ReasonLockedByOther,
		4: domain.ReasonWrongSchedule,
		5: domain.ReasonNotFound,
	}
	if len(reasons) != len(want) {
		t.Fatalf("reasons = %v, want %v", reasons, want)
	}
	for id, r := range want {
		if reasons[id] != r {
			t.Fatalf("seat %d reason = %q, want %q", id, reasons[id], r)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLockSeatsKeepsLongerOwnHold(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	held := now.Add(29 * time.Minute)
	until := now.Add(5 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "locked", held, int64(7), int64(4500)).
			AddRow(int64(2), int64(10), int64(101), "available", nil, nil, int64(4500)))
	mock.ExpectExec(`GREATEST\(locked_until, \?\)`).
		WithArgs("locked", now, until, until, "locked", int64(7), int64(1), int64(2), "available", "locked", int64(7), now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	rows, err := repo.LockSeats(context.Background(), 10, []int64{1, 2}, 7, until, now)
	if err != nil {
		t.Fatalf("lock seats: %v", err)
	}
	if !rows[0].LockedUntil.Equal(held) {
		t.Fatalf("own hold shortened: got %v want %v", rows[0].LockedUntil, held)
	}
	if !rows[1].LockedUntil.Equal(until) {
		t.Fatalf("new hold: got %v want %v", rows[1].LockedUntil, until)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLockSeatsDetectsLostUpdate(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "available", nil, nil, int64(4500)).
			AddRow(int64(2), int64(10), int64(101), "available", nil, nil, int64(4500)))
	mock.ExpectExec("UPDATE seat_availability SET locked_until").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := repo.LockSeats(context.Background(), 10, []int64{1, 2}, 7, now.Add(time.Minute), now)
	reasons := failureReasons(t, err)
	if reasons[1] != domain.ReasonRaced || reasons[2] != domain.ReasonRaced {
		t.Fatalf("expected raced reasons, got %v", reasons)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCommitSeatsRejectsExpiredLock(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "locked", expired, int64(7), int64(4500)))
	mock.ExpectRollback()

	_, err := repo.CommitSeats(context.Background(), []int64{1}, 7, now)
	if reasons := failureReasons(t, err); reasons[1] != domain.ReasonLockExpired {
		t.Fatalf("expected lock_expired, got %v", reasons)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCommitSeatsDecrementsScheduleCounter(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	until := now.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "locked", until, int64(7), int64(4500)).
			AddRow(int64(2), int64(10), int64(101), "locked", until, int64(7), int64(4500)))
	mock.ExpectExec("UPDATE seat_availability SET status").
		WithArgs("booked", int64(1), int64(2), "locked", int64(7), now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE schedules SET available_seats").
		WithArgs(2, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.CommitSeats(context.Background(), []int64{1, 2}, 7, now)
	if err != nil {
		t.Fatalf("commit seats: %v", err)
	}
	for _, r := range rows {
		if r.Status != models.SeatBooked || r.LockedByUserID != nil || r.LockedUntil != nil {
			t.Fatalf("seat %d not booked cleanly: %+v", r.ID, r)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReleaseSeatsRequiresOwnLock(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	until := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "locked", until, int64(8), int64(4500)))
	mock.ExpectRollback()

	_, err := repo.ReleaseSeats(context.Background(), []int64{1}, 7)
	if reasons := failureReasons(t, err); reasons[1] != domain.ReasonLockedByOther {
		t.Fatalf("expected locked_by_other, got %v", reasons)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReleaseExpiredFreesSkippedRows(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, schedule_id FROM seat_availability WHERE status = (.+) FOR UPDATE SKIP LOCKED").
		WithArgs("locked", now, int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id"}).
			AddRow(int64(3), int64(10)).
			AddRow(int64(4), int64(10)))
	mock.ExpectExec("UPDATE seat_availability SET status").
		WithArgs("available", int64(3), int64(4), "locked", now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	rows, err := repo.ReleaseExpired(context.Background(), 10, now)
	if err != nil {
		t.Fatalf("release expired: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != 3 || rows[1].Status != models.SeatAvailable {
		t.Fatalf("unexpected released rows: %+v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReleaseExpiredNothingToDo(t *testing.T) {
	repo, mock, done := newLedgerRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, schedule_id FROM seat_availability").
		WithArgs("locked", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id"}))
	mock.ExpectRollback()

	rows, err := repo.ReleaseExpired(context.Background(), 0, now)
	if err != nil {
		t.Fatalf("release expired: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected nothing released, got %d", len(rows))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
