package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newBookingRepo(t *testing.T) (BookingRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	return BookingRepo{DB: conn, Dialect: intdb.MySQL}, mock, func() { conn.Close() }
}

func confirmInput(now time.Time) ConfirmBooking {
	return ConfirmBooking{
		Booking: models.Booking{
			UserID:        7,
			ScheduleID:    10,
			Status:        models.BookingConfirmed,
			PaymentStatus: models.PaymentPaid,
			PaymentRef:    "PAY-ABC",
			TotalCents:    4500,
			ContactEmail:  "rider@example.com",
			ContactPhone:  "+15550100",
			Passengers: []models.Passenger{
				{SeatAvailabilityID: 1, SeatNumber: "1A", Name: "Ana", Age: 30, Gender: models.GenderFemale},
			},
		},
		SeatIDs:      []int64{1},
		TicketSuffix: "0A1B2C3D",
		Now:          now,
	}
}

func TestCreateConfirmedWritesEverythingInOneTx(t *testing.T) {
	repo, mock, done := newBookingRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "locked", now.Add(time.Minute), int64(7), int64(4500)))
	mock.ExpectExec("UPDATE seat_availability SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedules SET available_seats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("PENDING-0A1B2C3D", int64(7), int64(10), "confirmed", "paid", "PAY-ABC", int64(4500), "rider@example.com", "+15550100", now).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec("UPDATE bookings SET ticket_number").
		WithArgs("BT000012-0A1B2C3D", int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO passengers").
		WithArgs(int64(12), int64(1), int64(100), "Ana", 30, models.GenderFemale).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectCommit()

	b, err := repo.CreateConfirmed(context.Background(), confirmInput(now))
	if err != nil {
		t.Fatalf("create confirmed: %v", err)
	}
	if b.ID != 12 || b.TicketNumber != "BT000012-0A1B2C3D" {
		t.Fatalf("unexpected booking identity: %d %s", b.ID, b.TicketNumber)
	}
	if b.Passengers[0].ID != 55 || b.Passengers[0].SeatID != 100 {
		t.Fatalf("passenger not linked: %+v", b.Passengers[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateConfirmedRollsBackOnPassengerFailure(t *testing.T) {
	repo, mock, done := newBookingRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "locked", now.Add(time.Minute), int64(7), int64(4500)))
	mock.ExpectExec("UPDATE seat_availability SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedules SET available_seats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec("UPDATE bookings SET ticket_number").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO passengers").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := repo.CreateConfirmed(context.Background(), confirmInput(now)); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateConfirmedStopsOnSeatConflict(t *testing.T) {
	repo, mock, done := newBookingRepo(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seat_availability WHERE id IN").
		WillReturnRows(sqlmock.NewRows(lockColumns).
			AddRow(int64(1), int64(10), int64(100), "booked", nil, nil, int64(4500)))
	mock.ExpectRollback()

	_, err := repo.CreateConfirmed(context.Background(), confirmInput(now))
	if reasons := failureReasons(t, err); reasons[1] != domain.ReasonBooked {
		t.Fatalf("expected booked, got %v", reasons)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusConflictWhenNoRowMoves(t *testing.T) {
	repo, mock, done := newBookingRepo(t)
	defer done()

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("cancelled", "refunded", int64(12), "pending", "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 12,
		[]models.BookingStatus{models.BookingPending, models.BookingConfirmed},
		models.BookingCancelled, models.PaymentRefunded)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByTicketNotFound(t *testing.T) {
	repo, mock, done := newBookingRepo(t)
	defer done()

	mock.ExpectQuery("FROM bookings WHERE ticket_number").
		WithArgs("BT000099-FFFFFFFF").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByTicket(context.Background(), "BT000099-FFFFFFFF")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
