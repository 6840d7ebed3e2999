package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/events"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type PassengerInput struct {
	SeatID int64  `json:"seatId"`
	Name   string `json:"name" validate:"required,max=100"`
	Age    int    `json:"age" validate:"gte=1,lte=120"`
	Gender string `json:"gender" validate:"required,oneof=male female other"`
}

type BookingRequest struct {
	ScheduleID   int64            `json:"scheduleId" validate:"gt=0"`
	SeatIDs      []int64          `json:"seatIds"`
	UserID       int64            `json:"userId" validate:"gt=0"`
	Passengers   []PassengerInput `json:"passengers" validate:"required,min=1,dive"`
	ContactEmail string           `json:"contactEmail" validate:"required,email,max=160"`
	ContactPhone string           `json:"contactPhone" validate:"required,min=6,max=40"`
	// PaymentMethod is passed to the gateway as is.
	PaymentMethod string `json:"paymentMethod" validate:"max=32"`
}

// BookingService turns held seats into a paid booking. Seat commit, booking
// row, passengers and ticket number are written in one store transaction.
type BookingService struct {
	Store     BookingStore
	Ledger    SeatLedger
	Payments  PaymentGateway
	Events    EventPublisher
	NewSuffix func() string
}

func (s BookingService) now() time.Time { return s.Ledger.now() }

func (s BookingService) suffix() string {
	if s.NewSuffix != nil {
		return s.NewSuffix()
	}
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s BookingService) payments() PaymentGateway {
	if s.Payments != nil {
		return s.Payments
	}
	return ApprovingGateway{}
}

// CreateBooking validates the request, frees expired locks on the schedule,
// re-checks that the user still holds every seat, charges the total and
// commits. A commit failure after the charge refunds it.
func (s BookingService) CreateBooking(ctx context.Context, req BookingRequest) (models.Booking, error) {
	reqID := domain.RequestIDFrom(ctx)
	req = normalizeBooking(req)
	if err := validateBooking(req); err != nil {
		return models.Booking{}, err
	}
	passengers, err := assignSeats(req)
	if err != nil {
		return models.Booking{}, err
	}
	if _, err := s.Ledger.Schedules.Get(ctx, req.ScheduleID); err != nil {
		return models.Booking{}, err
	}

	now := s.now()
	s.Ledger.releaseExpired(ctx, req.ScheduleID, now)
	rows, err := s.Ledger.Store.GetSeats(ctx, req.SeatIDs)
	if err != nil {
		return models.Booking{}, err
	}
	current := make(map[int64]models.SeatAvailability, len(rows))
	for _, r := range rows {
		current[r.ID] = r
	}
	failed := models.CheckSeats(req.SeatIDs, current, func(r models.SeatAvailability) string {
		if r.ScheduleID != req.ScheduleID {
			return domain.ReasonWrongSchedule
		}
		return r.CommitRejection(req.UserID, now)
	})
	if len(failed) > 0 {
		utils.LogEvent(reqID, "booking", "create", fmt.Sprintf("user=%d schedule=%d conflict=%v", req.UserID, req.ScheduleID, failed))
		return models.Booking{}, domain.SeatConflictError{Failed: failed}
	}

	var total int64
	for _, id := range req.SeatIDs {
		total += current[id].PriceCents
	}

	receipt, err := s.payments().Charge(ctx, models.PaymentRequest{
		UserID:      req.UserID,
		ScheduleID:  req.ScheduleID,
		AmountCents: total,
		Method:      req.PaymentMethod,
		Reference:   reqID,
	})
	if err != nil {
		utils.LogEvent(reqID, "booking", "charge", fmt.Sprintf("user=%d amount=%d err=%v", req.UserID, total, err))
		if domain.IsPayment(err) {
			return models.Booking{}, err
		}
		return models.Booking{}, domain.InternalError{Msg: "payment gateway unavailable", Err: err}
	}

	// Locks are judged at commit time; a hold can lapse while the charge runs.
	now = s.now()
	booking, err := s.Store.CreateConfirmed(ctx, repositories.ConfirmBooking{
		Booking: models.Booking{
			UserID:        req.UserID,
			ScheduleID:    req.ScheduleID,
			Status:        models.BookingConfirmed,
			PaymentStatus: models.PaymentPaid,
			PaymentRef:    receipt.Reference,
			TotalCents:    total,
			ContactEmail:  req.ContactEmail,
			ContactPhone:  req.ContactPhone,
			Passengers:    passengers,
		},
		SeatIDs:      req.SeatIDs,
		TicketSuffix: s.suffix(),
		Now:          now,
	})
	if err != nil {
		if rerr := s.payments().Refund(context.WithoutCancel(ctx), receipt); rerr != nil {
			utils.LogEvent(reqID, "booking", "refund", fmt.Sprintf("ref=%s err=%v", receipt.Reference, rerr))
		}
		utils.LogEvent(reqID, "booking", "create", fmt.Sprintf("user=%d schedule=%d commit failed: %v", req.UserID, req.ScheduleID, err))
		return models.Booking{}, err
	}

	s.Ledger.invalidate(ctx, req.ScheduleID)
	s.publish(ctx, events.KeyBookingConfirmed, events.BookingConfirmed{
		BookingID:    booking.ID,
		TicketNumber: booking.TicketNumber,
		UserID:       booking.UserID,
		ScheduleID:   booking.ScheduleID,
		SeatIDs:      booking.SeatIDs(),
		TotalCents:   booking.TotalCents,
		At:           now,
	})
	utils.LogEvent(reqID, "booking", "create", fmt.Sprintf("ticket=%s user=%d seats=%v total=%s", booking.TicketNumber, req.UserID, req.SeatIDs, utils.FormatMoney(total)))
	return booking, nil
}

// GetTicket returns the booking with its schedule. The ticket number is the
// lookup key.
func (s BookingService) GetTicket(ctx context.Context, ticket string) (models.TicketView, error) {
	ticket = strings.ToUpper(strings.TrimSpace(ticket))
	if ticket == "" {
		return models.TicketView{}, domain.ValidationError{Field: "ticketId", Msg: "required"}
	}
	b, err := s.Store.GetByTicket(ctx, ticket)
	if err != nil {
		return models.TicketView{}, err
	}
	sc, err := s.Ledger.Schedules.Get(ctx, b.ScheduleID)
	if err != nil {
		return models.TicketView{}, err
	}
	return models.TicketView{Booking: b, Schedule: sc}, nil
}

func (s BookingService) ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	if userID <= 0 {
		return nil, domain.ValidationError{Field: "userId", Msg: "must be positive"}
	}
	return s.Store.ListByUser(ctx, userID)
}

// CancelBooking marks the user's booking cancelled and refunds a paid total.
// Booked seats are not returned to the ledger.
func (s BookingService) CancelBooking(ctx context.Context, bookingID, userID int64) (models.Booking, error) {
	reqID := domain.RequestIDFrom(ctx)
	if bookingID <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "id", Msg: "must be positive"}
	}
	b, err := s.Store.GetByID(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if b.UserID != userID {
		return models.Booking{}, domain.ForbiddenError{Msg: "booking belongs to another user"}
	}

	payment := b.PaymentStatus
	if payment == models.PaymentPaid {
		payment = models.PaymentRefunded
	}
	from := []models.BookingStatus{models.BookingPending, models.BookingConfirmed}
	if err := s.Store.UpdateStatus(ctx, b.ID, from, models.BookingCancelled, payment); err != nil {
		return models.Booking{}, err
	}
	if b.PaymentStatus == models.PaymentPaid {
		receipt := models.PaymentReceipt{Reference: b.PaymentRef, AmountCents: b.TotalCents}
		if err := s.payments().Refund(context.WithoutCancel(ctx), receipt); err != nil {
			utils.LogEvent(reqID, "booking", "refund", fmt.Sprintf("ticket=%s ref=%s err=%v", b.TicketNumber, b.PaymentRef, err))
		}
	}
	b.Status = models.BookingCancelled
	b.PaymentStatus = payment

	s.publish(ctx, events.KeyBookingCancelled, events.BookingCancelled{
		BookingID:    b.ID,
		TicketNumber: b.TicketNumber,
		UserID:       b.UserID,
		At:           s.now(),
	})
	utils.LogEvent(reqID, "booking", "cancel", fmt.Sprintf("ticket=%s user=%d", b.TicketNumber, userID))
	return b, nil
}

func (s BookingService) publish(ctx context.Context, key string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, key, payload); err != nil {
		utils.LogEvent(domain.RequestIDFrom(ctx), "events", "publish", fmt.Sprintf("key=%s err=%v", key, err))
	}
}

func normalizeBooking(req BookingRequest) BookingRequest {
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	ps := make([]PassengerInput, len(req.Passengers))
	for i, p := range req.Passengers {
		p.Name = utils.NormalizeSpace(p.Name)
		p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
		ps[i] = p
	}
	req.Passengers = ps
	return req
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func validateBooking(req BookingRequest) error {
	var errs domain.ValidationErrors
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.ValidationError{Msg: err.Error(), Err: err}
		}
		for _, fe := range fieldErrs {
			errs = append(errs, domain.ValidationError{Field: fieldPath(fe), Msg: fieldMessage(fe)})
		}
	}
	if err := validateSeatSet(req.UserID, req.SeatIDs); err != nil {
		var seatErrs domain.ValidationErrors
		if errors.As(err, &seatErrs) {
			for _, e := range seatErrs {
				if e.Field != "userId" {
					errs = append(errs, e)
				}
			}
		}
	}
	if len(req.Passengers) > 0 && len(req.SeatIDs) > 0 && len(req.Passengers) != len(req.SeatIDs) {
		errs = append(errs, domain.ValidationError{Field: "passengers", Msg: fmt.Sprintf("expected %d passengers, one per seat", len(req.SeatIDs))})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldPath drops the struct type prefix: BookingRequest.passengers[0].age
// becomes passengers[0].age.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "at least " + fe.Param() + " required"
		}
		return "must be at least " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be positive"
	}
	return "invalid value"
}

// assignSeats pairs passengers with seats. Passengers naming a seat keep
// it; the rest take the remaining seats in request order.
func assignSeats(req BookingRequest) ([]models.Passenger, error) {
	requested := make(map[int64]bool, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		requested[id] = true
	}
	taken := map[int64]bool{}
	var errs domain.ValidationErrors
	for i, p := range req.Passengers {
		if p.SeatID == 0 {
			continue
		}
		field := fmt.Sprintf("passengers[%d].seatId", i)
		switch {
		case !requested[p.SeatID]:
			errs = append(errs, domain.ValidationError{Field: field, Msg: "seat is not part of this booking"})
		case taken[p.SeatID]:
			errs = append(errs, domain.ValidationError{Field: field, Msg: "seat already assigned to another passenger"})
		default:
			taken[p.SeatID] = true
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	free := make([]int64, 0, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if !taken[id] {
			free = append(free, id)
		}
	}
	out := make([]models.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		seat := p.SeatID
		if seat == 0 {
			seat, free = free[0], free[1:]
		}
		out = append(out, models.Passenger{
			SeatAvailabilityID: seat,
			Name:               p.Name,
			Age:                p.Age,
			Gender:             p.Gender,
		})
	}
	return out, nil
}
