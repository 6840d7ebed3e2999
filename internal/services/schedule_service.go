package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/utils"
)

type ScheduleInput struct {
	BusID          int64
	FromCity       string
	ToCity         string
	TravelDate     string
	DepartureTime  string
	ArrivalTime    string
	BasePriceCents int64
	BoardingPoint  string
	DropPoint      string
}

type ScheduleService struct {
	Store              ScheduleStore
	Fleet              FleetStore
	UpperDeckSurcharge int64 // added to the base fare of upper deck seats
	Now                func() time.Time
}

func (s ScheduleService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utils.NowUTC()
}

// Search finds active schedules between two cities on a date.
func (s ScheduleService) Search(ctx context.Context, q models.ScheduleQuery) ([]models.ScheduleSummary, error) {
	q.From = utils.NormalizeSpace(q.From)
	q.To = utils.NormalizeSpace(q.To)
	q.Date = strings.TrimSpace(q.Date)

	var errs domain.ValidationErrors
	if q.From == "" {
		errs = append(errs, domain.ValidationError{Field: "from", Msg: "required"})
	}
	if q.To == "" {
		errs = append(errs, domain.ValidationError{Field: "to", Msg: "required"})
	}
	if _, err := utils.ParseDate(q.Date); err != nil {
		errs = append(errs, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return s.Store.Search(ctx, q)
}

func (s ScheduleService) Get(ctx context.Context, id int64) (models.ScheduleSummary, error) {
	if id <= 0 {
		return models.ScheduleSummary{}, domain.ValidationError{Field: "id", Msg: "must be positive"}
	}
	return s.Store.Get(ctx, id)
}

// Publish creates a schedule and opens every seat of its bus for sale.
func (s ScheduleService) Publish(ctx context.Context, in ScheduleInput) (models.Schedule, error) {
	in.FromCity = utils.NormalizeSpace(in.FromCity)
	in.ToCity = utils.NormalizeSpace(in.ToCity)

	var errs domain.ValidationErrors
	if in.BusID <= 0 {
		errs = append(errs, domain.ValidationError{Field: "busId", Msg: "must be positive"})
	}
	if in.FromCity == "" {
		errs = append(errs, domain.ValidationError{Field: "fromCity", Msg: "required"})
	}
	if in.ToCity == "" {
		errs = append(errs, domain.ValidationError{Field: "toCity", Msg: "required"})
	}
	if in.FromCity != "" && strings.EqualFold(in.FromCity, in.ToCity) {
		errs = append(errs, domain.ValidationError{Field: "toCity", Msg: "must differ from fromCity"})
	}
	if _, err := utils.ParseDate(in.TravelDate); err != nil {
		errs = append(errs, domain.ValidationError{Field: "travelDate", Msg: "must be YYYY-MM-DD"})
	}
	if !utils.ValidClock(in.DepartureTime) {
		errs = append(errs, domain.ValidationError{Field: "departureTime", Msg: "must be HH:MM"})
	}
	if !utils.ValidClock(in.ArrivalTime) {
		errs = append(errs, domain.ValidationError{Field: "arrivalTime", Msg: "must be HH:MM"})
	}
	if in.BasePriceCents <= 0 {
		errs = append(errs, domain.ValidationError{Field: "price", Msg: "must be positive"})
	}
	if len(errs) > 0 {
		return models.Schedule{}, errs
	}

	if _, err := s.Fleet.GetBus(ctx, in.BusID); err != nil {
		return models.Schedule{}, err
	}
	sc, err := s.Store.Publish(ctx, models.Schedule{
		BusID:          in.BusID,
		FromCity:       in.FromCity,
		ToCity:         in.ToCity,
		TravelDate:     strings.TrimSpace(in.TravelDate),
		DepartureTime:  in.DepartureTime,
		ArrivalTime:    in.ArrivalTime,
		BasePriceCents: in.BasePriceCents,
		BoardingPoint:  strings.TrimSpace(in.BoardingPoint),
		DropPoint:      strings.TrimSpace(in.DropPoint),
		CreatedAt:      s.now(),
	}, s.UpperDeckSurcharge)
	if err != nil {
		return models.Schedule{}, err
	}
	utils.LogEvent(domain.RequestIDFrom(ctx), "schedule", "publish",
		fmt.Sprintf("id=%d bus=%d %s->%s %s %s seats=%d", sc.ID, sc.BusID, sc.FromCity, sc.ToCity, sc.TravelDate, sc.DepartureTime, sc.TotalSeats))
	return sc, nil
}
