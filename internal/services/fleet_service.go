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

type SeatInput struct {
	Number   string
	Deck     string
	Position string
	SeatType string
}

type BusInput struct {
	Operator  string
	Number    string
	BusType   string
	Amenities []string
	Seats     []SeatInput
}

// MaxSeatsPerBus bounds the layout an operator can register.
const MaxSeatsPerBus = 80

type FleetService struct {
	Store FleetStore
	Now   func() time.Time
}

func (s FleetService) CreateBus(ctx context.Context, in BusInput) (models.Bus, error) {
	var errs domain.ValidationErrors
	operator := utils.NormalizeSpace(in.Operator)
	number := strings.ToUpper(strings.TrimSpace(in.Number))
	busType := utils.NormalizeSpace(in.BusType)
	if operator == "" {
		errs = append(errs, domain.ValidationError{Field: "operator", Msg: "required"})
	}
	if number == "" {
		errs = append(errs, domain.ValidationError{Field: "number", Msg: "required"})
	}
	if busType == "" {
		errs = append(errs, domain.ValidationError{Field: "busType", Msg: "required"})
	}
	if len(in.Seats) == 0 || len(in.Seats) > MaxSeatsPerBus {
		errs = append(errs, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("between 1 and %d seats required", MaxSeatsPerBus)})
	}

	seats := make([]models.Seat, 0, len(in.Seats))
	seen := map[string]bool{}
	for i, si := range in.Seats {
		seat := models.Seat{
			Number:   strings.ToUpper(strings.TrimSpace(si.Number)),
			Deck:     strings.ToLower(strings.TrimSpace(si.Deck)),
			Position: strings.ToLower(strings.TrimSpace(si.Position)),
			SeatType: strings.ToLower(strings.TrimSpace(si.SeatType)),
		}
		if seat.Deck == "" {
			seat.Deck = models.DeckLower
		}
		if seat.SeatType == "" {
			seat.SeatType = models.SeatTypeSeater
		}
		field := fmt.Sprintf("seats[%d]", i)
		switch {
		case seat.Number == "":
			errs = append(errs, domain.ValidationError{Field: field + ".number", Msg: "required"})
		case seen[seat.Number]:
			errs = append(errs, domain.ValidationError{Field: field + ".number", Msg: "duplicate seat number " + seat.Number})
		}
		if seat.Deck != models.DeckLower && seat.Deck != models.DeckUpper {
			errs = append(errs, domain.ValidationError{Field: field + ".deck", Msg: "must be lower or upper"})
		}
		switch seat.Position {
		case "", models.PositionWindow, models.PositionAisle, models.PositionMiddle:
		default:
			errs = append(errs, domain.ValidationError{Field: field + ".position", Msg: "must be window, aisle or middle"})
		}
		if seat.SeatType != models.SeatTypeSeater && seat.SeatType != models.SeatTypeSleeper {
			errs = append(errs, domain.ValidationError{Field: field + ".type", Msg: "must be seater or sleeper"})
		}
		seen[seat.Number] = true
		seats = append(seats, seat)
	}
	if len(errs) > 0 {
		return models.Bus{}, errs
	}

	now := utils.NowUTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	bus, err := s.Store.CreateBus(ctx, models.Bus{
		Operator:  operator,
		Number:    number,
		BusType:   busType,
		Amenities: in.Amenities,
		CreatedAt: now,
		Seats:     seats,
	})
	if err != nil {
		return models.Bus{}, err
	}
	utils.LogEvent(domain.RequestIDFrom(ctx), "fleet", "create_bus", fmt.Sprintf("id=%d number=%s seats=%d", bus.ID, bus.Number, len(bus.Seats)))
	return bus, nil
}
