package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"busticket/internal/domain/models"
	"busticket/internal/repositories/memory"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type published struct {
	key     string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, key string, payload any) error {
	r.mu.Lock()
	r.events = append(r.events, published{key, payload})
	r.mu.Unlock()
	return nil
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.key
	}
	return out
}

type stubGateway struct {
	mu       sync.Mutex
	onCharge func() error
	charged  []models.PaymentRequest
	refunded []models.PaymentReceipt
}

func (g *stubGateway) Charge(ctx context.Context, req models.PaymentRequest) (models.PaymentReceipt, error) {
	if g.onCharge != nil {
		if err := g.onCharge(); err != nil {
			return models.PaymentReceipt{}, err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charged = append(g.charged, req)
	return models.PaymentReceipt{Reference: "PAY-TEST", AmountCents: req.AmountCents}, nil
}

func (g *stubGateway) Refund(_ context.Context, r models.PaymentReceipt) error {
	g.mu.Lock()
	g.refunded = append(g.refunded, r)
	g.mu.Unlock()
	return nil
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	events   *recorder
	gateway  *stubGateway
	ledger   SeatLedger
	bookings BookingService
	fleet    FleetService
	sched    ScheduleService

	scheduleID int64
	seats      []int64 // seat availability ids in layout order
}

// newFixture publishes one schedule on a four seat bus, every seat at 45.00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:   memory.New(),
		clock:   &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		events:  &recorder{},
		gateway: &stubGateway{},
	}
	f.ledger = SeatLedger{Store: f.store, Schedules: f.store, Events: f.events, Hold: 5 * time.Minute, Now: f.clock.Now}
	f.bookings = BookingService{
		Store:     f.store,
		Ledger:    f.ledger,
		Payments:  f.gateway,
		Events:    f.events,
		NewSuffix: func() string { return "CAFEBABE" },
	}
	f.fleet = FleetService{Store: f.store, Now: f.clock.Now}
	f.sched = ScheduleService{Store: f.store, Fleet: f.store, Now: f.clock.Now}

	bus, err := f.fleet.CreateBus(ctx, BusInput{
		Operator: "Northline",
		Number:   "nl-100",
		BusType:  "AC Seater",
		Seats: []SeatInput{
			{Number: "1A"}, {Number: "1B"}, {Number: "2A"}, {Number: "2B"},
		},
	})
	require.NoError(t, err)
	sc, err := f.sched.Publish(ctx, ScheduleInput{
		BusID: bus.ID, FromCity: "Springfield", ToCity: "Shelbyville", TravelDate: "2026-03-02",
		DepartureTime: "08:00", ArrivalTime: "12:30", BasePriceCents: 4500,
	})
	require.NoError(t, err)
	f.scheduleID = sc.ID

	rows, err := f.store.ListBySchedule(ctx, sc.ID)
	require.NoError(t, err)
	for _, r := range rows {
		f.seats = append(f.seats, r.ID)
	}
	return f
}

func (f *fixture) lock(t *testing.T, user int64, seats ...int64) LockResult {
	t.Helper()
	res, err := f.ledger.LockSeats(context.Background(), LockRequest{ScheduleID: f.scheduleID, SeatIDs: seats, UserID: user})
	require.NoError(t, err)
	return res
}

func (f *fixture) request(user int64, seats ...int64) BookingRequest {
	req := BookingRequest{
		ScheduleID:   f.scheduleID,
		SeatIDs:      seats,
		UserID:       user,
		ContactEmail: "rider@example.com",
		ContactPhone: "+1 555 0100",
	}
	for i := range seats {
		req.Passengers = append(req.Passengers, PassengerInput{Name: "Rider " + string(rune('A'+i)), Age: 30, Gender: "female"})
	}
	return req
}

func (f *fixture) seatStatus(t *testing.T, id int64) models.SeatStatus {
	t.Helper()
	rows, err := f.store.GetSeats(context.Background(), []int64{id})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0].Status
}
