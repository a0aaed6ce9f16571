package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"parking/internal/external"
	"parking/internal/models"
	"parking/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hourlyPrice  = 100
	dailyPrice   = 1000
	monthlyPrice = 20000
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventRecorder) Publish(events ...models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *eventRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last() models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fakeGateway struct {
	mu        sync.Mutex
	inits     int
	cancelled []string
	reject    bool
}

func (g *fakeGateway) InitPayment(_ context.Context, amount int64, orderID, _ string) (*external.PaymentInitResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits++
	return &external.PaymentInitResponse{
		Success:    true,
		PaymentID:  "pay-" + orderID,
		OrderID:    orderID,
		Amount:     amount,
		PaymentURL: "https://pay.test/" + orderID,
	}, nil
}

func (g *fakeGateway) CancelPayment(_ context.Context, paymentID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, paymentID)
	return nil
}

func (g *fakeGateway) VerifyNotification(*models.PaymentNotificationPayload) bool {
	return !g.reject
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	clock   *testClock
	events  *eventRecorder
	gateway *fakeGateway
	svc     *Services

	userA, userB       int64
	vehicleA, vehicleB int64
	zoneID             int64
	slots              []models.Slot
}

// newFixture seeds one zone with n slots and two users with a vehicle each.
// The clock starts at 08:00 UTC on 2 March 2026.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		ctx:     ctx,
		store:   memory.NewStore(),
		clock:   &testClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		events:  &eventRecorder{},
		gateway: &fakeGateway{},
	}

	ua := models.User{Email: "a@example.com", Name: "Driver A"}
	require.NoError(t, f.store.CreateUser(ctx, &ua))
	ub := models.User{Email: "b@example.com", Name: "Driver B"}
	require.NoError(t, f.store.CreateUser(ctx, &ub))
	f.userA, f.userB = ua.ID, ub.ID
	va := models.Vehicle{UserID: f.userA, Plate: "A-001"}
	require.NoError(t, f.store.CreateVehicle(ctx, &va))
	vb := models.Vehicle{UserID: f.userB, Plate: "B-001"}
	require.NoError(t, f.store.CreateVehicle(ctx, &vb))
	f.vehicleA, f.vehicleB = va.ID, vb.ID

	zone := models.Zone{Name: "Central", Address: "1 Main St", GridRows: 1, GridCols: n}
	require.NoError(t, f.store.CreateZone(ctx, &zone))
	f.zoneID = zone.ID
	for i := 0; i < n; i++ {
		slot := models.Slot{ZoneID: zone.ID, Code: "S10" + string(rune('1'+i)), PositionX: i}
		require.NoError(t, f.store.CreateSlot(ctx, &slot))
		f.slots = append(f.slots, slot)
	}

	validFrom := f.clock.Now().AddDate(-1, 0, 0)
	for tt, amount := range map[models.TicketType]int64{
		models.TicketHourly:  hourlyPrice,
		models.TicketDaily:   dailyPrice,
		models.TicketMonthly: monthlyPrice,
	} {
		require.NoError(t, f.store.CreateTicketPrice(ctx, &models.TicketPrice{
			ZoneID: zone.ID, TicketType: tt, Amount: amount, ValidFrom: validFrom,
		}))
	}

	f.svc = NewServices(Deps{
		Store:     f.store,
		Gateway:   f.gateway,
		Publisher: f.events,
		Clock:     f.clock.Now,
	}, DefaultPolicy())
	return f
}

// at returns today's wall time h:00 on the fixture's day.
func (f *fixture) at(h int) time.Time {
	d := f.clock.Now()
	return time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, time.UTC)
}

func (f *fixture) window(from, to int) models.Window {
	return models.Window{Start: f.at(from), End: f.at(to)}
}

func (f *fixture) holdA(t *testing.T, slot int, w models.Window) *models.Reservation {
	t.Helper()
	res, err := f.svc.Holds.CreateHold(f.ctx, HoldRequest{
		UserID: f.userA, VehicleID: f.vehicleA, SlotID: f.slots[slot].ID, Window: w,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) holdB(slot int, w models.Window) (*models.Reservation, error) {
	return f.svc.Holds.CreateHold(f.ctx, HoldRequest{
		UserID: f.userB, VehicleID: f.vehicleB, SlotID: f.slots[slot].ID, Window: w,
	})
}

func (f *fixture) reservation(t *testing.T, id int64) *models.Reservation {
	t.Helper()
	res, err := f.store.GetReservation(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (f *fixture) payment(t *testing.T, reservationID int64) *models.Payment {
	t.Helper()
	p, err := f.store.GetPaymentByReservation(f.ctx, reservationID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) zoneAvailable(t *testing.T) int {
	t.Helper()
	z, err := f.store.GetZone(f.ctx, f.zoneID)
	require.NoError(t, err)
	return z.AvailableSlots
}

// assertCounterConsistent checks the stored counter against a fresh
// derivation from the ledger.
func (f *fixture) assertCounterConsistent(t *testing.T) {
	t.Helper()
	derived, err := f.svc.Availability.ZoneAvailability(f.ctx, f.zoneID)
	require.NoError(t, err)
	assert.Equal(t, derived.AvailableSlots, f.zoneAvailable(t))
}
