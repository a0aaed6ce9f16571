package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parking/internal/external"
	"parking/internal/identity"
	"parking/internal/middleware"
	"parking/internal/models"
	"parking/internal/notifier"
	"parking/internal/repository/memory"
	"parking/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router   *gin.Engine
	store    *memory.Store
	broker   *notifier.Broker
	tokens   map[int64]string
	userA    int64
	userB    int64
	vehicleA int64
	zoneID   int64
	slotIDs  []int64
}

func newGatewayServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req external.PaymentInitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(external.PaymentInitResponse{
			Success:    true,
			PaymentID:  "pay-" + req.OrderID,
			OrderID:    req.OrderID,
			Amount:     req.Amount,
			PaymentURL: "https://pay.test/" + req.OrderID,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	env := &testEnv{store: memory.NewStore(), tokens: map[int64]string{}}

	ua := models.User{Email: "a@example.com", Name: "Driver A"}
	require.NoError(t, env.store.CreateUser(ctx, &ua))
	ub := models.User{Email: "b@example.com", Name: "Driver B"}
	require.NoError(t, env.store.CreateUser(ctx, &ub))
	env.userA, env.userB = ua.ID, ub.ID

	va := models.Vehicle{UserID: ua.ID, Plate: "A-001"}
	require.NoError(t, env.store.CreateVehicle(ctx, &va))
	env.vehicleA = va.ID

	zone := models.Zone{Name: "Central", Address: "1 Main St", GridRows: 1, GridCols: 2}
	require.NoError(t, env.store.CreateZone(ctx, &zone))
	env.zoneID = zone.ID
	for i := 0; i < 2; i++ {
		slot := models.Slot{ZoneID: zone.ID, Code: fmt.Sprintf("S10%d", i+1), PositionX: i}
		require.NoError(t, env.store.CreateSlot(ctx, &slot))
		env.slotIDs = append(env.slotIDs, slot.ID)
	}
	require.NoError(t, env.store.CreateTicketPrice(ctx, &models.TicketPrice{
		ZoneID: zone.ID, TicketType: models.TicketHourly, Amount: 100, ValidFrom: time.Now().AddDate(-1, 0, 0),
	}))

	env.broker = notifier.NewBroker(nil)
	t.Cleanup(env.broker.Close)

	gateway := external.NewPaymentClient(external.PaymentConfig{BaseURL: newGatewayServer(t).URL})
	services := service.NewServices(service.Deps{
		Store:     env.store,
		Gateway:   gateway,
		Publisher: env.broker,
	}, service.DefaultPolicy())

	provider := identity.NewJWTProvider(identity.Config{Secret: "test", Issuer: "parking", TokenTTL: time.Hour})
	for _, id := range []int64{env.userA, env.userB} {
		token, err := provider.IssueToken(id)
		require.NoError(t, err)
		env.tokens[id] = token
	}

	env.router = gin.New()
	h := NewHandlers(services, env.broker)
	h.heartbeat = 50 * time.Millisecond
	h.RegisterRoutes(env.router, middleware.Auth(provider))
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+e.tokens[userID])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) hold(t *testing.T, slot int, start, end time.Time) models.CreateHoldResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/reservations", e.userA, models.CreateHoldRequest{
		VehicleID: e.vehicleA, SlotID: e.slotIDs[slot], StartTime: start, EndTime: end,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.CreateHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func nextHours(from, to int) (time.Time, time.Time) {
	base := time.Now().Truncate(time.Hour)
	return base.Add(time.Duration(from) * time.Hour), base.Add(time.Duration(to) * time.Hour)
}

func TestCreateReservation(t *testing.T) {
	env := setupEnv(t)
	start, end := nextHours(3, 4)

	resp := env.hold(t, 0, start, end)
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, int64(100), resp.Price)
	assert.NotEmpty(t, resp.Reference)

	w := env.do(t, http.MethodPost, "/api/reservations", env.userA, models.CreateHoldRequest{
		VehicleID: env.vehicleA, SlotID: env.slotIDs[0], StartTime: start, EndTime: end,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	var conflict map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	assert.EqualValues(t, env.slotIDs[0], conflict["slot_id"])
}

func TestCreateReservation_BadRequests(t *testing.T) {
	env := setupEnv(t)
	start, end := nextHours(3, 4)

	w := env.do(t, http.MethodPost, "/api/reservations", env.userA, map[string]any{"slot_id": env.slotIDs[0]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/reservations", env.userA, models.CreateHoldRequest{
		VehicleID: env.vehicleA, SlotID: env.slotIDs[0], StartTime: end, EndTime: start,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/reservations", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/reservations", env.userB, models.CreateHoldRequest{
		VehicleID: env.vehicleA, SlotID: env.slotIDs[0], StartTime: start, EndTime: end,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReservationLifecycle(t *testing.T) {
	env := setupEnv(t)
	start, end := nextHours(3, 5)
	held := env.hold(t, 0, start, end)
	path := fmt.Sprintf("/api/reservations/%d", held.ReservationID)

	w := env.do(t, http.MethodPatch, path+"/check-out", env.userA, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, path, env.userB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, path+"/check-in", env.userA, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.StatusOccupied, status.Status)

	w = env.do(t, http.MethodPatch, path+"/check-out", env.userA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, path+"/cancel", env.userA, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/reservations", env.userA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.ListReservationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusCompleted, list[0].Status)

	w = env.do(t, http.MethodGet, "/api/reservations/9999", env.userA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/reservations/abc", env.userA, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAndReschedule(t *testing.T) {
	env := setupEnv(t)
	start, end := nextHours(5, 6)
	held := env.hold(t, 0, start, end)
	path := fmt.Sprintf("/api/reservations/%d", held.ReservationID)

	newStart, newEnd := nextHours(7, 9)
	w := env.do(t, http.MethodPatch, path+"/reschedule", env.userA, models.RescheduleRequest{StartTime: newStart, EndTime: newEnd})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.Equal(t, int64(200), moved.Price)

	w = env.do(t, http.MethodPatch, path+"/cancel", env.userA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled models.CancelReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Zero(t, cancelled.CancellationFee)
}

func TestZones(t *testing.T) {
	env := setupEnv(t)
	start, end := nextHours(0, 2)
	env.hold(t, 0, start, end)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/zones/%d/availability", env.zoneID), env.userB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var availability models.ZoneAvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &availability))
	assert.Equal(t, 2, availability.TotalSlots)
	assert.Equal(t, 1, availability.AvailableSlots)
	assert.Equal(t, models.SlotHeld, availability.Slots[0].Status)

	w = env.do(t, http.MethodGet, "/api/zones?query=main", env.userB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var zones models.ListZonesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, 1, zones[0].AvailableSlots)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/zones/%d", env.zoneID), env.userB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details models.ZoneDetailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.Equal(t, 2, details.Layout.Cols)
	assert.Len(t, details.Slots, 2)

	w = env.do(t, http.MethodGet, "/api/zones/9999", env.userB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentFlow(t *testing.T) {
	env := setupEnv(t)
	start, end := nextHours(3, 4)
	held := env.hold(t, 0, start, end)
	path := fmt.Sprintf("/api/reservations/%d/payment", held.ReservationID)

	w := env.do(t, http.MethodPost, path, env.userA, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var initiated models.InitiatePaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initiated))
	assert.Equal(t, "https://pay.test/"+held.Reference, initiated.PaymentURL)

	w = env.do(t, http.MethodPost, "/payments/notifications", 0, models.PaymentNotificationPayload{
		PaymentID: "pay-" + held.Reference, OrderID: held.Reference, Status: "CONFIRMED", Amount: 100,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, path, env.userA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.PaymentStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.IsPaymentCompleted)
	assert.Equal(t, models.StatusConfirmed, status.Status)

	w = env.do(t, http.MethodGet, "/payments/success?orderId="+held.Reference, 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/payments/fail", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/payments/notifications", 0, models.PaymentNotificationPayload{
		PaymentID: "x", OrderID: "unknown", Status: "CONFIRMED",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamEvents(t *testing.T) {
	env := setupEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/events/stream?zone_id=%d", srv.URL, env.zoneID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.tokens[env.userB])

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription exists once headers are flushed
	start, end := nextHours(3, 4)
	env.hold(t, 0, start, end)

	scanner := bufio.NewScanner(resp.Body)
	var seen []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			seen = append(seen, strings.TrimPrefix(line, "event:"))
			if seen[len(seen)-1] == models.EventHoldCreated {
				break
			}
		}
	}
	assert.Contains(t, seen, models.EventHoldCreated)

	w := env.do(t, http.MethodGet, "/api/events/stream?zone_id=abc", env.userB, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
